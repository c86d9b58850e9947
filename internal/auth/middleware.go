// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package auth

import (
	"context"
	"net/http"

	"github.com/projectbase/idm/internal/platform/apperr"
	"github.com/projectbase/idm/internal/platform/ctxkey"
	requestutil "github.com/projectbase/idm/internal/platform/request"
	"github.com/projectbase/idm/internal/platform/respond"
	"github.com/projectbase/idm/internal/platform/sec"
)

// # Context Plumbing

// WithResolver stores the per-request [Resolver] in the context.
func WithResolver(ctx context.Context, resolver *Resolver) context.Context {
	return context.WithValue(ctx, ctxkey.KeyAuth, resolver)
}

// FromContext retrieves the request's [Resolver]. It never returns nil: a
// request that skipped the Authenticate middleware gets an empty resolver
// that answers everything anonymously.
func FromContext(ctx context.Context) *Resolver {
	if resolver, ok := ctx.Value(ctxkey.KeyAuth).(*Resolver); ok && resolver != nil {
		return resolver
	}
	return &Resolver{evaluated: true}
}

// # Middleware

// Middleware builds the authentication middleware chain components. It owns
// the dependencies a [Resolver] needs so handlers never construct one.
type Middleware struct {
	codec    *sec.Codec
	sessions SessionStore
	users    UserStore
}

// NewMiddleware creates the authentication [Middleware].
func NewMiddleware(codec *sec.Codec, sessions SessionStore, users UserStore) *Middleware {
	return &Middleware{codec: codec, sessions: sessions, users: users}
}

// Authenticate constructs a lazy [Resolver] from the request's bearer token
// and client IP and injects it into the context.
//
// It never rejects: anonymous and invalid-token requests pass through with
// an unauthenticated resolver. Gating happens downstream in [RequireAuth]
// and [Middleware.RequirePermissions].
func (middleware *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		resolver := NewResolver(
			requestutil.BearerToken(request),
			requestutil.ClientIP(request),
			middleware.codec,
			middleware.sessions,
			middleware.users,
		)
		next.ServeHTTP(writer, request.WithContext(WithResolver(request.Context(), resolver)))
	})
}

// RequireAuth rejects unauthenticated requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !FromContext(request.Context()).IsAuthenticated(request.Context()) {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequirePermissions rejects requests that are unauthenticated (401) or that
// lack any of the given permissions (403). The check is conjunctive.
func RequirePermissions(permissions ...sec.PermissionKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			resolver := FromContext(request.Context())

			if !resolver.IsAuthenticated(request.Context()) {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}
			if !resolver.HasAllPermissions(request.Context(), permissions...) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

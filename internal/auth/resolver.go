// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package auth

import (
	"context"
	"time"

	"github.com/projectbase/idm/internal/platform/ctxutil"
	"github.com/projectbase/idm/internal/platform/sec"
	"github.com/projectbase/idm/pkg/uuid"
)

// # Identity Resolver

// Resolver answers identity and permission questions for one request.
//
// It is constructed per request by the Authenticate middleware from the
// explicit bearer token and client IP; it never reads ambient transport
// state itself.
//
// # Memoization
//
// Each fact (authenticated?, user id, full user) is computed at most once
// per request. Repeated permission checks inside one request hit the memo,
// not the store.
//
// # Failure Policy
//
// Resolution never returns errors. Any failure anywhere in the chain
// (malformed token, bad signature, revoked session, store outage) makes the
// request anonymous: IsAuthenticated reports false and the accessors return
// zero values. Failures are logged and swallowed.
type Resolver struct {
	bearerToken string
	clientIP    string

	codec    *sec.Codec
	sessions SessionStore
	users    UserStore

	// Memo fields. evaluated/userLoaded guard the lazy computations.
	evaluated     bool
	authenticated bool
	claims        *sec.Claims

	userLoaded bool
	user       *User
}

// NewResolver creates a [Resolver] for one request. An empty bearerToken is
// valid and resolves to an anonymous identity.
func NewResolver(bearerToken, clientIP string, codec *sec.Codec, sessions SessionStore, users UserStore) *Resolver {
	return &Resolver{
		bearerToken: bearerToken,
		clientIP:    clientIP,
		codec:       codec,
		sessions:    sessions,
		users:       users,
	}
}

// ClientIP returns the client address the resolver was built with.
func (resolver *Resolver) ClientIP() string { return resolver.clientIP }

// IsAuthenticated reports whether the request carries a live, verified
// access token.
//
// A token authenticates only when all of the following hold: the signature,
// issuer, audience, and expiry validate against the access secret; its
// generation id correlates to a session row; that session is not revoked;
// and the session's own access expiry is still in the future. Revocation
// therefore takes effect immediately, before the token's signed expiry.
func (resolver *Resolver) IsAuthenticated(ctx context.Context) bool {
	if resolver.evaluated {
		return resolver.authenticated
	}
	resolver.evaluated = true

	if resolver.bearerToken == "" {
		return false
	}

	claims, err := resolver.codec.ValidateAccess(resolver.bearerToken)
	if err != nil {
		ctxutil.GetLogger(ctx).Debug("access token rejected", "error", err)
		return false
	}

	// Generation ids are always GUIDs. A malformed one can never correlate
	// to a session row, so skip the store round trip.
	generationID := claims.GenerationID()
	if !uuid.IsValid(generationID) {
		ctxutil.GetLogger(ctx).Debug("access token carries a malformed generation id")
		return false
	}

	session, err := resolver.sessions.FindByAccessTokenID(ctx, generationID)
	if err != nil {
		ctxutil.GetLogger(ctx).Debug("session lookup failed during resolution", "error", err)
		return false
	}
	if session.IsDeleted() {
		return false
	}
	if !session.AccessTokenExpiresAt.After(time.Now()) {
		return false
	}

	resolver.claims = claims
	resolver.authenticated = true
	return true
}

// UserID returns the authenticated subject, or "" for anonymous requests.
func (resolver *Resolver) UserID(ctx context.Context) string {
	if !resolver.IsAuthenticated(ctx) {
		return ""
	}
	return resolver.claims.Subject
}

// Username returns the authenticated account name, or "".
func (resolver *Resolver) Username(ctx context.Context) string {
	if !resolver.IsAuthenticated(ctx) {
		return ""
	}
	return resolver.claims.Name
}

// AccessTokenID returns the generation id of the authenticated access
// token, or "". Logout keys its revocation on this value.
func (resolver *Resolver) AccessTokenID(ctx context.Context) string {
	if !resolver.IsAuthenticated(ctx) {
		return ""
	}
	return resolver.claims.AccessTokenID
}

// CurrentUser returns the authenticated [User] with roles and permissions
// hydrated, or nil. The store round trip happens at most once per request.
func (resolver *Resolver) CurrentUser(ctx context.Context) *User {
	if !resolver.IsAuthenticated(ctx) {
		return nil
	}
	if resolver.userLoaded {
		return resolver.user
	}
	resolver.userLoaded = true

	user, err := resolver.users.FindByID(ctx, resolver.claims.Subject)
	if err != nil {
		ctxutil.GetLogger(ctx).Debug("user hydration failed during resolution", "error", err)
		return nil
	}

	resolver.user = user
	return user
}

// # Authorization Checks

// IsSystemRole reports whether the current user holds a system-tier role.
// System admins qualify implicitly.
func (resolver *Resolver) IsSystemRole(ctx context.Context) bool {
	user := resolver.CurrentUser(ctx)
	return user != nil && user.HasSystemRole()
}

// IsSystemAdmin reports whether the current user holds a system-admin role.
func (resolver *Resolver) IsSystemAdmin(ctx context.Context) bool {
	user := resolver.CurrentUser(ctx)
	return user != nil && user.HasSystemAdmin()
}

// HasAllPermissions reports whether the current user holds every one of the
// given permissions. The check is conjunctive, and an empty requirement set
// grants nothing: callers asking for nothing get false, not a free pass.
func (resolver *Resolver) HasAllPermissions(ctx context.Context, permissions ...sec.PermissionKey) bool {
	if len(permissions) == 0 {
		return false
	}

	user := resolver.CurrentUser(ctx)
	if user == nil {
		return false
	}

	held := user.PermissionSet()
	for _, permission := range permissions {
		if _, ok := held[permission]; !ok {
			return false
		}
	}
	return true
}

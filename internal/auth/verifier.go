// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package auth

import (
	"context"
	"errors"

	"github.com/projectbase/idm/internal/platform/apperr"
	"github.com/projectbase/idm/internal/platform/dberr"
	"github.com/projectbase/idm/internal/platform/sec"
)

// Verifier checks username/password credentials against stored accounts.
//
// # Enumeration Resistance
//
// Every failure mode (unknown username, bad password, missing hash) comes
// back as the same [apperr.LoginFailed] error. The verifier never reveals
// which check tripped.
type Verifier struct {
	users UserStore
}

// NewVerifier creates a [Verifier] backed by the given user store.
func NewVerifier(users UserStore) *Verifier {
	return &Verifier{users: users}
}

// Verify authenticates the credential pair and returns the matched user
// with roles and permissions hydrated.
//
// Username matching is case-insensitive (delegated to the store). Unexpected
// store failures pass through unwrapped so they surface as 500s rather than
// masquerading as credential errors.
func (verifier *Verifier) Verify(ctx context.Context, username, password string) (*User, error) {
	user, err := verifier.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) || apperr.IsCode(err, "NOT_FOUND") {
			return nil, apperr.LoginFailed()
		}
		return nil, err
	}

	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.LoginFailed()
	}

	return user, nil
}

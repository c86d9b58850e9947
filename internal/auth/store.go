// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package auth

import (
	"context"
	"strings"
)

// SessionStore defines the data access contract for sessions and their
// bound device records.
//
// # Architecture
//
// Implementations live alongside the domain in store_postgres.go. The
// interface lives here because the service layer (the consumer) defines
// what it needs. A [Session] and its [DeviceRecord] are one aggregate:
// every read hydrates the device, every write persists both.
type SessionStore interface {
	// FindByUserID returns the non-deleted session owned by the user.
	//
	// At most one such session exists at a time. It returns ErrNotFound
	// when the user has no live session.
	FindByUserID(ctx context.Context, userID string) (*Session, error)

	// FindByAccessTokenID returns the session whose current access-token
	// generation marker matches, regardless of status.
	//
	// Callers that need a live session must check [Session.IsDeleted]
	// themselves; revocation checks depend on seeing the deleted row.
	FindByAccessTokenID(ctx context.Context, accessTokenID string) (*Session, error)

	// FindByRefreshTokenID returns the session whose current refresh-token
	// generation marker matches, regardless of status.
	FindByRefreshTokenID(ctx context.Context, refreshTokenID string) (*Session, error)

	// Insert persists a new session together with its device record.
	//
	// The caller sets IDs and timestamps before calling.
	Insert(ctx context.Context, session *Session) error

	// Update persists the mutable fields of a session and its device
	// record: the token generation markers, expiries, status, and the
	// device activity counters.
	//
	// Inside InTx the row is read with a row lock first, so concurrent
	// rotations serialize instead of clobbering each other.
	Update(ctx context.Context, session *Session) error

	// Delete revokes a session by marking it deleted. The row and its
	// device record remain for audit and revocation checks.
	Delete(ctx context.Context, sessionID string) error

	// InTx runs fn against a transactional view of the store. The sessions
	// handed to fn read with FOR UPDATE, and all writes commit or roll
	// back together.
	InTx(ctx context.Context, fn func(tx SessionStore) error) error
}

// UserStore defines the read-side contract the authentication flows need
// from the account subsystem.
//
// Both lookups hydrate roles and their permissions; the resolver's
// permission checks operate on the returned [User] without further I/O.
type UserStore interface {
	// FindByUsername returns the user with the given username.
	//
	// The match is case-insensitive. It returns ErrNotFound when absent;
	// callers that authenticate must collapse that into the generic
	// login failure themselves.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByID returns the user with the given ID, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*User, error)
}

// # Enrichment Contracts

// DeviceProfile is the parsed shape of a User-Agent string, produced by a
// [DeviceClassifier].
type DeviceProfile struct {
	DeviceType     string
	DeviceModel    string
	OSName         string
	OSVersion      string
	BrowserName    string
	BrowserVersion string
	IsBot          bool
	IsMobile       bool
	IsTablet       bool
	IsDesktop      bool
	Nickname       string
}

// DeviceClassifier turns a raw User-Agent header into a [DeviceProfile].
//
// Classification is heuristic and never fails: an empty or unrecognized
// UA yields a profile of Unknown fields.
type DeviceClassifier interface {
	Classify(userAgent string) DeviceProfile
}

// LocationInfo is the result of a geolocation lookup for an IP address.
type LocationInfo struct {
	IP          string
	City        string
	Region      string
	CountryName string
	CountryCode string
	Timezone    string

	// IsLocal marks private and loopback addresses that were never sent to
	// the external provider.
	IsLocal bool
}

// FormattedLocation renders the "City, Country" display string stored on the
// device record. Private addresses render as "Local Network".
func (location *LocationInfo) FormattedLocation() string {
	if location.IsLocal {
		return "Local Network"
	}

	parts := make([]string, 0, 2)
	if location.City != "" {
		parts = append(parts, location.City)
	}
	if location.CountryName != "" {
		parts = append(parts, location.CountryName)
	}
	if len(parts) == 0 {
		return "Unknown Location"
	}
	return strings.Join(parts, ", ")
}

// GeolocationLookup resolves an IP address to a coarse location.
//
// # Best Effort
//
// Lookups run under a short deadline and a nil result with nil error is a
// legitimate outcome; callers must treat location data as optional and
// never fail a login over it.
type GeolocationLookup interface {
	Lookup(ctx context.Context, ipAddress string) (*LocationInfo, error)
}

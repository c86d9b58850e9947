// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

/*
Package uuid provides time-ordered unique identifiers for the platform.

It wraps the standard UUID library to specifically generate Version 7 values,
which are optimized for database performance.

Advantages:

  - Sortable: Naturally ordered by creation time (millisecond precision).
  - Friendly: Prevents index fragmentation in PostgreSQL (B-tree optimal).
  - Compact: 128-bit storage, compatible with standard 'uuid' types.

This is the mandatory ID type for all primary keys in the ProjectBase ecosystem.
Token generation identifiers (AccessTokenId / RefreshTokenId claims) use
[NewRandom] instead: they are correlation secrets, not index keys, so a
time-ordered prefix would only leak issuance timing.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// New generates a new UUIDv7 string.
func New() string {

	// Create a new version 7 UUID (time-sortable)
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}

	// Convert the UUID to a string
	return id.String()
}

// NewRandom generates a new UUIDv4 string from a CSPRNG.
func NewRandom() string {
	return uuid.New().String()
}

// IsValid reports whether value parses as any RFC 4122 UUID.
func IsValid(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}

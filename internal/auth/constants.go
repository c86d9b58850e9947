// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package auth

import "time"

// # Token Lifetimes

const (
	// DefaultAccessTokenTTL is the access-token lifetime used when the
	// configuration does not override it.
	DefaultAccessTokenTTL = 60 * time.Minute

	// DefaultRefreshTokenTTL is the refresh-token lifetime used when the
	// configuration does not override it.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// # Authentication Type

// AuthTypeUsername tags token results issued through the username/password
// flow. Other flows (OAuth, API keys) would carry their own tag.
const AuthTypeUsername = "username"

// # Request Field Names

const (
	FieldUsername     = "username"
	FieldPassword     = "password"
	FieldRefreshToken = "refresh_token"
)

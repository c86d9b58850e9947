// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via constructors. Nothing here touches the database.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Claim Schema

// Claims is the payload embedded inside every signed token.
//
// Exactly one of AccessTokenID / RefreshTokenID is present in any token; it
// is the generation identifier correlating the self-contained token with its
// server-side session row, which is what makes revocation possible.
type Claims struct {
	jwt.RegisteredClaims

	// Username of the account ("name" claim).
	Name string `json:"name,omitempty"`

	// IPAddress the token was issued to.
	IPAddress string `json:"IpAddress,omitempty"`

	// AccessTokenID is set only on access tokens.
	AccessTokenID string `json:"AccessTokenId,omitempty"`

	// RefreshTokenID is set only on refresh tokens.
	RefreshTokenID string `json:"RefreshTokenId,omitempty"`
}

// GenerationID returns whichever generation identifier the token carries.
func (c *Claims) GenerationID() string {
	if c.AccessTokenID != "" {
		return c.AccessTokenID
	}
	return c.RefreshTokenID
}

// # Codec

// ErrInvalidToken is returned for any signature, expiry, issuer, audience, or
// claim-shape failure. The specific reason is deliberately not exposed to
// callers; it belongs in logs only.
var ErrInvalidToken = errors.New("sec: invalid token")

// Codec signs and validates the two token classes with HMAC-SHA256.
//
// # Secret Isolation
//
// Access and refresh tokens are signed with distinct symmetric secrets.
// A refresh token can therefore never satisfy access-token signature
// validation, and a leaked refresh secret cannot forge access tokens.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
}

// NewCodec constructs a [Codec]. The two secrets must differ; config enforces
// this at startup, the codec trusts its inputs.
func NewCodec(accessSecret, refreshSecret, issuer, audience string) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		audience:      audience,
	}
}

// # Issuance

/*
IssueAccess signs a new access token.

Parameters:
  - userID: Subject of the token
  - username: Account name ("name" claim)
  - ipAddress: Originating client IP
  - generationID: Fresh AccessTokenId correlating to the session row
  - timeToLive: Validity window

Returns:
  - string: Compact signed JWT
  - time.Time: Expiry instant embedded in the token
  - error: Signing failures
*/
func (codec *Codec) IssueAccess(userID, username, ipAddress, generationID string, timeToLive time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(timeToLive)

	claims := Claims{
		RegisteredClaims: codec.registered(userID, expiresAt),
		Name:             username,
		IPAddress:        ipAddress,
		AccessTokenID:    generationID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(codec.accessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

/*
IssueRefresh signs a new refresh token with the independent refresh secret.

Parameters:
  - userID: Subject of the token
  - username: Account name ("name" claim)
  - ipAddress: Originating client IP
  - generationID: Fresh RefreshTokenId correlating to the session row
  - timeToLive: Validity window

Returns:
  - string: Compact signed JWT
  - time.Time: Expiry instant embedded in the token
  - error: Signing failures
*/
func (codec *Codec) IssueRefresh(userID, username, ipAddress, generationID string, timeToLive time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(timeToLive)

	claims := Claims{
		RegisteredClaims: codec.registered(userID, expiresAt),
		Name:             username,
		IPAddress:        ipAddress,
		RefreshTokenID:   generationID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(codec.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign refresh token: %w", err)
	}

	return signed, expiresAt, nil
}

// registered builds the shared registered-claim set.
func (codec *Codec) registered(subject string, expiresAt time.Time) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    codec.issuer,
		Audience:  jwt.ClaimStrings{codec.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

// # Validation

/*
ValidateAccess fully validates an access token: HS256 signature against the
access secret, issuer, audience, and expiry. The token must carry an
AccessTokenId claim — a refresh token presented here fails even before the
signature check has a chance to reject it.

Returns:
  - *Claims: The validated payload
  - error: ErrInvalidToken for every failure mode
*/
func (codec *Codec) ValidateAccess(tokenString string) (*Claims, error) {
	claims, err := codec.validate(tokenString, codec.accessSecret)
	if err != nil {
		return nil, err
	}
	if claims.AccessTokenID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

/*
ValidateRefresh fully validates a refresh token against the refresh secret.
Structurally identical to [Codec.ValidateAccess]; the two paths never share
a secret and must never cross.
*/
func (codec *Codec) ValidateRefresh(tokenString string) (*Claims, error) {
	claims, err := codec.validate(tokenString, codec.refreshSecret)
	if err != nil {
		return nil, err
	}
	if claims.RefreshTokenID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// validate runs the full JWT validation pipeline with the given secret.
func (codec *Codec) validate(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(codec.issuer),
		jwt.WithAudience(codec.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		// Collapse every parser failure into one opaque error.
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

/*
DecodeUnverified reads claims WITHOUT verifying the signature.

# Trust Model

This is a lower-trust operation: it is only legitimate for extracting a
correlation id to perform a store lookup, or for re-reading claims from a
string that already passed [Codec.ValidateAccess] elsewhere in the same
request. It must never be used alone to authorize anything.
*/
func (codec *Codec) DecodeUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package auth

import (
	"time"
)

// # Session Lifecycle

// SessionStatus is the lifecycle tag of a session row.
//
// Sessions are soft-deleted, never removed by the normal flow: a deleted row
// is a logically revoked session, and the resolver treats it as dead even
// while the signed tokens it issued are still cryptographically valid.
type SessionStatus string

const (
	// SessionActive is a live session whose tokens may validate.
	SessionActive SessionStatus = "active"

	// SessionDeleted is a revoked session. Tokens correlated to it must fail
	// authentication regardless of their own signature and expiry.
	SessionDeleted SessionStatus = "deleted"
)

// Session is the server-side record of one login's current token generation
// and device binding.
//
// # Single Session Policy
//
// At most one non-deleted session exists per user; the schema enforces this
// with a partial unique index. Rotation overwrites the generation markers in
// place rather than creating a second row. This is a deliberate
// one-session-slot-per-user policy, not an accident of lookup keys.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// Current access-token generation marker and expiry.
	AccessTokenID        string    `json:"-"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`

	// Current refresh-token generation marker and expiry.
	RefreshTokenID        string    `json:"-"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`

	Status SessionStatus `json:"status"`

	// Device is the 1:1 fingerprint captured at session creation.
	Device *DeviceRecord `json:"device,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDeleted reports whether the session has been logically revoked.
func (session *Session) IsDeleted() bool {
	return session.Status == SessionDeleted
}

// RotateAccessToken replaces the access-token generation marker in place.
func (session *Session) RotateAccessToken(generationID string, expiresAt time.Time) {
	session.AccessTokenID = generationID
	session.AccessTokenExpiresAt = expiresAt
}

// RotateRefreshToken replaces the refresh-token generation marker in place.
func (session *Session) RotateRefreshToken(generationID string, expiresAt time.Time) {
	session.RefreshTokenID = generationID
	session.RefreshTokenExpiresAt = expiresAt
}

// # Device Descriptor

// DeviceRecord is the structured client fingerprint bound 1:1 to a session.
type DeviceRecord struct {
	ID        string `json:"id"`
	SessionID string `json:"-"`

	IPAddress      string `json:"ip_address"`
	DeviceType     string `json:"device_type"`
	DeviceModel    string `json:"device_model"`
	OSName         string `json:"os_name"`
	OSVersion      string `json:"os_version"`
	BrowserName    string `json:"browser_name"`
	BrowserVersion string `json:"browser_version"`
	UserAgent      string `json:"-"` // Raw UA kept for diagnostics, not echoed to clients.

	IsBot     bool `json:"is_bot"`
	IsMobile  bool `json:"is_mobile"`
	IsTablet  bool `json:"is_tablet"`
	IsDesktop bool `json:"is_desktop"`

	// IsTrusted defaults to false; it is flipped by a trust workflow outside
	// this core (e.g. after step-up verification).
	IsTrusted bool `json:"is_trusted"`

	// Location and CountryCode are populated opportunistically from the
	// geolocation lookup. Absence is not an error.
	Location    string `json:"location,omitempty"`
	CountryCode string `json:"country_code,omitempty"`

	Nickname string `json:"nickname,omitempty"`

	LastActivityAt time.Time `json:"last_activity_at"`
	LoginCount     int       `json:"login_count"`

	CreatedAt time.Time `json:"created_at"`
}

// UpdateActivity bumps the activity timestamp and login counter. Called on
// every rotation that touches this device binding.
func (device *DeviceRecord) UpdateActivity() {
	device.LastActivityAt = time.Now()
	device.LoginCount++
}

// UpdateGeolocation merges a best-effort geolocation result into the record.
// A nil result is ignored.
func (device *DeviceRecord) UpdateGeolocation(location *LocationInfo) {
	if location == nil {
		return
	}
	device.Location = location.FormattedLocation()
	device.CountryCode = location.CountryCode
}

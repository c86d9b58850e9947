// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/projectbase/idm/internal/platform/apperr"
	"github.com/projectbase/idm/internal/platform/ctxutil"
	"github.com/projectbase/idm/internal/platform/dberr"
	"github.com/projectbase/idm/internal/platform/sec"
	"github.com/projectbase/idm/pkg/uuid"
)

// # Token Lifecycle Service

// TokenResult is the issued token pair handed back to the client after a
// successful login or rotation.
type TokenResult struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	AuthType              string    `json:"auth_type"`
}

// ClientContext carries the request-scoped client facts the lifecycle
// operations need. Handlers extract these explicitly from the transport
// layer; the service never reaches into an HTTP request itself.
type ClientContext struct {
	UserAgent string
	IPAddress string
}

// Service orchestrates the session lifecycle: issuing paired tokens on
// login, rotating the pair on refresh, and revoking on logout.
type Service struct {
	codec      *sec.Codec
	sessions   SessionStore
	users      UserStore
	verifier   *Verifier
	classifier DeviceClassifier
	geo        GeolocationLookup

	accessTTL  time.Duration
	refreshTTL time.Duration
	geoTimeout time.Duration
}

// ServiceConfig bundles the lifecycle tunables for [NewService].
type ServiceConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	GeoIPTimeout    time.Duration
}

// NewService wires the token lifecycle service. Zero TTLs fall back to the
// package defaults; geo may be nil, which disables location enrichment.
func NewService(
	codec *sec.Codec,
	sessions SessionStore,
	users UserStore,
	verifier *Verifier,
	classifier DeviceClassifier,
	geo GeolocationLookup,
	cfg ServiceConfig,
) *Service {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if cfg.GeoIPTimeout <= 0 {
		cfg.GeoIPTimeout = 5 * time.Second
	}

	return &Service{
		codec:      codec,
		sessions:   sessions,
		users:      users,
		verifier:   verifier,
		classifier: classifier,
		geo:        geo,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		geoTimeout: cfg.GeoIPTimeout,
	}
}

// # Login

/*
Login authenticates the credential pair and establishes a fresh session.

The flow:

 1. Verify credentials (one opaque [apperr.LoginFailed] for every miss).
 2. Issue a new access/refresh pair with fresh generation ids.
 3. Replace any existing live session for the user with the new one, binding
    the classified device fingerprint and a best-effort geolocation.

Parameters:
  - ctx: Request context
  - username: Submitted account name (matched case-insensitively)
  - password: Submitted plaintext password
  - client: User-Agent and client IP extracted by the transport layer

Returns:
  - *TokenResult: The issued pair, tagged with AuthType "username"
  - error: [apperr.LoginFailed] or storage failures
*/
func (service *Service) Login(ctx context.Context, username, password string, client ClientContext) (*TokenResult, error) {
	user, err := service.verifier.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}

	result, session, err := service.issuePair(user, client)
	if err != nil {
		return nil, err
	}

	session.Device = service.newDeviceRecord(ctx, session.ID, client)

	// One live session per user: revoke the previous one before inserting
	// inside a single transaction, so a crash cannot leave the user with
	// zero or two live sessions.
	err = service.sessions.InTx(ctx, func(tx SessionStore) error {
		previous, err := tx.FindByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, dberr.ErrNotFound) {
			return err
		}
		if previous != nil {
			if err := tx.Delete(ctx, previous.ID); err != nil {
				return err
			}
		}
		return tx.Insert(ctx, session)
	})
	if err != nil {
		return nil, fmt.Errorf("failed_to_persist_session: %w", err)
	}

	return result, nil
}

// # Refresh

/*
Refresh rotates the token pair of an established session.

The caller proves possession of a valid access-token identity (resolved by
the middleware) AND a live refresh token. Rotation happens atomically under
a row lock: two racing refreshes serialize, and the loser rotates the
winner's generation rather than forking the session.

Parameters:
  - ctx: Request context
  - accessTokenID: Generation id from the caller's authenticated access token
  - userID: Subject from the caller's authenticated access token
  - refreshToken: The compact refresh JWT presented for rotation
  - client: User-Agent and client IP of this request

Returns:
  - *TokenResult: The fresh pair
  - error: [apperr.TokenNotFound], [apperr.RefreshTokenInvalid],
    [apperr.UserNotFound], or storage failures
*/
func (service *Service) Refresh(ctx context.Context, accessTokenID, userID, refreshToken string, client ClientContext) (*TokenResult, error) {
	// The access identity must correlate to a known session row, deleted or
	// not; an id the store has never seen means the client is confused or
	// probing.
	if _, err := service.sessions.FindByAccessTokenID(ctx, accessTokenID); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.TokenNotFound()
		}
		return nil, err
	}

	if err := service.validateRefreshToken(ctx, refreshToken); err != nil {
		return nil, err
	}

	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) || apperr.IsCode(err, "NOT_FOUND") {
			return nil, apperr.UserNotFound()
		}
		return nil, err
	}

	result, fresh, err := service.issuePair(user, client)
	if err != nil {
		return nil, err
	}

	err = service.sessions.InTx(ctx, func(tx SessionStore) error {
		session, err := tx.FindByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, dberr.ErrNotFound) {
				return apperr.TokenNotFound()
			}
			return err
		}

		session.RotateAccessToken(fresh.AccessTokenID, fresh.AccessTokenExpiresAt)
		session.RotateRefreshToken(fresh.RefreshTokenID, fresh.RefreshTokenExpiresAt)
		if session.Device != nil {
			session.Device.UpdateActivity()
		}

		return tx.Update(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// validateRefreshToken checks the presented refresh token end to end:
// signature and claims against the refresh secret, then liveness of the
// session its generation id points at. Every miss collapses into the one
// opaque [apperr.RefreshTokenInvalid].
func (service *Service) validateRefreshToken(ctx context.Context, refreshToken string) error {
	claims, err := service.codec.ValidateRefresh(refreshToken)
	if err != nil {
		return apperr.RefreshTokenInvalid()
	}

	generationID := claims.GenerationID()
	if !uuid.IsValid(generationID) {
		return apperr.RefreshTokenInvalid()
	}

	session, err := service.sessions.FindByRefreshTokenID(ctx, generationID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return apperr.RefreshTokenInvalid()
		}
		return err
	}
	if session.IsDeleted() {
		return apperr.RefreshTokenInvalid()
	}

	return nil
}

// # Logout

/*
Logout revokes the session correlated to the given access-token generation id.

Revocation is a soft delete: the row stays so that both token classes of the
session fail liveness checks immediately, even though their signatures remain
valid until expiry.

Returns:
  - error: [apperr.TokenNotFound] when no session matches, or the storage
    failure wrapped by the HTTP layer as [apperr.LogoutFailed]
*/
func (service *Service) Logout(ctx context.Context, accessTokenID string) error {
	session, err := service.sessions.FindByAccessTokenID(ctx, accessTokenID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return apperr.TokenNotFound()
		}
		return err
	}

	return service.sessions.Delete(ctx, session.ID)
}

// # Internals

// issuePair mints a fresh access/refresh token pair with new generation ids
// and builds the not-yet-persisted session row that correlates to them.
func (service *Service) issuePair(user *User, client ClientContext) (*TokenResult, *Session, error) {
	accessGenID := uuid.NewRandom()
	refreshGenID := uuid.NewRandom()

	accessToken, accessExpiresAt, err := service.codec.IssueAccess(
		user.ID, user.UserName, client.IPAddress, accessGenID, service.accessTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed_to_issue_access_token: %w", err)
	}

	refreshToken, refreshExpiresAt, err := service.codec.IssueRefresh(
		user.ID, user.UserName, client.IPAddress, refreshGenID, service.refreshTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed_to_issue_refresh_token: %w", err)
	}

	now := time.Now()
	session := &Session{
		ID:                    uuid.New(),
		UserID:                user.ID,
		AccessTokenID:         accessGenID,
		AccessTokenExpiresAt:  accessExpiresAt,
		RefreshTokenID:        refreshGenID,
		RefreshTokenExpiresAt: refreshExpiresAt,
		Status:                SessionActive,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	result := &TokenResult{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  accessExpiresAt,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: refreshExpiresAt,
		AuthType:              AuthTypeUsername,
	}

	return result, session, nil
}

// newDeviceRecord classifies the client's User-Agent and enriches the record
// with a best-effort geolocation of the client IP.
func (service *Service) newDeviceRecord(ctx context.Context, sessionID string, client ClientContext) *DeviceRecord {
	profile := service.classifier.Classify(client.UserAgent)

	now := time.Now()
	device := &DeviceRecord{
		ID:             uuid.New(),
		SessionID:      sessionID,
		IPAddress:      client.IPAddress,
		DeviceType:     profile.DeviceType,
		DeviceModel:    profile.DeviceModel,
		OSName:         profile.OSName,
		OSVersion:      profile.OSVersion,
		BrowserName:    profile.BrowserName,
		BrowserVersion: profile.BrowserVersion,
		UserAgent:      client.UserAgent,
		IsBot:          profile.IsBot,
		IsMobile:       profile.IsMobile,
		IsTablet:       profile.IsTablet,
		IsDesktop:      profile.IsDesktop,
		Nickname:       profile.Nickname,
		LastActivityAt: now,
		LoginCount:     1,
		CreatedAt:      now,
	}

	device.UpdateGeolocation(service.lookupLocation(ctx, client.IPAddress))

	return device
}

// lookupLocation resolves the client IP under a short deadline. Failures are
// logged and swallowed; location data never blocks or fails a login.
func (service *Service) lookupLocation(ctx context.Context, ipAddress string) *LocationInfo {
	if service.geo == nil || ipAddress == "" {
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, service.geoTimeout)
	defer cancel()

	location, err := service.geo.Lookup(lookupCtx, ipAddress)
	if err != nil {
		ctxutil.GetLogger(ctx).Warn("geolocation lookup failed",
			"ip", ipAddress, "error", err)
		return nil
	}

	return location
}

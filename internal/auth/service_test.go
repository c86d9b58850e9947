// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectbase/idm/internal/auth"
	"github.com/projectbase/idm/internal/platform/apperr"
	"github.com/projectbase/idm/internal/platform/sec"
)

func newTestCodec() *sec.Codec {
	return sec.NewCodec("unit-access-secret", "unit-refresh-secret", "projectbase.uz", "projectbase-clients")
}

var testClient = auth.ClientContext{
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0",
	IPAddress: "203.0.113.7",
}

var testProfile = auth.DeviceProfile{
	DeviceType:  "Desktop",
	DeviceModel: "Windows 10/11 - Chrome",
	OSName:      "Windows",
	OSVersion:   "Windows 10/11",
	BrowserName: "Chrome",
	IsDesktop:   true,
	Nickname:    "Desktop - Chrome",
}

type serviceFixture struct {
	service  *auth.Service
	codec    *sec.Codec
	sessions *fakeSessionStore
	users    *fakeUserStore
	geo      *fakeGeo
}

func newServiceFixture(t *testing.T, user *auth.User, geo *fakeGeo) *serviceFixture {
	t.Helper()

	if geo == nil {
		geo = &fakeGeo{location: &auth.LocationInfo{
			City:        "Tashkent",
			CountryName: "Uzbekistan",
			CountryCode: "UZ",
		}}
	}

	codec := newTestCodec()
	sessions := newFakeSessionStore()
	users := newFakeUserStore(user)

	service := auth.NewService(
		codec,
		sessions,
		users,
		auth.NewVerifier(users),
		staticClassifier{profile: testProfile},
		geo,
		auth.ServiceConfig{
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 30 * 24 * time.Hour,
			GeoIPTimeout:    time.Second,
		},
	)

	return &serviceFixture{service: service, codec: codec, sessions: sessions, users: users, geo: geo}
}

/*
TestService_Login verifies the full issuance path: both tokens validate, the
session row correlates with their generation ids, and the device binding
carries the classified profile plus geolocation.
*/
func TestService_Login(t *testing.T) {
	fixture := newServiceFixture(t, newTestUser(testPasswordHash, viewerRole()), nil)

	result, err := fixture.service.Login(context.Background(), "alice", testPassword, testClient)
	require.NoError(t, err)

	// 1. Result shape
	assert.Equal(t, "username", result.AuthType)
	assert.True(t, result.AccessTokenExpiresAt.Before(result.RefreshTokenExpiresAt),
		"access expiry must precede refresh expiry")

	// 2. Both tokens validate in their own class
	accessClaims, err := fixture.codec.ValidateAccess(result.AccessToken)
	require.NoError(t, err)
	refreshClaims, err := fixture.codec.ValidateRefresh(result.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, "user-1", accessClaims.Subject)
	assert.Equal(t, "alice", accessClaims.Name)
	assert.Equal(t, testClient.IPAddress, accessClaims.IPAddress)
	assert.NotEqual(t, accessClaims.AccessTokenID, refreshClaims.RefreshTokenID,
		"the two generation ids must be independent")

	// 3. Session row correlates to the issued pair
	session := fixture.sessions.only()
	require.NotNil(t, session)
	assert.Equal(t, accessClaims.AccessTokenID, session.AccessTokenID)
	assert.Equal(t, refreshClaims.RefreshTokenID, session.RefreshTokenID)
	assert.Equal(t, auth.SessionActive, session.Status)

	// 4. Device binding
	device := session.Device
	require.NotNil(t, device)
	assert.Equal(t, "Desktop", device.DeviceType)
	assert.Equal(t, testClient.IPAddress, device.IPAddress)
	assert.Equal(t, 1, device.LoginCount)
	assert.Equal(t, "Tashkent, Uzbekistan", device.Location)
	assert.Equal(t, "UZ", device.CountryCode)
}

/*
TestService_LoginBadCredentials verifies that a failed login leaves no trace.
*/
func TestService_LoginBadCredentials(t *testing.T) {
	fixture := newServiceFixture(t, newTestUser(testPasswordHash), nil)

	_, err := fixture.service.Login(context.Background(), "alice", "wrong", testClient)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "LOGIN_FAILED"))
	assert.Nil(t, fixture.sessions.only(), "no session may be created on failure")
}

/*
TestService_LoginReplacesSession verifies the single-session policy: a second
login revokes the first session rather than accumulating rows.
*/
func TestService_LoginReplacesSession(t *testing.T) {
	fixture := newServiceFixture(t, newTestUser(testPasswordHash), nil)

	first, err := fixture.service.Login(context.Background(), "alice", testPassword, testClient)
	require.NoError(t, err)
	firstClaims, err := fixture.codec.ValidateAccess(first.AccessToken)
	require.NoError(t, err)

	second, err := fixture.service.Login(context.Background(), "alice", testPassword, testClient)
	require.NoError(t, err)
	secondClaims, err := fixture.codec.ValidateAccess(second.AccessToken)
	require.NoError(t, err)

	// The first session survives as a revoked row; the second is the only
	// live one.
	previous, err := fixture.sessions.FindByAccessTokenID(context.Background(), firstClaims.AccessTokenID)
	require.NoError(t, err)
	assert.True(t, previous.IsDeleted())

	live := fixture.sessions.only()
	require.NotNil(t, live)
	assert.Equal(t, secondClaims.AccessTokenID, live.AccessTokenID)
}

/*
TestService_LoginGeoFailureSwallowed verifies that geolocation problems never
fail a login.
*/
func TestService_LoginGeoFailureSwallowed(t *testing.T) {
	testCases := []struct {
		name string
		geo  *fakeGeo
	}{
		{"provider error", &fakeGeo{err: errors.New("rate limited")}},
		{"provider timeout", &fakeGeo{block: true}},
		{"nil result", &fakeGeo{}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			fixture := newServiceFixture(t, newTestUser(testPasswordHash), testCase.geo)

			result, err := fixture.service.Login(context.Background(), "alice", testPassword, testClient)
			require.NoError(t, err)
			require.NotEmpty(t, result.AccessToken)

			session := fixture.sessions.only()
			require.NotNil(t, session)
			assert.Empty(t, session.Device.Location)
		})
	}
}

/*
TestService_Refresh verifies rotation identity: the session row keeps its ID
while both generation markers change, the device activity bumps, and the old
refresh token stops working.
*/
func TestService_Refresh(t *testing.T) {
	fixture := newServiceFixture(t, newTestUser(testPasswordHash), nil)

	login, err := fixture.service.Login(context.Background(), "alice", testPassword, testClient)
	require.NoError(t, err)
	loginClaims, err := fixture.codec.ValidateAccess(login.AccessToken)
	require.NoError(t, err)

	before := fixture.sessions.only()
	require.NotNil(t, before)

	rotated, err := fixture.service.Refresh(context.Background(),
		loginClaims.AccessTokenID, "user-1", login.RefreshToken, testClient)
	require.NoError(t, err)

	// 1. Same session row, new generation
	after := fixture.sessions.get(before.ID)
	require.NotNil(t, after)
	assert.Equal(t, before.ID, after.ID)
	assert.NotEqual(t, before.AccessTokenID, after.AccessTokenID)
	assert.NotEqual(t, before.RefreshTokenID, after.RefreshTokenID)
	assert.Equal(t, auth.SessionActive, after.Status)

	// 2. Device activity bumped
	assert.Equal(t, before.Device.LoginCount+1, after.Device.LoginCount)

	// 3. New pair validates and correlates
	rotatedClaims, err := fixture.codec.ValidateAccess(rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, after.AccessTokenID, rotatedClaims.AccessTokenID)

	// 4. The superseded refresh token no longer rotates
	_, err = fixture.service.Refresh(context.Background(),
		rotatedClaims.AccessTokenID, "user-1", login.RefreshToken, testClient)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "REFRESH_TOKEN_INVALID"))
}

/*
TestService_RefreshUnknownAccessID verifies that an access generation id the
store has never seen yields TOKEN_NOT_FOUND.
*/
func TestService_RefreshUnknownAccessID(t *testing.T) {
	fixture := newServiceFixture(t, newTestUser(testPasswordHash), nil)

	login, err := fixture.service.Login(context.Background(), "alice", testPassword, testClient)
	require.NoError(t, err)

	_, err = fixture.service.Refresh(context.Background(),
		"never-issued", "user-1", login.RefreshToken, testClient)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "TOKEN_NOT_FOUND"))
}

/*
TestService_RefreshInvalidToken verifies that a bad refresh token is rejected
without mutating the session.
*/
func TestService_RefreshInvalidToken(t *testing.T) {
	fixture := newServiceFixture(t, newTestUser(testPasswordHash), nil)

	login, err := fixture.service.Login(context.Background(), "alice", testPassword, testClient)
	require.NoError(t, err)
	loginClaims, err := fixture.codec.ValidateAccess(login.AccessToken)
	require.NoError(t, err)

	before := fixture.sessions.only()

	// Validly signed, but the generation id could never correlate to a row.
	malformedID, _, err := fixture.codec.IssueRefresh("user-1", "alice", testClient.IPAddress, "not-a-guid", time.Hour)
	require.NoError(t, err)

	testCases := []struct {
		name         string
		refreshToken string
	}{
		{"garbage", "not-a-token"},
		{"access token on the refresh path", login.AccessToken},
		{"malformed generation id", malformedID},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := fixture.service.Refresh(context.Background(),
				loginClaims.AccessTokenID, "user-1", testCase.refreshToken, testClient)
			require.Error(t, err)
			assert.True(t, apperr.IsCode(err, "REFRESH_TOKEN_INVALID"))

			// No mutation on rejection.
			after := fixture.sessions.get(before.ID)
			assert.Equal(t, before.AccessTokenID, after.AccessTokenID)
			assert.Equal(t, before.RefreshTokenID, after.RefreshTokenID)
		})
	}
}

/*
TestService_RefreshRevokedSession verifies that a refresh token pointing at a
revoked session cannot rotate.
*/
func TestService_RefreshRevokedSession(t *testing.T) {
	fixture := newServiceFixture(t, newTestUser(testPasswordHash), nil)

	login, err := fixture.service.Login(context.Background(), "alice", testPassword, testClient)
	require.NoError(t, err)
	loginClaims, err := fixture.codec.ValidateAccess(login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, fixture.service.Logout(context.Background(), loginClaims.AccessTokenID))

	_, err = fixture.service.Refresh(context.Background(),
		loginClaims.AccessTokenID, "user-1", login.RefreshToken, testClient)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "REFRESH_TOKEN_INVALID"))
}

/*
TestService_RefreshMissingUser verifies the USER_NOT_FOUND path when the
account vanished between issuance and rotation.
*/
func TestService_RefreshMissingUser(t *testing.T) {
	fixture := newServiceFixture(t, newTestUser(testPasswordHash), nil)

	login, err := fixture.service.Login(context.Background(), "alice", testPassword, testClient)
	require.NoError(t, err)
	loginClaims, err := fixture.codec.ValidateAccess(login.AccessToken)
	require.NoError(t, err)

	fixture.users.mu.Lock()
	delete(fixture.users.users, "user-1")
	fixture.users.mu.Unlock()

	_, err = fixture.service.Refresh(context.Background(),
		loginClaims.AccessTokenID, "user-1", login.RefreshToken, testClient)
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "USER_NOT_FOUND"))
}

/*
TestService_Logout verifies soft revocation and the TOKEN_NOT_FOUND miss path.
*/
func TestService_Logout(t *testing.T) {
	fixture := newServiceFixture(t, newTestUser(testPasswordHash), nil)

	login, err := fixture.service.Login(context.Background(), "alice", testPassword, testClient)
	require.NoError(t, err)
	loginClaims, err := fixture.codec.ValidateAccess(login.AccessToken)
	require.NoError(t, err)

	// 1. Revoke
	require.NoError(t, fixture.service.Logout(context.Background(), loginClaims.AccessTokenID))

	session, err := fixture.sessions.FindByAccessTokenID(context.Background(), loginClaims.AccessTokenID)
	require.NoError(t, err)
	assert.True(t, session.IsDeleted(), "revocation must keep the row, flagged deleted")

	// 2. Unknown generation id
	err = fixture.service.Logout(context.Background(), "never-issued")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "TOKEN_NOT_FOUND"))
}

/*
TestService_DefaultTTLs verifies that a zero ServiceConfig falls back to the
package defaults (60 minutes access, 30 days refresh) on issued expiries.
*/
func TestService_DefaultTTLs(t *testing.T) {
	users := newFakeUserStore(newTestUser(testPasswordHash))
	service := auth.NewService(
		newTestCodec(),
		newFakeSessionStore(),
		users,
		auth.NewVerifier(users),
		staticClassifier{profile: testProfile},
		nil,
		auth.ServiceConfig{},
	)

	before := time.Now()
	result, err := service.Login(context.Background(), "alice", testPassword, testClient)
	require.NoError(t, err)
	after := time.Now()

	// 1. Access expiry lands in [before+60m, after+60m]
	assert.False(t, result.AccessTokenExpiresAt.Before(before.Add(auth.DefaultAccessTokenTTL)))
	assert.False(t, result.AccessTokenExpiresAt.After(after.Add(auth.DefaultAccessTokenTTL)))

	// 2. Refresh expiry lands in [before+30d, after+30d]
	assert.False(t, result.RefreshTokenExpiresAt.Before(before.Add(auth.DefaultRefreshTokenTTL)))
	assert.False(t, result.RefreshTokenExpiresAt.After(after.Add(auth.DefaultRefreshTokenTTL)))
}

// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectbase/idm/internal/platform/sec"
)

const (
	testAccessSecret  = "test-access-secret-please-rotate"
	testRefreshSecret = "test-refresh-secret-please-rotate"
	testIssuer        = "projectbase.uz"
	testAudience      = "projectbase-clients"
)

func newTestCodec() *sec.Codec {
	return sec.NewCodec(testAccessSecret, testRefreshSecret, testIssuer, testAudience)
}

/*
TestCodec_AccessRoundTrip verifies that an issued access token validates and
carries every claim it was issued with.
*/
func TestCodec_AccessRoundTrip(t *testing.T) {
	codec := newTestCodec()

	signed, expiresAt, err := codec.IssueAccess("user-1", "alice", "203.0.113.7", "gen-access-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	// The embedded expiry must match the returned instant.
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	claims, err := codec.ValidateAccess(signed)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, "203.0.113.7", claims.IPAddress)
	assert.Equal(t, "gen-access-1", claims.AccessTokenID)
	assert.Empty(t, claims.RefreshTokenID, "access tokens must not carry a refresh generation id")
	assert.Equal(t, "gen-access-1", claims.GenerationID())
}

/*
TestCodec_RefreshRoundTrip verifies the refresh class symmetrically.
*/
func TestCodec_RefreshRoundTrip(t *testing.T) {
	codec := newTestCodec()

	signed, _, err := codec.IssueRefresh("user-1", "alice", "203.0.113.7", "gen-refresh-1", 30*24*time.Hour)
	require.NoError(t, err)

	claims, err := codec.ValidateRefresh(signed)
	require.NoError(t, err)

	assert.Equal(t, "gen-refresh-1", claims.RefreshTokenID)
	assert.Empty(t, claims.AccessTokenID)
}

/*
TestCodec_SecretIsolation verifies the core invariant: a refresh token never
validates as an access token and vice versa, in both directions.
*/
func TestCodec_SecretIsolation(t *testing.T) {
	codec := newTestCodec()

	accessToken, _, err := codec.IssueAccess("user-1", "alice", "", "gen-a", time.Hour)
	require.NoError(t, err)
	refreshToken, _, err := codec.IssueRefresh("user-1", "alice", "", "gen-r", time.Hour)
	require.NoError(t, err)

	// 1. Refresh token presented on the access path
	_, err = codec.ValidateAccess(refreshToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)

	// 2. Access token presented on the refresh path
	_, err = codec.ValidateRefresh(accessToken)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestCodec_WrongSecret verifies that a codec with a different secret rejects
tokens signed by another instance.
*/
func TestCodec_WrongSecret(t *testing.T) {
	codec := newTestCodec()
	other := sec.NewCodec("completely-different-secret", testRefreshSecret, testIssuer, testAudience)

	signed, _, err := codec.IssueAccess("user-1", "alice", "", "gen-a", time.Hour)
	require.NoError(t, err)

	_, err = other.ValidateAccess(signed)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestCodec_Expiry verifies that an already-expired token fails validation while
a barely-live one passes.
*/
func TestCodec_Expiry(t *testing.T) {
	codec := newTestCodec()

	expired, _, err := codec.IssueAccess("user-1", "alice", "", "gen-a", -time.Second)
	require.NoError(t, err)
	_, err = codec.ValidateAccess(expired)
	assert.ErrorIs(t, err, sec.ErrInvalidToken)

	live, _, err := codec.IssueAccess("user-1", "alice", "", "gen-a", 30*time.Second)
	require.NoError(t, err)
	_, err = codec.ValidateAccess(live)
	assert.NoError(t, err)
}

/*
TestCodec_IssuerAudienceMismatch verifies issuer and audience enforcement.
*/
func TestCodec_IssuerAudienceMismatch(t *testing.T) {
	codec := newTestCodec()

	testCases := []struct {
		name  string
		other *sec.Codec
	}{
		{
			name:  "wrong issuer",
			other: sec.NewCodec(testAccessSecret, testRefreshSecret, "evil.example", testAudience),
		},
		{
			name:  "wrong audience",
			other: sec.NewCodec(testAccessSecret, testRefreshSecret, testIssuer, "other-clients"),
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			signed, _, err := testCase.other.IssueAccess("user-1", "alice", "", "gen-a", time.Hour)
			require.NoError(t, err)

			_, err = codec.ValidateAccess(signed)
			assert.ErrorIs(t, err, sec.ErrInvalidToken)
		})
	}
}

/*
TestCodec_Malformed verifies that garbage input collapses into the opaque
invalid-token error rather than a parser-specific failure.
*/
func TestCodec_Malformed(t *testing.T) {
	codec := newTestCodec()

	for _, input := range []string{"", "not-a-jwt", "a.b", "a.b.c.d"} {
		_, err := codec.ValidateAccess(input)
		assert.ErrorIs(t, err, sec.ErrInvalidToken, "input %q", input)
	}
}

/*
TestCodec_DecodeUnverified verifies that claims can be read from an expired
token without signature verification. Logout needs this: a user must be able
to revoke a session whose access token has already expired.
*/
func TestCodec_DecodeUnverified(t *testing.T) {
	codec := newTestCodec()

	expired, _, err := codec.IssueAccess("user-1", "alice", "", "gen-a", -time.Hour)
	require.NoError(t, err)

	claims, err := codec.DecodeUnverified(expired)
	require.NoError(t, err)
	assert.Equal(t, "gen-a", claims.AccessTokenID)
	assert.Equal(t, "user-1", claims.Subject)
}

// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectbase/idm/internal/platform/sec"
)

/*
TestHashPassword_RoundTrip verifies that a freshly generated hash validates
the original password and nothing else.
*/
func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := sec.HashPassword("S3cure_Passw0rd!")
	require.NoError(t, err)

	assert.True(t, sec.CheckPasswordHash("S3cure_Passw0rd!", hash))
	assert.False(t, sec.CheckPasswordHash("s3cure_passw0rd!", hash))
	assert.False(t, sec.CheckPasswordHash("", hash))
}

/*
TestCheckPasswordHash_BootstrapDigest pins the seeded superadmin digest in
migrations/000002_seed.up.sql to its documented bootstrap password. If the
seed file and this constant ever drift, the only seeded account can never
sign in on a fresh deploy.
*/
func TestCheckPasswordHash_BootstrapDigest(t *testing.T) {
	// Must match the passwordhash literal in migrations/000002_seed.up.sql.
	const seededHash = "$2a$12$aEAkoc1.XePSfOUZWDZY7OLGIDPFUpSUREuNMZQoIXq2Qt3jB591."

	assert.True(t, sec.CheckPasswordHash("ChangeMe_123!", seededHash))
	assert.False(t, sec.CheckPasswordHash("ChangeMe_123", seededHash))
	assert.False(t, sec.CheckPasswordHash("password", seededHash))
}

/*
TestCheckPasswordHash_Garbage verifies that malformed digests never validate.
*/
func TestCheckPasswordHash_Garbage(t *testing.T) {
	assert.False(t, sec.CheckPasswordHash("anything", "not-a-bcrypt-hash"))
	assert.False(t, sec.CheckPasswordHash("anything", ""))
}

// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/projectbase/idm/internal/platform/sec"
)

/*
TestPermissionName verifies the canonical key derivation, including suffix
stripping and lowercasing.
*/
func TestPermissionName(t *testing.T) {
	testCases := []struct {
		name   string
		group  string
		action string
		want   sec.PermissionKey
	}{
		{"plural suffix stripped", "SystemPermissions", "View", "system.view"},
		{"singular suffix stripped", "UserPermission", "Delete", "user.delete"},
		{"no suffix", "Role", "Assign", "role.assign"},
		{"already lowercase", "person", "create", "person.create"},
		{"mixed case action", "RolePermissions", "UpDate", "role.update"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, sec.PermissionName(testCase.group, testCase.action))
		})
	}
}

/*
TestAllPermissions verifies the catalog is non-empty, unique, and well-formed.
*/
func TestAllPermissions(t *testing.T) {
	catalog := sec.AllPermissions()
	assert.Len(t, catalog, 15)

	seen := make(map[sec.PermissionKey]struct{}, len(catalog))
	for _, key := range catalog {
		assert.NotContains(t, seen, key, "duplicate permission key")
		seen[key] = struct{}{}
	}

	assert.Contains(t, seen, sec.PermSystemView)
	assert.Contains(t, seen, sec.PermRoleAssign)
}

// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

/*
Package auth implements the authentication and session lifecycle core.

It covers credential verification, paired access/refresh token issuance and
rotation, per-request identity resolution with server-side revocation, and
role/permission based authorization decisions.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to identity:

  - Verifier: Checks a username/password pair (enumeration resistant).
  - Service: Orchestrates token issuance, rotation, and revocation.
  - Resolver: Derives per-request identity from a bearer token + live session.
  - Stores: Interfaces implemented by the pgx repositories in this package.
*/
package auth

import (
	"time"

	"github.com/projectbase/idm/internal/platform/sec"
)

// # Domain Entities

// User represents an administrative account bound to a person record.
type User struct {
	ID               string    `json:"id"`
	PersonID         string    `json:"person_id"`
	UserName         string    `json:"username"`
	Email            string    `json:"email,omitempty"`
	IsEmailConfirmed bool      `json:"is_email_confirmed"`
	PasswordHash     string    `json:"-"` // Explicitly omitted from JSON for security.
	Roles            []Role    `json:"roles,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PermissionSet returns the user's effective permission set: the union of
// every permission granted through any of the user's roles.
//
// # Revocation Visibility
//
// The set is derived on every call from the freshly loaded roles. Nothing is
// cached across requests, so a role or permission change takes effect on the
// very next authorization check.
func (user *User) PermissionSet() map[sec.PermissionKey]struct{} {
	set := make(map[sec.PermissionKey]struct{})
	for _, role := range user.Roles {
		for _, permission := range role.Permissions {
			set[permission.Name] = struct{}{}
		}
	}
	return set
}

// HasSystemRole reports whether any of the user's roles is a system role.
// System flags are coarse bypass switches checked independently of the
// fine-grained permission set.
func (user *User) HasSystemRole() bool {
	for _, role := range user.Roles {
		if role.Tier.IsSystemRole() {
			return true
		}
	}
	return false
}

// HasSystemAdmin reports whether any of the user's roles is a system admin role.
func (user *User) HasSystemAdmin() bool {
	for _, role := range user.Roles {
		if role.Tier.IsSystemAdmin() {
			return true
		}
	}
	return false
}

// # Roles

// RoleTier is the closed privilege state of a role.
//
// The tier replaces a pair of independently mutable booleans
// (IsSystemRole / IsSystemAdmin) whose setters silently reset each other.
// A closed state makes the invariant structural: SystemAdmin implies
// SystemRole, and a role can never hold an inconsistent flag combination.
type RoleTier int

const (
	// TierNormal is an ordinary role with no system privileges.
	TierNormal RoleTier = iota

	// TierSystemRole marks a role that participates in system workflows.
	TierSystemRole

	// TierSystemAdmin marks a role with unrestricted system access.
	// It subsumes TierSystemRole.
	TierSystemAdmin
)

// IsSystemRole reports whether the tier carries system-role privilege.
// A system admin is always also a system role.
func (tier RoleTier) IsSystemRole() bool { return tier >= TierSystemRole }

// IsSystemAdmin reports whether the tier carries system-admin privilege.
func (tier RoleTier) IsSystemAdmin() bool { return tier == TierSystemAdmin }

// String renders the tier for logs and storage projection.
func (tier RoleTier) String() string {
	switch tier {
	case TierSystemAdmin:
		return "system_admin"
	case TierSystemRole:
		return "system_role"
	default:
		return "normal"
	}
}

// TierFromFlags rebuilds the closed tier from the two persisted booleans.
// The admin flag wins; an admin row with a stale isSystemRole=false is still
// an admin (the projection the other way always writes both flags).
func TierFromFlags(isSystemRole, isSystemAdmin bool) RoleTier {
	switch {
	case isSystemAdmin:
		return TierSystemAdmin
	case isSystemRole:
		return TierSystemRole
	default:
		return TierNormal
	}
}

// Role groups a set of permissions under a named privilege tier.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	IsDefault   bool         `json:"is_default"`
	Tier        RoleTier     `json:"-"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// StorageFlags projects the tier back onto the persisted boolean pair.
// SystemAdmin forces both flags true.
func (role *Role) StorageFlags() (isSystemRole, isSystemAdmin bool) {
	return role.Tier.IsSystemRole(), role.Tier.IsSystemAdmin()
}

// Permission is one grantable `(resource, action)` capability.
type Permission struct {
	ID          string            `json:"id"`
	Name        sec.PermissionKey `json:"name"`
	Description string            `json:"description,omitempty"`
}

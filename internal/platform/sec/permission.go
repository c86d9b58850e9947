// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package sec

import "strings"

// # Permission Keys

// PermissionKey identifies one grantable capability as "<resource>.<action>".
//
// Keys are always lowercase. They are derived from a permission group's module
// name and an action name via [PermissionName], and compared verbatim.
type PermissionKey string

/*
PermissionName derives the canonical permission key for a group/action pair.

The resource part is the permission group's module name with a trailing
"Permissions" or "Permission" suffix stripped, lowercased. The action part is
lowercased as-is.

Example:

	PermissionName("SystemPermissions", "View") // "system.view"
	PermissionName("User", "Create")            // "user.create"
*/
func PermissionName(group, action string) PermissionKey {
	resource := group
	if trimmed, ok := strings.CutSuffix(resource, "Permissions"); ok {
		resource = trimmed
	} else if trimmed, ok := strings.CutSuffix(resource, "Permission"); ok {
		resource = trimmed
	}

	return PermissionKey(strings.ToLower(resource) + "." + strings.ToLower(action))
}

// # Permission Catalog

// The grantable capabilities of the administration domain, grouped by module.
// The seed migration materializes exactly this catalog into auth.permission.
var (
	// System module
	PermSystemView   = PermissionName("SystemPermissions", "View")
	PermSystemUpdate = PermissionName("SystemPermissions", "Update")
	PermSystemExport = PermissionName("SystemPermissions", "Export")
	PermSystemImport = PermissionName("SystemPermissions", "Import")

	// Person module
	PermPersonView   = PermissionName("PersonPermissions", "View")
	PermPersonCreate = PermissionName("PersonPermissions", "Create")
	PermPersonUpdate = PermissionName("PersonPermissions", "Update")
	PermPersonDelete = PermissionName("PersonPermissions", "Delete")

	// User module
	PermUserView   = PermissionName("UserPermissions", "View")
	PermUserCreate = PermissionName("UserPermissions", "Create")
	PermUserUpdate = PermissionName("UserPermissions", "Update")
	PermUserDelete = PermissionName("UserPermissions", "Delete")

	// Role module
	PermRoleView   = PermissionName("RolePermissions", "View")
	PermRoleAssign = PermissionName("RolePermissions", "Assign")
	PermRoleUpdate = PermissionName("RolePermissions", "Update")
)

// AllPermissions returns the full catalog in a stable order.
func AllPermissions() []PermissionKey {
	return []PermissionKey{
		PermSystemView, PermSystemUpdate, PermSystemExport, PermSystemImport,
		PermPersonView, PermPersonCreate, PermPersonUpdate, PermPersonDelete,
		PermUserView, PermUserCreate, PermUserUpdate, PermUserDelete,
		PermRoleView, PermRoleAssign, PermRoleUpdate,
	}
}

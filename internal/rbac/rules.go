package rbac

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

const (
	PermRatingsImport  = "ratings:import"
	PermSnapshotsWrite = "snapshots:write"
	PermEventsView     = "events:view"
)

var RolePermissions = map[string][]string{
	RoleViewer: {
		PermEventsView,
	},
	RoleEditor: {
		PermRatingsImport,
		PermSnapshotsWrite,
		PermEventsView,
	},
	RoleAdmin: {
		"*", // everything
	},
}

// KnownRole reports whether role has a permission set.
func KnownRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

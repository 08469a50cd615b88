// Package rbac implements the permission and menu model: a two-level
// hierarchy synchronized from the declared route registry, role-derived
// permission sets, and menu trees for presentation.
package rbac

// Permission represents a guardable operation. Identity is the stable string
// key; Name is the display name used in audit labels and rejection messages.
type Permission struct {
	ID       int64
	Name     string
	Identity string
	IsSystem bool
	ParentID *int64
}

// DeclaredPermission describes a code-declared permission fed to sync at
// startup. The tree is at most two levels deep: top-level entries and their
// children.
type DeclaredPermission struct {
	Name     string
	Identity string
	Children []DeclaredPermission
}

// Role groups granted permissions and visible menu entries.
type Role struct {
	ID          int64
	Name        string
	Permissions []Permission
	Menus       []Menu
}

// Menu is a presentation-only entry; the hierarchy mirrors the permission
// tree shape but carries no authorization semantics.
type Menu struct {
	ID       int64
	Name     string
	OrderNo  int
	ParentID *int64
	Children []Menu `json:"children,omitempty"`
}

// PermissionNode is a permission with its resolved children, produced by
// BuildPermissionTree.
type PermissionNode struct {
	Permission
	Children []PermissionNode `json:"children,omitempty"`
}

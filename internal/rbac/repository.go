package rbac

import "context"

// PermissionRepository defines data access for permissions.
type PermissionRepository interface {
	Get(ctx context.Context, id int64) (Permission, error)
	GetByIdentity(ctx context.Context, identity string) (Permission, error)
	List(ctx context.Context) ([]Permission, error)
	ListChildren(ctx context.Context, parentID int64) ([]Permission, error)
	Add(ctx context.Context, p Permission) (int64, error)
	Update(ctx context.Context, p Permission) error
	Delete(ctx context.Context, id int64) error
}

// MenuRepository defines data access for menus.
type MenuRepository interface {
	List(ctx context.Context) ([]Menu, error)
	ListChildren(ctx context.Context, parentID int64) ([]Menu, error)
	Add(ctx context.Context, m Menu) (int64, error)
	Update(ctx context.Context, m Menu) error
	Delete(ctx context.Context, id int64) error
}

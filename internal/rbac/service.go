package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-bo/meridian/internal/shared"
)

// Service orchestrates permission and menu operations.
type Service struct {
	permissions PermissionRepository
	menus       MenuRepository
}

// NewService constructs a Service over the given repositories.
func NewService(permissions PermissionRepository, menus MenuRepository) *Service {
	return &Service{permissions: permissions, menus: menus}
}

// SyncDeclared upserts the declared permission list into the store. Each
// top-level entry is created as a system permission if absent, or has its
// name, identity and system flag overwritten if present; children are then
// upserted against the parent's resolved id. Sync never deletes: permissions
// missing from a later declared list stay in place, which avoids opening
// authorization holes during a partial deploy. Running it twice with the
// same list is a no-op after the first run.
//
// It runs once at startup before traffic is accepted; any failure here is
// fatal to the process.
func (s *Service) SyncDeclared(ctx context.Context, declared []DeclaredPermission) error {
	for _, top := range declared {
		parentID, err := s.upsert(ctx, top.Name, top.Identity, nil)
		if err != nil {
			return fmt.Errorf("rbac: sync %s: %w", top.Identity, err)
		}
		for _, child := range top.Children {
			if _, err := s.upsert(ctx, child.Name, child.Identity, &parentID); err != nil {
				return fmt.Errorf("rbac: sync %s: %w", child.Identity, err)
			}
		}
	}
	return nil
}

func (s *Service) upsert(ctx context.Context, name, identity string, parentID *int64) (int64, error) {
	exist, err := s.permissions.GetByIdentity(ctx, identity)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return 0, err
		}
		return s.permissions.Add(ctx, Permission{
			Name:     name,
			Identity: identity,
			IsSystem: true,
			ParentID: parentID,
		})
	}
	exist.Name = name
	exist.Identity = identity
	exist.IsSystem = true
	exist.ParentID = parentID
	if err := s.permissions.Update(ctx, exist); err != nil {
		return 0, err
	}
	return exist.ID, nil
}

// PermissionByIdentity resolves a permission by its stable identity.
func (s *Service) PermissionByIdentity(ctx context.Context, identity string) (Permission, error) {
	return s.permissions.GetByIdentity(ctx, identity)
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.permissions.List(ctx)
}

// PermissionTree returns all permissions assembled into their shallow tree.
func (s *Service) PermissionTree(ctx context.Context) ([]PermissionNode, error) {
	items, err := s.permissions.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildPermissionTree(items), nil
}

// DeletePermission removes a permission. System permissions and permissions
// with children are protected.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	entity, err := s.permissions.Get(ctx, id)
	if err != nil {
		return err
	}
	if entity.IsSystem {
		return fmt.Errorf("%w: %s is a built-in permission", shared.ErrForbiddenDelete, entity.Identity)
	}
	children, err := s.permissions.ListChildren(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return fmt.Errorf("%w: %s has child permissions", shared.ErrForbiddenDelete, entity.Identity)
	}
	return s.permissions.Delete(ctx, id)
}

// PermissionsForUser returns the deduplicated permission set granted through
// roles. Root users receive every permission.
func (s *Service) PermissionsForUser(ctx context.Context, isRoot bool, roles []Role) ([]Permission, error) {
	if isRoot {
		return s.permissions.List(ctx)
	}
	seen := make(map[int64]struct{})
	var result []Permission
	for _, role := range roles {
		for _, p := range role.Permissions {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			result = append(result, p)
		}
	}
	return result, nil
}

// MenuTreeForUser returns the menu tree visible to a user: every menu for
// root, the deduplicated union over roles otherwise.
func (s *Service) MenuTreeForUser(ctx context.Context, isRoot bool, roles []Role) ([]Menu, error) {
	if isRoot {
		items, err := s.menus.List(ctx)
		if err != nil {
			return nil, err
		}
		return BuildMenuTree(items), nil
	}
	seen := make(map[int64]struct{})
	var items []Menu
	for _, role := range roles {
		for _, m := range role.Menus {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			items = append(items, m)
		}
	}
	return BuildMenuTree(items), nil
}

// HasPermission reports whether any role grants the permission. Role
// iteration order is irrelevant; grants are matched by permission id.
func HasPermission(roles []Role, permissionID int64) bool {
	for _, role := range roles {
		for _, p := range role.Permissions {
			if p.ID == permissionID {
				return true
			}
		}
	}
	return false
}

package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-bo/meridian/internal/shared"
)

// PgPermissionRepository provides PostgreSQL backed permission persistence.
type PgPermissionRepository struct {
	pool *pgxpool.Pool
}

// NewPgPermissionRepository constructs a repository.
func NewPgPermissionRepository(pool *pgxpool.Pool) *PgPermissionRepository {
	return &PgPermissionRepository{pool: pool}
}

const permissionColumns = `id, name, identity, is_system, parent_id`

// Get fetches a permission by id.
func (r *PgPermissionRepository) Get(ctx context.Context, id int64) (Permission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id)
	return scanPermission(row)
}

// GetByIdentity fetches a permission by its stable identity.
func (r *PgPermissionRepository) GetByIdentity(ctx context.Context, identity string) (Permission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE identity = $1`, identity)
	return scanPermission(row)
}

// List returns all permissions ordered by id.
func (r *PgPermissionRepository) List(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// ListChildren returns the direct children of a permission.
func (r *PgPermissionRepository) ListChildren(ctx context.Context, parentID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE parent_id = $1 ORDER BY id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

// Add inserts a permission and returns the generated id.
func (r *PgPermissionRepository) Add(ctx context.Context, p Permission) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (name, identity, is_system, parent_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Name, p.Identity, p.IsSystem, p.ParentID,
	).Scan(&id)
	if err != nil {
		return 0, mapPgError(err, "permission "+p.Identity)
	}
	return id, nil
}

// Update overwrites a permission record.
func (r *PgPermissionRepository) Update(ctx context.Context, p Permission) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE permissions SET name = $2, identity = $3, is_system = $4, parent_id = $5 WHERE id = $1`,
		p.ID, p.Name, p.Identity, p.IsSystem, p.ParentID,
	)
	if err != nil {
		return mapPgError(err, "permission "+p.Identity)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: permission %d", shared.ErrNotFound, p.ID)
	}
	return nil
}

// Delete removes a permission by id.
func (r *PgPermissionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: permission %d", shared.ErrNotFound, id)
	}
	return nil
}

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	if err := row.Scan(&p.ID, &p.Name, &p.Identity, &p.IsSystem, &p.ParentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

func collectPermissions(rows pgx.Rows) ([]Permission, error) {
	var items []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Identity, &p.IsSystem, &p.ParentID); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// PgMenuRepository provides PostgreSQL backed menu persistence.
type PgMenuRepository struct {
	pool *pgxpool.Pool
}

// NewPgMenuRepository constructs a repository.
func NewPgMenuRepository(pool *pgxpool.Pool) *PgMenuRepository {
	return &PgMenuRepository{pool: pool}
}

const menuColumns = `id, name, order_no, parent_id`

// List returns all menus ordered by order_no.
func (r *PgMenuRepository) List(ctx context.Context) ([]Menu, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+menuColumns+` FROM menus ORDER BY order_no, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMenus(rows)
}

// ListChildren returns the direct children of a menu.
func (r *PgMenuRepository) ListChildren(ctx context.Context, parentID int64) ([]Menu, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+menuColumns+` FROM menus WHERE parent_id = $1 ORDER BY order_no, id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMenus(rows)
}

// Add inserts a menu and returns the generated id.
func (r *PgMenuRepository) Add(ctx context.Context, m Menu) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO menus (name, order_no, parent_id) VALUES ($1, $2, $3) RETURNING id`,
		m.Name, m.OrderNo, m.ParentID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update overwrites a menu record.
func (r *PgMenuRepository) Update(ctx context.Context, m Menu) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE menus SET name = $2, order_no = $3, parent_id = $4 WHERE id = $1`,
		m.ID, m.Name, m.OrderNo, m.ParentID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: menu %d", shared.ErrNotFound, m.ID)
	}
	return nil
}

// Delete removes a menu by id.
func (r *PgMenuRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menus WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: menu %d", shared.ErrNotFound, id)
	}
	return nil
}

func collectMenus(rows pgx.Rows) ([]Menu, error) {
	var items []Menu
	for rows.Next() {
		var m Menu
		if err := rows.Scan(&m.ID, &m.Name, &m.OrderNo, &m.ParentID); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// mapPgError surfaces unique violations as ErrConflict.
func mapPgError(err error, subject string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrConflict, subject)
	}
	return err
}

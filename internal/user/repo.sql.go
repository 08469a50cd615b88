package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-bo/meridian/internal/rbac"
	"github.com/meridian-bo/meridian/internal/shared"
)

// PgRepository provides PostgreSQL backed account persistence.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository constructs a repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Get fetches a user by id, including roles with their permission and menu
// grants.
func (r *PgRepository) Get(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, password, salt, is_root FROM users WHERE id = $1`, id)
	return r.scanUser(ctx, row)
}

// FindByEmail fetches a user by email, including role grants.
func (r *PgRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, password, salt, is_root FROM users WHERE email = $1`, email)
	return r.scanUser(ctx, row)
}

// Add inserts a user and returns the generated id. A duplicate email
// surfaces as a conflict.
func (r *PgRepository) Add(ctx context.Context, u User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, password, salt, is_root) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Email, u.Password, u.Salt, u.IsRoot,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, fmt.Errorf("%w: email %s", shared.ErrConflict, u.Email)
		}
		return 0, err
	}
	return id, nil
}

// Update overwrites credential fields. The root flag is immutable and
// deliberately excluded from the statement.
func (r *PgRepository) Update(ctx context.Context, u User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email = $2, password = $3, salt = $4 WHERE id = $1`,
		u.ID, u.Email, u.Password, u.Salt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, u.ID)
	}
	return nil
}

// Delete removes a user by id.
func (r *PgRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *PgRepository) scanUser(ctx context.Context, row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Salt, &u.IsRoot); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	roles, err := r.loadRoles(ctx, u.ID)
	if err != nil {
		return User{}, err
	}
	u.Roles = roles
	return u, nil
}

func (r *PgRepository) loadRoles(ctx context.Context, userID int64) ([]rbac.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = $1 ORDER BY r.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []rbac.Role
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range roles {
		if roles[i].Permissions, err = r.loadRolePermissions(ctx, roles[i].ID); err != nil {
			return nil, err
		}
		if roles[i].Menus, err = r.loadRoleMenus(ctx, roles[i].ID); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

func (r *PgRepository) loadRolePermissions(ctx context.Context, roleID int64) ([]rbac.Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, p.identity, p.is_system, p.parent_id
		 FROM permissions p JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1 ORDER BY p.id`,
		roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []rbac.Permission
	for rows.Next() {
		var p rbac.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Identity, &p.IsSystem, &p.ParentID); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *PgRepository) loadRoleMenus(ctx context.Context, roleID int64) ([]rbac.Menu, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.name, m.order_no, m.parent_id
		 FROM menus m JOIN role_menus rm ON rm.menu_id = m.id
		 WHERE rm.role_id = $1 ORDER BY m.order_no, m.id`,
		roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []rbac.Menu
	for rows.Next() {
		var m rbac.Menu
		if err := rows.Scan(&m.ID, &m.Name, &m.OrderNo, &m.ParentID); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

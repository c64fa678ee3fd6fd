package rbac

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leasedesk/leasedesk/internal/platform/db"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrSystemRole indicates an attempt to mutate a seeded system role.
	ErrSystemRole = errors.New("rbac: system roles are immutable")
	// ErrDuplicateName indicates a role name collision.
	ErrDuplicateName = errors.New("rbac: role name already exists")
)

// DB is the pool surface the service queries through. Satisfied by
// *pgxpool.Pool.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Service is the permission store: it resolves effective permission sets
// for principals and manages roles and assignments.
type Service struct {
	pool DB
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool DB) *Service {
	return &Service{pool: pool}
}

// UserPermissions returns the deduplicated permission codes reachable by
// an admin user through its role assignments.
func (s *Service) UserPermissions(ctx context.Context, userID int64) ([]string, error) {
	const query = `
		SELECT DISTINCT p.code
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1`
	return s.queryCodes(ctx, query, userID)
}

// CustomerPermissions returns the deduplicated permission codes reachable
// by a customer through its role assignments.
func (s *Service) CustomerPermissions(ctx context.Context, customerID int64) ([]string, error) {
	const query = `
		SELECT DISTINCT p.code
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN customer_roles cr ON cr.role_id = rp.role_id
		WHERE cr.customer_id = $1`
	return s.queryCodes(ctx, query, customerID)
}

func (s *Service) queryCodes(ctx context.Context, query string, id int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description, is_system, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := s.pool.QueryRow(ctx, `SELECT id, name, description, is_system, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// RoleIDByName resolves a role by its unique name. Used for the seeded
// system roles new principals are attached to.
func (s *Service) RoleIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// CreateRole inserts a new custom role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	var role Role
	err := s.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, is_system, created_at, updated_at)
		VALUES ($1, $2, FALSE, NOW(), NOW())
		RETURNING id, name, description, is_system, created_at, updated_at`,
		name, strings.TrimSpace(description)).
		Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, ErrDuplicateName
		}
		return Role{}, err
	}
	return role, nil
}

// UpdateRole updates an existing custom role. System roles are rejected.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	existing, err := s.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if existing.IsSystem {
		return Role{}, ErrSystemRole
	}
	var role Role
	err = s.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1 AND is_system = FALSE
		RETURNING id, name, description, is_system, created_at, updated_at`,
		id, name, strings.TrimSpace(description)).
		Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return Role{}, ErrDuplicateName
		}
		return Role{}, err
	}
	return role, nil
}

// DeleteRole removes a custom role by ID.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	existing, err := s.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return ErrSystemRole
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1 AND is_system = FALSE`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPermissions returns the permission catalogue ordered by code.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, code, description FROM permissions ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Code, &perm.Description); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// RolePermissionCodes returns the codes attached to one role.
func (s *Service) RolePermissionCodes(ctx context.Context, roleID int64) ([]string, error) {
	const query = `
		SELECT p.code
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.code`
	return s.queryCodes(ctx, query, roleID)
}

// EnsurePermission upserts a permission, keeping its description current.
func (s *Service) EnsurePermission(ctx context.Context, code, description string) (Permission, error) {
	var perm Permission
	err := s.pool.QueryRow(ctx, `
		INSERT INTO permissions (code, description)
		VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description
		RETURNING id, code, description`,
		strings.TrimSpace(code), strings.TrimSpace(description)).
		Scan(&perm.ID, &perm.Code, &perm.Description)
	if err != nil {
		return Permission{}, err
	}
	return perm, nil
}

// SetRolePermissions replaces the permission set of a custom role.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, permID := range permissionIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id, created_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT DO NOTHING`, roleID, permID); err != nil {
				return err
			}
		}
		return nil
	})
}

// AssignUserRole assigns a role to an admin user.
func (s *Service) AssignUserRole(ctx context.Context, userID, roleID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT DO NOTHING`, userID, roleID)
	return err
}

// RemoveUserRole removes a role from an admin user.
func (s *Service) RemoveUserRole(ctx context.Context, userID, roleID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}

// SetUserRoles replaces the role assignments of an admin user.
func (s *Service) SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_roles (user_id, role_id, created_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT DO NOTHING`, userID, roleID); err != nil {
				return err
			}
		}
		return nil
	})
}

// AssignCustomerRole assigns a role to a customer.
func (s *Service) AssignCustomerRole(ctx context.Context, customerID, roleID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO customer_roles (customer_id, role_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT DO NOTHING`, customerID, roleID)
	return err
}

// RemoveCustomerRole removes a role from a customer.
func (s *Service) RemoveCustomerRole(ctx context.Context, customerID, roleID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM customer_roles WHERE customer_id = $1 AND role_id = $2`, customerID, roleID)
	return err
}

// RolesForUser returns the roles assigned to an admin user.
func (s *Service) RolesForUser(ctx context.Context, userID int64) ([]Role, error) {
	const query = `
		SELECT r.id, r.name, r.description, r.is_system, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`
	return s.queryRoles(ctx, query, userID)
}

// RolesForCustomer returns the roles assigned to a customer.
func (s *Service) RolesForCustomer(ctx context.Context, customerID int64) ([]Role, error) {
	const query = `
		SELECT r.id, r.name, r.description, r.is_system, r.created_at, r.updated_at
		FROM roles r
		JOIN customer_roles cr ON cr.role_id = r.id
		WHERE cr.customer_id = $1
		ORDER BY r.name`
	return s.queryRoles(ctx, query, customerID)
}

func (s *Service) queryRoles(ctx context.Context, query string, id int64) ([]Role, error) {
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

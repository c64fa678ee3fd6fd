package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leasedesk/leasedesk/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id int64) (*User, error)
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	FindCustomerByID(ctx context.Context, id int64) (*Customer, error)
	CreateSession(ctx context.Context, id string, kind shared.PrincipalKind, principalID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindUserByEmail fetches an admin user by email.
func (r *PGRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT id, email, name, password_hash, is_active, created_at, updated_at FROM users WHERE email = $1`, email))
}

// FindUserByID fetches an admin user by ID.
func (r *PGRepository) FindUserByID(ctx context.Context, id int64) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT id, email, name, password_hash, is_active, created_at, updated_at FROM users WHERE id = $1`, id))
}

// FindCustomerByEmail fetches a customer by email.
func (r *PGRepository) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	return r.scanCustomer(r.pool.QueryRow(ctx, `SELECT id, email, name, phone, password_hash, is_active, created_at, updated_at FROM customers WHERE email = $1`, email))
}

// FindCustomerByID fetches a customer by ID.
func (r *PGRepository) FindCustomerByID(ctx context.Context, id int64) (*Customer, error) {
	return r.scanCustomer(r.pool.QueryRow(ctx, `SELECT id, email, name, phone, password_hash, is_active, created_at, updated_at FROM customers WHERE id = $1`, id))
}

func (r *PGRepository) scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *PGRepository) scanCustomer(row pgx.Row) (*Customer, error) {
	var customer Customer
	err := row.Scan(&customer.ID, &customer.Email, &customer.Name, &customer.Phone, &customer.PasswordHash, &customer.IsActive, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, kind shared.PrincipalKind, principalID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, principal_kind, principal_id, created_at, expires_at, ip, ua)
		VALUES ($1, $2, $3, NOW(), $4, NULLIF($5, ''), NULLIF($6, ''))`,
		id, string(kind), principalID, expiresAt.UTC(), ip, ua)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)

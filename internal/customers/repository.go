package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leasedesk/leasedesk/internal/shared"
)

// ErrDuplicateEmail indicates an email collision on create or update.
var ErrDuplicateEmail = errors.New("customers: email already exists")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns a page of customers and the total count.
func (r *Repository) List(ctx context.Context, page, perPage int) ([]Customer, int, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, name, phone, is_active, created_at, updated_at
		FROM customers ORDER BY id
		LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var customers []Customer
	for rows.Next() {
		var customer Customer
		if err := rows.Scan(&customer.ID, &customer.Email, &customer.Name, &customer.Phone, &customer.IsActive, &customer.CreatedAt, &customer.UpdatedAt); err != nil {
			return nil, 0, err
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// Get fetches one customer by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	var customer Customer
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, phone, is_active, created_at, updated_at FROM customers WHERE id = $1`, id).
		Scan(&customer.ID, &customer.Email, &customer.Name, &customer.Phone, &customer.IsActive, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return customer, nil
}

// Create inserts a new customer with a pre-hashed password.
func (r *Repository) Create(ctx context.Context, email, name, phone, passwordHash string) (Customer, error) {
	var customer Customer
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (email, name, phone, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING id, email, name, phone, is_active, created_at, updated_at`,
		email, name, phone, passwordHash).
		Scan(&customer.ID, &customer.Email, &customer.Name, &customer.Phone, &customer.IsActive, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Customer{}, ErrDuplicateEmail
		}
		return Customer{}, err
	}
	return customer, nil
}

// Update changes profile fields and the active flag.
func (r *Repository) Update(ctx context.Context, id int64, email, name, phone string, isActive bool) (Customer, error) {
	var customer Customer
	err := r.pool.QueryRow(ctx, `
		UPDATE customers SET email = $2, name = $3, phone = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, name, phone, is_active, created_at, updated_at`,
		id, email, name, phone, isActive).
		Scan(&customer.ID, &customer.Email, &customer.Name, &customer.Phone, &customer.IsActive, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		if isUniqueViolation(err) {
			return Customer{}, ErrDuplicateEmail
		}
		return Customer{}, err
	}
	return customer, nil
}

// UpdateContact changes the fields a customer may edit about itself.
func (r *Repository) UpdateContact(ctx context.Context, id int64, name, phone string) (Customer, error) {
	var customer Customer
	err := r.pool.QueryRow(ctx, `
		UPDATE customers SET name = $2, phone = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, name, phone, is_active, created_at, updated_at`,
		id, name, phone).
		Scan(&customer.ID, &customer.Email, &customer.Name, &customer.Phone, &customer.IsActive, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return customer, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

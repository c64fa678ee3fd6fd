package properties

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leasedesk/leasedesk/internal/shared"
)

// ErrBadReference indicates the society or owner does not exist.
var ErrBadReference = errors.New("properties: referenced society or customer missing")

const propertyColumns = `id, society_id, owner_customer_id, flat_no, floor, type, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for properties.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns properties, optionally filtered by society.
func (r *Repository) List(ctx context.Context, societyID int64) ([]Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties`
	args := []any{}
	if societyID > 0 {
		query += ` WHERE society_id = $1`
		args = append(args, societyID)
	}
	query += ` ORDER BY society_id, flat_no`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var props []Property
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, prop)
	}
	return props, rows.Err()
}

// Get fetches one property by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Property, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	prop, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, shared.ErrNotFound
	}
	return prop, err
}

// Create inserts a new property.
func (r *Repository) Create(ctx context.Context, prop Property) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO properties (society_id, owner_customer_id, flat_no, floor, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING `+propertyColumns,
		prop.SocietyID, prop.OwnerCustomerID, prop.FlatNo, prop.Floor, prop.Type)
	created, err := scanProperty(row)
	if isFKViolation(err) {
		return Property{}, ErrBadReference
	}
	return created, err
}

// Update rewrites a property's fields.
func (r *Repository) Update(ctx context.Context, prop Property) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE properties SET society_id = $2, owner_customer_id = $3, flat_no = $4, floor = $5, type = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+propertyColumns,
		prop.ID, prop.SocietyID, prop.OwnerCustomerID, prop.FlatNo, prop.Floor, prop.Type)
	updated, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, shared.ErrNotFound
	}
	if isFKViolation(err) {
		return Property{}, ErrBadReference
	}
	return updated, err
}

// Delete removes a property.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanProperty(row pgx.Row) (Property, error) {
	var prop Property
	err := row.Scan(&prop.ID, &prop.SocietyID, &prop.OwnerCustomerID, &prop.FlatNo, &prop.Floor, &prop.Type, &prop.CreatedAt, &prop.UpdatedAt)
	return prop, err
}

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

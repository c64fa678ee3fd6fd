package societies

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leasedesk/leasedesk/internal/shared"
)

// ErrHasProperties indicates the society still owns properties.
var ErrHasProperties = errors.New("societies: society has properties")

const societyColumns = `id, name, address, city, registration_no, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for societies.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all societies ordered by name.
func (r *Repository) List(ctx context.Context) ([]Society, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+societyColumns+` FROM societies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var societies []Society
	for rows.Next() {
		society, err := scanSociety(rows)
		if err != nil {
			return nil, err
		}
		societies = append(societies, society)
	}
	return societies, rows.Err()
}

// Get fetches one society by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Society, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+societyColumns+` FROM societies WHERE id = $1`, id)
	society, err := scanSociety(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Society{}, shared.ErrNotFound
	}
	return society, err
}

// Create inserts a new society.
func (r *Repository) Create(ctx context.Context, society Society) (Society, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO societies (name, address, city, registration_no, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING `+societyColumns,
		society.Name, society.Address, society.City, society.RegistrationNo)
	return scanSociety(row)
}

// Update rewrites a society's fields.
func (r *Repository) Update(ctx context.Context, society Society) (Society, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE societies SET name = $2, address = $3, city = $4, registration_no = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+societyColumns,
		society.ID, society.Name, society.Address, society.City, society.RegistrationNo)
	updated, err := scanSociety(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Society{}, shared.ErrNotFound
	}
	return updated, err
}

// Delete removes a society. Societies with properties are protected by
// the FK constraint and reported as ErrHasProperties.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM societies WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrHasProperties
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanSociety(row pgx.Row) (Society, error) {
	var society Society
	err := row.Scan(&society.ID, &society.Name, &society.Address, &society.City, &society.RegistrationNo, &society.CreatedAt, &society.UpdatedAt)
	return society, err
}

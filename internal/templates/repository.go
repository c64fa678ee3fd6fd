package templates

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leasedesk/leasedesk/internal/platform/db"
	"github.com/leasedesk/leasedesk/internal/shared"
)

// ErrInUse indicates agreements still reference the template.
var ErrInUse = errors.New("templates: template referenced by agreements")

// ErrDuplicateName indicates a template name collision.
var ErrDuplicateName = errors.New("templates: name already exists")

const templateColumns = `id, name, description, html_body, is_default, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for templates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all templates, default first.
func (r *Repository) List(ctx context.Context) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+templateColumns+` FROM agreement_templates ORDER BY is_default DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tmpls []Template
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		tmpls = append(tmpls, tmpl)
	}
	return tmpls, rows.Err()
}

// Get fetches one template by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Template, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM agreement_templates WHERE id = $1`, id)
	tmpl, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, shared.ErrNotFound
	}
	return tmpl, err
}

// GetDefault fetches the template marked as default.
func (r *Repository) GetDefault(ctx context.Context) (Template, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM agreement_templates WHERE is_default LIMIT 1`)
	tmpl, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, shared.ErrNotFound
	}
	return tmpl, err
}

// Create inserts a template. Marking it default clears the flag on the
// previous default inside one transaction.
func (r *Repository) Create(ctx context.Context, tmpl Template) (Template, error) {
	var created Template
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if tmpl.IsDefault {
			if _, err := tx.Exec(ctx, `UPDATE agreement_templates SET is_default = FALSE WHERE is_default`); err != nil {
				return err
			}
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO agreement_templates (name, description, html_body, is_default, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING `+templateColumns,
			tmpl.Name, tmpl.Description, tmpl.HTMLBody, tmpl.IsDefault)
		var err error
		created, err = scanTemplate(row)
		return err
	})
	if isUniqueViolation(err) {
		return Template{}, ErrDuplicateName
	}
	return created, err
}

// Update rewrites a template.
func (r *Repository) Update(ctx context.Context, tmpl Template) (Template, error) {
	var updated Template
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if tmpl.IsDefault {
			if _, err := tx.Exec(ctx, `UPDATE agreement_templates SET is_default = FALSE WHERE is_default AND id <> $1`, tmpl.ID); err != nil {
				return err
			}
		}
		row := tx.QueryRow(ctx, `
			UPDATE agreement_templates SET name = $2, description = $3, html_body = $4, is_default = $5, updated_at = NOW()
			WHERE id = $1
			RETURNING `+templateColumns,
			tmpl.ID, tmpl.Name, tmpl.Description, tmpl.HTMLBody, tmpl.IsDefault)
		var err error
		updated, err = scanTemplate(row)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, shared.ErrNotFound
	}
	if isUniqueViolation(err) {
		return Template{}, ErrDuplicateName
	}
	return updated, err
}

// Delete removes a template unless agreements still reference it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM agreement_templates WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanTemplate(row pgx.Row) (Template, error) {
	var tmpl Template
	err := row.Scan(&tmpl.ID, &tmpl.Name, &tmpl.Description, &tmpl.HTMLBody, &tmpl.IsDefault, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	return tmpl, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package agreements

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leasedesk/leasedesk/internal/shared"
)

// ErrBadReference indicates a missing customer, property, or template.
var ErrBadReference = errors.New("agreements: referenced row missing")

const agreementColumns = `id, number, customer_id, property_id, template_id,
	landlord_name, landlord_address, tenant_name, tenant_email,
	rent_amount, deposit_amount, start_date, end_date, status,
	notarized_at, created_at, updated_at`

// Filter narrows agreement listings.
type Filter struct {
	CustomerID int64
	Status     string
	Page       int
	PerPage    int
}

// DocumentInfo carries the joined fields a rendered agreement document
// needs beyond the agreement row itself.
type DocumentInfo struct {
	Agreement    Agreement
	TemplateBody string
	SocietyName  string
	SocietyCity  string
	FlatNo       string
}

// Repository provides PostgreSQL backed persistence for agreements.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns a filtered page of agreements with the total count.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Agreement, int, error) {
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	where := ` WHERE 1=1`
	args := []any{}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		where += ` AND customer_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM agreements`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	offset := (filter.Page - 1) * filter.PerPage
	query := `SELECT ` + agreementColumns + ` FROM agreements` + where +
		` ORDER BY created_at DESC` +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filter.PerPage, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var agreements []Agreement
	for rows.Next() {
		agreement, err := scanAgreement(rows)
		if err != nil {
			return nil, 0, err
		}
		agreements = append(agreements, agreement)
	}
	return agreements, total, rows.Err()
}

// Get fetches one agreement by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Agreement, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = $1`, id)
	agreement, err := scanAgreement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agreement{}, shared.ErrNotFound
	}
	return agreement, err
}

// Create inserts a new draft agreement.
func (r *Repository) Create(ctx context.Context, agreement Agreement) (Agreement, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO agreements (number, customer_id, property_id, template_id,
			landlord_name, landlord_address, tenant_name, tenant_email,
			rent_amount, deposit_amount, start_date, end_date, status,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING `+agreementColumns,
		agreement.Number, agreement.CustomerID, agreement.PropertyID, agreement.TemplateID,
		agreement.LandlordName, agreement.LandlordAddress, agreement.TenantName, agreement.TenantEmail,
		agreement.RentAmount, agreement.DepositAmount, agreement.StartDate, agreement.EndDate, agreement.Status)
	created, err := scanAgreement(row)
	if isFKViolation(err) {
		return Agreement{}, ErrBadReference
	}
	return created, err
}

// Update rewrites the editable fields of an agreement.
func (r *Repository) Update(ctx context.Context, agreement Agreement) (Agreement, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE agreements SET property_id = $2, template_id = $3,
			landlord_name = $4, landlord_address = $5, tenant_name = $6, tenant_email = $7,
			rent_amount = $8, deposit_amount = $9, start_date = $10, end_date = $11,
			status = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING `+agreementColumns,
		agreement.ID, agreement.PropertyID, agreement.TemplateID,
		agreement.LandlordName, agreement.LandlordAddress, agreement.TenantName, agreement.TenantEmail,
		agreement.RentAmount, agreement.DepositAmount, agreement.StartDate, agreement.EndDate,
		agreement.Status)
	updated, err := scanAgreement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agreement{}, shared.ErrNotFound
	}
	if isFKViolation(err) {
		return Agreement{}, ErrBadReference
	}
	return updated, err
}

// Notarize freezes the agreement and stamps the notarization time.
func (r *Repository) Notarize(ctx context.Context, id int64, at time.Time) (Agreement, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE agreements SET status = $2, notarized_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+agreementColumns,
		id, StatusNotarized, at)
	agreement, err := scanAgreement(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agreement{}, shared.ErrNotFound
	}
	return agreement, err
}

// Delete removes an agreement.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM agreements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExpireDue marks active agreements past their end date as expired and
// returns the affected rows for reminder notifications.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time) ([]Agreement, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE agreements SET status = $1, updated_at = NOW()
		WHERE status = $2 AND end_date < $3
		RETURNING `+agreementColumns,
		StatusExpired, StatusActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expired []Agreement
	for rows.Next() {
		agreement, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, agreement)
	}
	return expired, rows.Err()
}

// DocumentInfo joins the agreement with its template, property, and
// society for document rendering.
func (r *Repository) DocumentInfo(ctx context.Context, id int64) (DocumentInfo, error) {
	var info DocumentInfo
	row := r.pool.QueryRow(ctx, `
		SELECT a.id, a.number, a.customer_id, a.property_id, a.template_id,
			a.landlord_name, a.landlord_address, a.tenant_name, a.tenant_email,
			a.rent_amount, a.deposit_amount, a.start_date, a.end_date, a.status,
			a.notarized_at, a.created_at, a.updated_at,
			t.html_body, s.name, s.city, p.flat_no
		FROM agreements a
		JOIN agreement_templates t ON t.id = a.template_id
		JOIN properties p ON p.id = a.property_id
		JOIN societies s ON s.id = p.society_id
		WHERE a.id = $1`, id)
	err := row.Scan(
		&info.Agreement.ID, &info.Agreement.Number, &info.Agreement.CustomerID,
		&info.Agreement.PropertyID, &info.Agreement.TemplateID,
		&info.Agreement.LandlordName, &info.Agreement.LandlordAddress,
		&info.Agreement.TenantName, &info.Agreement.TenantEmail,
		&info.Agreement.RentAmount, &info.Agreement.DepositAmount,
		&info.Agreement.StartDate, &info.Agreement.EndDate, &info.Agreement.Status,
		&info.Agreement.NotarizedAt, &info.Agreement.CreatedAt, &info.Agreement.UpdatedAt,
		&info.TemplateBody, &info.SocietyName, &info.SocietyCity, &info.FlatNo)
	if errors.Is(err, pgx.ErrNoRows) {
		return DocumentInfo{}, shared.ErrNotFound
	}
	return info, err
}

func scanAgreement(row pgx.Row) (Agreement, error) {
	var a Agreement
	err := row.Scan(&a.ID, &a.Number, &a.CustomerID, &a.PropertyID, &a.TemplateID,
		&a.LandlordName, &a.LandlordAddress, &a.TenantName, &a.TenantEmail,
		&a.RentAmount, &a.DepositAmount, &a.StartDate, &a.EndDate, &a.Status,
		&a.NotarizedAt, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

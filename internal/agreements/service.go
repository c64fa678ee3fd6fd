package agreements

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leasedesk/leasedesk/internal/shared"
	"github.com/leasedesk/leasedesk/internal/templates"
)

// ErrImmutable indicates a notarized or expired agreement was targeted
// by an edit or delete.
var ErrImmutable = errors.New("agreements: agreement is no longer mutable")

// ErrBadTransition indicates a disallowed status change.
var ErrBadTransition = errors.New("agreements: invalid status transition")

// ErrAlreadyNotarized indicates a repeat notarization attempt.
var ErrAlreadyNotarized = errors.New("agreements: agreement already notarized")

// RepositoryPort defines the persistence methods the service needs.
type RepositoryPort interface {
	List(ctx context.Context, filter Filter) ([]Agreement, int, error)
	Get(ctx context.Context, id int64) (Agreement, error)
	Create(ctx context.Context, agreement Agreement) (Agreement, error)
	Update(ctx context.Context, agreement Agreement) (Agreement, error)
	Notarize(ctx context.Context, id int64, at time.Time) (Agreement, error)
	Delete(ctx context.Context, id int64) error
	ExpireDue(ctx context.Context, now time.Time) ([]Agreement, error)
	DocumentInfo(ctx context.Context, id int64) (DocumentInfo, error)
}

// Renderer turns HTML into a PDF document.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// AuditRecorder persists audit trail entries. Satisfied by the shared
// audit logger; nil disables the trail.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Notifier delivers agreement lifecycle notifications. A nil Notifier
// disables them.
type Notifier interface {
	AgreementNotarized(ctx context.Context, agreement Agreement) error
	AgreementExpired(ctx context.Context, agreement Agreement) error
}

// Service implements the agreement lifecycle.
type Service struct {
	repo     RepositoryPort
	renderer Renderer
	notifier Notifier
	audit    AuditRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, renderer Renderer, notifier Notifier, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, renderer: renderer, notifier: notifier, audit: audit, logger: logger, now: time.Now}
}

// recordAudit writes a best effort audit trail entry for a mutation.
func (s *Service) recordAudit(ctx context.Context, action string, agreement Agreement) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		Action:   action,
		Entity:   "agreement",
		EntityID: agreement.ID,
		Meta:     map[string]any{"number": agreement.Number, "status": agreement.Status},
	}
	if identity := shared.IdentityFromContext(ctx); identity != nil {
		log.ActorKind = identity.Kind
		log.ActorID = identity.ID
	}
	_ = s.audit.Record(ctx, log)
}

// List returns a filtered page of agreements.
func (s *Service) List(ctx context.Context, filter Filter) ([]Agreement, int, error) {
	return s.repo.List(ctx, filter)
}

// Get returns one agreement.
func (s *Service) Get(ctx context.Context, id int64) (Agreement, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a new draft agreement with a generated number.
func (s *Service) Create(ctx context.Context, agreement Agreement) (Agreement, error) {
	if !agreement.EndDate.After(agreement.StartDate) {
		return Agreement{}, ErrBadTransition
	}
	agreement.Number = newNumber()
	agreement.Status = StatusDraft
	agreement.NotarizedAt = nil
	created, err := s.repo.Create(ctx, agreement)
	if err != nil {
		return Agreement{}, err
	}
	s.recordAudit(ctx, "agreement.created", created)
	return created, nil
}

// Update rewrites an agreement's editable fields. Frozen agreements and
// disallowed status changes are rejected before touching the store.
func (s *Service) Update(ctx context.Context, agreement Agreement) (Agreement, error) {
	current, err := s.repo.Get(ctx, agreement.ID)
	if err != nil {
		return Agreement{}, err
	}
	if !current.Mutable() {
		return Agreement{}, ErrImmutable
	}
	if agreement.Status == "" {
		agreement.Status = current.Status
	}
	if !validStatusChange(current.Status, agreement.Status) {
		return Agreement{}, ErrBadTransition
	}
	if !agreement.EndDate.After(agreement.StartDate) {
		return Agreement{}, ErrBadTransition
	}
	return s.repo.Update(ctx, agreement)
}

// Notarize freezes an agreement and notifies the tenant. Draft and
// active agreements may be notarized once.
func (s *Service) Notarize(ctx context.Context, id int64) (Agreement, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Agreement{}, err
	}
	if current.Status == StatusNotarized {
		return Agreement{}, ErrAlreadyNotarized
	}
	if !current.Mutable() {
		return Agreement{}, ErrImmutable
	}
	notarized, err := s.repo.Notarize(ctx, id, s.now().UTC())
	if err != nil {
		return Agreement{}, err
	}
	// The agreement is frozen at this point, so a failed notification
	// must not turn the response into an error.
	if s.notifier != nil {
		if err := s.notifier.AgreementNotarized(ctx, notarized); err != nil {
			s.logger.Warn("notarized notice not enqueued", "agreement", notarized.Number, "error", err)
		}
	}
	s.recordAudit(ctx, "agreement.notarized", notarized)
	return notarized, nil
}

// Delete removes a draft or active agreement.
func (s *Service) Delete(ctx context.Context, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !current.Mutable() {
		return ErrImmutable
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "agreement.deleted", current)
	return nil
}

// ExpireDue marks overdue agreements expired and sends reminders. It
// returns how many agreements were expired.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	expired, err := s.repo.ExpireDue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	// Rows are already flipped to expired, and a rerun would not pick
	// them up again. Log failed reminders instead of failing the scan.
	if s.notifier != nil {
		for _, agreement := range expired {
			if err := s.notifier.AgreementExpired(ctx, agreement); err != nil {
				s.logger.Warn("expiry reminder not enqueued", "agreement", agreement.Number, "error", err)
			}
		}
	}
	return len(expired), nil
}

// RenderDocument produces the agreement PDF from its template.
func (s *Service) RenderDocument(ctx context.Context, id int64) ([]byte, error) {
	info, err := s.repo.DocumentInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	html, err := templates.Render(info.TemplateBody, renderData(info, s.now()))
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderHTML(ctx, html)
}

func renderData(info DocumentInfo, now time.Time) templates.RenderData {
	a := info.Agreement
	data := templates.RenderData{
		Number:          a.Number,
		LandlordName:    a.LandlordName,
		LandlordAddress: a.LandlordAddress,
		TenantName:      a.TenantName,
		TenantEmail:     a.TenantEmail,
		SocietyName:     info.SocietyName,
		PropertyAddress: info.SocietyName + ", Flat " + info.FlatNo,
		FlatNo:          info.FlatNo,
		City:            info.SocietyCity,
		RentAmount:      templates.FormatAmount(a.RentAmount),
		DepositAmount:   templates.FormatAmount(a.DepositAmount),
		StartDate:       templates.FormatDate(a.StartDate),
		EndDate:         templates.FormatDate(a.EndDate),
		GeneratedAt:     templates.FormatDate(now),
	}
	if a.NotarizedAt != nil {
		data.NotarizedAt = templates.FormatDate(*a.NotarizedAt)
	}
	return data
}

// newNumber derives a display number from a v4 UUID.
func newNumber() string {
	id := strings.ToUpper(uuid.NewString())
	return "AGR-" + id[:8]
}

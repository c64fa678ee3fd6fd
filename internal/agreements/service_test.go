package agreements

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leasedesk/leasedesk/internal/shared"
)

type stubRepo struct {
	byID     map[int64]Agreement
	expired  []Agreement
	info     DocumentInfo
	lastSave Agreement
}

func newStubRepo(agreements ...Agreement) *stubRepo {
	repo := &stubRepo{byID: map[int64]Agreement{}}
	for _, a := range agreements {
		repo.byID[a.ID] = a
	}
	return repo
}

func (s *stubRepo) List(ctx context.Context, filter Filter) ([]Agreement, int, error) {
	var out []Agreement
	for _, a := range s.byID {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (Agreement, error) {
	a, ok := s.byID[id]
	if !ok {
		return Agreement{}, shared.ErrNotFound
	}
	return a, nil
}

func (s *stubRepo) Create(ctx context.Context, agreement Agreement) (Agreement, error) {
	agreement.ID = int64(len(s.byID) + 1)
	s.byID[agreement.ID] = agreement
	s.lastSave = agreement
	return agreement, nil
}

func (s *stubRepo) Update(ctx context.Context, agreement Agreement) (Agreement, error) {
	if _, ok := s.byID[agreement.ID]; !ok {
		return Agreement{}, shared.ErrNotFound
	}
	s.byID[agreement.ID] = agreement
	s.lastSave = agreement
	return agreement, nil
}

func (s *stubRepo) Notarize(ctx context.Context, id int64, at time.Time) (Agreement, error) {
	a, ok := s.byID[id]
	if !ok {
		return Agreement{}, shared.ErrNotFound
	}
	a.Status = StatusNotarized
	a.NotarizedAt = &at
	s.byID[id] = a
	return a, nil
}

func (s *stubRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *stubRepo) ExpireDue(ctx context.Context, now time.Time) ([]Agreement, error) {
	return s.expired, nil
}

func (s *stubRepo) DocumentInfo(ctx context.Context, id int64) (DocumentInfo, error) {
	if s.info.Agreement.ID != id {
		return DocumentInfo{}, shared.ErrNotFound
	}
	return s.info, nil
}

type stubRenderer struct {
	lastHTML string
}

func (s *stubRenderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	s.lastHTML = html
	return []byte("%PDF-stub"), nil
}

type recordingNotifier struct {
	notarized []Agreement
	expired   []Agreement
	fail      error
}

func (n *recordingNotifier) AgreementNotarized(ctx context.Context, a Agreement) error {
	n.notarized = append(n.notarized, a)
	return n.fail
}

func (n *recordingNotifier) AgreementExpired(ctx context.Context, a Agreement) error {
	n.expired = append(n.expired, a)
	return n.fail
}

func draftAgreement(id int64) Agreement {
	return Agreement{
		ID:         id,
		Number:     "AGR-TEST0001",
		CustomerID: 42,
		PropertyID: 1,
		TemplateID: 1,
		Status:     StatusDraft,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateStartsAsDraftWithGeneratedNumber(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, &stubRenderer{}, nil, nil, nil)

	in := draftAgreement(0)
	in.Number = ""
	in.Status = StatusActive
	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, created.Status)
	assert.True(t, strings.HasPrefix(created.Number, "AGR-"))
	assert.Len(t, created.Number, 12)
	assert.Nil(t, created.NotarizedAt)
}

func TestCreateRejectsInvertedDates(t *testing.T) {
	svc := NewService(newStubRepo(), &stubRenderer{}, nil, nil, nil)
	in := draftAgreement(0)
	in.EndDate = in.StartDate
	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrBadTransition)
}

func TestUpdateRejectsNotarizedAgreement(t *testing.T) {
	frozen := draftAgreement(1)
	frozen.Status = StatusNotarized
	svc := NewService(newStubRepo(frozen), &stubRenderer{}, nil, nil, nil)

	_, err := svc.Update(context.Background(), draftAgreement(1))
	assert.ErrorIs(t, err, ErrImmutable)
}

func TestUpdateRejectsJumpToNotarized(t *testing.T) {
	svc := NewService(newStubRepo(draftAgreement(1)), &stubRenderer{}, nil, nil, nil)

	in := draftAgreement(1)
	in.Status = StatusNotarized
	_, err := svc.Update(context.Background(), in)
	assert.ErrorIs(t, err, ErrBadTransition)
}

func TestUpdateAllowsDraftActivation(t *testing.T) {
	svc := NewService(newStubRepo(draftAgreement(1)), &stubRenderer{}, nil, nil, nil)

	in := draftAgreement(1)
	in.Status = StatusActive
	updated, err := svc.Update(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, updated.Status)
}

func TestNotarizeStampsTimeAndNotifies(t *testing.T) {
	active := draftAgreement(1)
	active.Status = StatusActive
	repo := newStubRepo(active)
	notifier := &recordingNotifier{}
	svc := NewService(repo, &stubRenderer{}, notifier, nil, nil)
	fixed := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	notarized, err := svc.Notarize(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, notarized.NotarizedAt)
	assert.Equal(t, fixed, *notarized.NotarizedAt)
	require.Len(t, notifier.notarized, 1)
	assert.Equal(t, StatusNotarized, notifier.notarized[0].Status)
}

func TestNotarizeSucceedsWhenNotificationFails(t *testing.T) {
	repo := newStubRepo(draftAgreement(1))
	notifier := &recordingNotifier{fail: errors.New("queue down")}
	svc := NewService(repo, &stubRenderer{}, notifier, nil, nil)

	notarized, err := svc.Notarize(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusNotarized, notarized.Status)
	assert.Equal(t, StatusNotarized, repo.byID[1].Status)
	require.Len(t, notifier.notarized, 1)
}

func TestNotarizeTwiceFails(t *testing.T) {
	frozen := draftAgreement(1)
	frozen.Status = StatusNotarized
	svc := NewService(newStubRepo(frozen), &stubRenderer{}, nil, nil, nil)

	_, err := svc.Notarize(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAlreadyNotarized)
}

func TestDeleteRejectsFrozenAgreement(t *testing.T) {
	expired := draftAgreement(1)
	expired.Status = StatusExpired
	svc := NewService(newStubRepo(expired), &stubRenderer{}, nil, nil, nil)

	err := svc.Delete(context.Background(), 1)
	assert.ErrorIs(t, err, ErrImmutable)
}

func TestExpireDueNotifiesEachTenant(t *testing.T) {
	repo := newStubRepo()
	first := draftAgreement(1)
	second := draftAgreement(2)
	repo.expired = []Agreement{first, second}
	notifier := &recordingNotifier{}
	svc := NewService(repo, &stubRenderer{}, notifier, nil, nil)

	count, err := svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, notifier.expired, 2)
}

func TestExpireDueCountsDespiteReminderFailures(t *testing.T) {
	repo := newStubRepo()
	repo.expired = []Agreement{draftAgreement(1), draftAgreement(2)}
	notifier := &recordingNotifier{fail: errors.New("queue down")}
	svc := NewService(repo, &stubRenderer{}, notifier, nil, nil)

	count, err := svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, notifier.expired, 2)
}

func TestRenderDocumentFillsTemplate(t *testing.T) {
	agreement := draftAgreement(9)
	agreement.TenantName = "Jane Tenant"
	agreement.RentAmount = 25000
	repo := newStubRepo(agreement)
	repo.info = DocumentInfo{
		Agreement:    agreement,
		TemplateBody: `<p>{{.TenantName}} pays {{.RentAmount}} at {{.PropertyAddress}}</p>`,
		SocietyName:  "Green Meadows",
		SocietyCity:  "Sampletown",
		FlatNo:       "B-404",
	}
	renderer := &stubRenderer{}
	svc := NewService(repo, renderer, nil, nil, nil)

	document, err := svc.RenderDocument(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-stub"), document)
	assert.Contains(t, renderer.lastHTML, "Jane Tenant")
	assert.Contains(t, renderer.lastHTML, "25,000")
	assert.Contains(t, renderer.lastHTML, "Green Meadows, Flat B-404")
}

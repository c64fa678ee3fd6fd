package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/leasedesk/leasedesk/internal/auth"
	"github.com/leasedesk/leasedesk/internal/rbac"
	"github.com/leasedesk/leasedesk/internal/shared"
	_ "github.com/leasedesk/leasedesk/testing"
)

type stubRepo struct {
	user     *auth.User
	customer *auth.Customer
}

func (s *stubRepo) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindUserByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindCustomerByEmail(ctx context.Context, email string) (*auth.Customer, error) {
	if s.customer == nil || s.customer.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.customer, nil
}

func (s *stubRepo) FindCustomerByID(ctx context.Context, id int64) (*auth.Customer, error) {
	if s.customer == nil || s.customer.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.customer, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, kind shared.PrincipalKind, principalID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

type emptySource struct{}

func (emptySource) UserPermissions(ctx context.Context, userID int64) ([]string, error) {
	return nil, nil
}

func (emptySource) CustomerPermissions(ctx context.Context, customerID int64) ([]string, error) {
	return nil, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	guard := &rbac.Guard{Source: emptySource{}}
	handler := auth.NewHandler(testLogger(), auth.NewService(repo), guard, sessionManager, csrfManager)
	return handler, sessionManager
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(hashed)
}

func doLogin(t *testing.T, handler *auth.Handler, sessionManager *shared.SessionManager, path, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(res, req)
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res, sess
}

// newRouter mounts the handler's routes so tests exercise the same code
// paths the application router does.
func newRouter(h *auth.Handler) http.Handler {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionWithAdmin(t *testing.T, id int64) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetAdmin(id)
	return sess
}

func TestAdminLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "admin@test.local",
		Name:         "Admin",
		PasswordHash: hashPassword(t, "correct-password"),
		IsActive:     true,
	}}
	handler, sessionManager := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sessionManager, "/login", `{"email":"admin@test.local","password":"correct-password"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	kind, id, ok := sess.Principal()
	if !ok || kind != shared.PrincipalAdmin || id != 1 {
		t.Fatalf("expected admin principal 1, got kind=%s id=%d ok=%v", kind, id, ok)
	}

	var payload map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["csrf_token"] == "" {
		t.Fatal("expected csrf token in login response")
	}
}

func TestCustomerLoginBindsCustomerPrincipal(t *testing.T) {
	repo := &stubRepo{customer: &auth.Customer{
		ID:           42,
		Email:        "tenant@test.local",
		Name:         "Tenant",
		PasswordHash: hashPassword(t, "correct-password"),
		IsActive:     true,
	}}
	handler, sessionManager := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sessionManager, "/portal/login", `{"email":"tenant@test.local","password":"correct-password"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	kind, id, ok := sess.Principal()
	if !ok || kind != shared.PrincipalCustomer || id != 42 {
		t.Fatalf("expected customer principal 42, got kind=%s id=%d ok=%v", kind, id, ok)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "admin@test.local",
		PasswordHash: hashPassword(t, "correct-password"),
		IsActive:     true,
	}}
	handler, sessionManager := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sessionManager, "/login", `{"email":"admin@test.local","password":"wrong-password"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if _, _, ok := sess.Principal(); ok {
		t.Fatal("expected no principal bound after failed login")
	}
}

func TestInactiveAccountFailsLogin(t *testing.T) {
	// Deactivation is a soft delete: the account must fail
	// authentication outright, not merely authorization.
	repo := &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "admin@test.local",
		PasswordHash: hashPassword(t, "correct-password"),
		IsActive:     false,
	}}
	handler, sessionManager := newAuthHandler(t, repo)

	res, _ := doLogin(t, handler, sessionManager, "/login", `{"email":"admin@test.local","password":"correct-password"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive account, got %d", res.Code)
	}
}

func TestIdentityMiddlewareSkipsInactivePrincipal(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 1, Email: "admin@test.local", IsActive: false}}
	service := auth.NewService(repo)

	var sawIdentity *shared.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawIdentity = shared.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.IdentityMiddleware(service, testLogger())(next)

	sess := sessionWithAdmin(t, 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected request to continue anonymously, got %d", res.Code)
	}
	if sawIdentity != nil {
		t.Fatal("inactive principal must not resolve to an identity")
	}
}

func TestIdentityMiddlewareResolvesActivePrincipal(t *testing.T) {
	repo := &stubRepo{user: &auth.User{ID: 1, Email: "admin@test.local", Name: "Admin", IsActive: true}}
	service := auth.NewService(repo)

	var sawIdentity *shared.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawIdentity = shared.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.IdentityMiddleware(service, testLogger())(next)

	sess := sessionWithAdmin(t, 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if sawIdentity == nil || !sawIdentity.IsAdmin() || sawIdentity.ID != 1 {
		t.Fatalf("expected admin identity 1, got %+v", sawIdentity)
	}
}

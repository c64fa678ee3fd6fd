package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/leasedesk/leasedesk/internal/shared"
	_ "github.com/leasedesk/leasedesk/testing"
)

func newManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestSessionPrincipalIsExclusive(t *testing.T) {
	sm := newManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, _, ok := sess.Principal(); ok {
		t.Fatal("fresh session must be anonymous")
	}

	sess.SetAdmin(7)
	kind, id, ok := sess.Principal()
	if !ok || kind != shared.PrincipalAdmin || id != 7 {
		t.Fatalf("expected admin 7, got kind=%s id=%d ok=%v", kind, id, ok)
	}

	// Binding a customer replaces the admin binding: a session
	// identifies an admin XOR a customer, never both.
	sess.SetCustomer(42)
	kind, id, ok = sess.Principal()
	if !ok || kind != shared.PrincipalCustomer || id != 42 {
		t.Fatalf("expected customer 42, got kind=%s id=%d ok=%v", kind, id, ok)
	}

	sess.ClearPrincipal()
	if _, _, ok := sess.Principal(); ok {
		t.Fatal("expected anonymous session after ClearPrincipal")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetCustomer(42)
	sess.Set("theme", "dark")

	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	cookies := res.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	reloaded, err := sm.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	kind, id, ok := reloaded.Principal()
	if !ok || kind != shared.PrincipalCustomer || id != 42 {
		t.Fatalf("expected customer 42 after reload, got kind=%s id=%d ok=%v", kind, id, ok)
	}
	if reloaded.Get("theme") != "dark" {
		t.Fatalf("expected stored value to survive reload")
	}
}

func TestSessionDestroyExpiresCookie(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetAdmin(1)

	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	sm.Destroy(sess)
	res2 := httptest.NewRecorder()
	if err := sm.Commit(ctx, res2, req, sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}
	cookies := res2.Result().Cookies()
	if len(cookies) == 0 || cookies[0].MaxAge != -1 {
		t.Fatal("expected expired cookie after destroy")
	}
}

func TestCSRFTokenRoundTrip(t *testing.T) {
	sm := newManager(t)
	csrf := shared.NewCSRFManager("csrfsecret")

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	token, err := csrf.EnsureToken(context.Background(), sess)
	if err != nil {
		t.Fatalf("ensure token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	if err := csrf.VerifyToken(context.Background(), sess, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := csrf.VerifyToken(context.Background(), sess, "forged"); err == nil {
		t.Fatal("expected mismatch error for forged token")
	}
}

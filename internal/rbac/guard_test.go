package rbac_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leasedesk/leasedesk/internal/rbac"
	"github.com/leasedesk/leasedesk/internal/shared"
	_ "github.com/leasedesk/leasedesk/testing"
)

type stubSource struct {
	userPerms     map[int64][]string
	customerPerms map[int64][]string
	userCalls     int
	customerCalls int
	err           error
}

func (s *stubSource) UserPermissions(ctx context.Context, userID int64) ([]string, error) {
	s.userCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.userPerms[userID], nil
}

func (s *stubSource) CustomerPermissions(ctx context.Context, customerID int64) ([]string, error) {
	s.customerCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.customerPerms[customerID], nil
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func authedRequest(kind shared.PrincipalKind, id int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	ctx := shared.ContextWithIdentity(req.Context(), &shared.Identity{Kind: kind, ID: id})
	return req.WithContext(ctx)
}

func decodeDeny(t *testing.T, res *httptest.ResponseRecorder) rbac.DenyResponse {
	t.Helper()
	var deny rbac.DenyResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &deny))
	return deny
}

func TestRequirePermissionUnauthenticated(t *testing.T) {
	guard := &rbac.Guard{Source: &stubSource{}}
	next, called := okHandler()
	handler := guard.RequirePermission("agreement.view.all")(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/protected", nil))

	require.Equal(t, http.StatusUnauthorized, res.Code)
	assert.False(t, *called)
	deny := decodeDeny(t, res)
	assert.Equal(t, rbac.DenyAuthenticationRequired, deny.Kind)
}

func TestRequirePermissionDenyByDefault(t *testing.T) {
	// A principal with zero role assignments has the empty permission set.
	source := &stubSource{userPerms: map[int64][]string{}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequirePermission("agreement.view.all")(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))

	require.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, *called)
	deny := decodeDeny(t, res)
	assert.Equal(t, rbac.DenyInsufficientPermissions, deny.Kind)
	assert.Equal(t, []string{"agreement.view.all"}, deny.Required)
	assert.Equal(t, []string{"agreement.view.all"}, deny.Missing)
}

func TestRequirePermissionAllowsHolder(t *testing.T) {
	source := &stubSource{userPerms: map[int64][]string{7: {"agreement.view.all"}}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequirePermission("agreement.view.all")(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))

	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, *called)
}

func TestEffectiveSetIsUnionOfRoles(t *testing.T) {
	// The store reports the union of all assigned roles; permissions
	// granted by either role must satisfy a guard.
	roleA := []string{"agreement.view.own", "customer.manage"}
	roleB := []string{"property.view"}
	source := &stubSource{userPerms: map[int64][]string{7: append(append([]string{}, roleA...), roleB...)}}
	guard := &rbac.Guard{Source: source}

	for _, code := range []string{"agreement.view.own", "customer.manage", "property.view"} {
		next, called := okHandler()
		handler := guard.RequirePermission(code)(next)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))
		require.Equal(t, http.StatusOK, res.Code, "code %s", code)
		assert.True(t, *called)
	}
}

func TestRequireAllReportsMissingSubset(t *testing.T) {
	source := &stubSource{userPerms: map[int64][]string{7: {"agreement.create"}}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequireAll([]string{"agreement.create", "agreement.notarize"})(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))

	require.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, *called)
	deny := decodeDeny(t, res)
	assert.Equal(t, rbac.DenyInsufficientPermissions, deny.Kind)
	assert.Equal(t, []string{"agreement.create", "agreement.notarize"}, deny.Required)
	assert.Equal(t, []string{"agreement.notarize"}, deny.Missing)
}

func TestRequireAllAllowsFullSet(t *testing.T) {
	source := &stubSource{userPerms: map[int64][]string{7: {"agreement.create", "agreement.notarize"}}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequireAll([]string{"agreement.create", "agreement.notarize"})(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))

	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, *called)
}

func TestRequireAnyAllowsSingleMatch(t *testing.T) {
	source := &stubSource{userPerms: map[int64][]string{7: {"agreement.view.own"}}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequireAny([]string{"agreement.view.all", "agreement.view.own"})(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))

	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, *called)
}

func TestRequireAnyDeniesWithoutMatch(t *testing.T) {
	source := &stubSource{userPerms: map[int64][]string{7: {"property.view"}}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequireAny([]string{"agreement.view.all", "agreement.view.own"})(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))

	require.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, *called)
	deny := decodeDeny(t, res)
	assert.Equal(t, rbac.DenyInsufficientPermissions, deny.Kind)
	assert.Equal(t, []string{"agreement.view.all", "agreement.view.own"}, deny.Required)
	assert.Empty(t, deny.Missing)
}

func TestRequireAnyEmptyCodeListDenies(t *testing.T) {
	source := &stubSource{userPerms: map[int64][]string{7: {"agreement.view.all"}}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequireAny([]string{" ", ""})(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))

	require.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, *called)
	assert.Equal(t, rbac.DenyInsufficientPermissions, decodeDeny(t, res).Kind)
}

func TestAllowSelfOverridesMissingPermission(t *testing.T) {
	// Even with an empty permission set, acting on one's own resource
	// passes when AllowSelf resolves to the caller's ID.
	source := &stubSource{customerPerms: map[int64][]string{}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequirePermission("customer.view.all",
		rbac.AllowSelf(func(r *http.Request) (int64, bool) { return 42, true }),
	)(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalCustomer, 42))

	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, *called)
}

func TestAllowSelfRejectsOtherPrincipal(t *testing.T) {
	source := &stubSource{customerPerms: map[int64][]string{}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequirePermission("customer.view.all",
		rbac.AllowSelf(func(r *http.Request) (int64, bool) { return 42, true }),
	)(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalCustomer, 43))

	require.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, *called)
	deny := decodeDeny(t, res)
	assert.Equal(t, rbac.DenyInsufficientPermissions, deny.Kind)
}

func TestPrincipalKindCheckedBeforePermissions(t *testing.T) {
	// A customer hitting an admin-only endpoint is denied on kind alone;
	// the permission store must not be consulted.
	source := &stubSource{customerPerms: map[int64][]string{9: {"customer.manage"}}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequirePermission("customer.manage", rbac.ForAdmins())(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalCustomer, 9))

	require.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, *called)
	deny := decodeDeny(t, res)
	assert.Equal(t, rbac.DenyAdminAccessRequired, deny.Kind)
	assert.Zero(t, source.customerCalls)
	assert.Zero(t, source.userCalls)
}

func TestCustomerOnlyEndpointRejectsAdmin(t *testing.T) {
	source := &stubSource{userPerms: map[int64][]string{7: {"agreement.view.own"}}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequirePermission("agreement.view.own", rbac.ForCustomers())(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))

	require.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, *called)
	deny := decodeDeny(t, res)
	assert.Equal(t, rbac.DenyCustomerAccessRequired, deny.Kind)
}

func TestOwnScopeDoesNotSatisfyAllScope(t *testing.T) {
	// Holding agreement.view.own never implies agreement.view.all.
	source := &stubSource{userPerms: map[int64][]string{7: {"agreement.view.own", "customer.manage"}}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequirePermission("agreement.view.all")(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))

	require.Equal(t, http.StatusForbidden, res.Code)
	assert.False(t, *called)
	deny := decodeDeny(t, res)
	assert.Equal(t, rbac.DenyInsufficientPermissions, deny.Kind)
	assert.Equal(t, []string{"agreement.view.all"}, deny.Required)
}

func TestPermissionFetchMemoizedPerRequest(t *testing.T) {
	// Two sequential guards in one pipeline must trigger exactly one
	// store read for the same principal.
	source := &stubSource{userPerms: map[int64][]string{7: {"agreement.view.all", "customer.view.all"}}}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()

	handler := rbac.Middleware()(
		guard.RequirePermission("agreement.view.all")(
			guard.RequirePermission("customer.view.all")(next),
		),
	)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))

	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, *called)
	assert.Equal(t, 1, source.userCalls)
}

func TestStoreFailureIsInternalError(t *testing.T) {
	source := &stubSource{err: errors.New("connection refused")}
	guard := &rbac.Guard{Source: source}
	next, called := okHandler()
	handler := guard.RequirePermission("agreement.view.all")(next)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, authedRequest(shared.PrincipalAdmin, 7))

	require.Equal(t, http.StatusInternalServerError, res.Code)
	assert.False(t, *called)
	deny := decodeDeny(t, res)
	assert.Empty(t, deny.Kind, "a store outage must not be reported as a deny")
}

func TestCanAccessOwnResource(t *testing.T) {
	source := &stubSource{customerPerms: map[int64][]string{
		42: {"agreement.view.own"},
		43: {"agreement.view.all"},
	}}
	guard := &rbac.Guard{Source: source}

	ownerCtx := shared.ContextWithIdentity(context.Background(), &shared.Identity{Kind: shared.PrincipalCustomer, ID: 42})
	ok, err := guard.CanAccessOwnResource(ownerCtx, 42, "agreement.view.own", "agreement.view.all")
	require.NoError(t, err)
	assert.True(t, ok, "owner with own-scope permission")

	ok, err = guard.CanAccessOwnResource(ownerCtx, 99, "agreement.view.own", "agreement.view.all")
	require.NoError(t, err)
	assert.False(t, ok, "own-scope permission does not reach another customer resource")

	allCtx := shared.ContextWithIdentity(context.Background(), &shared.Identity{Kind: shared.PrincipalCustomer, ID: 43})
	ok, err = guard.CanAccessOwnResource(allCtx, 99, "agreement.view.own", "agreement.view.all")
	require.NoError(t, err)
	assert.True(t, ok, "all-scope permission ignores ownership")

	ok, err = guard.CanAccessOwnResource(context.Background(), 42, "agreement.view.own", "agreement.view.all")
	require.NoError(t, err)
	assert.False(t, ok, "anonymous caller")
}

func TestEffectivePermissionsSortedAndCached(t *testing.T) {
	source := &stubSource{userPerms: map[int64][]string{7: {"user.view", "agreement.create"}}}
	guard := &rbac.Guard{Source: source}

	ctx := shared.ContextWithIdentity(context.Background(), &shared.Identity{Kind: shared.PrincipalAdmin, ID: 7})
	perms, err := guard.EffectivePermissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"agreement.create", "user.view"}, perms)

	_, err = guard.EffectivePermissions(context.Background())
	assert.ErrorIs(t, err, rbac.ErrNoIdentity)
}

package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/leasedesk/leasedesk/internal/observability"
	"github.com/leasedesk/leasedesk/internal/platform/httpx"
	"github.com/leasedesk/leasedesk/internal/shared"
)

// ErrNoIdentity is returned by helpers that need an authenticated principal.
var ErrNoIdentity = errors.New("rbac: no identity in context")

// PermissionSource resolves the effective permission set for a principal.
// A principal is evaluated against exactly one of the two queries,
// matching its kind; the result must be deduplicated and fresh.
type PermissionSource interface {
	UserPermissions(ctx context.Context, userID int64) ([]string, error)
	CustomerPermissions(ctx context.Context, customerID int64) ([]string, error)
}

// Guard is the request-scoped authorization gate. Route handlers declare
// a required permission (or set) and the allowed principal kind; the
// guard decides per request and halts the pipeline on deny.
type Guard struct {
	Source  PermissionSource
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// requirement is the declared precondition for one route.
type requirement struct {
	kind      shared.PrincipalKind
	allowSelf func(*http.Request) (int64, bool)
}

// Option customises a permission requirement.
type Option func(*requirement)

// ForAdmins restricts the requirement to admin principals.
func ForAdmins() Option {
	return func(req *requirement) { req.kind = shared.PrincipalAdmin }
}

// ForCustomers restricts the requirement to customer principals.
func ForCustomers() Option {
	return func(req *requirement) { req.kind = shared.PrincipalCustomer }
}

// AllowSelf grants access when the resolved principal's ID equals the ID
// extracted from the request, even without the named permission. Only
// honoured by RequirePermission.
func AllowSelf(resolve func(*http.Request) (int64, bool)) Option {
	return func(req *requirement) { req.allowSelf = resolve }
}

// RequirePermission guards a route behind a single permission code.
func (g *Guard) RequirePermission(code string, opts ...Option) func(http.Handler) http.Handler {
	req := buildRequirement(opts)
	code = normalizeCode(code)
	return g.guard(req, func(granted map[string]struct{}) Decision {
		if _, ok := granted[code]; ok {
			return Decision{Allowed: true}
		}
		return Decision{
			Kind:     DenyInsufficientPermissions,
			Required: []string{code},
			Missing:  []string{code},
		}
	})
}

// RequireAll guards a route behind every listed permission code. The deny
// response reports the exact subset of missing codes.
func (g *Guard) RequireAll(codes []string, opts ...Option) func(http.Handler) http.Handler {
	req := buildRequirement(opts)
	req.allowSelf = nil
	normalized := normalizeCodes(codes)
	return g.guard(req, func(granted map[string]struct{}) Decision {
		var missing []string
		for _, code := range normalized {
			if _, ok := granted[code]; !ok {
				missing = append(missing, code)
			}
		}
		if len(missing) == 0 {
			return Decision{Allowed: true}
		}
		return Decision{
			Kind:     DenyInsufficientPermissions,
			Required: normalized,
			Missing:  missing,
		}
	})
}

// RequireAny guards a route behind at least one of the listed codes.
// An empty or all-blank code list denies every request: a guard with no
// requirement is a wiring mistake, not an open route.
func (g *Guard) RequireAny(codes []string, opts ...Option) func(http.Handler) http.Handler {
	req := buildRequirement(opts)
	req.allowSelf = nil
	normalized := normalizeCodes(codes)
	return g.guard(req, func(granted map[string]struct{}) Decision {
		for _, code := range normalized {
			if _, ok := granted[code]; ok {
				return Decision{Allowed: true}
			}
		}
		return Decision{
			Kind:     DenyInsufficientPermissions,
			Required: normalized,
		}
	})
}

func (g *Guard) guard(req requirement, eval func(map[string]struct{}) Decision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if identity == nil {
				g.deny(w, Decision{Kind: DenyAuthenticationRequired})
				return
			}

			// The principal-kind restriction is checked before any
			// store read: a wrong-kind principal is rejected no matter
			// what permissions it holds.
			if req.kind != "" && identity.Kind != req.kind {
				kind := DenyAdminAccessRequired
				if req.kind == shared.PrincipalCustomer {
					kind = DenyCustomerAccessRequired
				}
				g.deny(w, Decision{Kind: kind})
				return
			}

			granted, err := g.effectiveSet(r.Context(), identity)
			if err != nil {
				// A store outage is an internal error, never a deny:
				// callers must not read it as "lacks permission".
				if g.Logger != nil {
					g.Logger.Error("rbac permission lookup", slog.String("kind", string(identity.Kind)), slog.Int64("principal_id", identity.ID), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}

			decision := eval(granted)
			if !decision.Allowed && req.allowSelf != nil {
				if selfID, ok := req.allowSelf(r); ok && selfID == identity.ID {
					decision = Decision{Allowed: true}
				}
			}

			if !decision.Allowed {
				g.deny(w, decision)
				return
			}
			if g.Metrics != nil {
				g.Metrics.RecordAuthzDecision(true, "")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) deny(w http.ResponseWriter, d Decision) {
	if g.Metrics != nil {
		g.Metrics.RecordAuthzDecision(false, d.Kind)
	}
	writeDeny(w, d)
}

// EffectivePermissions returns the caller's resolved permission set,
// sorted, going through the request cache when one is installed.
func (g *Guard) EffectivePermissions(ctx context.Context) ([]string, error) {
	identity := shared.IdentityFromContext(ctx)
	if identity == nil {
		return nil, ErrNoIdentity
	}
	granted, err := g.effectiveSet(ctx, identity)
	if err != nil {
		return nil, err
	}
	perms := make([]string, 0, len(granted))
	for code := range granted {
		perms = append(perms, code)
	}
	sort.Strings(perms)
	return perms, nil
}

// CanAccessOwnResource formalises the pervasive own/all pairing: access
// is granted when the caller owns the resource and holds the own-scoped
// code, or holds the all-scoped code regardless of ownership.
func (g *Guard) CanAccessOwnResource(ctx context.Context, ownerID int64, ownPerm, allPerm string) (bool, error) {
	identity := shared.IdentityFromContext(ctx)
	if identity == nil {
		return false, nil
	}
	granted, err := g.effectiveSet(ctx, identity)
	if err != nil {
		return false, err
	}
	if _, ok := granted[normalizeCode(allPerm)]; ok {
		return true, nil
	}
	if identity.ID == ownerID {
		if _, ok := granted[normalizeCode(ownPerm)]; ok {
			return true, nil
		}
	}
	return false, nil
}

// effectiveSet fetches the permission set for the identity, memoized on
// the request when the cache middleware is installed. A principal is only
// ever evaluated against one store query, matching its kind.
func (g *Guard) effectiveSet(ctx context.Context, identity *shared.Identity) (map[string]struct{}, error) {
	fetch := func() ([]string, error) {
		if identity.Kind == shared.PrincipalCustomer {
			return g.Source.CustomerPermissions(ctx, identity.ID)
		}
		return g.Source.UserPermissions(ctx, identity.ID)
	}
	if c := cacheFromContext(ctx); c != nil {
		return c.load(fetch)
	}
	perms, err := fetch()
	if err != nil {
		return nil, err
	}
	return toSet(perms), nil
}

func buildRequirement(opts []Option) requirement {
	var req requirement
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

func normalizeCode(code string) string {
	return strings.TrimSpace(strings.ToLower(code))
}

func normalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		code = normalizeCode(code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		normalized = append(normalized, code)
	}
	return normalized
}

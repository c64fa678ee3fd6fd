package rbac

import (
	"context"
	"net/http"
	"sync"
)

// permissionCache memoizes the effective permission set for the lifetime
// of one request. A request has exactly one principal, so one slot is
// enough; the store is hit at most once no matter how many guards run.
type permissionCache struct {
	mu     sync.Mutex
	loaded bool
	perms  map[string]struct{}
}

type cacheContextKey struct{}

// Middleware installs a fresh permission cache into the request context.
// Install it once near the top of the router so that every guard in the
// pipeline shares the same cache.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), cacheContextKey{}, &permissionCache{})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func cacheFromContext(ctx context.Context) *permissionCache {
	c, _ := ctx.Value(cacheContextKey{}).(*permissionCache)
	return c
}

// load returns the memoized set, fetching through fn on first use.
// Failures are not cached: a store outage terminates the request anyway.
func (c *permissionCache) load(fn func() ([]string, error)) (map[string]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.perms, nil
	}
	perms, err := fn()
	if err != nil {
		return nil, err
	}
	c.perms = toSet(perms)
	c.loaded = true
	return c.perms, nil
}

func toSet(perms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

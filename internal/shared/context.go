package shared

import "context"

// PrincipalKind distinguishes the two account populations.
type PrincipalKind string

const (
	// PrincipalAdmin identifies back-office user accounts.
	PrincipalAdmin PrincipalKind = "admin"
	// PrincipalCustomer identifies customer portal accounts.
	PrincipalCustomer PrincipalKind = "customer"
)

// Identity describes the authenticated principal for one request.
// A request carries at most one identity; its kind is admin XOR customer.
type Identity struct {
	Kind  PrincipalKind
	ID    int64
	Email string
	Name  string
}

// IsAdmin reports whether the identity belongs to an admin user.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Kind == PrincipalAdmin
}

// IsCustomer reports whether the identity belongs to a customer.
func (id *Identity) IsCustomer() bool {
	return id != nil && id.Kind == PrincipalCustomer
}

type sessionContextKey struct{}

type identityContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithIdentity stores the resolved identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the resolved identity, or nil when the
// request is unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}

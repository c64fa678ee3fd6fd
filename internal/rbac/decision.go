package rbac

import (
	"net/http"

	"github.com/leasedesk/leasedesk/internal/platform/httpx"
)

// Deny kinds reported to callers. Each failure mode carries a distinct
// machine-readable kind so clients can assert on cause, not just pass/fail.
const (
	DenyAuthenticationRequired  = "authentication_required"
	DenyAdminAccessRequired     = "admin_access_required"
	DenyCustomerAccessRequired  = "customer_access_required"
	DenyInsufficientPermissions = "insufficient_permissions"
)

// Decision is the computed result of one authorization check.
type Decision struct {
	Allowed  bool
	Kind     string
	Required []string
	Missing  []string
}

// DenyResponse is the payload written on a denied request: RFC7807
// problem details extended with the deny kind and the permission codes
// involved.
type DenyResponse struct {
	httpx.ProblemDetail
	Kind     string   `json:"kind"`
	Required []string `json:"required,omitempty"`
	Missing  []string `json:"missing,omitempty"`
}

func denyStatus(kind string) int {
	if kind == DenyAuthenticationRequired {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}

func denyTitle(kind string) string {
	switch kind {
	case DenyAuthenticationRequired:
		return "Authentication Required"
	case DenyAdminAccessRequired:
		return "Admin Access Required"
	case DenyCustomerAccessRequired:
		return "Customer Access Required"
	default:
		return "Insufficient Permissions"
	}
}

func writeDeny(w http.ResponseWriter, d Decision) {
	status := denyStatus(d.Kind)
	httpx.JSON(w, status, DenyResponse{
		ProblemDetail: httpx.ProblemDetail{
			Title:  denyTitle(d.Kind),
			Status: status,
			Detail: denyDetail(d),
		},
		Kind:     d.Kind,
		Required: d.Required,
		Missing:  d.Missing,
	})
}

func denyDetail(d Decision) string {
	switch d.Kind {
	case DenyAuthenticationRequired:
		return "sign in to access this resource"
	case DenyAdminAccessRequired:
		return "this endpoint is restricted to admin users"
	case DenyCustomerAccessRequired:
		return "this endpoint is restricted to customers"
	default:
		return "you do not hold the required permission"
	}
}

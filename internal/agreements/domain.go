package agreements

import "time"

// Agreement statuses. Draft agreements are editable, active ones are in
// force, notarized ones are frozen, expired ones are past their end date.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusNotarized = "notarized"
	StatusExpired   = "expired"
)

// Agreement is a rental agreement between a landlord and a tenant
// customer for one property.
type Agreement struct {
	ID              int64      `json:"id"`
	Number          string     `json:"number"`
	CustomerID      int64      `json:"customer_id"`
	PropertyID      int64      `json:"property_id"`
	TemplateID      int64      `json:"template_id"`
	LandlordName    string     `json:"landlord_name"`
	LandlordAddress string     `json:"landlord_address"`
	TenantName      string     `json:"tenant_name"`
	TenantEmail     string     `json:"tenant_email"`
	RentAmount      int64      `json:"rent_amount"`
	DepositAmount   int64      `json:"deposit_amount"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         time.Time  `json:"end_date"`
	Status          string     `json:"status"`
	NotarizedAt     *time.Time `json:"notarized_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Mutable reports whether the agreement may still be edited or deleted.
// Notarized documents are frozen.
func (a Agreement) Mutable() bool {
	return a.Status == StatusDraft || a.Status == StatusActive
}

// validStatusChange enumerates the allowed lifecycle transitions.
func validStatusChange(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusDraft:
		return to == StatusActive
	case StatusActive:
		return to == StatusDraft || to == StatusExpired
	default:
		return false
	}
}

// ValidStatus reports whether s is a known agreement status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusActive, StatusNotarized, StatusExpired:
		return true
	}
	return false
}

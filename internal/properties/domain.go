package properties

import "time"

// Property is a rentable unit inside a society. OwnerCustomerID links
// the unit to the customer who owns it, when known.
type Property struct {
	ID              int64     `json:"id"`
	SocietyID       int64     `json:"society_id"`
	OwnerCustomerID *int64    `json:"owner_customer_id,omitempty"`
	FlatNo          string    `json:"flat_no"`
	Floor           int       `json:"floor"`
	Type            string    `json:"type"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

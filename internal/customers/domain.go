package customers

import "time"

// Customer represents a customer portal account and tenant record.
type Customer struct {
	ID        int64
	Email     string
	Name      string
	Phone     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

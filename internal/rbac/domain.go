package rbac

import "time"

// Role represents a named bundle of permission codes.
// System roles are seeded at setup time and cannot be renamed, deleted,
// or have their permission set changed through the management API.
type Role struct {
	ID          int64
	Name        string
	Description string
	IsSystem    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability identified by a stable code.
type Permission struct {
	ID          int64
	Code        string
	Description string
}

// RolePermission ties a permission to a role.
type RolePermission struct {
	RoleID       int64
	PermissionID int64
	CreatedAt    time.Time
}

// UserRole links an admin user to a role.
type UserRole struct {
	UserID    int64
	RoleID    int64
	CreatedAt time.Time
}

// CustomerRole links a customer to a role.
type CustomerRole struct {
	CustomerID int64
	RoleID     int64
	CreatedAt  time.Time
}

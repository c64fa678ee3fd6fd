package customers

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryPort defines data access methods for customers.
type RepositoryPort interface {
	List(ctx context.Context, page, perPage int) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, email, name, phone, passwordHash string) (Customer, error)
	Update(ctx context.Context, id int64, email, name, phone string, isActive bool) (Customer, error)
	UpdateContact(ctx context.Context, id int64, name, phone string) (Customer, error)
}

// RoleAssigner grants the default portal role to new customers.
type RoleAssigner interface {
	AssignCustomerRole(ctx context.Context, customerID, roleID int64) error
}

// Service handles customer business logic.
type Service struct {
	repo          RepositoryPort
	roles         RoleAssigner
	defaultRoleID int64
}

// NewService builds a Service instance. defaultRoleID names the seeded
// tenant role assigned to every new customer; zero disables assignment.
func NewService(repo RepositoryPort, roles RoleAssigner, defaultRoleID int64) *Service {
	return &Service{repo: repo, roles: roles, defaultRoleID: defaultRoleID}
}

// List returns a page of customers with the total count.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Customer, int, error) {
	return s.repo.List(ctx, page, perPage)
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// Create hashes the password, stores the customer, and grants the
// default portal role so the account is usable immediately.
func (s *Service) Create(ctx context.Context, email, name, phone, password string) (Customer, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Customer{}, err
	}
	customer, err := s.repo.Create(ctx, normalizeEmail(email), strings.TrimSpace(name), strings.TrimSpace(phone), string(hash))
	if err != nil {
		return Customer{}, err
	}
	if s.roles != nil && s.defaultRoleID > 0 {
		if err := s.roles.AssignCustomerRole(ctx, customer.ID, s.defaultRoleID); err != nil {
			return Customer{}, err
		}
	}
	return customer, nil
}

// Update changes profile fields and the active flag.
func (s *Service) Update(ctx context.Context, id int64, email, name, phone string, isActive bool) (Customer, error) {
	return s.repo.Update(ctx, id, normalizeEmail(email), strings.TrimSpace(name), strings.TrimSpace(phone), isActive)
}

// UpdateContact changes the self-editable fields only.
func (s *Service) UpdateContact(ctx context.Context, id int64, name, phone string) (Customer, error) {
	return s.repo.UpdateContact(ctx, id, strings.TrimSpace(name), strings.TrimSpace(phone))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

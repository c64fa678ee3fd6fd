package users

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryPort defines data access methods for admin users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, email, name, passwordHash string) (User, error)
	Update(ctx context.Context, id int64, email, name string, isActive bool) (User, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
}

// Service handles admin user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all admin users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one admin user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create hashes the password and stores a new admin user.
func (s *Service) Create(ctx context.Context, email, name, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, normalizeEmail(email), strings.TrimSpace(name), string(hash))
}

// Update changes profile fields and the active flag. Deactivating a user
// is the soft delete: the account stops authenticating on its next
// request but its history stays referenced.
func (s *Service) Update(ctx context.Context, id int64, email, name string, isActive bool) (User, error) {
	return s.repo.Update(ctx, id, normalizeEmail(email), strings.TrimSpace(name), isActive)
}

// ChangePassword hashes and stores a new password.
func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, id, string(hash))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

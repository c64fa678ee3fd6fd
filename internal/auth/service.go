package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/leasedesk/leasedesk/internal/shared"
)

// Service wraps authentication business rules for both principal kinds.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AuthenticateUser validates admin email/password credentials. Inactive
// accounts fail authentication with the same error as a bad password.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// AuthenticateCustomer validates customer portal credentials.
func (s *Service) AuthenticateCustomer(ctx context.Context, email, password string) (*Customer, error) {
	customer, err := s.repo.FindCustomerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !customer.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return customer, nil
}

// ResolveIdentity turns a session principal binding into an Identity.
// Missing or deactivated accounts do not resolve even with a valid
// session token.
func (s *Service) ResolveIdentity(ctx context.Context, kind shared.PrincipalKind, id int64) (*shared.Identity, error) {
	switch kind {
	case shared.PrincipalAdmin:
		user, err := s.repo.FindUserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !user.IsActive {
			return nil, shared.ErrAccountInactive
		}
		return &shared.Identity{Kind: shared.PrincipalAdmin, ID: user.ID, Email: user.Email, Name: user.Name}, nil
	case shared.PrincipalCustomer:
		customer, err := s.repo.FindCustomerByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !customer.IsActive {
			return nil, shared.ErrAccountInactive
		}
		return &shared.Identity{Kind: shared.PrincipalCustomer, ID: customer.ID, Email: customer.Email, Name: customer.Name}, nil
	default:
		return nil, shared.ErrNotFound
	}
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, kind shared.PrincipalKind, principalID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, kind, principalID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

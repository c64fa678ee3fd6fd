package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubRepo struct {
	created  Customer
	lastHash string
}

func (s *stubRepo) List(ctx context.Context, page, perPage int) ([]Customer, int, error) {
	return []Customer{s.created}, 1, nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (Customer, error) {
	return s.created, nil
}

func (s *stubRepo) Create(ctx context.Context, email, name, phone, passwordHash string) (Customer, error) {
	s.lastHash = passwordHash
	s.created = Customer{ID: 7, Email: email, Name: name, Phone: phone, IsActive: true}
	return s.created, nil
}

func (s *stubRepo) Update(ctx context.Context, id int64, email, name, phone string, isActive bool) (Customer, error) {
	return Customer{ID: id, Email: email, Name: name, Phone: phone, IsActive: isActive}, nil
}

func (s *stubRepo) UpdateContact(ctx context.Context, id int64, name, phone string) (Customer, error) {
	return Customer{ID: id, Name: name, Phone: phone}, nil
}

type stubAssigner struct {
	customerID int64
	roleID     int64
}

func (s *stubAssigner) AssignCustomerRole(ctx context.Context, customerID, roleID int64) error {
	s.customerID = customerID
	s.roleID = roleID
	return nil
}

func TestCreateHashesPasswordAndAssignsDefaultRole(t *testing.T) {
	repo := &stubRepo{}
	assigner := &stubAssigner{}
	svc := NewService(repo, assigner, 3)

	customer, err := svc.Create(context.Background(), "  Tenant@Example.COM ", " Jane Tenant ", "555-0100", "s3cret-pass")
	require.NoError(t, err)

	assert.Equal(t, "tenant@example.com", customer.Email)
	assert.Equal(t, "Jane Tenant", customer.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.lastHash), []byte("s3cret-pass")))
	assert.Equal(t, int64(7), assigner.customerID)
	assert.Equal(t, int64(3), assigner.roleID)
}

func TestCreateSkipsRoleAssignmentWhenUnconfigured(t *testing.T) {
	repo := &stubRepo{}
	assigner := &stubAssigner{}
	svc := NewService(repo, assigner, 0)

	_, err := svc.Create(context.Background(), "a@b.test", "A B", "", "s3cret-pass")
	require.NoError(t, err)
	assert.Zero(t, assigner.customerID)
}

func TestUpdateContactTrimsFields(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, 0)
	customer, err := svc.UpdateContact(context.Background(), 7, "  New Name ", " 555-0101 ")
	require.NoError(t, err)
	assert.Equal(t, "New Name", customer.Name)
	assert.Equal(t, "555-0101", customer.Phone)
}

package rbac_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leasedesk/leasedesk/internal/platform/db"
	"github.com/leasedesk/leasedesk/internal/rbac"
	_ "github.com/leasedesk/leasedesk/testing"
)

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.values) {
			break
		}
		switch v := d.(type) {
		case *int64:
			*v = r.values[i].(int64)
		case *string:
			*v = r.values[i].(string)
		case *bool:
			*v = r.values[i].(bool)
		case *time.Time:
			*v = r.values[i].(time.Time)
		}
	}
	return nil
}

// stubDB satisfies rbac.DB, answering every QueryRow with a fixed row
// and recording executed statements.
type stubDB struct {
	row  stubRow
	exec []string
}

func (s *stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query: " + sql)
}

func (s *stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.row
}

func (s *stubDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.exec = append(s.exec, sql)
	return pgconn.CommandTag{}, nil
}

func (s *stubDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	return stubTx{db: s}, nil
}

type stubTx struct {
	pgx.Tx
	db *stubDB
}

func (t stubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t stubTx) Commit(ctx context.Context) error   { return nil }
func (t stubTx) Rollback(ctx context.Context) error { return nil }

func roleRow(id int64, name string, system bool) stubRow {
	now := time.Now()
	return stubRow{values: []any{id, name, "", system, now, now}}
}

func TestUpdateRoleRejectsSystemRole(t *testing.T) {
	stub := &stubDB{row: roleRow(1, "Administrator", true)}
	svc := rbac.NewService(stub)

	_, err := svc.UpdateRole(context.Background(), 1, "Renamed", "")
	require.ErrorIs(t, err, rbac.ErrSystemRole)
	assert.Empty(t, stub.exec)
}

func TestDeleteRoleRejectsSystemRole(t *testing.T) {
	stub := &stubDB{row: roleRow(1, "Administrator", true)}
	svc := rbac.NewService(stub)

	err := svc.DeleteRole(context.Background(), 1)
	require.ErrorIs(t, err, rbac.ErrSystemRole)
	assert.Empty(t, stub.exec)
}

func TestSetRolePermissionsRejectsSystemRole(t *testing.T) {
	stub := &stubDB{row: roleRow(1, "Tenant", true)}
	svc := rbac.NewService(stub)

	err := svc.SetRolePermissions(context.Background(), 1, []int64{4, 5})
	require.ErrorIs(t, err, rbac.ErrSystemRole)
	assert.Empty(t, stub.exec)
}

// Every column an assignment statement writes must exist in the seeded
// table, otherwise Postgres rejects the insert at runtime.
func TestAssignmentStatementsMatchSeededColumns(t *testing.T) {
	ctx := context.Background()
	stub := &stubDB{row: roleRow(5, "Clerk", false)}
	svc := rbac.NewService(stub)

	require.NoError(t, svc.AssignUserRole(ctx, 1, 5))
	require.NoError(t, svc.AssignCustomerRole(ctx, 2, 5))
	require.NoError(t, svc.SetUserRoles(ctx, 1, []int64{5}))
	require.NoError(t, svc.SetRolePermissions(ctx, 5, []int64{9}))

	insertRe := regexp.MustCompile(`INSERT INTO (\w+)\s*\(([^)]+)\)`)
	inserts := 0
	for _, stmt := range stub.exec {
		m := insertRe.FindStringSubmatch(stmt)
		if m == nil {
			continue
		}
		inserts++
		table := m[1]
		declared := db.TableColumns(table)
		require.NotEmpty(t, declared, "no schema statement for table %s", table)
		for _, col := range strings.Split(m[2], ",") {
			assert.Contains(t, declared, strings.TrimSpace(col), "table %s", table)
		}
	}
	require.Equal(t, 4, inserts)
}

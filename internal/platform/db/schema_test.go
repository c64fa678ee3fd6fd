package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentTablesCarryCreatedAt(t *testing.T) {
	for _, table := range []string{"role_permissions", "user_roles", "customer_roles"} {
		cols := TableColumns(table)
		require.NotEmpty(t, cols, "no schema statement for table %s", table)
		assert.Contains(t, cols, "created_at", "table %s", table)
	}
}

func TestTableColumnsSkipsConstraints(t *testing.T) {
	cols := TableColumns("user_roles")
	assert.Equal(t, []string{"user_id", "role_id", "created_at"}, cols)
	assert.Nil(t, TableColumns("no_such_table"))
}

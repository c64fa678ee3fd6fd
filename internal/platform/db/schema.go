package db

import "strings"

// Schema holds the DDL applied by the seed script, one statement per
// entry, ordered so referenced tables exist before their dependents.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		is_system BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS role_permissions (
		role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		permission_id BIGINT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (role_id, permission_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS customer_roles (
		customer_id BIGINT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
		role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (customer_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS societies (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		registration_no TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id BIGSERIAL PRIMARY KEY,
		society_id BIGINT NOT NULL REFERENCES societies(id),
		owner_customer_id BIGINT REFERENCES customers(id),
		flat_no TEXT NOT NULL,
		floor INT NOT NULL DEFAULT 0,
		type TEXT NOT NULL DEFAULT 'flat',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS agreement_templates (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		html_body TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS agreements (
		id BIGSERIAL PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		customer_id BIGINT NOT NULL REFERENCES customers(id),
		property_id BIGINT NOT NULL REFERENCES properties(id),
		template_id BIGINT NOT NULL REFERENCES agreement_templates(id),
		landlord_name TEXT NOT NULL DEFAULT '',
		landlord_address TEXT NOT NULL DEFAULT '',
		tenant_name TEXT NOT NULL DEFAULT '',
		tenant_email TEXT NOT NULL DEFAULT '',
		rent_amount BIGINT NOT NULL DEFAULT 0,
		deposit_amount BIGINT NOT NULL DEFAULT 0,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		notarized_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_agreements_customer ON agreements(customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_agreements_status ON agreements(status)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		principal_kind TEXT NOT NULL,
		principal_id BIGINT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		ip TEXT NOT NULL DEFAULT '',
		ua TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id BIGSERIAL PRIMARY KEY,
		actor_kind TEXT NOT NULL,
		actor_id BIGINT NOT NULL,
		action TEXT NOT NULL,
		entity TEXT NOT NULL,
		entity_id BIGINT NOT NULL DEFAULT 0,
		meta JSONB NOT NULL DEFAULT '{}',
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// TableColumns extracts the column names declared by the CREATE TABLE
// statement for the named table, or nil when no statement defines it.
// Intended for tests guarding against schema drift.
func TableColumns(table string) []string {
	prefix := "CREATE TABLE IF NOT EXISTS " + table + " ("
	for _, stmt := range Schema {
		rest, ok := strings.CutPrefix(stmt, prefix)
		if !ok {
			continue
		}
		var cols []string
		for _, line := range strings.Split(rest, "\n") {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			switch fields[0] {
			case "PRIMARY", "FOREIGN", "UNIQUE", "CHECK", "CONSTRAINT", ")":
				continue
			}
			cols = append(cols, fields[0])
		}
		return cols
	}
	return nil
}

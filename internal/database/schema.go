package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Addresses are capped at the RFC 5321 path limit so MySQL can index them.
const addressType = "VARCHAR(320)"

// SchemaStatements returns the CREATE TABLE statements for the given driver.
func SchemaStatements(driver string) []string {
	textType := "TEXT"
	if IsMySQL(driver) {
		textType = "VARCHAR(1024)"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS accounts (
	address %s PRIMARY KEY,
	secret %s NOT NULL,
	protocol VARCHAR(16) NOT NULL,
	host VARCHAR(255) NOT NULL,
	port INTEGER NOT NULL
)`, addressType, textType),
		`CREATE TABLE IF NOT EXISTS approvals (
	requester_id BIGINT PRIMARY KEY
)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS grants (
	requester_id BIGINT NOT NULL,
	mailbox_address %s NOT NULL,
	expires_at BIGINT NOT NULL,
	PRIMARY KEY (requester_id, mailbox_address)
)`, addressType),
	}
}

// Migrate creates the tables used by the sql backend if they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range SchemaStatements(db.DriverName()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

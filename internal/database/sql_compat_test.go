package database

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDriver(t *testing.T) {
	for in, want := range map[string]string{
		"postgresql": DriverPostgres,
		"PG":         DriverPostgres,
		"mariadb":    DriverMySQL,
		"sqlite":     DriverSQLite,
	} {
		got, err := NormalizeDriver(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := NormalizeDriver("oracle")
	require.Error(t, err)
}

func TestBuildUpsertQuery(t *testing.T) {
	cols := []string{"address", "secret"}

	pg := BuildUpsertQuery("postgres", "accounts", cols, []string{"address"}, []string{"secret"})
	require.Equal(t, "INSERT INTO accounts (address, secret) VALUES (?, ?) ON CONFLICT (address) DO UPDATE SET secret = excluded.secret", pg)

	my := BuildUpsertQuery("mysql", "accounts", cols, []string{"address"}, []string{"secret"})
	require.Equal(t, "INSERT INTO accounts (address, secret) VALUES (?, ?) ON DUPLICATE KEY UPDATE secret = VALUES(secret)", my)

	// Rebind turns the portable placeholders into the postgres form.
	db := sqlx.NewDb(nil, "postgres")
	require.True(t, strings.Contains(db.Rebind(pg), "VALUES ($1, $2)"))
}

func TestBuildInsertIgnoreQuery(t *testing.T) {
	require.Equal(t,
		"INSERT INTO approvals (requester_id) VALUES (?) ON CONFLICT (requester_id) DO NOTHING",
		BuildInsertIgnoreQuery("sqlite3", "approvals", []string{"requester_id"}, []string{"requester_id"}))
	require.Equal(t,
		"INSERT IGNORE INTO approvals (requester_id) VALUES (?)",
		BuildInsertIgnoreQuery("mysql", "approvals", []string{"requester_id"}, []string{"requester_id"}))
}

func TestSchemaStatementsPerDialect(t *testing.T) {
	my := SchemaStatements("mysql")
	require.Len(t, my, 3)
	require.Contains(t, my[0], "secret VARCHAR(1024)")
	require.Contains(t, SchemaStatements("postgres")[0], "secret TEXT")
	require.Contains(t, SchemaStatements("postgres")[2], "PRIMARY KEY (requester_id, mailbox_address)")
}

func TestMigrateRunsEveryStatement(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "postgres")
	for _, table := range []string{"accounts", "approvals", "grants"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS " + table)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/database"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
	"github.com/jmoiron/sqlx"
)

// SQLBackend stores the three relations in postgres, mysql or sqlite.
// Each write is a single statement, so no explicit transactions are needed.
type SQLBackend struct {
	db *sqlx.DB

	upsertAccount  string
	insertApproval string
	upsertGrant    string
}

type grantRow struct {
	RequesterID    int64  `db:"requester_id"`
	MailboxAddress string `db:"mailbox_address"`
	ExpiresAt      int64  `db:"expires_at"`
}

func (r grantRow) grant() models.Grant {
	return models.Grant{
		RequesterID:    r.RequesterID,
		MailboxAddress: r.MailboxAddress,
		ExpiresAt:      time.Unix(r.ExpiresAt, 0).UTC(),
	}
}

// NewSQLBackend prepares the dialect-specific statements for db's driver.
func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	driver := db.DriverName()
	return &SQLBackend{
		db: db,
		upsertAccount: db.Rebind(database.BuildUpsertQuery(driver, "accounts",
			[]string{"address", "secret", "protocol", "host", "port"},
			[]string{"address"},
			[]string{"secret", "protocol", "host", "port"})),
		insertApproval: db.Rebind(database.BuildInsertIgnoreQuery(driver, "approvals",
			[]string{"requester_id"}, []string{"requester_id"})),
		upsertGrant: db.Rebind(database.BuildUpsertQuery(driver, "grants",
			[]string{"requester_id", "mailbox_address", "expires_at"},
			[]string{"requester_id", "mailbox_address"},
			[]string{"expires_at"})),
	}
}

func (b *SQLBackend) PutAccount(ctx context.Context, a models.Account) error {
	if _, err := b.db.ExecContext(ctx, b.upsertAccount, a.Address, a.Secret, string(a.Protocol), a.Host, a.Port); err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

func (b *SQLBackend) FindAccount(ctx context.Context, address string) (*models.Account, error) {
	var acc models.Account
	query := b.db.Rebind(`SELECT address, secret, protocol, host, port FROM accounts WHERE address = ?`)
	err := b.db.GetContext(ctx, &acc, query, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acc, nil
}

func (b *SQLBackend) AllAccounts(ctx context.Context) ([]models.AccountSummary, error) {
	var list []models.AccountSummary
	if err := b.db.SelectContext(ctx, &list, `SELECT address, host, port FROM accounts ORDER BY address`); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return list, nil
}

func (b *SQLBackend) DeleteAccount(ctx context.Context, address string) error {
	if _, err := b.db.ExecContext(ctx, b.db.Rebind(`DELETE FROM accounts WHERE address = ?`), address); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

func (b *SQLBackend) InsertApproval(ctx context.Context, requesterID int64) error {
	if _, err := b.db.ExecContext(ctx, b.insertApproval, requesterID); err != nil {
		return fmt.Errorf("failed to insert approval: %w", err)
	}
	return nil
}

func (b *SQLBackend) DeleteApproval(ctx context.Context, requesterID int64) error {
	if _, err := b.db.ExecContext(ctx, b.db.Rebind(`DELETE FROM approvals WHERE requester_id = ?`), requesterID); err != nil {
		return fmt.Errorf("failed to delete approval: %w", err)
	}
	return nil
}

func (b *SQLBackend) ApprovalExists(ctx context.Context, requesterID int64) (bool, error) {
	var one int
	err := b.db.GetContext(ctx, &one, b.db.Rebind(`SELECT 1 FROM approvals WHERE requester_id = ?`), requesterID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check approval: %w", err)
	}
	return true, nil
}

func (b *SQLBackend) AllApprovals(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := b.db.SelectContext(ctx, &ids, `SELECT requester_id FROM approvals ORDER BY requester_id`); err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	return ids, nil
}

func (b *SQLBackend) PutGrant(ctx context.Context, g models.Grant) error {
	if _, err := b.db.ExecContext(ctx, b.upsertGrant, g.RequesterID, g.MailboxAddress, expiryUnix(g.ExpiresAt)); err != nil {
		return fmt.Errorf("failed to upsert grant: %w", err)
	}
	return nil
}

func (b *SQLBackend) DeleteGrant(ctx context.Context, requesterID int64, address string) error {
	query := b.db.Rebind(`DELETE FROM grants WHERE requester_id = ? AND mailbox_address = ?`)
	if _, err := b.db.ExecContext(ctx, query, requesterID, address); err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}

func (b *SQLBackend) FindGrant(ctx context.Context, requesterID int64, address string) (*models.Grant, error) {
	var row grantRow
	query := b.db.Rebind(`SELECT requester_id, mailbox_address, expires_at FROM grants WHERE requester_id = ? AND mailbox_address = ?`)
	err := b.db.GetContext(ctx, &row, query, requesterID, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}
	g := row.grant()
	return &g, nil
}

func (b *SQLBackend) AllGrants(ctx context.Context) ([]models.Grant, error) {
	var rows []grantRow
	query := `SELECT requester_id, mailbox_address, expires_at FROM grants ORDER BY requester_id, mailbox_address`
	if err := b.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	grants := make([]models.Grant, len(rows))
	for i, r := range rows {
		grants[i] = r.grant()
	}
	return grants, nil
}

func (b *SQLBackend) DeleteGrantsExpiredBy(ctx context.Context, now time.Time) (int64, error) {
	res, err := b.db.ExecContext(ctx, b.db.Rebind(`DELETE FROM grants WHERE expires_at <= ?`), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge grants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

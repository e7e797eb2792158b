package repository

import (
	"context"
	"time"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
)

// AccountStore is the durable record of mailbox credentials keyed by address.
type AccountStore interface {
	Upsert(ctx context.Context, account models.Account) error
	Get(ctx context.Context, address string) (*models.Account, error)
	List(ctx context.Context) ([]models.AccountSummary, error)
	Remove(ctx context.Context, address string) error
}

// AccessGrantLedger decides who may read which mailbox right now.
type AccessGrantLedger interface {
	Approve(ctx context.Context, requesterID int64) error
	RevokeApproval(ctx context.Context, requesterID int64) error
	IsApproved(ctx context.Context, requesterID int64) (bool, error)
	Grant(ctx context.Context, requesterID int64, address string, ttl time.Duration) (time.Time, error)
	RevokeGrant(ctx context.Context, requesterID int64, address string) error
	HasAccess(ctx context.Context, requesterID int64, address string) (bool, error)
	ListApprovals(ctx context.Context) ([]int64, error)
	ListGrants(ctx context.Context) ([]models.Grant, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// AccountBackend is the raw row storage behind Accounts. Implementations do
// no validation; keys arrive normalised.
type AccountBackend interface {
	PutAccount(ctx context.Context, account models.Account) error
	// FindAccount returns nil, nil when the address is unknown.
	FindAccount(ctx context.Context, address string) (*models.Account, error)
	AllAccounts(ctx context.Context) ([]models.AccountSummary, error)
	DeleteAccount(ctx context.Context, address string) error
}

// LedgerBackend is the raw row storage behind Ledger.
type LedgerBackend interface {
	InsertApproval(ctx context.Context, requesterID int64) error
	DeleteApproval(ctx context.Context, requesterID int64) error
	ApprovalExists(ctx context.Context, requesterID int64) (bool, error)
	AllApprovals(ctx context.Context) ([]int64, error)
	PutGrant(ctx context.Context, grant models.Grant) error
	DeleteGrant(ctx context.Context, requesterID int64, address string) error
	// FindGrant returns nil, nil when no row exists for the pair.
	FindGrant(ctx context.Context, requesterID int64, address string) (*models.Grant, error)
	AllGrants(ctx context.Context) ([]models.Grant, error)
	DeleteGrantsExpiredBy(ctx context.Context, now time.Time) (int64, error)
}

// Backend is satisfied by every storage engine in this package.
type Backend interface {
	AccountBackend
	LedgerBackend
}

var (
	_ Backend           = (*MemoryBackend)(nil)
	_ Backend           = (*SQLBackend)(nil)
	_ Backend           = (*RedisBackend)(nil)
	_ AccountStore      = (*Accounts)(nil)
	_ AccessGrantLedger = (*Ledger)(nil)
)

// expiryUnix stores an expiry in whole seconds, rounded up so a grant never
// ends earlier than it would in memory.
func expiryUnix(t time.Time) int64 {
	if t.Nanosecond() > 0 {
		return t.Unix() + 1
	}
	return t.Unix()
}

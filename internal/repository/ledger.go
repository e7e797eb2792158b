package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
)

// Ledger implements AccessGrantLedger on top of any LedgerBackend. The admin
// bypass, approval gating and lazy expiry live here and nowhere else.
type Ledger struct {
	backend LedgerBackend
	adminID int64
	now     func() time.Time
}

// LedgerOption customizes Ledger.
type LedgerOption func(*Ledger)

// WithLedgerClock overrides the wall clock, primarily for tests.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger builds a ledger whose adminID bypasses every check.
func NewLedger(backend LedgerBackend, adminID int64, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		backend: backend,
		adminID: adminID,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// IsAdmin reports whether requesterID is the configured admin.
func (l *Ledger) IsAdmin(requesterID int64) bool {
	return requesterID == l.adminID
}

func (l *Ledger) Approve(ctx context.Context, requesterID int64) error {
	if l.IsAdmin(requesterID) {
		return nil
	}
	if err := l.backend.InsertApproval(ctx, requesterID); err != nil {
		return apperror.New(apperror.KindInternal, "approve", err)
	}
	return nil
}

// RevokeApproval removes the approval but keeps grant rows; they stay dormant
// until the requester is approved again.
func (l *Ledger) RevokeApproval(ctx context.Context, requesterID int64) error {
	if l.IsAdmin(requesterID) {
		return apperror.Validation("revoke approval", "the admin approval cannot be revoked")
	}
	if err := l.backend.DeleteApproval(ctx, requesterID); err != nil {
		return apperror.New(apperror.KindInternal, "revoke approval", err)
	}
	return nil
}

func (l *Ledger) IsApproved(ctx context.Context, requesterID int64) (bool, error) {
	if l.IsAdmin(requesterID) {
		return true, nil
	}
	ok, err := l.backend.ApprovalExists(ctx, requesterID)
	if err != nil {
		return false, apperror.New(apperror.KindInternal, "is approved", err)
	}
	return ok, nil
}

// Grant sets expiresAt = now + ttl for the pair, replacing any earlier grant.
func (l *Ledger) Grant(ctx context.Context, requesterID int64, address string, ttl time.Duration) (time.Time, error) {
	if ttl <= 0 {
		return time.Time{}, apperror.Validation("grant", fmt.Sprintf("ttl must be positive, got %s", ttl))
	}
	addr := models.NormalizeAddress(address)
	if addr == "" {
		return time.Time{}, apperror.Validation("grant", "mailbox address is required")
	}
	g := models.Grant{RequesterID: requesterID, MailboxAddress: addr, ExpiresAt: l.now().Add(ttl)}
	if err := l.backend.PutGrant(ctx, g); err != nil {
		return time.Time{}, apperror.New(apperror.KindInternal, "grant", err)
	}
	return g.ExpiresAt, nil
}

func (l *Ledger) RevokeGrant(ctx context.Context, requesterID int64, address string) error {
	if err := l.backend.DeleteGrant(ctx, requesterID, models.NormalizeAddress(address)); err != nil {
		return apperror.New(apperror.KindInternal, "revoke grant", err)
	}
	return nil
}

// HasAccess is true for the admin; otherwise the requester must be approved
// and hold a grant for the mailbox that has not expired yet.
func (l *Ledger) HasAccess(ctx context.Context, requesterID int64, address string) (bool, error) {
	if l.IsAdmin(requesterID) {
		return true, nil
	}
	approved, err := l.IsApproved(ctx, requesterID)
	if err != nil || !approved {
		return false, err
	}
	g, err := l.backend.FindGrant(ctx, requesterID, models.NormalizeAddress(address))
	if err != nil {
		return false, apperror.New(apperror.KindInternal, "has access", err)
	}
	return g != nil && g.Active(l.now()), nil
}

func (l *Ledger) ListApprovals(ctx context.Context) ([]int64, error) {
	ids, err := l.backend.AllApprovals(ctx)
	if err != nil {
		return nil, apperror.New(apperror.KindInternal, "list approvals", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (l *Ledger) ListGrants(ctx context.Context) ([]models.Grant, error) {
	grants, err := l.backend.AllGrants(ctx)
	if err != nil {
		return nil, apperror.New(apperror.KindInternal, "list grants", err)
	}
	sortGrants(grants)
	return grants, nil
}

// PurgeExpired deletes grant rows that are no longer active.
func (l *Ledger) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := l.backend.DeleteGrantsExpiredBy(ctx, l.now())
	if err != nil {
		return 0, apperror.New(apperror.KindInternal, "purge grants", err)
	}
	return n, nil
}

func sortGrants(grants []models.Grant) {
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].RequesterID != grants[j].RequesterID {
			return grants[i].RequesterID < grants[j].RequesterID
		}
		return grants[i].MailboxAddress < grants[j].MailboxAddress
	})
}

func sortSummaries(list []models.AccountSummary) {
	sort.Slice(list, func(i, j int) bool { return list[i].Address < list[j].Address })
}

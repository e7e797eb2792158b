package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"
)

const testAdmin int64 = 1

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLedger() (*Ledger, *fakeClock, *MemoryBackend) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	backend := NewMemoryBackend()
	return NewLedger(backend, testAdmin, WithLedgerClock(clock.now)), clock, backend
}

func TestLedgerUnapprovedNeverHasAccess(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newTestLedger()

	_, err := ledger.Grant(ctx, 7, "a@x.com", time.Hour)
	require.NoError(t, err)

	ok, err := ledger.HasAccess(ctx, 7, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerAdminBypass(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newTestLedger()

	ok, err := ledger.HasAccess(ctx, testAdmin, "anything@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	approved, err := ledger.IsApproved(ctx, testAdmin)
	require.NoError(t, err)
	assert.True(t, approved)

	require.NoError(t, ledger.Approve(ctx, testAdmin))
	err = ledger.RevokeApproval(ctx, testAdmin)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestLedgerGrantExpiresLazily(t *testing.T) {
	ctx := context.Background()
	ledger, clock, _ := newTestLedger()

	require.NoError(t, ledger.Approve(ctx, 7))
	expires, err := ledger.Grant(ctx, 7, "A@x.com", 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(7*24*time.Hour), expires)

	ok, err := ledger.HasAccess(ctx, 7, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.advance(7*24*time.Hour + time.Second)
	ok, err = ledger.HasAccess(ctx, 7, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerExpiryBoundaryIsExclusive(t *testing.T) {
	ctx := context.Background()
	ledger, clock, _ := newTestLedger()

	require.NoError(t, ledger.Approve(ctx, 7))
	_, err := ledger.Grant(ctx, 7, "a@x.com", time.Minute)
	require.NoError(t, err)

	clock.advance(time.Minute)
	ok, err := ledger.HasAccess(ctx, 7, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerGrantOverwrites(t *testing.T) {
	ctx := context.Background()
	ledger, clock, _ := newTestLedger()
	require.NoError(t, ledger.Approve(ctx, 7))

	_, err := ledger.Grant(ctx, 7, "a@x.com", 30*24*time.Hour)
	require.NoError(t, err)
	_, err = ledger.Grant(ctx, 7, "a@x.com", time.Hour)
	require.NoError(t, err)

	grants, err := ledger.ListGrants(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, clock.t.Add(time.Hour), grants[0].ExpiresAt)

	clock.advance(2 * time.Hour)
	ok, err := ledger.HasAccess(ctx, 7, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerGrantValidation(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newTestLedger()

	_, err := ledger.Grant(ctx, 7, "a@x.com", 0)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = ledger.Grant(ctx, 7, "  ", time.Hour)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestLedgerRevokeGrant(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newTestLedger()
	require.NoError(t, ledger.Approve(ctx, 7))
	_, err := ledger.Grant(ctx, 7, "a@x.com", time.Hour)
	require.NoError(t, err)

	require.NoError(t, ledger.RevokeGrant(ctx, 7, "a@x.com"))
	ok, err := ledger.HasAccess(ctx, 7, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerRevokedApprovalLeavesGrantsDormant(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newTestLedger()
	require.NoError(t, ledger.Approve(ctx, 7))
	_, err := ledger.Grant(ctx, 7, "a@x.com", time.Hour)
	require.NoError(t, err)

	require.NoError(t, ledger.RevokeApproval(ctx, 7))
	ok, err := ledger.HasAccess(ctx, 7, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ledger.Approve(ctx, 7))
	ok, err = ledger.HasAccess(ctx, 7, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLedgerListsAreSorted(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := newTestLedger()
	for _, id := range []int64{30, 10, 20} {
		require.NoError(t, ledger.Approve(ctx, id))
	}
	_, err := ledger.Grant(ctx, 20, "b@x.com", time.Hour)
	require.NoError(t, err)
	_, err = ledger.Grant(ctx, 10, "z@x.com", time.Hour)
	require.NoError(t, err)
	_, err = ledger.Grant(ctx, 20, "a@x.com", time.Hour)
	require.NoError(t, err)

	ids, err := ledger.ListApprovals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, ids)

	grants, err := ledger.ListGrants(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 3)
	assert.Equal(t, int64(10), grants[0].RequesterID)
	assert.Equal(t, "a@x.com", grants[1].MailboxAddress)
	assert.Equal(t, "b@x.com", grants[2].MailboxAddress)
}

func TestLedgerPurgeExpired(t *testing.T) {
	ctx := context.Background()
	ledger, clock, _ := newTestLedger()

	_, err := ledger.Grant(ctx, 7, "short@x.com", time.Minute)
	require.NoError(t, err)
	_, err = ledger.Grant(ctx, 7, "long@x.com", time.Hour)
	require.NoError(t, err)

	clock.advance(2 * time.Minute)
	n, err := ledger.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	grants, err := ledger.ListGrants(ctx)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "long@x.com", grants[0].MailboxAddress)
}

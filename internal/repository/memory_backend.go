package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
)

type grantKey struct {
	requesterID int64
	address     string
}

// MemoryBackend keeps every relation in maps; used by tests and single-process runs.
type MemoryBackend struct {
	mu        sync.RWMutex
	accounts  map[string]models.Account
	approvals map[int64]struct{}
	grants    map[grantKey]models.Grant
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		accounts:  make(map[string]models.Account),
		approvals: make(map[int64]struct{}),
		grants:    make(map[grantKey]models.Grant),
	}
}

func (m *MemoryBackend) PutAccount(_ context.Context, account models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Address] = account
	return nil
}

func (m *MemoryBackend) FindAccount(_ context.Context, address string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[address]
	if !ok {
		return nil, nil
	}
	return &acc, nil
}

func (m *MemoryBackend) AllAccounts(_ context.Context) ([]models.AccountSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AccountSummary, 0, len(m.accounts))
	for _, acc := range m.accounts {
		out = append(out, acc.Summary())
	}
	return out, nil
}

func (m *MemoryBackend) DeleteAccount(_ context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, address)
	return nil
}

func (m *MemoryBackend) InsertApproval(_ context.Context, requesterID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.approvals[requesterID] = struct{}{}
	return nil
}

func (m *MemoryBackend) DeleteApproval(_ context.Context, requesterID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.approvals, requesterID)
	return nil
}

func (m *MemoryBackend) ApprovalExists(_ context.Context, requesterID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.approvals[requesterID]
	return ok, nil
}

func (m *MemoryBackend) AllApprovals(_ context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int64, 0, len(m.approvals))
	for id := range m.approvals {
		out = append(out, id)
	}
	return out, nil
}

func (m *MemoryBackend) PutGrant(_ context.Context, grant models.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[grantKey{grant.RequesterID, grant.MailboxAddress}] = grant
	return nil
}

func (m *MemoryBackend) DeleteGrant(_ context.Context, requesterID int64, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.grants, grantKey{requesterID, address})
	return nil
}

func (m *MemoryBackend) FindGrant(_ context.Context, requesterID int64, address string) (*models.Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.grants[grantKey{requesterID, address}]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *MemoryBackend) AllGrants(_ context.Context) ([]models.Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Grant, 0, len(m.grants))
	for _, g := range m.grants {
		out = append(out, g)
	}
	return out, nil
}

func (m *MemoryBackend) DeleteGrantsExpiredBy(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, g := range m.grants {
		if !g.Active(now) {
			delete(m.grants, k)
			n++
		}
	}
	return n, nil
}

package repository

import (
	"context"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
)

// Accounts implements AccountStore on top of any AccountBackend, owning
// normalisation, validation and secret sealing so backends stay dumb.
type Accounts struct {
	backend AccountBackend
	sealer  Sealer
}

// AccountsOption customizes Accounts.
type AccountsOption func(*Accounts)

// WithSealer seals secrets before they reach the backend.
func WithSealer(s Sealer) AccountsOption {
	return func(a *Accounts) {
		if s != nil {
			a.sealer = s
		}
	}
}

// NewAccounts builds an AccountStore over backend.
func NewAccounts(backend AccountBackend, opts ...AccountsOption) *Accounts {
	a := &Accounts{backend: backend, sealer: PlainSealer{}}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Upsert inserts or fully replaces the row for account.Address.
func (a *Accounts) Upsert(ctx context.Context, account models.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	account.Address = models.NormalizeAddress(account.Address)
	sealed, err := a.sealer.Seal(account.Secret)
	if err != nil {
		return apperror.New(apperror.KindInternal, "seal secret", err)
	}
	account.Secret = sealed
	if err := a.backend.PutAccount(ctx, account); err != nil {
		return apperror.New(apperror.KindInternal, "upsert account", err)
	}
	return nil
}

// Get returns the account for address or a KindNotFound error.
func (a *Accounts) Get(ctx context.Context, address string) (*models.Account, error) {
	acc, err := a.backend.FindAccount(ctx, models.NormalizeAddress(address))
	if err != nil {
		return nil, apperror.New(apperror.KindInternal, "get account", err)
	}
	if acc == nil {
		return nil, apperror.NotFound("get account", "mailbox "+address)
	}
	plain, err := a.sealer.Open(acc.Secret)
	if err != nil {
		return nil, apperror.New(apperror.KindInternal, "open secret", err)
	}
	acc.Secret = plain
	return acc, nil
}

// List returns every account summary ordered by address.
func (a *Accounts) List(ctx context.Context) ([]models.AccountSummary, error) {
	list, err := a.backend.AllAccounts(ctx)
	if err != nil {
		return nil, apperror.New(apperror.KindInternal, "list accounts", err)
	}
	sortSummaries(list)
	return list, nil
}

// Remove deletes the account row. Grants that reference it are left alone.
func (a *Accounts) Remove(ctx context.Context, address string) error {
	if err := a.backend.DeleteAccount(ctx, models.NormalizeAddress(address)); err != nil {
		return apperror.New(apperror.KindInternal, "remove account", err)
	}
	return nil
}

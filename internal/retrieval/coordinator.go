// Package retrieval runs one authorize → load → fetch → extract pass for a
// requester and a mailbox.
package retrieval

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/extractor"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/mailbox"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
)

const (
	DefaultSearchDepth = 3
	MaxSearchDepth     = 50
)

// AccessChecker answers whether a requester may read a mailbox right now.
type AccessChecker interface {
	HasAccess(ctx context.Context, requesterID int64, address string) (bool, error)
}

// AccountLoader returns the connection record for a mailbox.
type AccountLoader interface {
	Get(ctx context.Context, address string) (*models.Account, error)
}

// Matcher finds a code in one message.
type Matcher interface {
	Match(subject, body string) (extractor.Match, bool)
}

// Coordinator is stateless between calls and safe for concurrent use.
type Coordinator struct {
	access      AccessChecker
	accounts    AccountLoader
	clients     mailbox.Factory
	matcher     Matcher
	searchDepth int
	timeout     time.Duration
	logger      *zap.Logger
	metrics     *Metrics
	now         func() time.Time
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithSearchDepth sets how many recent messages are scanned (1–50).
func WithSearchDepth(n int) Option {
	return func(c *Coordinator) {
		if n >= 1 && n <= MaxSearchDepth {
			c.searchDepth = n
		}
	}
}

// WithTimeout bounds a whole retrieval; zero leaves only per-command deadlines.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger overrides the coordinator logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records outcomes and latency.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithClock overrides the clock used for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator wires the collaborators of a retrieval.
func NewCoordinator(access AccessChecker, accounts AccountLoader, clients mailbox.Factory, matcher Matcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		access:      access,
		accounts:    accounts,
		clients:     clients,
		matcher:     matcher,
		searchDepth: DefaultSearchDepth,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Retrieve never mutates the stores and always releases the mailbox session
// it opened.
func (c *Coordinator) Retrieve(ctx context.Context, requesterID int64, address string) Result {
	start := c.now()
	address = models.NormalizeAddress(address)
	res := c.retrieve(ctx, requesterID, address)
	c.metrics.observe(res, c.now().Sub(start))

	fields := []zap.Field{
		zap.Int64("requester_id", requesterID),
		zap.String("mailbox", address),
		zap.String("outcome", string(res.Outcome)),
	}
	if res.Outcome == OutcomeError {
		c.logger.Warn("retrieval failed", append(fields, zap.String("kind", string(res.Kind)), zap.Error(res.Err))...)
	} else {
		c.logger.Info("retrieval finished", append(fields, zap.Int("scanned", res.Scanned))...)
	}
	return res
}

func (c *Coordinator) retrieve(ctx context.Context, requesterID int64, address string) Result {
	ok, err := c.access.HasAccess(ctx, requesterID, address)
	if err != nil {
		return failed(err)
	}
	if !ok {
		return Result{Outcome: OutcomeUnauthorized}
	}

	account, err := c.accounts.Get(ctx, address)
	if apperror.Is(err, apperror.KindNotFound) {
		return Result{Outcome: OutcomeMailboxNotFound}
	}
	if err != nil {
		return failed(err)
	}

	client, err := c.clients.ClientFor(account.Protocol)
	if err != nil {
		return failed(err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	session, err := client.Connect(ctx, *account)
	if err != nil {
		return failed(err)
	}
	defer func() {
		if err := session.Disconnect(); err != nil {
			c.logger.Debug("mailbox disconnect", zap.String("mailbox", address), zap.Error(err))
		}
	}()

	messages, err := session.ListRecent(ctx, c.searchDepth)
	if err != nil {
		return failed(err)
	}
	for i, msg := range messages {
		if m, ok := c.matcher.Match(msg.Subject, msg.Body); ok {
			return found(m.Code, m.Rule, i+1)
		}
	}
	return Result{Outcome: OutcomeNoCodeFound, Scanned: len(messages)}
}

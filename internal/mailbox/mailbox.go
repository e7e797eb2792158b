package mailbox

import (
	"context"
	"errors"
	"time"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
)

// Message is one fetched message flattened to text.
type Message struct {
	Subject    string
	Body       string
	Rank       int // 0 is the newest message returned
	ReceivedAt time.Time
}

// Client opens authenticated sessions against a mailbox server.
type Client interface {
	Connect(ctx context.Context, account models.Account) (Session, error)
}

// Session is a single authenticated connection. It is not safe for
// concurrent use. Disconnect must be called on every exit path.
type Session interface {
	ListRecent(ctx context.Context, limit int) ([]Message, error)
	Disconnect() error
}

// Factory resolves the client for an account's protocol.
type Factory interface {
	ClientFor(protocol models.Protocol) (Client, error)
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// armDeadline bounds the next command by timeout or the context deadline,
// whichever is sooner, and forces it to fail if ctx is cancelled mid-flight.
func armDeadline(ctx context.Context, conn deadliner, timeout time.Duration) (stop func() bool) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	return context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
}

// run executes one command under armDeadline. When the context ended while
// the command was running the context error is joined into the result so the
// failure classifies as a timeout rather than a broken pipe.
func run(ctx context.Context, conn deadliner, timeout time.Duration, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := armDeadline(ctx, conn, timeout)
	err := fn()
	stop()
	if err != nil && ctx.Err() != nil {
		return errors.Join(ctx.Err(), err)
	}
	return err
}

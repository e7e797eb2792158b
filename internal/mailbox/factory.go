package mailbox

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
)

// FactoryOption customizes a client factory.
type FactoryOption func(*simpleFactory)

type simpleFactory struct {
	mu      sync.RWMutex
	clients map[models.Protocol]Client
}

// NewFactory builds a client factory with the provided options.
func NewFactory(opts ...FactoryOption) Factory {
	f := &simpleFactory{clients: make(map[models.Protocol]Client)}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Timeouts bounds dialing and every individual protocol command.
type Timeouts struct {
	Dial    time.Duration
	Command time.Duration
}

// DefaultFactory returns a factory preloaded with the IMAP and POP3 clients.
func DefaultFactory(logger *zap.Logger, timeouts Timeouts) Factory {
	return NewFactory(
		WithClient(NewPOP3Client(
			WithPOP3Logger(logger),
			WithPOP3DialTimeout(timeouts.Dial),
			WithPOP3CommandTimeout(timeouts.Command),
		), models.ProtocolPOP3),
		WithClient(NewIMAPClient(
			WithIMAPLogger(logger),
			WithIMAPDialTimeout(timeouts.Dial),
			WithIMAPCommandTimeout(timeouts.Command),
		), models.ProtocolIMAP),
	)
}

// WithClient registers a client for the provided protocols.
func WithClient(client Client, protocols ...models.Protocol) FactoryOption {
	return func(f *simpleFactory) {
		if f == nil || client == nil {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, p := range protocols {
			if !p.Valid() {
				continue
			}
			f.clients[p] = client
		}
	}
}

func (f *simpleFactory) ClientFor(protocol models.Protocol) (Client, error) {
	f.mu.RLock()
	client, ok := f.clients[protocol]
	f.mu.RUnlock()
	if !ok {
		return nil, apperror.New(apperror.KindInternal, "mailbox client",
			fmt.Errorf("no client registered for protocol %q", protocol))
	}
	return client, nil
}

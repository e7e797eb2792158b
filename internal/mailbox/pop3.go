package mailbox

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/knadh/go-pop3"
	"go.uber.org/zap"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
)

type pop3Connection interface {
	Auth(user, password string) error
	Stat() (int, int, error)
	RetrRaw(msgID int) (*bytes.Buffer, error)
	Quit() error
	Close() error
	SetDeadline(t time.Time) error
}

type pop3ConnFactory func(ctx context.Context, account models.Account) (pop3Connection, error)

// POP3Client reads the maildrop over POP3 with implicit TLS.
type POP3Client struct {
	dialTimeout    time.Duration
	commandTimeout time.Duration
	now            func() time.Time
	logger         *zap.Logger
	newConn        pop3ConnFactory
}

// POP3ClientOption customizes client behavior.
type POP3ClientOption func(*POP3Client)

// NewPOP3Client returns a POP3 client with 10s dial and 15s command timeouts.
func NewPOP3Client(opts ...POP3ClientOption) *POP3Client {
	c := &POP3Client{
		dialTimeout:    10 * time.Second,
		commandTimeout: 15 * time.Second,
		now:            func() time.Time { return time.Now().UTC() },
		logger:         zap.NewNop(),
	}
	c.newConn = c.defaultConnFactory
	for _, opt := range opts {
		opt(c)
	}
	if c.newConn == nil {
		c.newConn = c.defaultConnFactory
	}
	return c
}

// WithPOP3Logger overrides the logger used for client diagnostics.
func WithPOP3Logger(logger *zap.Logger) POP3ClientOption {
	return func(c *POP3Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPOP3DialTimeout overrides the socket dial timeout.
func WithPOP3DialTimeout(timeout time.Duration) POP3ClientOption {
	return func(c *POP3Client) {
		if timeout > 0 {
			c.dialTimeout = timeout
		}
	}
}

// WithPOP3CommandTimeout bounds each individual POP3 command.
func WithPOP3CommandTimeout(timeout time.Duration) POP3ClientOption {
	return func(c *POP3Client) {
		if timeout > 0 {
			c.commandTimeout = timeout
		}
	}
}

// WithPOP3Clock overrides the wall clock, primarily for tests.
func WithPOP3Clock(now func() time.Time) POP3ClientOption {
	return func(c *POP3Client) {
		if now != nil {
			c.now = now
		}
	}
}

func withPOP3ConnFactory(factory pop3ConnFactory) POP3ClientOption {
	return func(c *POP3Client) {
		c.newConn = factory
	}
}

// Connect dials the server, reads the greeting and authenticates with USER/PASS.
func (c *POP3Client) Connect(ctx context.Context, account models.Account) (Session, error) {
	if account.Protocol != models.ProtocolPOP3 {
		return nil, apperror.Errorf(apperror.KindInternal, "pop3 connect", "account %s uses %s", account.Address, account.Protocol)
	}
	conn, err := c.newConn(ctx, account)
	if err != nil {
		return nil, classify("pop3 connect", err, phaseDial)
	}
	s := &pop3Session{
		conn:    conn,
		timeout: c.commandTimeout,
		now:     c.now,
		logger:  c.logger.With(zap.String("mailbox", account.Address)),
	}
	err = run(ctx, conn, c.commandTimeout, func() error {
		return conn.Auth(account.Address, account.Secret)
	})
	if err != nil {
		s.safeQuit()
		return nil, classify("pop3 auth", err, phaseAuth)
	}
	return s, nil
}

// captureDialer hands go-pop3 a context-aware dial and keeps the raw socket
// so deadlines can be set on it; the greeting read is bounded too.
type captureDialer struct {
	ctx      context.Context
	dialer   *net.Dialer
	greeting time.Duration
	conn     net.Conn
}

func (d *captureDialer) Dial(network, address string) (net.Conn, error) {
	conn, err := d.dialer.DialContext(d.ctx, network, address)
	if err != nil {
		return nil, err
	}
	_ = conn.SetDeadline(time.Now().Add(d.greeting))
	d.conn = conn
	return conn, nil
}

func (c *POP3Client) defaultConnFactory(ctx context.Context, account models.Account) (pop3Connection, error) {
	dialer := &captureDialer{
		ctx:      ctx,
		dialer:   &net.Dialer{Timeout: c.dialTimeout},
		greeting: c.commandTimeout,
	}
	client := pop3.New(pop3.Opt{
		Host:        account.Host,
		Port:        account.Port,
		DialTimeout: c.dialTimeout,
		Dialer:      dialer,
		TLSEnabled:  true,
	})
	conn, err := client.NewConn()
	if err != nil {
		if dialer.conn != nil {
			_ = dialer.conn.Close()
		}
		return nil, err
	}
	return &pop3Conn{Conn: conn, raw: dialer.conn}, nil
}

type pop3Conn struct {
	*pop3.Conn
	raw net.Conn
}

func (c *pop3Conn) SetDeadline(t time.Time) error { return c.raw.SetDeadline(t) }

// Close releases the socket when QUIT could not; go-pop3 only closes on success.
func (c *pop3Conn) Close() error { return c.raw.Close() }

type pop3Session struct {
	conn    pop3Connection
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger

	once          sync.Once
	disconnectErr error
}

// ListRecent retrieves the last limit messages of the maildrop, newest first.
func (s *pop3Session) ListRecent(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	var count int
	err := run(ctx, s.conn, s.timeout, func() error {
		var err error
		count, _, err = s.conn.Stat()
		return err
	})
	if err != nil {
		return nil, classify("pop3 stat", err, phaseCommand)
	}

	first := count - limit + 1
	if first < 1 {
		first = 1
	}
	messages := make([]Message, 0, count-first+1)
	for id := count; id >= first; id-- {
		var payload *bytes.Buffer
		err := run(ctx, s.conn, s.timeout, func() error {
			var err error
			payload, err = s.conn.RetrRaw(id)
			return err
		})
		if err != nil {
			return nil, classify("pop3 retr "+strconv.Itoa(id), err, phaseCommand)
		}
		msg, err := decodeMessage(payload.Bytes())
		if err != nil {
			s.logger.Warn("skipping undecodable message", zap.Int("id", id), zap.Error(err))
			continue
		}
		msg.ReceivedAt = receivedAt(msg, s.now())
		msg.Rank = len(messages)
		messages = append(messages, msg)
	}
	return messages, nil
}

// Disconnect sends QUIT and closes the socket. Safe to call more than once.
func (s *pop3Session) Disconnect() error {
	s.once.Do(func() {
		_ = s.conn.SetDeadline(time.Now().Add(s.timeout))
		if err := s.conn.Quit(); err != nil {
			s.logger.Debug("pop3 quit error", zap.Error(err))
			s.disconnectErr = classify("pop3 quit", err, phaseCommand)
			_ = s.conn.Close()
		}
	})
	return s.disconnectErr
}

func (s *pop3Session) safeQuit() {
	_ = s.conn.SetDeadline(time.Now().Add(s.timeout))
	if err := s.conn.Quit(); err != nil {
		s.logger.Debug("pop3 quit error", zap.Error(err))
		_ = s.conn.Close()
	}
}

package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/apperror"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
)

type imapClient interface {
	Login(username, password string) error
	Select(mailbox string) error
	SearchAll() ([]uint32, error)
	FetchBody(seqNum uint32) ([]byte, time.Time, error)
	Logout() error
	Close() error
	SetDeadline(t time.Time) error
}

type imapClientFactory func(ctx context.Context, account models.Account) (imapClient, error)

var errMessageGone = errors.New("message no longer in mailbox")

// IMAPClient reads INBOX over IMAP with implicit TLS.
type IMAPClient struct {
	dialTimeout    time.Duration
	commandTimeout time.Duration
	now            func() time.Time
	logger         *zap.Logger
	newClient      imapClientFactory
}

// IMAPClientOption customizes client behavior.
type IMAPClientOption func(*IMAPClient)

// NewIMAPClient returns an IMAP client with 10s dial and 15s command timeouts.
func NewIMAPClient(opts ...IMAPClientOption) *IMAPClient {
	c := &IMAPClient{
		dialTimeout:    10 * time.Second,
		commandTimeout: 15 * time.Second,
		now:            func() time.Time { return time.Now().UTC() },
		logger:         zap.NewNop(),
	}
	c.newClient = c.defaultClientFactory
	for _, opt := range opts {
		opt(c)
	}
	if c.newClient == nil {
		c.newClient = c.defaultClientFactory
	}
	return c
}

// WithIMAPLogger overrides the logger used for client diagnostics.
func WithIMAPLogger(logger *zap.Logger) IMAPClientOption {
	return func(c *IMAPClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIMAPDialTimeout overrides the socket dial timeout.
func WithIMAPDialTimeout(timeout time.Duration) IMAPClientOption {
	return func(c *IMAPClient) {
		if timeout > 0 {
			c.dialTimeout = timeout
		}
	}
}

// WithIMAPCommandTimeout bounds each individual IMAP command.
func WithIMAPCommandTimeout(timeout time.Duration) IMAPClientOption {
	return func(c *IMAPClient) {
		if timeout > 0 {
			c.commandTimeout = timeout
		}
	}
}

// WithIMAPClock overrides the wall clock, primarily for tests.
func WithIMAPClock(now func() time.Time) IMAPClientOption {
	return func(c *IMAPClient) {
		if now != nil {
			c.now = now
		}
	}
}

func withIMAPClientFactory(factory imapClientFactory) IMAPClientOption {
	return func(c *IMAPClient) {
		c.newClient = factory
	}
}

// Connect dials the server and logs in with the account address and secret.
func (c *IMAPClient) Connect(ctx context.Context, account models.Account) (Session, error) {
	if account.Protocol != models.ProtocolIMAP {
		return nil, apperror.Errorf(apperror.KindInternal, "imap connect", "account %s uses %s", account.Address, account.Protocol)
	}
	client, err := c.newClient(ctx, account)
	if err != nil {
		return nil, classify("imap connect", err, phaseDial)
	}
	s := &imapSession{
		client:  client,
		timeout: c.commandTimeout,
		now:     c.now,
		logger:  c.logger.With(zap.String("mailbox", account.Address)),
	}
	err = run(ctx, client, c.commandTimeout, func() error {
		return client.Login(account.Address, account.Secret)
	})
	if err != nil {
		s.safeClose()
		return nil, classify("imap auth", err, phaseAuth)
	}
	return s, nil
}

func (c *IMAPClient) defaultClientFactory(ctx context.Context, account models.Account) (imapClient, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.dialTimeout},
		Config:    &tls.Config{ServerName: account.Host, MinVersion: tls.VersionTLS12},
	}
	addr := net.JoinHostPort(account.Host, strconv.Itoa(account.Port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &imapConn{client: imapclient.New(conn, nil), conn: conn}, nil
}

type imapSession struct {
	client  imapClient
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger

	once          sync.Once
	disconnectErr error
}

// ListRecent returns up to limit INBOX messages, newest first. Bodies are
// fetched with BODY.PEEK[] so \Seen is left untouched.
func (s *imapSession) ListRecent(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	if err := run(ctx, s.client, s.timeout, func() error { return s.client.Select("INBOX") }); err != nil {
		return nil, classify("imap select", err, phaseCommand)
	}

	var seqNums []uint32
	err := run(ctx, s.client, s.timeout, func() error {
		var err error
		seqNums, err = s.client.SearchAll()
		return err
	})
	if err != nil {
		return nil, classify("imap search", err, phaseCommand)
	}
	slices.Sort(seqNums)
	if len(seqNums) > limit {
		seqNums = seqNums[len(seqNums)-limit:]
	}

	messages := make([]Message, 0, len(seqNums))
	for i := len(seqNums) - 1; i >= 0; i-- {
		num := seqNums[i]
		var (
			raw      []byte
			internal time.Time
		)
		err := run(ctx, s.client, s.timeout, func() error {
			var err error
			raw, internal, err = s.client.FetchBody(num)
			return err
		})
		if errors.Is(err, errMessageGone) {
			s.logger.Debug("message expunged during fetch", zap.Uint32("seq", num))
			continue
		}
		if err != nil {
			return nil, classify(fmt.Sprintf("imap fetch %d", num), err, phaseCommand)
		}
		msg, err := decodeMessage(raw)
		if err != nil {
			s.logger.Warn("skipping undecodable message", zap.Uint32("seq", num), zap.Error(err))
			continue
		}
		if !internal.IsZero() {
			msg.ReceivedAt = internal.UTC()
		}
		msg.ReceivedAt = receivedAt(msg, s.now())
		msg.Rank = len(messages)
		messages = append(messages, msg)
	}
	return messages, nil
}

// Disconnect logs out and closes the socket. Safe to call more than once.
func (s *imapSession) Disconnect() error {
	s.once.Do(func() {
		_ = s.client.SetDeadline(time.Now().Add(s.timeout))
		if err := s.client.Logout(); err != nil {
			s.logger.Debug("imap logout error", zap.Error(err))
			s.disconnectErr = classify("imap logout", err, phaseCommand)
		}
		s.safeClose()
	})
	return s.disconnectErr
}

func (s *imapSession) safeClose() {
	if err := s.client.Close(); err != nil {
		s.logger.Debug("imap close error", zap.Error(err))
	}
}

// imapConn adapts imapclient.Client and keeps the socket for deadlines.
type imapConn struct {
	client *imapclient.Client
	conn   net.Conn
}

func (w *imapConn) Login(username, password string) error {
	return w.client.Login(username, password).Wait()
}

func (w *imapConn) Select(mailbox string) error {
	_, err := w.client.Select(mailbox, nil).Wait()
	return err
}

func (w *imapConn) SearchAll() ([]uint32, error) {
	data, err := w.client.Search(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, err
	}
	return data.AllSeqNums(), nil
}

func (w *imapConn) FetchBody(seqNum uint32) ([]byte, time.Time, error) {
	section := &imap.FetchItemBodySection{Peek: true}
	opts := &imap.FetchOptions{
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{section},
	}
	bufs, err := w.client.Fetch(imap.SeqSetNum(seqNum), opts).Collect()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(bufs) == 0 {
		return nil, time.Time{}, errMessageGone
	}
	body := bufs[0].FindBodySection(section)
	return append([]byte(nil), body...), bufs[0].InternalDate, nil
}

func (w *imapConn) Logout() error { return w.client.Logout().Wait() }
func (w *imapConn) Close() error  { return w.client.Close() }

func (w *imapConn) SetDeadline(t time.Time) error { return w.conn.SetDeadline(t) }

package mailbox

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
)

func rawMessage(subject, body string) []byte {
	return []byte(fmt.Sprintf("From: Service <no-reply@service.example>\r\n"+
		"To: user@x.com\r\n"+
		"Subject: %s\r\n"+
		"Date: Mon, 03 Mar 2025 10:00:00 +0000\r\n"+
		"Content-Type: text/plain; charset=utf-8\r\n"+
		"\r\n%s\r\n", subject, body))
}

func rawMessageWithoutDate(subject, body string) []byte {
	return []byte(fmt.Sprintf("From: Service <no-reply@service.example>\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=utf-8\r\n"+
		"\r\n%s\r\n", subject, body))
}

type fakeIMAPClient struct {
	loginErr  error
	selectErr error
	searchErr error
	fetchErr  map[uint32]error
	bodies    map[uint32][]byte
	seqNums   []uint32
	block     bool

	selected     string
	fetched      []uint32
	deadlines    []time.Time
	loginCalls   int
	logoutCalls  int
	closeCalls   int
	loginUser    string
	loginSecret  string
	releaseBlock chan struct{}
}

func (f *fakeIMAPClient) Login(username, password string) error {
	f.loginCalls++
	f.loginUser, f.loginSecret = username, password
	return f.loginErr
}

func (f *fakeIMAPClient) Select(mailbox string) error {
	f.selected = mailbox
	return f.selectErr
}

func (f *fakeIMAPClient) SearchAll() ([]uint32, error) {
	if f.block {
		<-f.releaseBlock
		return nil, errTimedOut
	}
	return f.seqNums, f.searchErr
}

func (f *fakeIMAPClient) FetchBody(seqNum uint32) ([]byte, time.Time, error) {
	f.fetched = append(f.fetched, seqNum)
	if err := f.fetchErr[seqNum]; err != nil {
		return nil, time.Time{}, err
	}
	body, ok := f.bodies[seqNum]
	if !ok {
		return nil, time.Time{}, errMessageGone
	}
	return body, time.Time{}, nil
}

func (f *fakeIMAPClient) Logout() error { f.logoutCalls++; return nil }
func (f *fakeIMAPClient) Close() error  { f.closeCalls++; return nil }

func (f *fakeIMAPClient) SetDeadline(t time.Time) error {
	f.deadlines = append(f.deadlines, t)
	if f.block && t.Before(time.Unix(2, 0)) {
		close(f.releaseBlock)
	}
	return nil
}

// timeoutError mimics the net.Error a socket returns once its deadline passes.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var errTimedOut error = timeoutError{}

type fakePOP3Conn struct {
	authErr error
	statErr error
	retrErr map[int]error
	raw     map[int][]byte

	retrieved  []int
	authUser   string
	quitCalls  int
	closeCalls int
}

func (f *fakePOP3Conn) Auth(user, password string) error {
	f.authUser = user
	return f.authErr
}

func (f *fakePOP3Conn) Stat() (int, int, error) {
	if f.statErr != nil {
		return 0, 0, f.statErr
	}
	size := 0
	for _, b := range f.raw {
		size += len(b)
	}
	return len(f.raw), size, nil
}

func (f *fakePOP3Conn) RetrRaw(msgID int) (*bytes.Buffer, error) {
	f.retrieved = append(f.retrieved, msgID)
	if err := f.retrErr[msgID]; err != nil {
		return nil, err
	}
	return bytes.NewBuffer(f.raw[msgID]), nil
}

func (f *fakePOP3Conn) Quit() error                   { f.quitCalls++; return nil }
func (f *fakePOP3Conn) Close() error                  { f.closeCalls++; return nil }
func (f *fakePOP3Conn) SetDeadline(t time.Time) error { return nil }

func imapAccount() models.Account {
	return models.Account{Address: "user@x.com", Secret: "pw", Protocol: models.ProtocolIMAP, Host: "imap.x.com", Port: 993}
}

func pop3Account() models.Account {
	return models.Account{Address: "user@x.com", Secret: "pw", Protocol: models.ProtocolPOP3, Host: "pop.x.com", Port: 995}
}

func imapWith(client *fakeIMAPClient) *IMAPClient {
	return NewIMAPClient(withIMAPClientFactory(func(context.Context, models.Account) (imapClient, error) {
		return client, nil
	}))
}

func pop3With(conn *fakePOP3Conn) *POP3Client {
	return NewPOP3Client(withPOP3ConnFactory(func(context.Context, models.Account) (pop3Connection, error) {
		return conn, nil
	}))
}

package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/repository"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/retrieval"
)

const (
	usageAdd        = "/add <email> <password> <imap|pop3> <host> <port>"
	usageRemove     = "/remove <email>"
	usageApprove    = "/approve <user_id>"
	usageDisapprove = "/disapprove <user_id>"
	usageGrant      = "/grant <user_id> <email> <days>"
	usageRevoke     = "/revoke <user_id> <email>"
	usageGet        = "/get <email>"

	maxGrantDays = 3650
)

// Retriever runs one code retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, requesterID int64, address string) retrieval.Result
}

// Service executes chat commands on behalf of a requester.
type Service struct {
	accounts  repository.AccountStore
	ledger    repository.AccessGrantLedger
	retriever Retriever
	adminID   int64
	chunkSize int
	logger    *zap.Logger
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithChunkSize sets the maximum runes per reply segment.
func WithChunkSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the wall clock used to label grants as expired.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a command service; adminID is the only requester allowed
// to run administrative commands.
func NewService(accounts repository.AccountStore, ledger repository.AccessGrantLedger, retriever Retriever, adminID int64, opts ...Option) *Service {
	s := &Service{
		accounts:  accounts,
		ledger:    ledger,
		retriever: retriever,
		adminID:   adminID,
		chunkSize: DefaultChunkSize,
		logger:    zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Execute runs text as requesterID and returns the reply split into chunks.
// Text that is not a command yields no reply.
func (s *Service) Execute(ctx context.Context, requesterID int64, text string) []string {
	cmd, ok := Parse(text)
	if !ok {
		return nil
	}
	reply := s.dispatch(ctx, requesterID, cmd)
	if reply == "" {
		return nil
	}
	return Chunk(reply, s.chunkSize)
}

func (s *Service) dispatch(ctx context.Context, requesterID int64, cmd Command) string {
	admin := requesterID == s.adminID
	s.logger.Debug("command", zap.Int64("requester_id", requesterID), zap.String("command", cmd.Name), zap.Int("args", len(cmd.Args)))

	switch cmd.Name {
	case "start":
		return s.start(ctx, requesterID)
	case "help":
		return s.help(admin)
	case "get":
		return s.get(ctx, requesterID, cmd.Args)
	}

	handler, isAdminCommand := map[string]func(context.Context, []string) string{
		"add":        s.add,
		"remove":     s.remove,
		"approve":    s.approve,
		"disapprove": s.disapprove,
		"grant":      s.grant,
		"revoke":     s.revoke,
		"accounts":   s.listAccounts,
		"approvals":  s.listApprovals,
		"grants":     s.listGrants,
	}[cmd.Name]
	switch {
	case !isAdminCommand:
		return "Unknown command. Send /help for the list of commands."
	case !admin:
		return "⛔ This command is for the admin only."
	default:
		return handler(ctx, cmd.Args)
	}
}

func (s *Service) start(ctx context.Context, requesterID int64) string {
	approved, err := s.ledger.IsApproved(ctx, requesterID)
	if err != nil {
		return renderError(err, requesterID == s.adminID)
	}
	if !approved {
		return "❌ You are not approved."
	}
	return "✅ Send:\n" + usageGet
}

func (s *Service) help(admin bool) string {
	lines := []string{"Commands:", usageGet, "/start", "/help"}
	if admin {
		lines = append(lines, "", "Admin:",
			usageAdd, usageRemove, usageApprove, usageDisapprove, usageGrant, usageRevoke,
			"/accounts", "/approvals", "/grants")
	}
	return strings.Join(lines, "\n")
}

func usage(u string) string {
	return "Usage: " + u
}

func (s *Service) get(ctx context.Context, requesterID int64, args []string) string {
	if len(args) != 1 {
		return usage(usageGet)
	}
	admin := requesterID == s.adminID
	approved, err := s.ledger.IsApproved(ctx, requesterID)
	if err != nil {
		return renderError(err, admin)
	}
	if !approved {
		return "❌ Not approved."
	}
	address := models.NormalizeAddress(args[0])
	res := s.retriever.Retrieve(ctx, requesterID, address)
	return RenderResult(address, res, admin)
}

func (s *Service) add(ctx context.Context, args []string) string {
	if len(args) != 5 {
		return usage(usageAdd)
	}
	protocol, err := models.ParseProtocol(args[2])
	if err != nil {
		return renderError(err, true) + "\n" + usage(usageAdd)
	}
	port, err := strconv.Atoi(args[4])
	if err != nil {
		return "❌ Port must be a number.\n" + usage(usageAdd)
	}
	account := models.Account{
		Address:  args[0],
		Secret:   args[1],
		Protocol: protocol,
		Host:     args[3],
		Port:     port,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return renderError(err, true)
	}
	return "✅ Account saved."
}

func (s *Service) remove(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return usage(usageRemove)
	}
	if err := s.accounts.Remove(ctx, args[0]); err != nil {
		return renderError(err, true)
	}
	return "✅ Account removed."
}

func parseRequesterID(value string) (int64, bool) {
	id, err := strconv.ParseInt(value, 10, 64)
	return id, err == nil
}

func (s *Service) approve(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return usage(usageApprove)
	}
	id, ok := parseRequesterID(args[0])
	if !ok {
		return usage(usageApprove)
	}
	if err := s.ledger.Approve(ctx, id); err != nil {
		return renderError(err, true)
	}
	return "✅ User approved."
}

func (s *Service) disapprove(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return usage(usageDisapprove)
	}
	id, ok := parseRequesterID(args[0])
	if !ok {
		return usage(usageDisapprove)
	}
	if err := s.ledger.RevokeApproval(ctx, id); err != nil {
		return renderError(err, true)
	}
	return "✅ User disapproved."
}

func (s *Service) grant(ctx context.Context, args []string) string {
	if len(args) != 3 {
		return usage(usageGrant)
	}
	id, ok := parseRequesterID(args[0])
	if !ok {
		return usage(usageGrant)
	}
	days, err := strconv.Atoi(args[2])
	if err != nil || days <= 0 || days > maxGrantDays {
		return fmt.Sprintf("❌ Days must be a whole number between 1 and %d.\n%s", maxGrantDays, usage(usageGrant))
	}
	expires, err := s.ledger.Grant(ctx, id, args[1], time.Duration(days)*24*time.Hour)
	if err != nil {
		return renderError(err, true)
	}
	return fmt.Sprintf("✅ Access granted until %s.", formatTime(expires))
}

func (s *Service) revoke(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return usage(usageRevoke)
	}
	id, ok := parseRequesterID(args[0])
	if !ok {
		return usage(usageRevoke)
	}
	if err := s.ledger.RevokeGrant(ctx, id, args[1]); err != nil {
		return renderError(err, true)
	}
	return "✅ Access revoked."
}

func (s *Service) listAccounts(ctx context.Context, args []string) string {
	list, err := s.accounts.List(ctx)
	if err != nil {
		return renderError(err, true)
	}
	if len(list) == 0 {
		return "No accounts."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Accounts (%d):", len(list))
	for _, a := range list {
		fmt.Fprintf(&b, "\n%s  %s:%d", a.Address, a.Host, a.Port)
	}
	return b.String()
}

func (s *Service) listApprovals(ctx context.Context, args []string) string {
	ids, err := s.ledger.ListApprovals(ctx)
	if err != nil {
		return renderError(err, true)
	}
	if len(ids) == 0 {
		return "No approved users."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Approved users (%d):", len(ids))
	for _, id := range ids {
		fmt.Fprintf(&b, "\n%d", id)
	}
	return b.String()
}

func (s *Service) listGrants(ctx context.Context, args []string) string {
	grants, err := s.ledger.ListGrants(ctx)
	if err != nil {
		return renderError(err, true)
	}
	if len(grants) == 0 {
		return "No grants."
	}
	now := s.now()
	var b strings.Builder
	fmt.Fprintf(&b, "Grants (%d):", len(grants))
	for _, g := range grants {
		status := "until " + formatTime(g.ExpiresAt)
		if !g.Active(now) {
			status = "expired " + formatTime(g.ExpiresAt)
		}
		fmt.Fprintf(&b, "\n%d  %s  %s", g.RequesterID, g.MailboxAddress, status)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 MST")
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps the relations under a key prefix:
//
//	<prefix>account:<address>  hash  secret, protocol, host, port
//	<prefix>accounts           set   known addresses
//	<prefix>approvals          set   requester ids
//	<prefix>grants             hash  "<id>|<address>" -> expires_at (unix seconds)
type RedisBackend struct {
	client redis.Cmdable
	prefix string
}

// NewRedisBackend wraps client; prefix defaults to "otpbot:".
func NewRedisBackend(client redis.Cmdable, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "otpbot:"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) accountKey(address string) string { return b.prefix + "account:" + address }
func (b *RedisBackend) accountsKey() string              { return b.prefix + "accounts" }
func (b *RedisBackend) approvalsKey() string             { return b.prefix + "approvals" }
func (b *RedisBackend) grantsKey() string                { return b.prefix + "grants" }

func grantField(requesterID int64, address string) string {
	return strconv.FormatInt(requesterID, 10) + "|" + address
}

func parseGrantField(field, value string) (models.Grant, error) {
	id, addr, ok := strings.Cut(field, "|")
	if !ok {
		return models.Grant{}, fmt.Errorf("malformed grant field %q", field)
	}
	requesterID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return models.Grant{}, fmt.Errorf("malformed grant field %q: %w", field, err)
	}
	expires, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return models.Grant{}, fmt.Errorf("malformed grant expiry %q: %w", value, err)
	}
	return models.Grant{RequesterID: requesterID, MailboxAddress: addr, ExpiresAt: time.Unix(expires, 0).UTC()}, nil
}

func (b *RedisBackend) PutAccount(ctx context.Context, a models.Account) error {
	key := b.accountKey(a.Address)
	_, err := b.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "secret", a.Secret, "protocol", string(a.Protocol), "host", a.Host, "port", strconv.Itoa(a.Port))
		p.SAdd(ctx, b.accountsKey(), a.Address)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

func (b *RedisBackend) FindAccount(ctx context.Context, address string) (*models.Account, error) {
	fields, err := b.client.HGetAll(ctx, b.accountKey(address)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	port, err := strconv.Atoi(fields["port"])
	if err != nil {
		return nil, fmt.Errorf("account %s has malformed port %q", address, fields["port"])
	}
	return &models.Account{
		Address:  address,
		Secret:   fields["secret"],
		Protocol: models.Protocol(fields["protocol"]),
		Host:     fields["host"],
		Port:     port,
	}, nil
}

func (b *RedisBackend) AllAccounts(ctx context.Context) ([]models.AccountSummary, error) {
	addresses, err := b.client.SMembers(ctx, b.accountsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	out := make([]models.AccountSummary, 0, len(addresses))
	for _, addr := range addresses {
		acc, err := b.FindAccount(ctx, addr)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			continue
		}
		out = append(out, acc.Summary())
	}
	return out, nil
}

func (b *RedisBackend) DeleteAccount(ctx context.Context, address string) error {
	_, err := b.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, b.accountKey(address))
		p.SRem(ctx, b.accountsKey(), address)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

func (b *RedisBackend) InsertApproval(ctx context.Context, requesterID int64) error {
	if err := b.client.SAdd(ctx, b.approvalsKey(), strconv.FormatInt(requesterID, 10)).Err(); err != nil {
		return fmt.Errorf("failed to insert approval: %w", err)
	}
	return nil
}

func (b *RedisBackend) DeleteApproval(ctx context.Context, requesterID int64) error {
	if err := b.client.SRem(ctx, b.approvalsKey(), strconv.FormatInt(requesterID, 10)).Err(); err != nil {
		return fmt.Errorf("failed to delete approval: %w", err)
	}
	return nil
}

func (b *RedisBackend) ApprovalExists(ctx context.Context, requesterID int64) (bool, error) {
	ok, err := b.client.SIsMember(ctx, b.approvalsKey(), strconv.FormatInt(requesterID, 10)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check approval: %w", err)
	}
	return ok, nil
}

func (b *RedisBackend) AllApprovals(ctx context.Context) ([]int64, error) {
	members, err := b.client.SMembers(ctx, b.approvalsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed approval %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (b *RedisBackend) PutGrant(ctx context.Context, g models.Grant) error {
	field := grantField(g.RequesterID, g.MailboxAddress)
	if err := b.client.HSet(ctx, b.grantsKey(), field, strconv.FormatInt(expiryUnix(g.ExpiresAt), 10)).Err(); err != nil {
		return fmt.Errorf("failed to upsert grant: %w", err)
	}
	return nil
}

func (b *RedisBackend) DeleteGrant(ctx context.Context, requesterID int64, address string) error {
	if err := b.client.HDel(ctx, b.grantsKey(), grantField(requesterID, address)).Err(); err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}
	return nil
}

func (b *RedisBackend) FindGrant(ctx context.Context, requesterID int64, address string) (*models.Grant, error) {
	field := grantField(requesterID, address)
	value, err := b.client.HGet(ctx, b.grantsKey(), field).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}
	g, err := parseGrantField(field, value)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (b *RedisBackend) AllGrants(ctx context.Context) ([]models.Grant, error) {
	fields, err := b.client.HGetAll(ctx, b.grantsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	grants := make([]models.Grant, 0, len(fields))
	for field, value := range fields {
		g, err := parseGrantField(field, value)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, nil
}

func (b *RedisBackend) DeleteGrantsExpiredBy(ctx context.Context, now time.Time) (int64, error) {
	grants, err := b.AllGrants(ctx)
	if err != nil {
		return 0, err
	}
	var expired []string
	for _, g := range grants {
		if !g.Active(now) {
			expired = append(expired, grantField(g.RequesterID, g.MailboxAddress))
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	n, err := b.client.HDel(ctx, b.grantsKey(), expired...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to purge grants: %w", err)
	}
	return n, nil
}

package credits

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultIdempotencyTTL is how long consumed generation IDs are remembered.
const DefaultIdempotencyTTL = 7 * 24 * time.Hour

// The account hash and the idempotency key share the {user} hash tag so the
// scripts stay single-slot on Redis Cluster.
//
// KEYS[1] account hash, ARGV[1] allowance. Returns {remaining, total}.
const luaInit = `
if redis.call('HSETNX', KEYS[1], 'remaining', ARGV[1]) == 1 then
  redis.call('HSET', KEYS[1], 'total', ARGV[1])
end
`

var balanceScript = redis.NewScript(luaInit + `
return {tonumber(redis.call('HGET', KEYS[1], 'remaining')), tonumber(redis.call('HGET', KEYS[1], 'total'))}
`)

// KEYS[2] idempotency key, ARGV[2] TTL seconds.
// Returns {status, remaining, total}; status 0 consumed, 1 replay, -1 empty.
var consumeScript = redis.NewScript(luaInit + `
local total = tonumber(redis.call('HGET', KEYS[1], 'total'))
local remaining = tonumber(redis.call('HGET', KEYS[1], 'remaining'))
if redis.call('EXISTS', KEYS[2]) == 1 then
  return {1, remaining, total}
end
if remaining <= 0 then
  return {-1, remaining, total}
end
remaining = redis.call('HINCRBY', KEYS[1], 'remaining', -1)
redis.call('SET', KEYS[2], '1', 'EX', ARGV[2])
return {0, remaining, total}
`)

// ARGV[2] amount.
var grantScript = redis.NewScript(luaInit + `
local remaining = redis.call('HINCRBY', KEYS[1], 'remaining', ARGV[2])
local total = redis.call('HINCRBY', KEYS[1], 'total', ARGV[2])
return {remaining, total}
`)

// RedisLedger is a [Ledger] backed by Redis. Every operation is a single Lua
// script so check-and-decrement is atomic across server instances.
type RedisLedger struct {
	client    redis.UniversalClient
	prefix    string
	allowance int
	ttl       time.Duration
}

var _ Ledger = (*RedisLedger)(nil)

// RedisOption configures a [RedisLedger].
type RedisOption func(*RedisLedger)

// WithKeyPrefix sets the key namespace. Defaults to "vidpilot:credits".
func WithKeyPrefix(p string) RedisOption {
	return func(l *RedisLedger) { l.prefix = p }
}

// WithIdempotencyTTL sets how long consumed generation IDs are remembered.
func WithIdempotencyTTL(d time.Duration) RedisOption {
	return func(l *RedisLedger) { l.ttl = d }
}

// NewRedisLedger returns a ledger using client.
func NewRedisLedger(client redis.UniversalClient, allowance int, opts ...RedisOption) *RedisLedger {
	if allowance <= 0 {
		allowance = DefaultAllowance
	}
	l := &RedisLedger{
		client:    client,
		prefix:    "vidpilot:credits",
		allowance: allowance,
		ttl:       DefaultIdempotencyTTL,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *RedisLedger) accountKey(user string) string {
	return fmt.Sprintf("%s:{%s}", l.prefix, user)
}

func (l *RedisLedger) generationKey(user, id string) string {
	return fmt.Sprintf("%s:{%s}:gen:%s", l.prefix, user, id)
}

// Ping checks connectivity. It is used by the readiness probe.
func (l *RedisLedger) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("credits: redis ping: %w", err)
	}
	return nil
}

// Balance implements [Ledger].
func (l *RedisLedger) Balance(ctx context.Context, user string) (Balance, error) {
	vals, err := balanceScript.Run(ctx, l.client, []string{l.accountKey(user)}, l.allowance).Int64Slice()
	if err != nil {
		return Balance{}, fmt.Errorf("credits: balance: %w", err)
	}
	return Balance{Remaining: int(vals[0]), Total: int(vals[1])}, nil
}

// Consume implements [Ledger].
func (l *RedisLedger) Consume(ctx context.Context, user, generationID string) (Balance, error) {
	keys := []string{l.accountKey(user), l.generationKey(user, generationID)}
	vals, err := consumeScript.Run(ctx, l.client, keys, l.allowance, int64(l.ttl/time.Second)).Int64Slice()
	if err != nil {
		return Balance{}, fmt.Errorf("credits: consume: %w", err)
	}
	b := Balance{Remaining: int(vals[1]), Total: int(vals[2])}
	if vals[0] < 0 {
		return b, ErrInsufficient
	}
	return b, nil
}

// Grant implements [Ledger].
func (l *RedisLedger) Grant(ctx context.Context, user string, n int) (Balance, error) {
	if n <= 0 {
		return Balance{}, fmt.Errorf("%w: %d", ErrInvalidGrant, n)
	}
	vals, err := grantScript.Run(ctx, l.client, []string{l.accountKey(user)}, l.allowance, n).Int64Slice()
	if err != nil {
		return Balance{}, fmt.Errorf("credits: grant: %w", err)
	}
	return Balance{Remaining: int(vals[0]), Total: int(vals[1])}, nil
}

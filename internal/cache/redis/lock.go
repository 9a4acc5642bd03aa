package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agroverse/marketmaker/internal/domain"
)

// unlockLua deletes the lock key only when its value still matches the
// holder's token, so a holder whose lock already expired cannot release a
// lock re-acquired by someone else.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// refreshLua extends the TTL only when the value still matches the holder's
// token. Without the check, a holder whose lock expired would extend a lock
// since taken by another instance.
const refreshLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`

// PairLock serializes trading on a single market pair across bot instances.
// It is a SETNX lock with a TTL; unlock and refresh are Lua scripts that
// verify the holder's token first.
type PairLock struct {
	rdb       *redis.Client
	unlockSc  *redis.Script
	refreshSc *redis.Script
}

// NewPairLock creates a PairLock backed by the given Client.
func NewPairLock(c *Client) *PairLock {
	return &PairLock{
		rdb:       c.Underlying(),
		unlockSc:  redis.NewScript(unlockLua),
		refreshSc: redis.NewScript(refreshLua),
	}
}

func lockKey(pair string) string {
	return "marketmaker:lock:" + pair
}

// Lease is a held pair lock. Refresh extends it and Release gives it up;
// both act only on this holder's token.
type Lease struct {
	lock    *PairLock
	pair    string
	key     string
	token   string
	release sync.Once
}

// Acquire obtains the trading lock for pair with the given TTL. It returns
// domain.ErrLockHeld when another instance already holds the pair.
func (l *PairLock) Acquire(ctx context.Context, pair string, ttl time.Duration) (*Lease, error) {
	token := uuid.New().String()
	key := lockKey(pair)

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock for %s: %w", pair, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: pair %s: %w", pair, domain.ErrLockHeld)
	}

	return &Lease{lock: l, pair: pair, key: key, token: token}, nil
}

// Refresh extends the lease TTL. It returns domain.ErrLockHeld when the
// lock is no longer this holder's, either expired and gone or expired and
// re-acquired by a rival; the caller must stop trading the pair.
func (le *Lease) Refresh(ctx context.Context, ttl time.Duration) error {
	res, err := le.lock.refreshSc.Run(ctx, le.lock.rdb, []string{le.key}, le.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("redis: refresh lock for %s: %w", le.pair, err)
	}
	return refreshOutcome(res, le.pair)
}

// Release gives the lease up. Safe to call more than once.
func (le *Lease) Release() {
	le.release.Do(func() {
		// Background context so the release still goes out after the run
		// context has been cancelled on shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = le.lock.unlockSc.Run(ctx, le.lock.rdb, []string{le.key}, le.token).Err()
	})
}

// refreshOutcome maps the refresh script's result: 1 means the TTL was
// extended on this holder's key, 0 means the token no longer matched.
func refreshOutcome(res int64, pair string) error {
	if res == 1 {
		return nil
	}
	return fmt.Errorf("redis: pair %s lock lost: %w", pair, domain.ErrLockHeld)
}

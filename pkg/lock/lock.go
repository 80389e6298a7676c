package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNotAcquired = errors.New("lock: already held")

var Module = fx.Module("lock", fx.Provide(ProvideLocker))

// Unlock releases a lock obtained from Locker.Acquire. Releasing an expired
// or stolen lock is a no-op.
type Unlock func(ctx context.Context) error

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
}

type LockerParams struct {
	fx.In
	Redis *redis.Client `optional:"true"`
}

func ProvideLocker(p LockerParams) Locker {
	if p.Redis == nil {
		zap.L().Warn("[Lock] redis not configured, falling back to in-process locks")
		return NewLocal()
	}
	return NewRedis(p.Redis)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	rdb redis.Scripter
	cmd redis.Cmdable
}

func NewRedis(rdb *redis.Client) Locker {
	return &redisLocker{rdb: rdb, cmd: rdb}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	ok, err := l.cmd.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		return nil
	}, nil
}

type localLocker struct {
	mu    sync.Mutex
	held  map[string]localLease
	nowFn func() time.Time
}

type localLease struct {
	token     string
	expiresAt time.Time
}

// NewLocal returns a process-local Locker. It only serialises callers inside
// one process.
func NewLocal() Locker {
	return &localLocker{held: make(map[string]localLease), nowFn: time.Now}
}

func (l *localLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if lease, ok := l.held[key]; ok && now.Before(lease.expiresAt) {
		return nil, ErrNotAcquired
	}
	l.held[key] = localLease{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if lease, ok := l.held[key]; ok && lease.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKey = "cleanup:deals:lock"
	lockTTL = 10 * time.Minute
)

// releaseScript deletes the lock only when the caller still owns it, so a
// holder whose lock expired cannot delete a newer holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// refreshScript resets the TTL only when the caller still owns the lock.
var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)

// Locker serializes cleanup batches across API instances and the scheduler
// worker with a Redis lock. Each acquisition stores a run token; release and
// refresh are conditional on still owning that token.
type Locker struct {
	client *redis.Client

	mu    sync.Mutex
	token string
}

// NewLocker creates a locker from a Redis URL.
func NewLocker(redisURL string) (*Locker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Locker{client: redis.NewClient(opts)}, nil
}

// NewLockerWithClient wraps an existing client; used by tests.
func NewLockerWithClient(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Acquire takes the cleanup lock. It returns false when another run holds
// it. The lock expires on its own if a run dies without releasing.
func (l *Locker) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, lockKey, token, lockTTL).Result()
	if err != nil || !acquired {
		return false, err
	}

	l.mu.Lock()
	l.token = token
	l.mu.Unlock()
	return true, nil
}

// Refresh resets the lock TTL for a run that spans multiple batches. It
// returns false when the lock expired and is no longer owned; the run must
// stop rather than proceed without mutual exclusion.
func (l *Locker) Refresh(ctx context.Context) (bool, error) {
	token := l.currentToken()
	if token == "" {
		return false, nil
	}
	res, err := refreshScript.Run(ctx, l.client, []string{lockKey}, token, lockTTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Release frees the lock if this locker still owns it. Releasing an expired
// or never-acquired lock is a no-op.
func (l *Locker) Release(ctx context.Context) error {
	token := l.currentToken()
	if token == "" {
		return nil
	}

	if err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil {
		return err
	}

	l.mu.Lock()
	if l.token == token {
		l.token = ""
	}
	l.mu.Unlock()
	return nil
}

func (l *Locker) currentToken() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token
}

// Close releases the underlying connection pool.
func (l *Locker) Close() error {
	return l.client.Close()
}

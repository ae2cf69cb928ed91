package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/codequest-app/codequest/internal/domain"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only while the key still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisConfig tunes the distributed locker.
type RedisConfig struct {
	Prefix string        // key prefix, default "codequest:lock:"
	TTL    time.Duration // lock lease, default 10s; renewed every TTL/3 while held
	Poll   time.Duration // retry interval while contended, default 25ms
}

// Redis is a per-user lock shared by every process pointed at the same
// Redis, for deployments with more than one API replica.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
	log    func(msg string, keysAndValues ...interface{})
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("lock redis URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid lock redis URL: %w", err)
	}
	return opts, nil
}

// NewRedis connects to url and verifies the connection.
func NewRedis(ctx context.Context, url string, cfg RedisConfig) (*Redis, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging lock redis: %w", err)
	}
	return NewRedisWithClient(client, cfg), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, cfg RedisConfig) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = "codequest:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 25 * time.Millisecond
	}
	return &Redis{client: client, cfg: cfg}
}

// Lock implements domain.Locker.
func (r *Redis) Lock(ctx context.Context, userID string) (func(), error) {
	key := r.cfg.Prefix + userID
	token := uuid.NewString()

	ticker := time.NewTicker(r.cfg.Poll)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.cfg.TTL).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return r.hold(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// hold keeps the lease alive until the returned release func is called, so
// a holder slower than the TTL never lets a second holder in.
func (r *Redis) hold(key, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(r.cfg.TTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			ctx, cancel := context.WithTimeout(context.Background(), r.cfg.TTL/3)
			n, err := renewScript.Run(ctx, r.client, []string{key}, token, r.cfg.TTL.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				// Lease lost; nothing left to renew.
				if r.log != nil {
					r.log("lock lease lost", "key", key)
				}
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// Release on a fresh context: the caller's may already be done.
			relCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = releaseScript.Run(relCtx, r.client, []string{key}, token).Err()
		})
	}
}

// SetLogger reports lost leases through log, e.g. a logger's Warn method.
func (r *Redis) SetLogger(log func(msg string, keysAndValues ...interface{})) {
	r.log = log
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

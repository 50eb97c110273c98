package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

// NewRedis returns a Locker shared by every process using the same Redis.
// A holder that dies keeps the key until ttl passes.
func NewRedis(client *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{
		client: client,
		ttl:    ttl,
		retry:  100 * time.Millisecond,
		prefix: "crosspost:lock:",
	}
}

func (r *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	full := r.prefix + key

	for {
		ok, err := r.client.SetNX(ctx, full, token, r.ttl).Result()
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done.
			if err := unlockScript.Run(context.Background(), r.client, []string{full}, token).Err(); err != nil {
				slog.Error("failed to release lock", "key", full, "error", err)
			}
		})
	}, nil
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

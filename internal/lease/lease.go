package lease

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "socialdeck:scheduler:lease"

// releaseScript deletes the key only while it still holds our token, so a
// lease that expired and was taken by another instance is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Lease is a best-effort mutual exclusion over Redis. The TTL bounds how long
// a crashed holder can block the others.
type Lease struct {
	rdb   client
	key   string
	ttl   time.Duration
	token func() string
}

func New(rdb client, key string, ttl time.Duration) *Lease {
	if key == "" {
		key = DefaultKey
	}
	return &Lease{
		rdb:   rdb,
		key:   key,
		ttl:   ttl,
		token: uuid.NewString,
	}
}

func (l *Lease) TryLock(ctx context.Context) (func(), bool, error) {
	token := l.token()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func() {
		// the cycle context may be gone by now
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.rdb.Eval(ctx, releaseScript, []string{l.key}, token).Err(); err != nil {
			slog.Warn("could not release scheduler lease", "key", l.key, "error", err)
		}
	}
	return unlock, true, nil
}

// NewClient opens a go-redis client from a redis:// URL or a bare host:port.
func NewClient(uri string) *redis.Client {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		opts = &redis.Options{Addr: uri}
	}
	return redis.NewClient(opts)
}

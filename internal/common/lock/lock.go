package lock

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/common/logger"
	"fulfillment-workers/internal/common/metrics"
)

const keyPrefix = "fulfillment:lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker grants an exclusive lease per application id.
type Locker interface {
	Acquire(ctx context.Context, applicationID int64) (release func(context.Context) error, err error)
}

// RedisLocker leases keys with SET NX PX.
type RedisLocker struct {
	client   redis.Cmdable
	ttl      time.Duration
	newToken func() string
	logger   logger.Logger
}

func NewRedisLocker(client redis.Cmdable, ttl time.Duration, log logger.Logger) *RedisLocker {
	return &RedisLocker{
		client:   client,
		ttl:      ttl,
		newToken: uuid.NewString,
		logger:   log,
	}
}

func Key(applicationID int64) string {
	return keyPrefix + strconv.FormatInt(applicationID, 10)
}

func (l *RedisLocker) Acquire(ctx context.Context, applicationID int64) (func(context.Context) error, error) {
	key := Key(applicationID)
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError("lock acquire", err)
	}
	if !ok {
		metrics.FulfillmentLockContention.Inc()
		l.logger.Warn("fulfillment already in flight", map[string]interface{}{
			"applicationId": applicationID,
		})
		return nil, errors.NewApplicationLockedError(applicationID)
	}

	release := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
		if n == 0 {
			l.logger.Warn("lock expired before release", map[string]interface{}{
				"applicationId": applicationID,
				"ttl":           l.ttl.String(),
			})
		}
		return nil
	}
	return release, nil
}

// Guard runs at most one fulfillment per application id. Concurrent callers in
// this process share the in-flight result; other processes are refused by the lease.
type Guard struct {
	locker Locker
	group  singleflight.Group
	logger logger.Logger
}

func NewGuard(locker Locker, log logger.Logger) *Guard {
	return &Guard{locker: locker, logger: log}
}

// Do calls fn under the lease for applicationID. shared reports whether the
// result came from a call started by another caller.
func (g *Guard) Do(ctx context.Context, applicationID int64, fn func(context.Context) (interface{}, error)) (v interface{}, shared bool, err error) {
	v, err, shared = g.group.Do(strconv.FormatInt(applicationID, 10), func() (interface{}, error) {
		release, err := g.locker.Acquire(ctx, applicationID)
		if err != nil {
			return nil, err
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				g.logger.Error("failed to release fulfillment lock", map[string]interface{}{
					"applicationId": applicationID,
					"error":         rerr,
				})
			}
		}()
		return fn(ctx)
	})
	return v, shared, err
}

// Package lease gives scheduler loops a cross-process single-flight through
// Redis SET NX. Without Redis every Acquire succeeds.
package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out short-lived named leases.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// Local always grants the lease; in-process single-flight is the loop's job.
type Local struct{}

func (Local) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// only delete the key if we still own it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (r *Redis) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := r.prefix + name
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}
	release := func() {
		releaseScript.Run(context.Background(), r.client, []string{key}, token)
	}
	return release, true, nil
}

// New picks the Redis locker when a client is configured.
func New(client *redis.Client) Locker {
	if client == nil {
		return Local{}
	}
	return NewRedis(client, "cmms:lease:")
}

// Package kv wraps the go-redis client behind the narrow surface the
// store, lock, queue, and waiter packages need (spec §4.8-§4.11), so
// those packages depend on an interface rather than on go-redis directly.
package kv

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the subset of Redis operations the shared runtime needs: plain
// string get/set, list push/pop for the job queue, SETNX/DEL for the lock
// manager, and pub/sub for job status notifications.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, key string) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	RPush(ctx context.Context, key, value string) error
	LPop(ctx context.Context, key string) (string, bool, error)

	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, pattern string) Subscription

	FlushAll(ctx context.Context) error
	Close() error
}

// Subscription is a pattern subscription yielding (channel, payload) pairs.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// Message is one pub/sub delivery.
type Message struct {
	Channel string
	Payload string
}

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = redis.Nil

// client adapts *redis.Client to Store.
type client struct{ rdb *redis.Client }

// New dials Redis at host:port (spec §6's REDIS_HOST/REDIS_PORT).
func New(host string, port int) Store {
	return &client{rdb: redis.NewClient(&redis.Options{
		Addr: addr(host, port),
	})}
}

// NewFromClient adapts an already-constructed *redis.Client, used by
// tests to point at a miniredis instance.
func NewFromClient(rdb *redis.Client) Store { return &client{rdb: rdb} }

func addr(host string, port int) string {
	if port == 0 {
		port = 6379
	}
	return host + ":" + strconv.Itoa(port)
}

func (c *client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c *client) Set(ctx context.Context, key, value string) error {
	return c.rdb.Set(ctx, key, value, 0).Err()
}

func (c *client) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

func (c *client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (c *client) RPush(ctx context.Context, key, value string) error {
	return c.rdb.RPush(ctx, key, value).Err()
}

func (c *client) LPop(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.LPop(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *client) Publish(ctx context.Context, channel, message string) error {
	return c.rdb.Publish(ctx, channel, message).Err()
}

func (c *client) Subscribe(ctx context.Context, pattern string) Subscription {
	ps := c.rdb.PSubscribe(ctx, pattern)
	out := make(chan Message)
	go func() {
		defer close(out)
		ch := ps.Channel()
		for msg := range ch {
			out <- Message{Channel: msg.Channel, Payload: msg.Payload}
		}
	}()
	return &subscription{ps: ps, messages: out}
}

func (c *client) FlushAll(ctx context.Context) error {
	return c.rdb.FlushAll(ctx).Err()
}

func (c *client) Close() error { return c.rdb.Close() }

type subscription struct {
	ps       *redis.PubSub
	messages chan Message
}

func (s *subscription) Messages() <-chan Message { return s.messages }
func (s *subscription) Close() error             { return s.ps.Close() }

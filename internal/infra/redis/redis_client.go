package redis

import (
	"context"
	"strconv"
	"strings"
	"time"

	"telegram-chat-summarizer/internal/config"

	"github.com/go-redis/redis/v8"
)

// ErrNil is returned by read commands when the key does not exist.
var ErrNil = redis.Nil

// ZMember is one sorted-set entry.
type ZMember struct {
	Score  float64
	Member string
}

// PubSubMessage is one raw message from a pattern subscription.
type PubSubMessage struct {
	Channel string
	Payload string
}

// Client is the narrow command surface the coordination layer needs.
// Everything above this interface is testable against an in-memory fake.
type Client interface {
	Ping(ctx context.Context) error

	Get(ctx context.Context, key string) (string, error)
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)

	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZCard(ctx context.Context, key string) (int64, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ZMember, error)

	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	LPush(ctx context.Context, key, value string) error
	BRPopLPush(ctx context.Context, source, dest string, timeout time.Duration) (string, error)
	LRem(ctx context.Context, key string, count int64, value string) error

	Publish(ctx context.Context, channel, payload string) error
	// PSubscribe delivers raw messages until stop is called or ctx ends.
	PSubscribe(ctx context.Context, pattern string) (<-chan PubSubMessage, func() error)

	Close() error
}

var _ Client = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

// NewClient connects and pings, failing fast on a bad address. The
// client is constructed once at startup and injected everywhere; no
// lazy global instance exists.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redClient, error) {
	var opts *redis.Options
	if strings.HasPrefix(cfg.URL, "redis://") || strings.HasPrefix(cfg.URL, "rediss://") {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: cfg.URL}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}

	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redClient{cli: c}, nil
}

func (c *redClient) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *redClient) Get(ctx context.Context, key string) (string, error) {
	return c.cli.Get(ctx, key).Result()
}

func (c *redClient) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.cli.Set(ctx, key, value, ttl).Err()
}

func (c *redClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.cli.SetNX(ctx, key, value, ttl).Result()
}

func (c *redClient) Del(ctx context.Context, keys ...string) error {
	return c.cli.Del(ctx, keys...).Err()
}

func (c *redClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.cli.Expire(ctx, key, ttl).Err()
}

func (c *redClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.cli.TTL(ctx, key).Result()
}

func (c *redClient) HSet(ctx context.Context, key string, fields map[string]string) error {
	args := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		args[k] = v
	}
	return c.cli.HSet(ctx, key, args).Err()
}

func (c *redClient) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	return c.cli.HSetNX(ctx, key, field, value).Result()
}

func (c *redClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return c.cli.HGetAll(ctx, key).Result()
}

func (c *redClient) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return c.cli.ZAdd(ctx, key, &redis.Z{Score: score, Member: member}).Err()
}

func (c *redClient) ZCard(ctx context.Context, key string) (int64, error) {
	return c.cli.ZCard(ctx, key).Result()
}

func (c *redClient) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	return c.cli.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Err()
}

func (c *redClient) ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ZMember, error) {
	zs, err := c.cli.ZRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]ZMember, 0, len(zs))
	for _, z := range zs {
		m, _ := z.Member.(string)
		out = append(out, ZMember{Score: z.Score, Member: m})
	}
	return out, nil
}

func (c *redClient) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.cli.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (c *redClient) LPush(ctx context.Context, key, value string) error {
	return c.cli.LPush(ctx, key, value).Err()
}

func (c *redClient) BRPopLPush(ctx context.Context, source, dest string, timeout time.Duration) (string, error) {
	return c.cli.BRPopLPush(ctx, source, dest, timeout).Result()
}

func (c *redClient) LRem(ctx context.Context, key string, count int64, value string) error {
	return c.cli.LRem(ctx, key, count, value).Err()
}

func (c *redClient) Publish(ctx context.Context, channel, payload string) error {
	return c.cli.Publish(ctx, channel, payload).Err()
}

func (c *redClient) PSubscribe(ctx context.Context, pattern string) (<-chan PubSubMessage, func() error) {
	ps := c.cli.PSubscribe(ctx, pattern)
	out := make(chan PubSubMessage, 64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ps.Channel():
				if !ok {
					return
				}
				select {
				case out <- PubSubMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, ps.Close
}

func (c *redClient) Close() error { return c.cli.Close() }

// go-redis takes range bounds as strings.
func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

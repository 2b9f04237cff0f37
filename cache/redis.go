package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces the keys of cached pages in redis.
const KeyPrefix = "yatube:page:"

// RedisConfig describes how to reach the redis server.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Redis is a Store shared by every instance of the app that talks to the same redis server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to redis and checks the connection with a ping.
func NewRedis(ctx context.Context, c RedisConfig, ttl time.Duration) (*Redis, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "connecting to redis at %s", c.Addr)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

var _ Store = &Redis{}

func (r *Redis) Get(ctx context.Context, key string) (*Page, bool, error) {
	b, err := r.client.Get(ctx, KeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "reading cached page")
	}
	var page Page
	if err := json.Unmarshal(b, &page); err != nil {
		return nil, false, errors.Wrap(err, "decoding cached page")
	}
	return &page, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, page *Page) error {
	b, err := json.Marshal(page)
	if err != nil {
		return errors.Wrap(err, "encoding cached page")
	}
	return errors.Wrap(r.client.Set(ctx, KeyPrefix+key, b, r.ttl).Err(), "writing cached page")
}

// Clear deletes every cached page. Keys of other applications are left alone.
func (r *Redis) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, KeyPrefix+"*", 100).Result()
		if err != nil {
			return errors.Wrap(err, "scanning cached pages")
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, "deleting cached pages")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the connection to redis.
func (r *Redis) Close() error {
	return r.client.Close()
}

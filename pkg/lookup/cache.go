package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gowso/bizsites/pkg/model"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "bizsites:lookup:"

// Cache holds resolved lookups. A miss is reported as ok=false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (model.LookupResponse, bool, error)
	Set(ctx context.Context, key string, resp model.LookupResponse) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

// DialRedis connects to addr and checks the connection with a ping.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection to %s failed: %w", addr, err)
	}

	logrus.Infof("Connected to Redis at %s", addr)
	return client, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (model.LookupResponse, bool, error) {
	var resp model.LookupResponse

	data, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return resp, false, nil
	} else if err != nil {
		return resp, false, err
	}

	if err := json.Unmarshal(data, &resp); err != nil {
		return resp, false, err
	}
	return resp, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, resp model.LookupResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, keyPrefix+key, data, r.ttl).Err()
}

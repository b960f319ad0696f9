package infra

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewRedis opens the client shared by the receipt queue and the stock-alert
// notifier. A failed ping aborts startup: both consumers assume the broker
// is reachable.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

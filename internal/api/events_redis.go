package api

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const runEventChannel = "loanplan:runs"

// RedisPublisher broadcasts run events over Redis Pub/Sub.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(url string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisPublisher{rdb: redis.NewClient(opt)}, nil
}

func (p *RedisPublisher) PublishRun(ctx context.Context, evt RunEvent) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	_ = p.rdb.Publish(ctx, runEventChannel, data).Err()
}

package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"fulfillment-workers/internal/common/config"
)

const defaultQueue = "fulfillment"

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(redisCfg config.RedisConfig, queueCfg config.QueueConfig) *Client {
	return &Client{
		client: asynq.NewClient(redisClientOpt(redisCfg)),
		queue:  queueName(queueCfg),
	}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueFulfillment schedules a run for applicationID. A zero delay runs it as
// soon as a consumer is free.
func (c *Client) EnqueueFulfillment(ctx context.Context, applicationID int64, delay time.Duration) (string, error) {
	task, err := NewFulfillmentTask(applicationID)
	if err != nil {
		return "", err
	}

	opts := []asynq.Option{asynq.Queue(c.queue), asynq.MaxRetry(5)}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func redisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func queueName(cfg config.QueueConfig) string {
	if cfg.Name == "" {
		return defaultQueue
	}
	return cfg.Name
}

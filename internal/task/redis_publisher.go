package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher 使用 Redis list 投递任务事件，消费方通过 BRPOP 读取。
type RedisPublisher struct {
	client *redis.Client
	key    string
}

// NewRedisPublisher 基于已建立的连接创建发布器。
func NewRedisPublisher(client *redis.Client, key string) (*RedisPublisher, error) {
	if client == nil {
		return nil, errors.New("Redis client 不能为空")
	}
	if key == "" {
		key = "taskpager:events"
	}
	return &RedisPublisher{client: client, key: key}, nil
}

// Publish 将事件 LPUSH 到 Redis。
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := event.encode()
	if err != nil {
		return fmt.Errorf("编码任务事件失败: %w", err)
	}
	if err := p.client.LPush(ctx, p.key, payload).Err(); err != nil {
		return fmt.Errorf("Redis 发布任务事件失败: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接。与 RedisStore 共用客户端时重复关闭不会报错。
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	if err := p.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}

var _ Publisher = (*RedisPublisher)(nil)

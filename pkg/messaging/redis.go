// Package messaging은 Redis pub/sub 기반 메시지 발행을 제공합니다.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Publisher 메시지 발행 인터페이스
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

// RedisOptions Redis 연결 설정
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// redisPublisher Redis 발행자 구현체
type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher Redis 발행자를 생성하고 연결을 확인합니다
func NewRedisPublisher(ctx context.Context, opts RedisOptions) (Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis 연결 실패: %w", err)
	}

	return &redisPublisher{client: client}, nil
}

// Publish 메시지를 JSON으로 직렬화하여 발행합니다. []byte는 그대로 발행합니다.
func (r *redisPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, ok := message.([]byte)
	if !ok {
		var err error
		payload, err = json.Marshal(message)
		if err != nil {
			return fmt.Errorf("메시지 직렬화 실패: %w", err)
		}
	}

	return r.client.Publish(ctx, channel, payload).Err()
}

// Close Redis 클라이언트 종료
func (r *redisPublisher) Close() error {
	return r.client.Close()
}

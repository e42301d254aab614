package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"wikilist/internal/model"
)

const keyPrefix = "wikilist:chat:"

type RedisClient struct {
	client   *redis.Client
	stateTTL time.Duration
}

func NewRedisClient(addr string, password string, db int, stateTTL time.Duration) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, err
	}

	return &RedisClient{client: client, stateTTL: stateTTL}, nil
}

func key(chatID int64) string {
	return keyPrefix + strconv.FormatInt(chatID, 10)
}

func (r *RedisClient) SaveState(ctx context.Context, chatID int64, state model.SearchState) error {
	data, err := json.Marshal(state)
	if err != nil {
		slog.Error("Error marshaling state", "error", err)
		return err
	}
	return r.client.Set(ctx, key(chatID), data, r.stateTTL).Err()
}

// GetState returns nil without an error when the chat has no saved state
// or it has expired.
func (r *RedisClient) GetState(ctx context.Context, chatID int64) (*model.SearchState, error) {
	data, err := r.client.Get(ctx, key(chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		slog.Error("Error getting state", "error", err)
		return nil, err
	}

	var state model.SearchState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Error("Error unmarshaling state", "error", err)
		return nil, err
	}
	return &state, nil
}

func (r *RedisClient) DeleteState(ctx context.Context, chatID int64) error {
	return r.client.Del(ctx, key(chatID)).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

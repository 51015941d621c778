package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"realty/internal/model"

	"github.com/go-redis/redis/v8"
)

const historyKeyPrefix = "conversation:"

// RedisHistoryStore keeps each session's turns as one JSON value with a sliding TTL
type RedisHistoryStore struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

// NewRedisHistoryStore creates a store on an existing client
func NewRedisHistoryStore(client *redis.Client, maxTurns int, ttl time.Duration) *RedisHistoryStore {
	if maxTurns <= 0 {
		maxTurns = model.DefaultMaxTurns
	}
	return &RedisHistoryStore{client: client, maxTurns: maxTurns, ttl: ttl}
}

func historyKey(sessionID string) string {
	return historyKeyPrefix + sessionID
}

func (r *RedisHistoryStore) Load(ctx context.Context, sessionID string) ([]model.Turn, error) {
	jsonData, err := r.client.Get(ctx, historyKey(sessionID)).Result()
	if err == redis.Nil {
		return []model.Turn{}, nil // No history yet
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	return decodeTurns([]byte(jsonData))
}

func (r *RedisHistoryStore) Save(ctx context.Context, sessionID string, turns []model.Turn) error {
	jsonData, err := encodeTurns(turns, r.maxTurns)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, historyKey(sessionID), jsonData, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set conversation history: %w", err)
	}
	return nil
}

func (r *RedisHistoryStore) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation history: %w", err)
	}
	return nil
}

func (r *RedisHistoryStore) Sessions(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.client.Scan(ctx, 0, historyKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), historyKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan conversation keys: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func encodeTurns(turns []model.Turn, maxTurns int) ([]byte, error) {
	trimmed := model.TrimHistory(turns, maxTurns)
	if trimmed == nil {
		trimmed = []model.Turn{}
	}
	jsonData, err := json.Marshal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation history: %w", err)
	}
	return jsonData, nil
}

func decodeTurns(jsonData []byte) ([]model.Turn, error) {
	var turns []model.Turn
	if err := json.Unmarshal(jsonData, &turns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation history: %w", err)
	}
	return turns, nil
}

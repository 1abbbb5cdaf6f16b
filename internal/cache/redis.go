// Package cache holds the global Redis client and the finished-match queue
// feeding the historian worker.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
// It may stay nil when Redis is unreachable; callers degrade by skipping
// history records.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for finished matches.
var DefaultQueueName = "boardroom_matches"

// MatchRecord holds the minimal info the historian needs to persist one
// finished match.
type MatchRecord struct {
	Game       string          `json:"game"` // "gomoku" or "chess"
	RoomID     string          `json:"room_id"`
	Status     string          `json:"status"`
	Winner     string          `json:"winner,omitempty"`
	MoveCount  int             `json:"move_count"`
	Moves      json.RawMessage `json:"moves"`
	FinishedAt int64           `json:"finished_at"`
}

// Connect initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func Connect() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishMatchRecord serializes the record to JSON and pushes it onto the
// match queue. This does not block the calling logic beyond a quick
// network send.
func PublishMatchRecord(ctx context.Context, record MatchRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal MatchRecord: %w", err)
	}

	queueName := getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

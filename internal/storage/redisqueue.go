package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/valter-silva-au/reminderwave/internal/core"
	"github.com/valter-silva-au/reminderwave/pkg/models"
)

// redisQueue keeps pending notifications in a sorted set scored by fire time
// (unix seconds) plus a hash holding the JSON payload per task ID.
type redisQueue struct {
	client  *redis.Client
	zsetKey string
	hashKey string
}

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisQueue creates a NotificationQueue stored in Redis under keyPrefix.
func NewRedisQueue(client *redis.Client, keyPrefix string) core.NotificationQueue {
	if keyPrefix == "" {
		keyPrefix = "rwave"
	}
	return &redisQueue{
		client:  client,
		zsetKey: keyPrefix + ":reminders:due",
		hashKey: keyPrefix + ":reminders:payload",
	}
}

func (q *redisQueue) Put(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, q.zsetKey, redis.Z{Score: float64(n.FireAt.Unix()), Member: n.TaskID})
		pipe.HSet(ctx, q.hashKey, n.TaskID, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("queueing reminder for %s: %w", n.TaskID, err)
	}
	return nil
}

func (q *redisQueue) Remove(ctx context.Context, taskID string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.zsetKey, taskID)
		pipe.HDel(ctx, q.hashKey, taskID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("removing reminder for %s: %w", taskID, err)
	}
	return nil
}

// ackScript removes a member only while its score is still the delivered fire
// time, so a reschedule racing the dispatcher is kept.
var ackScript = redis.NewScript(`
local score = redis.call("ZSCORE", KEYS[1], ARGV[1])
if score and tonumber(score) == tonumber(ARGV[2]) then
	redis.call("ZREM", KEYS[1], ARGV[1])
	redis.call("HDEL", KEYS[2], ARGV[1])
	return 1
end
return 0
`)

func (q *redisQueue) Ack(ctx context.Context, n models.Notification) error {
	keys := []string{q.zsetKey, q.hashKey}
	if err := ackScript.Run(ctx, q.client, keys, n.TaskID, n.FireAt.Unix()).Err(); err != nil {
		return fmt.Errorf("acknowledging reminder for %s: %w", n.TaskID, err)
	}
	return nil
}

func (q *redisQueue) Due(ctx context.Context, now time.Time) ([]models.Notification, error) {
	ids, err := q.client.ZRangeByScore(ctx, q.zsetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reading due reminders: %w", err)
	}
	return q.load(ctx, ids)
}

func (q *redisQueue) Pending(ctx context.Context) ([]models.Notification, error) {
	ids, err := q.client.ZRange(ctx, q.zsetKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading pending reminders: %w", err)
	}
	return q.load(ctx, ids)
}

func (q *redisQueue) load(ctx context.Context, ids []string) ([]models.Notification, error) {
	result := make([]models.Notification, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	payloads, err := q.client.HMGet(ctx, q.hashKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading reminder payloads: %w", err)
	}
	for i, raw := range payloads {
		s, ok := raw.(string)
		if !ok {
			// Score without payload: a Put or Remove raced us.
			continue
		}
		var n models.Notification
		if err := json.Unmarshal([]byte(s), &n); err != nil {
			return nil, fmt.Errorf("decoding reminder for %s: %w", ids[i], err)
		}
		result = append(result, n)
	}
	sortByFireTime(result)
	return result, nil
}

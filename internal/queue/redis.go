package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meghanaraju/insightq/pkg/models"
	"github.com/redis/go-redis/v9"
)

// dedupeWindow mirrors the 5-minute deduplication window of SQS FIFO queues.
const dedupeWindow = 5 * time.Minute

// groups in receive order. Higher priority lists are drained first, but this
// is a delivery preference, not an ordering guarantee.
var groups = []string{models.PriorityHigh, models.PriorityNormal, models.PriorityLow}

// envelope is the wire form stored in Redis around a caller payload.
type envelope struct {
	Body       json.RawMessage `json:"body"`
	Group      string          `json:"group"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// RedisQueue implements the Queue interface using go-redis/v9.
//
// Ready messages live in one list per priority group. In-flight messages are
// tracked in a sorted set scored by their visibility deadline, with payloads
// in a companion hash keyed by receipt. Receive reclaims expired in-flight
// messages back onto their ready list before popping, which is what makes
// delivery at-least-once across worker crashes.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue creates a new RedisQueue from a Redis URL.
func NewRedisQueue(redisURL string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisQueue{client: redis.NewClient(opts)}, nil
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) Enqueue(ctx context.Context, body []byte, group, dedupeID string) error {
	if !models.ValidPriority(group) {
		group = models.PriorityNormal
	}

	if dedupeID != "" {
		fresh, err := q.client.SetNX(ctx, dedupeKey(dedupeID), 1, dedupeWindow).Result()
		if err != nil {
			return fmt.Errorf("dedupe check: %w", err)
		}
		if !fresh {
			return nil
		}
	}

	env, err := json.Marshal(envelope{
		Body:       body,
		Group:      group,
		EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	if err := q.client.LPush(ctx, readyKey(group), env).Err(); err != nil {
		return fmt.Errorf("enqueue message: %w", err)
	}
	return nil
}

func (q *RedisQueue) Receive(ctx context.Context, max int, wait, visibility time.Duration) ([]Message, error) {
	if max < 1 {
		return nil, nil
	}

	if err := q.reclaimExpired(ctx); err != nil {
		return nil, err
	}

	var msgs []Message
	for _, group := range groups {
		for len(msgs) < max {
			raw, err := q.client.RPop(ctx, readyKey(group)).Result()
			if err == redis.Nil {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("pop message: %w", err)
			}
			msg, err := q.markInFlight(ctx, raw, visibility)
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, msg)
		}
	}

	// Long-poll for one message when nothing was ready, then return with
	// whatever arrived; callers loop anyway.
	if len(msgs) == 0 && wait > 0 {
		keys := make([]string, len(groups))
		for i, g := range groups {
			keys[i] = readyKey(g)
		}
		res, err := q.client.BRPop(ctx, wait, keys...).Result()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("long-poll: %w", err)
		}
		// BRPop returns [key, value].
		msg, err := q.markInFlight(ctx, res[1], visibility)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

func (q *RedisQueue) Delete(ctx context.Context, receipt string) error {
	pipe := q.client.TxPipeline()
	zrem := pipe.ZRem(ctx, inflightKey, receipt)
	pipe.HDel(ctx, inflightPayloadKey, receipt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if zrem.Val() == 0 {
		return ErrReceiptNotFound
	}
	return nil
}

func (q *RedisQueue) ExtendVisibility(ctx context.Context, receipt string, visibility time.Duration) error {
	deadline := float64(time.Now().Add(visibility).UnixMilli())
	if err := q.client.ZAddXX(ctx, inflightKey, redis.Z{Score: deadline, Member: receipt}).Err(); err != nil {
		return fmt.Errorf("extend visibility: %w", err)
	}
	// ZADD XX reports 0 both for updated members and missing ones; check
	// membership explicitly so expired receipts surface as errors.
	if err := q.client.ZScore(ctx, inflightKey, receipt).Err(); err == redis.Nil {
		return ErrReceiptNotFound
	} else if err != nil {
		return fmt.Errorf("extend visibility: %w", err)
	}
	return nil
}

func (q *RedisQueue) Stats(ctx context.Context) (models.QueueStats, error) {
	var stats models.QueueStats
	var oldest time.Time

	for _, group := range groups {
		n, err := q.client.LLen(ctx, readyKey(group)).Result()
		if err != nil {
			return models.QueueStats{}, fmt.Errorf("queue length: %w", err)
		}
		stats.ApproxMessages += int(n)

		// The list tail is the next message popped, which is the oldest.
		raw, err := q.client.LIndex(ctx, readyKey(group), -1).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return models.QueueStats{}, fmt.Errorf("queue tail: %w", err)
		}
		var env envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			continue
		}
		if oldest.IsZero() || env.EnqueuedAt.Before(oldest) {
			oldest = env.EnqueuedAt
		}
	}

	inflight, err := q.client.ZCard(ctx, inflightKey).Result()
	if err != nil {
		return models.QueueStats{}, fmt.Errorf("in-flight count: %w", err)
	}
	stats.ApproxInFlight = int(inflight)

	if !oldest.IsZero() {
		stats.ApproxOldestAgeSecs = int(time.Since(oldest).Seconds())
	}
	return stats, nil
}

// markInFlight assigns a receipt to a popped message and records its
// visibility deadline.
func (q *RedisQueue) markInFlight(ctx context.Context, raw string, visibility time.Duration) (Message, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}

	receipt := uuid.NewString()
	deadline := float64(time.Now().Add(visibility).UnixMilli())

	pipe := q.client.TxPipeline()
	pipe.ZAdd(ctx, inflightKey, redis.Z{Score: deadline, Member: receipt})
	pipe.HSet(ctx, inflightPayloadKey, receipt, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return Message{}, fmt.Errorf("mark in flight: %w", err)
	}

	return Message{
		Body:       env.Body,
		Receipt:    receipt,
		Group:      env.Group,
		EnqueuedAt: env.EnqueuedAt,
	}, nil
}

// reclaimExpired moves in-flight messages whose visibility deadline has
// passed back onto their ready list. ZRem doubles as the claim so two
// consumers never requeue the same receipt.
func (q *RedisQueue) reclaimExpired(ctx context.Context) error {
	now := float64(time.Now().UnixMilli())
	receipts, err := q.client.ZRangeByScore(ctx, inflightKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return fmt.Errorf("scan expired: %w", err)
	}

	for _, receipt := range receipts {
		removed, err := q.client.ZRem(ctx, inflightKey, receipt).Result()
		if err != nil {
			return fmt.Errorf("claim expired: %w", err)
		}
		if removed == 0 {
			continue
		}

		raw, err := q.client.HGet(ctx, inflightPayloadKey, receipt).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("load expired payload: %w", err)
		}
		q.client.HDel(ctx, inflightPayloadKey, receipt)

		var env envelope
		group := models.PriorityNormal
		if err := json.Unmarshal([]byte(raw), &env); err == nil && models.ValidPriority(env.Group) {
			group = env.Group
		}
		if err := q.client.LPush(ctx, readyKey(group), raw).Err(); err != nil {
			return fmt.Errorf("requeue expired: %w", err)
		}
	}
	return nil
}

// Compile-time check that RedisQueue implements Queue.
var _ Queue = (*RedisQueue)(nil)

// README: Delayed job queue on a Redis sorted set scored by run-at time.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const queueKey = "jobs:delayed"

type Kind string

const (
	KindDispatchOffer    Kind = "dispatch.offer"
	KindDispatchEscalate Kind = "dispatch.escalate"
	KindPointsSweep      Kind = "ledger.points_sweep"
)

// Job is a unit of deferred work. Payload is kind specific (an order id for
// escalations). Jobs with the same ID, Kind and Payload are stored once.
type Job struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Payload string    `json:"payload,omitempty"`
	RunAt   time.Time `json:"-"`
}

type Queue struct {
	redis redis.Cmdable
	key   string
}

func NewQueue(rdb redis.Cmdable) *Queue {
	return &Queue{redis: rdb, key: queueKey}
}

// Enqueue schedules job at job.RunAt; a zero RunAt means now.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.RunAt.IsZero() {
		job.RunAt = time.Now()
	}
	member, err := encode(job)
	if err != nil {
		return err
	}
	return q.redis.ZAddNX(ctx, q.key, redis.Z{Score: score(job.RunAt), Member: member}).Err()
}

// Due returns up to limit jobs whose run-at is not after now. Returned jobs
// still have to be claimed.
func (q *Queue) Due(ctx context.Context, now time.Time, limit int64) ([]Job, error) {
	members, err := q.redis.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Job, 0, len(members))
	for _, m := range members {
		job, err := decode(m)
		if err != nil {
			// Unreadable entries would block the head of the queue forever.
			_ = q.redis.ZRem(ctx, q.key, m).Err()
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

// Claim removes job from the queue. Only the caller that removed it may run it.
func (q *Queue) Claim(ctx context.Context, job Job) (bool, error) {
	member, err := encode(job)
	if err != nil {
		return false, err
	}
	n, err := q.redis.ZRem(ctx, q.key, member).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func encode(job Job) (string, error) {
	b, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode job: %w", err)
	}
	return string(b), nil
}

func decode(member string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(member), &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	if job.Kind == "" {
		return Job{}, fmt.Errorf("decode job: missing kind")
	}
	return job, nil
}

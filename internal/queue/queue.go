// Package queue implements a durable Redis-backed job queue with
// at-least-once delivery. Jobs are pushed onto a pending list, moved into a
// per-queue processing list on delivery, and removed only on acknowledgment.
// Jobs left in the processing list by a crashed consumer are eligible for
// redelivery through Recover, so consumers must be idempotent.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
)

// dequeueBlock bounds each blocking pop so consumers can observe context
// cancellation between attempts.
const dequeueBlock = 5 * time.Second

// Job is a unit of background work. FileID is zero for jobs that only
// concern a user (welcome jobs).
type Job struct {
	ID     string `json:"id"`
	UserID int64  `json:"user_id"`
	FileID int64  `json:"file_id,omitempty"`
}

// Delivery is a dequeued job together with the exact payload that must be
// acknowledged once processing finishes.
type Delivery struct {
	Job     Job
	payload string
}

type Queue struct {
	client *redis.Client
	name   string
	genID  func() string
}

func New(client *redis.Client, name string) (*Queue, error) {
	genID, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize job id generator: %w", err)
	}
	return &Queue{client: client, name: name, genID: genID}, nil
}

func (q *Queue) pendingKey() string {
	return fmt.Sprintf("queue:%s:pending", q.name)
}

func (q *Queue) processingKey() string {
	return fmt.Sprintf("queue:%s:processing", q.name)
}

// Enqueue durably appends the job and returns only after it is recorded.
// A zero job ID is filled in before the push.
func (q *Queue) Enqueue(ctx context.Context, job Job) (Job, error) {
	if job.ID == "" {
		job.ID = q.genID()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return Job{}, fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LPush(ctx, q.pendingKey(), payload).Err(); err != nil {
		return Job{}, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return job, nil
}

// Dequeue blocks until a job is available or the block interval elapses,
// returning (nil, nil) on an empty interval so callers can re-check their
// context. The delivered payload is parked in the processing list until Ack.
func (q *Queue) Dequeue(ctx context.Context) (*Delivery, error) {
	payload, err := q.client.BLMove(ctx, q.pendingKey(), q.processingKey(), "RIGHT", "LEFT", dequeueBlock).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		// A payload that cannot be parsed can never be processed; drop it
		// from the processing list so it is not redelivered forever.
		q.client.LRem(ctx, q.processingKey(), 1, payload)
		return nil, fmt.Errorf("failed to unmarshal job payload: %w", err)
	}

	return &Delivery{Job: job, payload: payload}, nil
}

// Ack removes a delivered job from the processing list. Unacknowledged jobs
// remain eligible for redelivery.
func (q *Queue) Ack(ctx context.Context, d *Delivery) error {
	if err := q.client.LRem(ctx, q.processingKey(), 1, d.payload).Err(); err != nil {
		return fmt.Errorf("failed to ack job %s: %w", d.Job.ID, err)
	}
	return nil
}

// Recover moves jobs stranded in the processing list back to pending and
// returns how many were requeued. Run at consumer startup.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.processingKey(), q.pendingKey(), "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to recover jobs: %w", err)
		}
		moved++
	}
}

// Len reports the number of pending jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.pendingKey()).Result()
}

package worker

import (
	"context"
	"time"

	"filevault/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FailureRecord describes a terminally failed job. Failed jobs are recorded
// for operational visibility and never retried by the worker itself.
type FailureRecord struct {
	JobID  string    `json:"job_id"`
	UserID int64     `json:"user_id"`
	FileID int64     `json:"file_id,omitempty"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

type FailureRecorder interface {
	RecordFailure(ctx context.Context, rec FailureRecord)
}

var jobFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "worker_job_failures_total",
	Help: "Terminally failed background jobs by queue.",
}, []string{"queue"})

// LogRecorder surfaces failure records through the structured logger and a
// prometheus counter.
type LogRecorder struct {
	queue string
	log   logging.Logger
}

func NewLogRecorder(queueName string, log logging.Logger) *LogRecorder {
	return &LogRecorder{queue: queueName, log: log}
}

func (r *LogRecorder) RecordFailure(ctx context.Context, rec FailureRecord) {
	jobFailures.WithLabelValues(r.queue).Inc()
	r.log.Error(ctx, "job failed",
		"queue", r.queue,
		"job_id", rec.JobID,
		"user_id", rec.UserID,
		"file_id", rec.FileID,
		"reason", rec.Reason,
		"at", rec.At,
	)
}

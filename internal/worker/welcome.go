package worker

import (
	"context"
	"fmt"
	"time"

	"filevault/internal/logging"
	"filevault/internal/models"
	"filevault/internal/queue"
)

// UserFinder looks up users; satisfied by *database.PostgresStore.
type UserFinder interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// WelcomeWorker greets freshly registered users. It stands in for an email
// sender; today the greeting goes to the log.
type WelcomeWorker struct {
	users    UserFinder
	jobs     JobSource
	recorder FailureRecorder
	log      logging.Logger
}

func NewWelcomeWorker(users UserFinder, jobs JobSource, recorder FailureRecorder, log logging.Logger) *WelcomeWorker {
	return &WelcomeWorker{
		users:    users,
		jobs:     jobs,
		recorder: recorder,
		log:      log.With("worker", "welcome"),
	}
}

func (w *WelcomeWorker) Run(ctx context.Context) {
	runConsumer(ctx, w.jobs, w.log, w.Handle)
}

func (w *WelcomeWorker) Handle(ctx context.Context, job queue.Job) error {
	if job.UserID == 0 {
		w.fail(ctx, job, "Missing userId")
		return nil
	}

	user, err := w.users.GetUserByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", job.UserID, err)
	}
	if user == nil {
		w.fail(ctx, job, "User not found")
		return nil
	}

	w.log.Info(ctx, fmt.Sprintf("Welcome %s", user.Email), "user_id", user.ID)
	return nil
}

func (w *WelcomeWorker) fail(ctx context.Context, job queue.Job, reason string) {
	w.recorder.RecordFailure(ctx, FailureRecord{
		JobID:  job.ID,
		UserID: job.UserID,
		Reason: reason,
		At:     time.Now(),
	})
}

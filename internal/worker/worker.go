// Package worker consumes background jobs from the Redis queues. Each worker
// tolerates redelivery: thumbnail generation overwrites the same derived
// paths, so processing the same job twice is safe.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"filevault/internal/logging"
	"filevault/internal/models"
	"filevault/internal/queue"
	"filevault/internal/storage"

	"github.com/disintegration/imaging"
)

// ThumbnailWidths are the fixed target widths derived from each source image.
var ThumbnailWidths = []int{100, 250, 500}

// FileFinder looks up file metadata; satisfied by *database.PostgresStore.
type FileFinder interface {
	GetFileByID(ctx context.Context, id int64) (*models.FileNode, error)
}

// JobSource is the queue side a consumer needs; satisfied by *queue.Queue.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Delivery, error)
	Ack(ctx context.Context, d *queue.Delivery) error
	Recover(ctx context.Context) (int, error)
}

// ThumbnailWorker resizes uploaded images into the fixed thumbnail widths.
type ThumbnailWorker struct {
	files    FileFinder
	jobs     JobSource
	recorder FailureRecorder
	log      logging.Logger
}

func NewThumbnailWorker(files FileFinder, jobs JobSource, recorder FailureRecorder, log logging.Logger) *ThumbnailWorker {
	return &ThumbnailWorker{
		files:    files,
		jobs:     jobs,
		recorder: recorder,
		log:      log.With("worker", "thumbnail"),
	}
}

// Run consumes jobs until ctx is canceled. Jobs stranded by a previous crash
// are requeued first, which is where at-least-once redelivery comes from.
func (w *ThumbnailWorker) Run(ctx context.Context) {
	runConsumer(ctx, w.jobs, w.log, w.Handle)
}

// Handle processes one job to a terminal state. A returned error means the
// job could not be attempted at all (infrastructure failure) and should stay
// unacknowledged for redelivery; validation and processing failures are
// recorded and terminal.
func (w *ThumbnailWorker) Handle(ctx context.Context, job queue.Job) error {
	if job.UserID == 0 {
		w.fail(ctx, job, "Missing userId")
		return nil
	}
	if job.FileID == 0 {
		w.fail(ctx, job, "Missing fileId")
		return nil
	}

	file, err := w.files.GetFileByID(ctx, job.FileID)
	if err != nil {
		return fmt.Errorf("failed to load file %d: %w", job.FileID, err)
	}
	if file == nil || file.LocalPath == nil {
		w.fail(ctx, job, "File not found")
		return nil
	}

	if err := generateThumbnails(*file.LocalPath); err != nil {
		// Widths already written stay on disk; the job is terminal.
		w.fail(ctx, job, err.Error())
		return nil
	}

	w.log.Info(ctx, "thumbnails generated", "job_id", job.ID, "file_id", job.FileID)
	return nil
}

func (w *ThumbnailWorker) fail(ctx context.Context, job queue.Job, reason string) {
	w.recorder.RecordFailure(ctx, FailureRecord{
		JobID:  job.ID,
		UserID: job.UserID,
		FileID: job.FileID,
		Reason: reason,
		At:     time.Now(),
	})
}

// generateThumbnails writes a resized copy of the source image for each
// target width to <path>_<width>, sequentially. Existing thumbnails are
// overwritten, which makes redelivered jobs harmless.
func generateThumbnails(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read source image: %w", err)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode source image: %w", err)
	}

	for _, width := range ThumbnailWidths {
		resized := imaging.Resize(src, width, 0, imaging.Lanczos)

		out, err := os.Create(storage.ThumbnailPath(path, width))
		if err != nil {
			return fmt.Errorf("failed to create thumbnail %d: %w", width, err)
		}
		if err := imaging.Encode(out, resized, encodeFormat(format)); err != nil {
			out.Close()
			return fmt.Errorf("failed to encode thumbnail %d: %w", width, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("failed to write thumbnail %d: %w", width, err)
		}
	}

	return nil
}

func encodeFormat(format string) imaging.Format {
	switch format {
	case "jpeg":
		return imaging.JPEG
	case "gif":
		return imaging.GIF
	default:
		return imaging.PNG
	}
}

// runConsumer is the shared consume loop: recover stranded jobs, then
// dequeue until the context ends. One job's failure never stops the loop.
func runConsumer(ctx context.Context, jobs JobSource, log logging.Logger, handle func(context.Context, queue.Job) error) {
	moved, err := jobs.Recover(ctx)
	if err != nil {
		log.Error(ctx, "failed to recover stranded jobs", "error", err)
	} else if moved > 0 {
		log.Info(ctx, "requeued stranded jobs", "count", moved)
	}

	for {
		if ctx.Err() != nil {
			return
		}

		d, err := jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error(ctx, "failed to dequeue", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if d == nil {
			continue
		}

		if err := handle(ctx, d.Job); err != nil {
			// Leave the delivery unacknowledged so it can be redelivered.
			log.Error(ctx, "job attempt failed", "job_id", d.Job.ID, "error", err)
			continue
		}

		if err := jobs.Ack(ctx, d); err != nil {
			log.Error(ctx, "failed to ack job", "job_id", d.Job.ID, "error", err)
		}
	}
}

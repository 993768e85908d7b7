// README: Job worker polling the delayed queue and running registered handlers.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KamranYsupov/TaxiDriverBot/internal/observability"
)

type Handler func(ctx context.Context, job Job) error

type Worker struct {
	queue    *Queue
	logger   *zap.Logger
	interval time.Duration
	batch    int64
	handlers map[Kind]Handler
	now      func() time.Time
}

func NewWorker(queue *Queue, logger *zap.Logger, interval time.Duration, batch int64) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 50
	}
	return &Worker{
		queue:    queue,
		logger:   logger,
		interval: interval,
		batch:    batch,
		handlers: make(map[Kind]Handler),
		now:      time.Now,
	}
}

func (w *Worker) Register(kind Kind, h Handler) {
	w.handlers[kind] = h
}

// Run polls until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Starting job worker", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Job worker stopped")
			return
		case <-ticker.C:
			w.RunDue(ctx)
		}
	}
}

// RunDue claims and runs every due job once and returns how many ran.
func (w *Worker) RunDue(ctx context.Context) int {
	due, err := w.queue.Due(ctx, w.now(), w.batch)
	if err != nil {
		w.logger.Error("Failed to read due jobs", zap.Error(err))
		return 0
	}

	ran := 0
	for _, job := range due {
		ok, err := w.queue.Claim(ctx, job)
		if err != nil {
			w.logger.Error("Failed to claim job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		ran++
		w.run(ctx, job)
	}
	return ran
}

func (w *Worker) run(ctx context.Context, job Job) {
	h, ok := w.handlers[job.Kind]
	if !ok {
		w.logger.Warn("No handler for job kind", zap.String("kind", string(job.Kind)), zap.String("job_id", job.ID))
		observability.JobsProcessed.WithLabelValues(string(job.Kind), "unhandled").Inc()
		return
	}
	if err := h(ctx, job); err != nil {
		w.logger.Error("Job failed",
			zap.String("kind", string(job.Kind)),
			zap.String("job_id", job.ID),
			zap.String("payload", job.Payload),
			zap.Error(err))
		observability.JobsProcessed.WithLabelValues(string(job.Kind), "error").Inc()
		return
	}
	observability.JobsProcessed.WithLabelValues(string(job.Kind), "ok").Inc()
}

package audit

import (
	"context"
	"time"

	"github.com/Varun5711/tinyauth/internal/events"
	"github.com/Varun5711/tinyauth/internal/logger"
)

type Source interface {
	Poll(ctx context.Context) ([]events.Message, error)
	Ack(ctx context.Context, ids ...string) error
	// Retry asks for unacknowledged entries to be delivered again.
	Retry()
}

type Worker struct {
	source       Source
	svc          *Service
	log          *logger.Logger
	pollInterval time.Duration
}

func NewWorker(source Source, svc *Service, log *logger.Logger, pollInterval time.Duration) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{source: source, svc: svc, log: log, pollInterval: pollInterval}
}

// Run processes batches until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.ProcessBatch(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			w.log.Error("%v", err)
		case n > 0:
			w.log.Debug("Processed %d auth events", n)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

// ProcessBatch reads one batch, records it and acknowledges it. Entries that
// cannot be decoded are logged and acknowledged. When recording or
// acknowledging fails the batch is handed back to the source for redelivery.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	msgs, err := w.source.Poll(ctx)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	batch := make([]*events.AuthEvent, 0, len(msgs))
	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		ids = append(ids, msg.ID)
		if msg.Err != nil {
			w.log.Warn("Skipping event %s: %v", msg.ID, msg.Err)
			continue
		}
		batch = append(batch, msg.Event)
	}

	if err := w.svc.Record(ctx, batch); err != nil {
		w.source.Retry()
		return 0, err
	}

	if err := w.source.Ack(ctx, ids...); err != nil {
		w.log.Error("Failed to acknowledge messages: %v", err)
		w.source.Retry()
	}
	return len(batch), nil
}

// ReportStats logs login counts per device type every interval until ctx is
// cancelled.
func (w *Worker) ReportStats(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.logStats(ctx)
		}
	}
}

func (w *Worker) logStats(ctx context.Context) {
	stats, err := w.svc.DeviceStats(ctx)
	if err != nil {
		w.log.Warn("Device stats unavailable: %v", err)
		return
	}
	w.log.Info("Logins by device: desktop=%d mobile=%d bot=%d unknown=%d total=%d",
		stats.Desktop, stats.Mobile, stats.Bot, stats.Unknown, stats.Total)
}

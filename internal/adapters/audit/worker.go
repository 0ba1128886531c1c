package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"vaquita/internal/domain"
)

const saveTimeout = 5 * time.Second

// Worker persists audit entries in the background. Log never blocks: when the
// buffer is full the entry is dropped with a warning.
type Worker struct {
	entryCh chan domain.AuditEntry
	repo    domain.AuditRepository
	logger  *slog.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	stopped atomic.Bool
}

func NewWorker(repo domain.AuditRepository, bufferSize int, logger *slog.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		entryCh: make(chan domain.AuditEntry, bufferSize),
		repo:    repo,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Go(func() {
		for {
			select {
			case <-w.ctx.Done():
				w.logger.Info("draining audit entries before shutdown", "remaining_entries", len(w.entryCh))
				for len(w.entryCh) > 0 {
					w.save(<-w.entryCh)
				}
				return
			case entry := <-w.entryCh:
				w.save(entry)
			}
		}
	})
}

func (w *Worker) save(entry domain.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := w.repo.Save(ctx, entry); err != nil {
		w.logger.Error("failed to save audit entry", "error", err, "entry_type", entry.Type, "entry_id", entry.ID)
	}
}

func (w *Worker) Log(entry domain.AuditEntry) {
	if w.stopped.Load() {
		w.logger.Warn("audit worker stopped, dropping entry", "entry_type", entry.Type)
		return
	}
	select {
	case w.entryCh <- entry:
	default:
		w.logger.Warn("audit channel full, dropping entry", "entry_type", entry.Type)
	}
}

// Shutdown stops accepting entries and waits until the buffer is drained.
func (w *Worker) Shutdown() {
	w.stopped.Store(true)
	w.cancel()
	w.wg.Wait()
}

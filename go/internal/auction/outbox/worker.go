package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	PollInterval time.Duration
	BatchSize    int32
	MaxRetries   int
	RetryDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   time.Second,
	}
}

// Worker drains the auction outbox: it polls for unsent events, pushes
// them to the event stream, and marks them sent in the same transaction
// that locked them. Events that fail to publish stay unsent and are
// picked up on a later pass.
type Worker struct {
	database  *sql.DB
	repo      *Repository
	publisher EventPublisher
	cfg       Config
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewWorker(database *sql.DB, publisher EventPublisher, cfg Config, logger *slog.Logger) *Worker {
	return &Worker{
		database:  database,
		repo:      NewRepository(database),
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("outbox worker already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(loopCtx)

	w.logger.Info("outbox worker started",
		slog.Duration("poll_interval", w.cfg.PollInterval),
		slog.Int("batch_size", int(w.cfg.BatchSize)))
	return nil
}

func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("outbox worker stopped")
	return nil
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	// First pass right away; a restart should not wait a full interval
	// to flush whatever accumulated while the worker was down.
	w.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	published, total, err := w.drainOnce(ctx)
	if err != nil {
		w.logger.Error("outbox pass failed", slog.String("error", err.Error()))
		return
	}
	if total > 0 {
		w.logger.Info("outbox pass complete",
			slog.Int("published", published),
			slog.Int("fetched", total))
	}
}

// drainOnce runs a single fetch-publish-mark cycle inside one
// transaction, so FOR UPDATE SKIP LOCKED keeps concurrent workers off
// the same rows.
func (w *Worker) drainOnce(ctx context.Context) (published, total int, err error) {
	txn, err := w.database.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin outbox transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = txn.Rollback()
		}
	}()

	qtx := w.repo.WithTx(txn)

	events, err := qtx.FetchUnsentOutbox(ctx, w.cfg.BatchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch unsent events: %w", err)
	}
	if len(events) == 0 {
		err = txn.Rollback()
		return 0, 0, err
	}

	var sentIDs []uuid.UUID
	for _, event := range events {
		if perr := w.publishWithRetry(ctx, event); perr != nil {
			w.logger.Error("dropping event from this pass",
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType),
				slog.String("league_id", event.LeagueID.String()),
				slog.String("error", perr.Error()))
			continue
		}
		sentIDs = append(sentIDs, event.ID)
	}

	if len(sentIDs) > 0 {
		if err = qtx.MarkOutboxSent(ctx, sentIDs); err != nil {
			return 0, 0, fmt.Errorf("mark events sent: %w", err)
		}
	}

	if err = txn.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit outbox transaction: %w", err)
	}
	return len(sentIDs), len(events), nil
}

func (w *Worker) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		lastErr = w.publisher.Publish(ctx, event)
		if lastErr == nil {
			return nil
		}
		w.logger.Warn("publish failed, retrying",
			slog.String("event_id", event.ID.String()),
			slog.Int("attempt", attempt+1),
			slog.String("error", lastErr.Error()))
	}
	return fmt.Errorf("failed after %d attempts: %w", w.cfg.MaxRetries+1, lastErr)
}

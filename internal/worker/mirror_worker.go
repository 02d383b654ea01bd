package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"smartspend/internal/amqp"
	"smartspend/internal/sheets"
	"smartspend/internal/storage"
)

// Ledger is the bookkeeping the worker needs to apply each change once.
type Ledger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	LastMark(ctx context.Context, expenseID int64) (storage.Mark, bool, error)
	Record(ctx context.Context, e storage.Entry) error
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Consumer delivers events to a handler until the context ends.
type Consumer interface {
	ConsumeExpenseEvents(ctx context.Context, handler amqp.EventHandler) error
}

// MirrorWorker applies expense events to a spreadsheet mirror.
type MirrorWorker struct {
	ledger    Ledger
	mirror    sheets.RowMirror
	retention time.Duration
	now       func() time.Time
}

func NewMirrorWorker(ledger Ledger, mirror sheets.RowMirror, retention time.Duration) *MirrorWorker {
	return &MirrorWorker{ledger: ledger, mirror: mirror, retention: retention, now: time.Now}
}

// HandleEvent mirrors one event. Redelivered events and events older than
// the last mirrored change of the same expense are acknowledged without
// touching the sheet. An error leaves the event unrecorded so it is retried.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	log := slog.With("event_id", ev.EventID, "type", ev.Type, "id", ev.Expense.ID, "epoch", ev.Epoch, "version", ev.Version)

	seen, err := w.ledger.Seen(ctx, ev.EventID)
	if err != nil {
		return fmt.Errorf("check ledger: %w", err)
	}
	if seen {
		log.InfoContext(ctx, "Skipping duplicate event")
		return nil
	}

	entry := storage.Entry{
		EventID:   ev.EventID,
		ExpenseID: ev.Expense.ID,
		Type:      string(ev.Type),
		Epoch:     ev.Epoch,
		Version:   ev.Version,
		At:        ev.Timestamp,
		Deleted:   ev.Type == amqp.EventDeleted,
	}

	last, ok, err := w.ledger.LastMark(ctx, ev.Expense.ID)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if ok && last.Covers(ev.Epoch, ev.Version, ev.Timestamp) {
		log.InfoContext(ctx, "Skipping stale event", "mirrored_epoch", last.Epoch, "mirrored_version", last.Version)
		return w.ledger.Record(ctx, entry)
	}

	switch ev.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		e, err := ev.Expense.ToExpense()
		if err != nil {
			// A malformed snapshot will never succeed; record it so it is not retried.
			log.ErrorContext(ctx, "Dropping event with invalid expense", "error", err)
			return w.ledger.Record(ctx, entry)
		}
		if err := w.mirror.UpsertExpense(ctx, e); err != nil {
			return fmt.Errorf("mirror upsert: %w", err)
		}
	case amqp.EventDeleted:
		if err := w.mirror.DeleteExpense(ctx, ev.Expense.ID); err != nil {
			return fmt.Errorf("mirror delete: %w", err)
		}
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	if err := w.ledger.Record(ctx, entry); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	log.InfoContext(ctx, "Mirrored expense event")
	return nil
}

// PruneOnce drops ledger entries older than the retention window.
func (w *MirrorWorker) PruneOnce(ctx context.Context) (int64, error) {
	return w.ledger.Prune(ctx, w.now().Add(-w.retention))
}

// Run consumes events and prunes the ledger on interval until ctx ends or
// either loop fails.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer, pruneInterval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeExpenseEvents(ctx, w.HandleEvent)
	})

	g.Go(func() error {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := w.PruneOnce(ctx); err != nil {
					slog.ErrorContext(ctx, "Ledger prune failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

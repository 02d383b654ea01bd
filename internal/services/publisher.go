package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"smartspend/internal/amqp"
)

var (
	// ErrPublishQueueFull is returned when events arrive faster than the
	// broker accepts them.
	ErrPublishQueueFull = errors.New("publish queue full")
	ErrPublisherClosed  = errors.New("publisher closed")
)

// AsyncPublisher hands events to a single background sender so a slow or
// unreachable broker never holds up a write. Events keep their order; new
// events are dropped while the queue is full.
type AsyncPublisher struct {
	next    EventPublisher
	timeout time.Duration

	queue   chan *amqp.ExpenseEvent
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	dropped int64
}

// NewAsyncPublisher starts the sender. Each event gets at most timeout to
// reach next.
func NewAsyncPublisher(next EventPublisher, size int, timeout time.Duration) *AsyncPublisher {
	if size < 1 {
		size = 1
	}
	p := &AsyncPublisher{
		next:    next,
		timeout: timeout,
		queue:   make(chan *amqp.ExpenseEvent, size),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// PublishExpenseEvent queues ev without waiting for the broker.
func (p *AsyncPublisher) PublishExpenseEvent(_ context.Context, ev *amqp.ExpenseEvent) error {
	select {
	case <-p.stop:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.queue <- ev:
		return nil
	default:
		atomic.AddInt64(&p.dropped, 1)
		return ErrPublishQueueFull
	}
}

// Dropped returns how many events were refused because the queue was full.
func (p *AsyncPublisher) Dropped() int64 {
	return atomic.LoadInt64(&p.dropped)
}

// Close stops accepting events and waits until the queued ones are sent or
// ctx ends.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.once.Do(func() { close(p.stop) })
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for {
		select {
		case ev := <-p.queue:
			p.send(ev)
		case <-p.stop:
			for {
				select {
				case ev := <-p.queue:
					p.send(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *AsyncPublisher) send(ev *amqp.ExpenseEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.next.PublishExpenseEvent(ctx, ev); err != nil {
		slog.Error("Failed to publish expense event",
			"event_id", ev.EventID,
			"type", ev.Type,
			"id", ev.Expense.ID,
			"error", err)
	}
}

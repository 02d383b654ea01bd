package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"smartspend/internal/amqp"
	"smartspend/internal/core"
	"smartspend/internal/store"
)

// ErrMissingRequired is returned when the title or the amount is blank.
var ErrMissingRequired = errors.New("title and amount are required")

// MissingRequiredMessage is shown to users for ErrMissingRequired.
const MissingRequiredMessage = "Please fill in title and amount"

// ExpenseInput holds raw form values before conversion.
type ExpenseInput struct {
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

// ToExpense applies the form defaults (category Other, date today) and
// converts the input. Only the required-fields check and parsing happen here;
// length limits are enforced by the store.
func (in ExpenseInput) ToExpense(today core.Date) (core.Expense, error) {
	title := strings.TrimSpace(in.Title)
	amount := strings.TrimSpace(in.Amount)
	if title == "" || amount == "" {
		return core.Expense{}, ErrMissingRequired
	}
	m, err := core.ParseAmount(amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("amount %q: %w", amount, err)
	}
	cat, err := core.ParseCategory(in.Category)
	if err != nil {
		return core.Expense{}, fmt.Errorf("category %q: %w", in.Category, err)
	}
	date := today
	if strings.TrimSpace(in.Date) != "" {
		if date, err = core.ParseDate(in.Date); err != nil {
			return core.Expense{}, fmt.Errorf("date %q: %w", in.Date, err)
		}
	}
	return core.Expense{
		Title:       title,
		Amount:      m,
		Category:    cat,
		Date:        date,
		Description: strings.TrimSpace(in.Description),
	}, nil
}

// InputFrom is the inverse of ToExpense, used to prefill the edit form.
func InputFrom(e core.Expense) ExpenseInput {
	return ExpenseInput{
		Title:       e.Title,
		Amount:      e.Amount.Decimal(),
		Category:    e.Category.String(),
		Date:        e.Date.ISO(),
		Description: e.Description,
	}
}

// EventPublisher sends expense lifecycle events.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService orchestrates the in-memory collection and the optional
// event publisher. Writes go to the store first; publish failures are logged
// and never fail the request.
type ExpenseService struct {
	store     store.Store
	publisher EventPublisher
	today     func() core.Date

	// mu orders a write with the version it produced.
	mu sync.Mutex
}

// NewExpenseService wires the store with an optional publisher (nil disables events).
func NewExpenseService(s store.Store, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{store: s, publisher: publisher, today: core.Today}
}

func (s *ExpenseService) CreateExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	e, err := in.ToExpense(s.today())
	if err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	created, err := s.store.Create(ctx, e)
	version := s.store.Version()
	s.mu.Unlock()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	slog.DebugContext(ctx, "Expense stored", "id", created.ID, "category", created.Category, "amount_cents", created.Amount.Cents)
	s.publish(ctx, amqp.EventCreated, created, version)
	return created, nil
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, id int64, in ExpenseInput) (core.Expense, error) {
	e, err := in.ToExpense(s.today())
	if err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	updated, err := s.store.Update(ctx, id, e)
	version := s.store.Version()
	s.mu.Unlock()
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}
	slog.DebugContext(ctx, "Expense replaced", "id", id)
	s.publish(ctx, amqp.EventUpdated, updated, version)
	return updated, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	s.mu.Lock()
	removed, err := s.store.Delete(ctx, id)
	version := s.store.Version()
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	slog.DebugContext(ctx, "Expense removed", "id", id)
	s.publish(ctx, amqp.EventDeleted, removed, version)
	return nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return items, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// Snapshot returns the collection together with the version it was read at.
func (s *ExpenseService) Snapshot(ctx context.Context) ([]core.Expense, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	return items, s.store.Version(), nil
}

func (s *ExpenseService) Version() uint64 {
	return s.store.Version()
}

func (s *ExpenseService) publish(ctx context.Context, t amqp.EventType, e core.Expense, version uint64) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewExpenseEvent(t, e, s.store.Epoch(), version)
	if err := s.publisher.PublishExpenseEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", t, "id", e.ID, "error", err)
	}
}

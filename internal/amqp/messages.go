package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smartspend/internal/core"
)

// EventType names an expense lifecycle change.
type EventType string

const (
	EventCreated EventType = "expense.created"
	EventUpdated EventType = "expense.updated"
	EventDeleted EventType = "expense.deleted"
)

func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// ExpensePayload is the wire form of an expense snapshot.
type ExpensePayload struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

// ExpenseEvent carries the full expense so consumers never read back from the
// web process. Version is the collection version right after the change and
// only orders events that share an Epoch; the web process starts a new
// epoch every time it boots.
type ExpenseEvent struct {
	EventID   string         `json:"event_id"`
	Type      EventType      `json:"type"`
	Epoch     string         `json:"epoch"`
	Version   uint64         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Expense   ExpensePayload `json:"expense"`
}

// NewExpenseEvent creates an event with a fresh random ID.
func NewExpenseEvent(t EventType, e core.Expense, epoch string, version uint64) *ExpenseEvent {
	return &ExpenseEvent{
		EventID:   uuid.NewString(),
		Type:      t,
		Epoch:     epoch,
		Version:   version,
		Timestamp: time.Now().UTC(),
		Expense:   PayloadFrom(e),
	}
}

func PayloadFrom(e core.Expense) ExpensePayload {
	return ExpensePayload{
		ID:          e.ID,
		Title:       e.Title,
		AmountCents: e.Amount.Cents,
		Category:    e.Category.String(),
		Date:        e.Date.ISO(),
		Description: e.Description,
	}
}

// ToExpense converts the payload back into a validated domain expense.
func (p ExpensePayload) ToExpense() (core.Expense, error) {
	cat, err := core.ParseCategory(p.Category)
	if err != nil {
		return core.Expense{}, fmt.Errorf("category %q: %w", p.Category, err)
	}
	d, err := core.ParseDate(p.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("date %q: %w", p.Date, err)
	}
	e := core.Expense{
		ID:          p.ID,
		Title:       p.Title,
		Amount:      core.Money{Cents: p.AmountCents},
		Category:    cat,
		Date:        d,
		Description: p.Description,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event and checks the fields consumers rely on.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.EventID == "" {
		return nil, errors.New("missing event_id")
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.Expense.ID <= 0 {
		return nil, errors.New("missing expense id")
	}
	return &msg, nil
}

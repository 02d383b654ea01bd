package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"smartspend/internal/core"
	"smartspend/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps the expense collection in process memory. Nothing survives a
// restart, so every Store gets a fresh epoch and versions restart at zero.
type Store struct {
	mu      sync.RWMutex
	items   []core.Expense
	version uint64
	epoch   string
}

func New(seed []core.Expense) *Store {
	s := &Store{items: make([]core.Expense, 0, len(seed)), epoch: uuid.NewString()}
	// Seeds without an id are numbered after every explicit one.
	next := core.NextID(seed)
	for _, e := range seed {
		if e.ID <= 0 {
			e.ID = next
			next++
		}
		s.items = append(s.items, e)
	}
	return s
}

// SeedRecord is the YAML shape of a seeded expense.
type SeedRecord struct {
	ID          int64  `yaml:"id,omitempty"`
	Title       string `yaml:"title"`
	Amount      string `yaml:"amount"`
	Category    string `yaml:"category,omitempty"`
	Date        string `yaml:"date"`
	Description string `yaml:"description,omitempty"`
}

// DemoExpenses returns the collection shown on first launch.
func DemoExpenses() []core.Expense {
	return []core.Expense{
		{ID: 1, Title: "Coffee", Amount: core.Money{Cents: 15000}, Category: core.FoodDining, Date: core.NewDate(2024, 1, 15), Description: "Morning coffee"},
		{ID: 2, Title: "Auto Ride", Amount: core.Money{Cents: 25000}, Category: core.Transportation, Date: core.NewDate(2024, 1, 14), Description: "Morning commute"},
		{ID: 3, Title: "Movie Tickets", Amount: core.Money{Cents: 60000}, Category: core.Entertainment, Date: core.NewDate(2024, 1, 13), Description: "Cinema with friends"},
	}
}

// NewFromFile seeds the store from a YAML file. A missing file falls back
// to the demo expenses; a malformed one is an error.
func NewFromFile(path string) (*Store, error) {
	seed, err := LoadSeed(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("Seed file not found, using demo expenses", "path", path)
		return New(DemoExpenses()), nil
	}
	if err != nil {
		return nil, err
	}
	return New(seed), nil
}

// LoadSeed reads and validates a YAML list of expenses.
func LoadSeed(path string) ([]core.Expense, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return DecodeSeed(raw)
}

// DecodeSeed parses YAML seed data.
func DecodeSeed(raw []byte) ([]core.Expense, error) {
	var records []SeedRecord
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	out := make([]core.Expense, 0, len(records))
	seen := map[int64]struct{}{}
	for i, r := range records {
		amount, err := core.ParseAmount(r.Amount)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d (%q): %w", i, r.Title, err)
		}
		cat, err := core.ParseCategory(r.Category)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d (%q): %w", i, r.Title, err)
		}
		date, err := core.ParseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d (%q): %w", i, r.Title, err)
		}
		e := core.Expense{ID: r.ID, Title: r.Title, Amount: amount, Category: cat, Date: date, Description: r.Description}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("seed entry %d (%q): %w", i, r.Title, err)
		}
		if e.ID > 0 {
			if _, dup := seen[e.ID]; dup {
				return nil, fmt.Errorf("seed entry %d: duplicate id %d", i, e.ID)
			}
			seen[e.ID] = struct{}{}
		}
		out = append(out, e)
	}
	return out, nil
}

// EncodeSeed renders expenses in the seed format.
func EncodeSeed(expenses []core.Expense) ([]byte, error) {
	records := make([]SeedRecord, len(expenses))
	for i, e := range expenses {
		records[i] = SeedRecord{
			ID:          e.ID,
			Title:       e.Title,
			Amount:      e.Amount.Decimal(),
			Category:    e.Category.String(),
			Date:        e.Date.ISO(),
			Description: e.Description,
		}
	}
	return yaml.Marshal(records)
}

// Create stores the expense under max(ids)+1.
func (s *Store) Create(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = core.NextID(s.items)
	s.items = append(s.items, e)
	s.version++
	return e, nil
}

// Update replaces the expense in place, keeping its position and id.
func (s *Store) Update(_ context.Context, id int64, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, store.ErrNotFound
	}
	e.ID = id
	s.items[i] = e
	s.version++
	return e, nil
}

// Delete removes the expense and returns what was removed.
func (s *Store) Delete(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, store.ErrNotFound
	}
	removed := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.version++
	return removed, nil
}

// List returns a copy of the collection in insertion order.
func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Expense(nil), s.items...), nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Expense{}, store.ErrNotFound
	}
	return s.items[i], nil
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Epoch identifies this store instance. Versions are only comparable
// within one epoch.
func (s *Store) Epoch() string {
	return s.epoch
}

func (s *Store) indexOf(id int64) int {
	for i, e := range s.items {
		if e.ID == id {
			return i
		}
	}
	return -1
}

package memory

import (
	"context"
	"sync"

	"smartspend/internal/core"
	ports "smartspend/internal/sheets"
)

var _ ports.RowMirror = (*Mirror)(nil)

// Mirror is an in-process RowMirror used when no spreadsheet is configured.
type Mirror struct {
	mu   sync.Mutex
	rows []core.Expense

	// Err, when set, is returned by every call without touching the rows.
	Err error
}

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) UpsertExpense(_ context.Context, e core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if i := m.indexOf(e.ID); i >= 0 {
		m.rows[i] = e
		return nil
	}
	m.rows = append(m.rows, e)
	return nil
}

func (m *Mirror) DeleteExpense(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if i := m.indexOf(id); i >= 0 {
		m.rows = append(m.rows[:i], m.rows[i+1:]...)
	}
	return nil
}

// Rows returns a copy of the mirrored rows in sheet order.
func (m *Mirror) Rows() []core.Expense {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Expense(nil), m.rows...)
}

func (m *Mirror) indexOf(id int64) int {
	for i, e := range m.rows {
		if e.ID == id {
			return i
		}
	}
	return -1
}

package store

import (
	"context"
	"errors"

	"smartspend/internal/core"
)

// ErrNotFound is returned when no expense has the requested identifier.
var ErrNotFound = errors.New("expense not found")

// Ports for the expense collection.
type (
	ExpenseWriter interface {
		// Create assigns the next identifier and stores the expense.
		Create(ctx context.Context, e core.Expense) (core.Expense, error)
		// Update replaces the expense with the given id in place.
		Update(ctx context.Context, id int64, e core.Expense) (core.Expense, error)
	}

	ExpenseDeleter interface {
		Delete(ctx context.Context, id int64) (core.Expense, error)
	}

	// ExpenseLister returns expenses in insertion order.
	ExpenseLister interface {
		List(ctx context.Context) ([]core.Expense, error)
		Get(ctx context.Context, id int64) (core.Expense, error)
	}

	// Versioned exposes a counter bumped on every mutation and the epoch
	// the counter belongs to.
	Versioned interface {
		Version() uint64
		Epoch() string
	}

	Store interface {
		ExpenseWriter
		ExpenseDeleter
		ExpenseLister
		Versioned
	}
)

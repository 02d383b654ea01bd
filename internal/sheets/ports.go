package sheets

import (
	"context"

	"smartspend/internal/core"
)

// Ports for outbound adapters.
type (
	// RowMirror keeps one spreadsheet row per expense, keyed by expense ID.
	RowMirror interface {
		// UpsertExpense writes the expense row, appending it when missing.
		UpsertExpense(ctx context.Context, e core.Expense) error
		// DeleteExpense removes the row; a missing row is not an error.
		DeleteExpense(ctx context.Context, id int64) error
	}
)

// Header is the first row of the mirrored sheet.
var Header = []string{"ID", "Date", "Title", "Category", "Amount", "Description"}

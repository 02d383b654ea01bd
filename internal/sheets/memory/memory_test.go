package memory

import (
	"context"
	"errors"
	"testing"

	"smartspend/internal/core"
)

func TestMirrorUpsertAndDelete(t *testing.T) {
	m := New()
	ctx := context.Background()
	e := core.Expense{ID: 1, Title: "Coffee", Amount: core.Money{Cents: 15000}, Category: core.FoodDining, Date: core.NewDate(2024, 1, 15)}

	if err := m.UpsertExpense(ctx, e); err != nil {
		t.Fatalf("UpsertExpense: %v", err)
	}
	e.Title = "Espresso"
	if err := m.UpsertExpense(ctx, e); err != nil {
		t.Fatalf("UpsertExpense: %v", err)
	}
	rows := m.Rows()
	if len(rows) != 1 || rows[0].Title != "Espresso" {
		t.Fatalf("upsert should replace the row: %+v", rows)
	}

	if err := m.DeleteExpense(ctx, 1); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if err := m.DeleteExpense(ctx, 1); err != nil {
		t.Fatalf("deleting a missing row should succeed: %v", err)
	}
	if len(m.Rows()) != 0 {
		t.Fatalf("expected no rows")
	}
}

func TestMirrorErr(t *testing.T) {
	m := New()
	m.Err = errors.New("quota exceeded")
	if err := m.UpsertExpense(context.Background(), core.Expense{ID: 1}); !errors.Is(err, m.Err) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if len(m.Rows()) != 0 {
		t.Fatalf("failed upsert must not write")
	}
}

package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"smartspend/internal/core"
	"smartspend/internal/insight"
	"smartspend/internal/log"
	"smartspend/internal/stats"
)

type expenseJSON struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	AmountCents int64   `json:"amount_cents"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description,omitempty"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Title:       e.Title,
		Amount:      e.Amount.Float(),
		AmountCents: e.Amount.Cents,
		Category:    e.Category.String(),
		Date:        e.Date.ISO(),
		Description: e.Description,
	}
}

type categoryJSON struct {
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	Display     string `json:"display"`
	Share       int    `json:"share"`
	Color       string `json:"color"`
}

type trendJSON struct {
	Date        string `json:"date"`
	Label       string `json:"label"`
	AmountCents int64  `json:"amount_cents"`
}

type summaryJSON struct {
	Currency     core.Currency  `json:"currency"`
	Count        int            `json:"count"`
	TotalCents   int64          `json:"total_cents"`
	Total        string         `json:"total"`
	AverageCents int64          `json:"average_cents"`
	Average      string         `json:"average"`
	ByCategory   []categoryJSON `json:"by_category"`
	Trend        []trendJSON    `json:"trend"`
	Top          *categoryJSON  `json:"top"`
}

func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classifyError(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "API request failed", "error", err, log.FieldPath, r.URL.Path)
	}
	writeJSONError(w, status, msg)
}

func (s *Server) handleAPIListExpenses(w http.ResponseWriter, r *http.Request) {
	items, version, err := s.expenses.Snapshot(r.Context())
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	out := make([]expenseJSON, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenseJSON(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out, "version": version})
}

func (s *Server) handleAPIGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	e, err := s.expenses.GetExpense(r.Context(), id)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseJSON(e))
}

func (s *Server) handleAPICreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := ParseExpenseInput(w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	e, err := s.expenses.CreateExpense(r.Context(), in)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.expensesCreated, 1)
	s.eventLog(r).LogExpenseChange(r.Context(), log.OpCreate, e.ID, e.Title, e.Amount.Cents, e.Category.String())
	w.Header().Set("Location", "/api/expenses/"+itoa64(e.ID))
	writeJSON(w, http.StatusCreated, toExpenseJSON(e))
}

func (s *Server) handleAPIUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	in, err := ParseExpenseInput(w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	e, err := s.expenses.UpdateExpense(r.Context(), id, in)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.expensesUpdated, 1)
	s.eventLog(r).LogExpenseChange(r.Context(), log.OpUpdate, e.ID, e.Title, e.Amount.Cents, e.Category.String())
	writeJSON(w, http.StatusOK, toExpenseJSON(e))
}

func (s *Server) handleAPIDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = s.expenses.DeleteExpense(r.Context(), id)
	}
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.expensesDeleted, 1)
	s.eventLog(r).LogExpenseChange(r.Context(), log.OpDelete, id, "", 0, "")
	w.WriteHeader(http.StatusNoContent)
}

// handleAPISummary returns the dashboard aggregates. ?currency= picks the
// display strings; the cent values do not depend on it.
func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	items, _, err := s.expenses.Snapshot(r.Context())
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	cur := s.requestCurrency(r)
	sum := stats.Summarize(items)

	out := summaryJSON{
		Currency:     cur,
		Count:        sum.Count,
		TotalCents:   sum.Total.Cents,
		Total:        cur.Format(sum.Total),
		AverageCents: sum.Average.Cents,
		Average:      cur.Format(sum.Average),
		ByCategory:   make([]categoryJSON, 0, len(sum.ByCategory)),
		Trend:        make([]trendJSON, 0, len(sum.Trend)),
	}
	category := func(c core.CategoryAmount) categoryJSON {
		return categoryJSON{
			Category:    c.Name.String(),
			AmountCents: c.Amount.Cents,
			Display:     cur.Format(c.Amount),
			Share:       stats.Share(c.Amount, sum.Total),
			Color:       c.Color,
		}
	}
	for _, c := range sum.ByCategory {
		out.ByCategory = append(out.ByCategory, category(c))
	}
	for _, p := range sum.Trend {
		out.Trend = append(out.Trend, trendJSON{Date: p.Date.ISO(), Label: core.TrendLabel(p.Date), AmountCents: p.Amount.Cents})
	}
	if sum.Top != nil {
		top := category(*sum.Top)
		out.Top = &top
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPIInsight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, version, err := s.expenses.Snapshot(ctx)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	res, err := s.insights.Generate(ctx, version, items, s.requestCurrency(r))
	switch {
	case errors.Is(err, insight.ErrNoExpenses):
		writeJSONError(w, http.StatusUnprocessableEntity, noExpensesMessage)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.DebugContext(ctx, "Insight request abandoned", "error", err)
		return
	case err != nil:
		s.eventLog(r).LogError(ctx, "Insight generation failed", err, log.ComponentInsight, log.OpInsight, nil)
		writeJSONError(w, http.StatusInternalServerError, "Could not generate insights, please try again")
		return
	}
	atomic.AddInt64(&s.appMetrics.insightsGenerated, 1)
	writeJSON(w, http.StatusOK, map[string]any{
		"text":         res.Text,
		"sentences":    res.Sentences,
		"currency":     res.Currency,
		"generated_at": res.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

package http

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"

	"smartspend/internal/insight"
	"smartspend/internal/log"
	"smartspend/internal/stats"
)

const noExpensesMessage = "Add some expenses first to get AI insights!"

func (s *Server) handleInsightsPage(w http.ResponseWriter, r *http.Request) {
	items, _, err := s.expenses.Snapshot(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load expenses", "error", err)
		http.Error(w, "failed to load expenses", http.StatusInternalServerError)
		return
	}
	sum := stats.Summarize(items)
	s.render(w, r, "insights_page", insightsView{
		layoutView:  s.layout(r, "insights", "AI Insights"),
		Summary:     sum,
		CanGenerate: !sum.Empty(),
	})
}

// handleGenerateInsight waits for the generator and swaps the result into
// the insights card. Without htmx the whole page is rendered with it.
func (s *Server) handleGenerateInsight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, version, err := s.expenses.Snapshot(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load expenses", "error", err)
		InternalServerError("Could not load expenses").Write(w)
		return
	}
	sum := stats.Summarize(items)
	cur := s.prefs(r).Currency

	view := insightsView{
		layoutView:  s.layout(r, "insights", "AI Insights"),
		Summary:     sum,
		CanGenerate: !sum.Empty(),
	}

	res, err := s.insights.Generate(ctx, version, items, cur)
	switch {
	case errors.Is(err, insight.ErrNoExpenses):
		if isHTMX(r) {
			UnprocessableEntityError(noExpensesMessage).Write(w)
			return
		}
		view.Error = noExpensesMessage
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "insights_page", view)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away; nobody is left to read a response.
		s.logger.DebugContext(ctx, "Insight request abandoned", "error", err)
		return
	case err != nil:
		s.eventLog(r).LogError(ctx, "Insight generation failed", err, log.ComponentInsight, log.OpInsight, nil)
		InternalServerError("Could not generate insights, please try again").Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.insightsGenerated, 1)

	if isHTMX(r) {
		s.render(w, r, "insight_result", &res)
		return
	}
	view.Result = &res
	s.render(w, r, "insights_page", view)
}

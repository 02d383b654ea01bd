package http

import (
	"net/http"

	"smartspend/internal/chart"
	"smartspend/internal/stats"
)

// handleDashboard renders the stat cards and the three charts. Aggregates
// are recomputed from the current snapshot on every request.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	items, _, err := s.expenses.Snapshot(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to load expenses", "error", err)
		http.Error(w, "failed to load expenses", http.StatusInternalServerError)
		return
	}
	sum := stats.Summarize(items)
	s.render(w, r, "dashboard_page", dashboardView{
		layoutView: s.layout(r, "dashboard", "Dashboard"),
		Summary:    sum,
		Trend:      chart.Line(sum.Trend, trendWidth, trendHeight),
		Pie:        chart.Pie(sum.ByCategory, pieRadius),
		Bars:       chart.Bars(sum.ByCategory, barsWidth, barsHeight),
	})
}

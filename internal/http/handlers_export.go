package http

import (
	"net/http"
	"sync/atomic"
	"time"

	"smartspend/internal/export"
	"smartspend/internal/log"
	"smartspend/internal/stats"
)

// handleExport streams the collection and its aggregates as an xlsx
// workbook in the display currency.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, _, err := s.expenses.Snapshot(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load expenses", "error", err)
		http.Error(w, "failed to load expenses", http.StatusInternalServerError)
		return
	}
	cur := s.requestCurrency(r)
	data, err := export.Workbook(items, stats.Summarize(items), cur)
	if err != nil {
		s.eventLog(r).LogError(ctx, "Workbook export failed", err, log.ComponentExport, log.OpExport, nil)
		http.Error(w, "failed to build workbook", http.StatusInternalServerError)
		return
	}
	atomic.AddInt64(&s.appMetrics.exports, 1)

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename(time.Now())+`"`)
	w.Header().Set("Content-Length", itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

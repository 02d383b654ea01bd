package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// appMetrics counts domain events for /metrics.
type appMetrics struct {
	uptime            time.Time
	expensesCreated   int64
	expensesUpdated   int64
	expensesDeleted   int64
	insightsGenerated int64
	exports           int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{uptime: time.Now()}
}

// handleHealth is a liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady checks templates, the collection and every optional
// dependency registered in ReadyChecks.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)
	fail := func(name string, err error) {
		checks[name] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", fmt.Errorf("templates not loaded"))
	} else {
		checks["templates"] = "ok"
	}

	if _, version, err := s.expenses.Snapshot(ctx); err != nil {
		fail("expenses", err)
	} else {
		checks["expenses"] = map[string]any{"status": "ok", "version": version}
	}

	names := make([]string, 0, len(s.readyChecks))
	for name := range s.readyChecks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.readyChecks[name](ctx); err != nil {
			fail(name, err)
			continue
		}
		checks[name] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics exposes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v float64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors)
	gauge("http_request_duration_avg_seconds", "Mean request latency", traceMetrics.AverageResponseTime().Seconds())
	counter("expenses_created_total", "Expenses created", atomic.LoadInt64(&s.appMetrics.expensesCreated))
	counter("expenses_updated_total", "Expenses updated", atomic.LoadInt64(&s.appMetrics.expensesUpdated))
	counter("expenses_deleted_total", "Expenses deleted", atomic.LoadInt64(&s.appMetrics.expensesDeleted))
	counter("insights_generated_total", "Insights generated", atomic.LoadInt64(&s.appMetrics.insightsGenerated))
	counter("exports_total", "Workbooks exported", atomic.LoadInt64(&s.appMetrics.exports))
	counter("rate_limit_hits_total", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	counter("suspicious_requests_total", "Requests flagged as suspicious", securityMetrics.SuspiciousRequests)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", float64(rateLimitMetrics.ClientCount))
	gauge("uptime_seconds", "Application uptime in seconds", time.Since(s.appMetrics.uptime).Seconds())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

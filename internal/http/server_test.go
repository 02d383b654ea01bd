package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"smartspend/internal/core"
	"smartspend/internal/insight"
	"smartspend/internal/log"
	"smartspend/internal/services"
	"smartspend/internal/store/memory"
)

func newTestServer(t *testing.T, seed []core.Expense) *Server {
	t.Helper()
	svc := services.NewExpenseService(memory.New(seed), nil)
	srv := NewServer(Options{
		Addr:     ":0",
		Expenses: svc,
		Insights: insight.NewGenerator(0),
		Logger:   log.New(log.Config{Output: io.Discard}),
	})
	if srv.templates == nil {
		t.Fatal("templates failed to parse")
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func htmx(req *http.Request) *http.Request {
	req.Header.Set("HX-Request", "true")
	return req
}

func TestRootRedirectsToDashboard(t *testing.T) {
	srv := newTestServer(t, memory.DemoExpenses())
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("Location=%q", loc)
	}
}

func TestDashboardShowsAggregates(t *testing.T) {
	srv := newTestServer(t, memory.DemoExpenses())
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"SmartSpend AI", "Total Spent", "₹1,000", "3 transactions",
		"Average Expense", "₹333.33", "Active categories",
		"Spending Trend", "By Category", "Category Breakdown", "<polyline",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if cc := rr.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Errorf("Cache-Control=%q", cc)
	}
}

func TestDashboardEmptyState(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "No expenses yet. Add one to get started!") {
		t.Error("empty state message missing")
	}
	if strings.Contains(body, "<polyline") {
		t.Error("charts should not render without expenses")
	}
}

func TestCurrencyCookieSwitchesFormatting(t *testing.T) {
	srv := newTestServer(t, memory.DemoExpenses())

	rr := do(srv, formRequest(http.MethodPost, "/prefs/currency", url.Values{"currency": {"USD"}}))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != cookieCurrency || cookies[0].Value != "USD" {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	body := do(srv, req).Body.String()
	if !strings.Contains(body, "$1000.00") {
		t.Error("dashboard should format amounts in USD")
	}
}

func TestThemeToggle(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(srv, htmx(httptest.NewRequest(http.MethodPost, "/prefs/theme", nil)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get("HX-Refresh") != "true" {
		t.Error("htmx theme change should refresh the page")
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != themeLight {
		t.Fatalf("default dark should toggle to light, got %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	if body := do(srv, req).Body.String(); !strings.Contains(body, `class="light"`) {
		t.Error("light theme class missing")
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(srv, htmx(formRequest(http.MethodPost, "/expenses", url.Values{"title": {""}, "amount": {"10"}})))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), services.MissingRequiredMessage) {
		t.Fatalf("body=%q", rr.Body.String())
	}
	if rr.Header().Get("HX-Retarget") != "#form-errors" {
		t.Error("error should be retargeted to the form")
	}

	// Without htmx the whole page comes back with the form kept filled in.
	rr = do(srv, formRequest(http.MethodPost, "/expenses", url.Values{"title": {"Lunch"}, "amount": {"-5"}}))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "My Expenses") || !strings.Contains(body, `value="Lunch"`) {
		t.Error("full page with the submitted form expected")
	}
}

func TestCreateExpenseHTMX(t *testing.T) {
	srv := newTestServer(t, nil)

	form := url.Values{"title": {"Lunch"}, "amount": {"250"}, "category": {"Food & Dining"}, "date": {"2024-02-01"}}
	rr := do(srv, htmx(formRequest(http.MethodPost, "/expenses", form)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var triggers map[string]any
	if err := json.Unmarshal([]byte(rr.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger: %v", err)
	}
	for _, ev := range []string{EventExpensesChanged, EventFormClose, EventNotification} {
		if _, ok := triggers[ev]; !ok {
			t.Errorf("missing trigger %q", ev)
		}
	}

	list := do(srv, httptest.NewRequest(http.MethodGet, "/expenses/list", nil)).Body.String()
	if !strings.Contains(list, "Lunch") || !strings.Contains(list, "₹250") || !strings.Contains(list, "Feb 1, 2024") {
		t.Fatalf("list missing new expense: %s", list)
	}
}

func TestCreateExpenseWithoutJavaScript(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(srv, formRequest(http.MethodPost, "/expenses", url.Values{"title": {"Taxi"}, "amount": {"99.5"}}))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/expenses" {
		t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestEditUpdateAndDelete(t *testing.T) {
	srv := newTestServer(t, memory.DemoExpenses())

	rr := do(srv, htmx(httptest.NewRequest(http.MethodGet, "/expenses/2/edit", nil)))
	if rr.Code != http.StatusOK {
		t.Fatalf("edit status=%d", rr.Code)
	}
	if body := rr.Body.String(); !strings.Contains(body, "Update Expense") || !strings.Contains(body, `value="Auto Ride"`) {
		t.Fatalf("edit form not prefilled: %s", body)
	}

	form := url.Values{"title": {"Metro"}, "amount": {"40"}, "category": {"Transportation"}, "date": {"2024-01-14"}}
	rr = do(srv, htmx(formRequest(http.MethodPost, "/expenses/2", form)))
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(srv, htmx(httptest.NewRequest(http.MethodDelete, "/expenses/2", nil)))
	if rr.Code != http.StatusOK || rr.Body.Len() != 0 {
		t.Fatalf("delete status=%d body=%q", rr.Code, rr.Body.String())
	}

	list := do(srv, httptest.NewRequest(http.MethodGet, "/expenses/list", nil)).Body.String()
	if strings.Contains(list, "Metro") || strings.Contains(list, "Auto Ride") {
		t.Fatal("deleted expense still listed")
	}

	rr = do(srv, htmx(httptest.NewRequest(http.MethodDelete, "/expenses/2", nil)))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestUnknownExpenseIsNotFound(t *testing.T) {
	srv := newTestServer(t, memory.DemoExpenses())
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/expenses/99/edit", nil),
		formRequest(http.MethodPost, "/expenses/99", url.Values{"title": {"x"}, "amount": {"1"}}),
		httptest.NewRequest(http.MethodGet, "/api/expenses/99", nil),
	} {
		if rr := do(srv, req); rr.Code != http.StatusNotFound {
			t.Errorf("%s %s status=%d", req.Method, req.URL.Path, rr.Code)
		}
	}
}

func TestInsights(t *testing.T) {
	srv := newTestServer(t, memory.DemoExpenses())

	page := do(srv, httptest.NewRequest(http.MethodGet, "/insights", nil)).Body.String()
	for _, want := range []string{"AI-Powered Insights", "Generate Insights", "Total Spent", "₹1,000", "Average Expense", "₹333.33", "Top Category", "Entertainment"} {
		if !strings.Contains(page, want) {
			t.Errorf("insights page missing %q", want)
		}
	}

	rr := do(srv, htmx(httptest.NewRequest(http.MethodPost, "/insights", nil)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Your Spending Insights (INR)") || !strings.Contains(body, "Your highest spending category is Entertainment") {
		t.Fatalf("unexpected insight: %s", body)
	}
}

func TestInsightsEmpty(t *testing.T) {
	srv := newTestServer(t, nil)

	page := do(srv, httptest.NewRequest(http.MethodGet, "/insights", nil)).Body.String()
	if !strings.Contains(page, noExpensesMessage) || strings.Contains(page, "Generate Insights") {
		t.Error("empty collection should hide the generate button")
	}
	for _, card := range []string{"Total Spent", "Average Expense", "Top Category"} {
		if strings.Contains(page, card) {
			t.Errorf("stat card %q should be hidden without expenses", card)
		}
	}

	rr := do(srv, htmx(httptest.NewRequest(http.MethodPost, "/insights", nil)))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
}

type failingInsights struct{}

func (failingInsights) Generate(context.Context, uint64, []core.Expense, core.Currency) (insight.Result, error) {
	return insight.Result{}, errors.New("boom")
}

func TestInsightFailureIsServerError(t *testing.T) {
	srv := NewServer(Options{
		Expenses: services.NewExpenseService(memory.New(memory.DemoExpenses()), nil),
		Insights: failingInsights{},
		Logger:   log.New(log.Config{Output: io.Discard}),
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := do(srv, httptest.NewRequest(http.MethodPost, "/api/insights", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestAPIExpensesCRUD(t *testing.T) {
	srv := newTestServer(t, memory.DemoExpenses())

	body := `{"title": "Books", "amount": 450, "category": "Education", "date": "2024-01-20"}`
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := do(srv, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created expenseJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != 4 || created.AmountCents != 45000 || created.Category != "Education" {
		t.Fatalf("unexpected expense: %+v", created)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/expenses/4", strings.NewReader(`{"title": "Books", "amount": "500"}`))
	req.Header.Set("Content-Type", "application/json")
	if rr = do(srv, req); rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(srv, httptest.NewRequest(http.MethodGet, "/api/expenses", nil))
	var list struct {
		Expenses []expenseJSON `json:"expenses"`
		Version  uint64        `json:"version"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Expenses) != 4 || list.Expenses[3].AmountCents != 50000 || list.Version != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
	// An update without a category falls back to Other.
	if list.Expenses[3].Category != string(core.Other) {
		t.Errorf("category = %q", list.Expenses[3].Category)
	}

	if rr = do(srv, httptest.NewRequest(http.MethodDelete, "/api/expenses/4", nil)); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
}

func TestAPIValidationError(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(`{"title": "x", "amount": "abc"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := do(srv, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	if out["error"] == "" {
		t.Fatalf("missing error message: %s", rr.Body.String())
	}
}

func TestAPISummary(t *testing.T) {
	srv := newTestServer(t, memory.DemoExpenses())
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/summary?currency=USD", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var sum summaryJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Count != 3 || sum.TotalCents != 100000 || sum.Total != "$1000.00" || sum.AverageCents != 33333 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(sum.ByCategory) != 3 || sum.ByCategory[0].Category != string(core.FoodDining) || sum.ByCategory[2].Share != 60 {
		t.Fatalf("unexpected categories: %+v", sum.ByCategory)
	}
	if len(sum.Trend) != 3 || sum.Trend[0].Date != "2024-01-13" {
		t.Fatalf("trend should be oldest first: %+v", sum.Trend)
	}
	if sum.Top == nil || sum.Top.Category != string(core.Entertainment) {
		t.Fatalf("unexpected top: %+v", sum.Top)
	}
}

func TestAPISummaryEmptyHasNullTop(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"top":null`)) {
		t.Fatalf("body=%s", rr.Body.String())
	}
}

func TestAPIInsight(t *testing.T) {
	srv := newTestServer(t, memory.DemoExpenses())
	rr := do(srv, httptest.NewRequest(http.MethodPost, "/api/insights", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var out struct {
		Text      string   `json:"text"`
		Sentences []string `json:"sentences"`
		Currency  string   `json:"currency"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Sentences) != 5 || out.Currency != "INR" || !strings.HasPrefix(out.Text, "Your total spending is ₹1000.00") {
		t.Fatalf("unexpected insight: %+v", out)
	}

	empty := newTestServer(t, nil)
	if rr := do(empty, httptest.NewRequest(http.MethodPost, "/api/insights", nil)); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty status=%d", rr.Code)
	}
}

func TestExportWorkbook(t *testing.T) {
	srv := newTestServer(t, memory.DemoExpenses())
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/export.xlsx", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type=%q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "smartspend-expenses-") {
		t.Errorf("Content-Disposition=%q", cd)
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Error("body is not a zip archive")
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestReadyReportsFailingDependency(t *testing.T) {
	srv := NewServer(Options{
		Expenses: services.NewExpenseService(memory.New(nil), nil),
		Insights: insight.NewGenerator(0),
		Logger:   log.New(log.Config{Output: io.Discard}),
		ReadyChecks: map[string]ReadyCheck{
			"amqp": func(context.Context) error { return errors.New("connection closed") },
		},
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "connection closed") {
		t.Fatalf("body=%s", rr.Body.String())
	}
}

func TestMetricsCountsWrites(t *testing.T) {
	srv := newTestServer(t, nil)
	do(srv, formRequest(http.MethodPost, "/expenses", url.Values{"title": {"Tea"}, "amount": {"20"}}))
	body := do(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Body.String()
	if !strings.Contains(body, "expenses_created_total 1") {
		t.Fatalf("metrics=%s", body)
	}
}

func TestWrongMethodIsRejected(t *testing.T) {
	srv := newTestServer(t, nil)
	if rr := do(srv, httptest.NewRequest(http.MethodPut, "/dashboard", nil)); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT /dashboard status=%d", rr.Code)
	}
	if rr := do(srv, httptest.NewRequest(http.MethodTrace, "/dashboard", nil)); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("TRACE status=%d", rr.Code)
	}
}

func TestStaticAssetsServed(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age=3600") {
		t.Errorf("Cache-Control=%q", cc)
	}
}

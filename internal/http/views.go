package http

import (
	"net/http"

	"smartspend/internal/chart"
	"smartspend/internal/core"
	"smartspend/internal/insight"
	"smartspend/internal/services"
	"smartspend/internal/stats"
)

// Chart canvas sizes in SVG user units; the SVGs scale with CSS.
const (
	trendWidth  = 600
	trendHeight = 300
	pieRadius   = 110
	barsWidth   = 800
	barsHeight  = 320
)

type tab struct {
	ID, Label, Href string
}

var tabs = []tab{
	{ID: "dashboard", Label: "Dashboard", Href: "/dashboard"},
	{ID: "expenses", Label: "Expenses", Href: "/expenses"},
	{ID: "insights", Label: "AI Insights", Href: "/insights"},
}

// layoutView is shared by every full page.
type layoutView struct {
	Title  string
	Active string
	Tabs   []tab
	Prefs  Prefs
}

func (s *Server) layout(r *http.Request, active, title string) layoutView {
	return layoutView{Title: title, Active: active, Tabs: tabs, Prefs: s.prefs(r)}
}

type dashboardView struct {
	layoutView
	Summary stats.Summary
	Trend   chart.LineChart
	Pie     chart.PieChart
	Bars    chart.BarChart
}

type expenseListView struct {
	Items    []core.Expense
	Currency core.Currency
}

type expenseFormView struct {
	// ID is zero for a new expense.
	ID         int64
	Input      services.ExpenseInput
	Categories []core.Category
	Symbol     string
	Error      string
}

func (f expenseFormView) Editing() bool { return f.ID != 0 }

// Action is the URL the form posts to.
func (f expenseFormView) Action() string {
	if f.Editing() {
		return "/expenses/" + itoa64(f.ID)
	}
	return "/expenses"
}

type expensesView struct {
	layoutView
	List expenseListView
	Form *expenseFormView
}

type insightsView struct {
	layoutView
	Summary     stats.Summary
	CanGenerate bool
	Result      *insight.Result
	Error       string
}

func (s *Server) newForm(r *http.Request, id int64, in services.ExpenseInput) expenseFormView {
	if in.Category == "" {
		in.Category = core.DefaultCategory.String()
	}
	if in.Date == "" {
		in.Date = core.Today().ISO()
	}
	return expenseFormView{
		ID:         id,
		Input:      in,
		Categories: core.Categories(),
		Symbol:     s.prefs(r).Currency.Symbol(),
	}
}

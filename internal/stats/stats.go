// Package stats computes the derived views shown on the dashboard and the
// insights page. Every function is a linear scan over a snapshot of the
// collection; nothing is cached here.
package stats

import (
	"sort"

	"smartspend/internal/core"
)

// Summary holds every aggregate the UI renders.
type Summary struct {
	Count   int
	Total   core.Money
	Average core.Money

	// ByCategory is in first-seen order.
	ByCategory []core.CategoryAmount
	// Trend has one point per calendar date, oldest first.
	Trend []core.TrendPoint
	// Top is the category with the highest total, nil when there are no expenses.
	Top *core.CategoryAmount
}

// ActiveCategories is the number of categories with at least one expense.
func (s Summary) ActiveCategories() int {
	return len(s.ByCategory)
}

// Empty reports whether the summary was built from no expenses.
func (s Summary) Empty() bool {
	return s.Count == 0
}

// Summarize builds a Summary from the given expenses.
func Summarize(expenses []core.Expense) Summary {
	s := Summary{
		Count:      len(expenses),
		Total:      Total(expenses),
		ByCategory: ByCategory(expenses),
		Trend:      Trend(expenses),
	}
	s.Average = Average(s.Total, s.Count)
	s.Top = Top(s.ByCategory)
	return s
}

// Total sums every amount.
func Total(expenses []core.Expense) core.Money {
	var cents int64
	for _, e := range expenses {
		cents += e.Amount.Cents
	}
	return core.Money{Cents: cents}
}

// Average divides total by count rounding half-up to the cent; zero for no items.
func Average(total core.Money, count int) core.Money {
	if count <= 0 {
		return core.Money{}
	}
	n := int64(count)
	return core.Money{Cents: (total.Cents*2 + n) / (2 * n)}
}

// ByCategory groups amounts by category keeping the order in which each
// category first appears. Colours follow the same order.
func ByCategory(expenses []core.Expense) []core.CategoryAmount {
	index := map[core.Category]int{}
	var out []core.CategoryAmount
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, core.CategoryAmount{Name: e.Category, Color: core.ColorAt(i)})
		}
		out[i].Amount.Cents += e.Amount.Cents
	}
	return out
}

// Trend sums amounts per calendar date, sorted by date ascending.
func Trend(expenses []core.Expense) []core.TrendPoint {
	byDay := map[core.Date]int64{}
	for _, e := range expenses {
		byDay[core.DateOf(e.Date.Time)] += e.Amount.Cents
	}
	out := make([]core.TrendPoint, 0, len(byDay))
	for d, cents := range byDay {
		out = append(out, core.TrendPoint{Date: d, Amount: core.Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// Top returns the highest-spending category. Ties go to the category seen
// first, so the input order of groups matters.
func Top(groups []core.CategoryAmount) *core.CategoryAmount {
	if len(groups) == 0 {
		return nil
	}
	sorted := append([]core.CategoryAmount(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Amount.Cents > sorted[j].Amount.Cents })
	top := sorted[0]
	return &top
}

// Share returns part as a whole-number percentage of total, rounded half-up.
func Share(part, total core.Money) int {
	if total.Cents <= 0 || part.Cents <= 0 {
		return 0
	}
	return int((part.Cents*200 + total.Cents) / (2 * total.Cents))
}

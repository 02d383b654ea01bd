// Package insight produces the canned spending insight shown on the
// insights tab. The text is a fixed template filled from totals; there is
// no model behind it.
package insight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/sync/singleflight"

	"smartspend/internal/cache"
	"smartspend/internal/core"
	"smartspend/internal/stats"
)

// DefaultDelay is the artificial wait before an insight is returned.
const DefaultDelay = 800 * time.Millisecond

// ErrNoExpenses is returned when there is nothing to analyse.
var ErrNoExpenses = errors.New("no expenses to analyse")

// Result is one generated insight.
type Result struct {
	Text        string
	Sentences   []string
	Currency    core.Currency
	Summary     stats.Summary
	Report      template.HTML
	GeneratedAt time.Time
}

// Generator builds insights, coalescing concurrent requests for the same
// collection version and currency.
type Generator struct {
	Delay time.Duration
	Clock func() time.Time

	group singleflight.Group
	cache *cache.LRUCache[Result]
	md    goldmark.Markdown
}

// NewGenerator returns a Generator that waits delay before every fresh result.
func NewGenerator(delay time.Duration) *Generator {
	return &Generator{
		Delay: delay,
		Clock: time.Now,
		cache: cache.NewLRUCache[Result](32, 10*time.Minute),
		md:    goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// Cache exposes the result cache so it can be registered for cleanup.
func (g *Generator) Cache() *cache.LRUCache[Result] {
	return g.cache
}

// Generate returns the insight for the given snapshot. version identifies the
// snapshot; results are reused until it changes.
func (g *Generator) Generate(ctx context.Context, version uint64, expenses []core.Expense, cur core.Currency) (Result, error) {
	if len(expenses) == 0 {
		return Result{}, ErrNoExpenses
	}
	key := fmt.Sprintf("%d:%s", version, cur)
	if r, ok := g.cache.Get(key); ok {
		return r, nil
	}

	snapshot := append([]core.Expense(nil), expenses...)
	ch := g.group.DoChan(key, func() (any, error) {
		// The wait is shared by every caller of this key, so it is not
		// bound to any single request context.
		time.Sleep(g.Delay)
		r, err := g.build(snapshot, cur)
		if err != nil {
			return Result{}, err
		}
		g.cache.Set(key, r)
		return r, nil
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

func (g *Generator) build(expenses []core.Expense, cur core.Currency) (Result, error) {
	sum := stats.Summarize(expenses)
	sentences := Sentences(sum, cur)
	report, err := g.render(sum, sentences, cur)
	if err != nil {
		return Result{}, err
	}
	now := time.Now
	if g.Clock != nil {
		now = g.Clock
	}
	return Result{
		Text:        strings.Join(sentences, " "),
		Sentences:   sentences,
		Currency:    cur,
		Summary:     sum,
		Report:      report,
		GeneratedAt: now(),
	}, nil
}

// Sentences returns the insight sentences in display order.
func Sentences(sum stats.Summary, cur core.Currency) []string {
	out := []string{
		fmt.Sprintf("Your total spending is %s across %d transactions.", cur.Fixed(sum.Total), sum.Count),
		fmt.Sprintf("Your average expense is %s.", cur.Fixed(sum.Average)),
	}
	focus := "spending"
	if sum.Top != nil {
		out = append(out, fmt.Sprintf("Your highest spending category is %s with %s.", sum.Top.Name, cur.Fixed(sum.Top.Amount)))
		focus = sum.Top.Name.String()
	}
	return append(out,
		fmt.Sprintf("Consider setting a budget limit to better control your %s.", focus),
		"Track your expenses regularly to identify spending patterns and save more effectively.",
	)
}

// Markdown returns the report source rendered by Generate.
func Markdown(sum stats.Summary, sentences []string, cur core.Currency) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Spending insight (%s)\n\n", cur)
	for _, s := range sentences {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\n| Category | Amount | Share |\n|---|---:|---:|\n")
	for _, c := range sum.ByCategory {
		fmt.Fprintf(&b, "| %s | %s | %d%% |\n", c.Name, cur.Format(c.Amount), stats.Share(c.Amount, sum.Total))
	}
	return b.String()
}

func (g *Generator) render(sum stats.Summary, sentences []string, cur core.Currency) (template.HTML, error) {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(Markdown(sum, sentences, cur)), &buf); err != nil {
		return "", fmt.Errorf("render insight report: %w", err)
	}
	// goldmark escapes text and drops raw HTML by default.
	return template.HTML(buf.String()), nil
}

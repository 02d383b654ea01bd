// Package chart computes the geometry of the dashboard charts. Templates
// turn the result into inline SVG, so no charting script is shipped.
package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"smartspend/internal/core"
)

// Padding around the plot area, in SVG user units.
const (
	padLeft   = 48.0
	padRight  = 16.0
	padTop    = 12.0
	padBottom = 28.0
)

const tickCount = 4

// BarColor fills every bar of the category breakdown; only the pie uses the
// per-category palette.
const BarColor = "#3B82F6"

type (
	Tick struct {
		Y     float64
		Label string
	}

	Point struct {
		X, Y   float64
		Label  string
		Amount core.Money
	}

	LineChart struct {
		Width, Height float64
		Points        []Point
		Ticks         []Tick
		// Polyline is the "x,y x,y" list for an SVG polyline.
		Polyline string
		Baseline float64
	}

	Slice struct {
		Name    core.Category
		Color   string
		Amount  core.Money
		Percent int
		Path    string
		LabelX  float64
		LabelY  float64
	}

	PieChart struct {
		Size   float64
		Slices []Slice
	}

	Bar struct {
		X, Y, W, H float64
		Name       core.Category
		Color      string
		Amount     core.Money
		LabelX     float64
	}

	BarChart struct {
		Width, Height float64
		Bars          []Bar
		Ticks         []Tick
		Baseline      float64
	}
)

// Empty reports whether there is nothing to draw.
func (c LineChart) Empty() bool { return len(c.Points) == 0 }
func (c PieChart) Empty() bool  { return len(c.Slices) == 0 }
func (c BarChart) Empty() bool  { return len(c.Bars) == 0 }

// Line lays out the spending trend. Points keep the input order.
func Line(points []core.TrendPoint, width, height float64) LineChart {
	c := LineChart{Width: width, Height: height, Baseline: height - padBottom}
	if len(points) == 0 {
		return c
	}
	var max int64
	for _, p := range points {
		if p.Amount.Cents > max {
			max = p.Amount.Cents
		}
	}
	top := niceCeil(float64(max) / 100)
	c.Ticks = ticks(top, height)

	plotW := width - padLeft - padRight
	step := 0.0
	if len(points) > 1 {
		step = plotW / float64(len(points)-1)
	}
	coords := make([]string, 0, len(points))
	for i, p := range points {
		x := padLeft + step*float64(i)
		if len(points) == 1 {
			x = padLeft + plotW/2
		}
		y := scaleY(p.Amount.Float(), top, height)
		c.Points = append(c.Points, Point{X: round2(x), Y: round2(y), Label: core.TrendLabel(p.Date), Amount: p.Amount})
		coords = append(coords, num(x)+","+num(y))
	}
	c.Polyline = strings.Join(coords, " ")
	return c
}

// Pie lays out one slice per category around a circle of radius r.
// Categories with a zero amount get no slice.
func Pie(groups []core.CategoryAmount, r float64) PieChart {
	c := PieChart{Size: 2 * r}
	var total int64
	for _, g := range groups {
		total += g.Amount.Cents
	}
	if total <= 0 {
		return c
	}
	cx, cy := r, r
	start := -math.Pi / 2
	for _, g := range groups {
		if g.Amount.Cents <= 0 {
			continue
		}
		frac := float64(g.Amount.Cents) / float64(total)
		sweep := frac * 2 * math.Pi
		mid := start + sweep/2
		s := Slice{
			Name:    g.Name,
			Color:   g.Color,
			Amount:  g.Amount,
			Percent: int(math.Round(frac * 100)),
			Path:    arc(cx, cy, r, start, sweep),
			LabelX:  round2(cx + 0.65*r*math.Cos(mid)),
			LabelY:  round2(cy + 0.65*r*math.Sin(mid)),
		}
		c.Slices = append(c.Slices, s)
		start += sweep
	}
	return c
}

// Bars lays out one vertical bar per category.
func Bars(groups []core.CategoryAmount, width, height float64) BarChart {
	c := BarChart{Width: width, Height: height, Baseline: height - padBottom}
	if len(groups) == 0 {
		return c
	}
	var max int64
	for _, g := range groups {
		if g.Amount.Cents > max {
			max = g.Amount.Cents
		}
	}
	top := niceCeil(float64(max) / 100)
	c.Ticks = ticks(top, height)

	slot := (width - padLeft - padRight) / float64(len(groups))
	barW := slot * 0.6
	for i, g := range groups {
		x := padLeft + slot*float64(i) + (slot-barW)/2
		y := scaleY(g.Amount.Float(), top, height)
		c.Bars = append(c.Bars, Bar{
			X:      round2(x),
			Y:      round2(y),
			W:      round2(barW),
			H:      round2(c.Baseline - y),
			Name:   g.Name,
			Color:  BarColor,
			Amount: g.Amount,
			LabelX: round2(x + barW/2),
		})
	}
	return c
}

func arc(cx, cy, r, start, sweep float64) string {
	if sweep >= 2*math.Pi-1e-9 {
		// A single arc cannot describe a full circle; draw two halves.
		return fmt.Sprintf("M %s %s A %s %s 0 1 1 %s %s A %s %s 0 1 1 %s %s Z",
			num(cx), num(cy-r),
			num(r), num(r), num(cx), num(cy+r),
			num(r), num(r), num(cx), num(cy-r))
	}
	x1, y1 := cx+r*math.Cos(start), cy+r*math.Sin(start)
	x2, y2 := cx+r*math.Cos(start+sweep), cy+r*math.Sin(start+sweep)
	large := 0
	if sweep > math.Pi {
		large = 1
	}
	return fmt.Sprintf("M %s %s L %s %s A %s %s 0 %d 1 %s %s Z",
		num(cx), num(cy), num(x1), num(y1), num(r), num(r), large, num(x2), num(y2))
}

func ticks(top, height float64) []Tick {
	out := make([]Tick, 0, tickCount+1)
	for i := 0; i <= tickCount; i++ {
		v := top * float64(i) / tickCount
		out = append(out, Tick{Y: round2(scaleY(v, top, height)), Label: strconv.FormatFloat(v, 'f', -1, 64)})
	}
	return out
}

func scaleY(v, top, height float64) float64 {
	plotH := height - padTop - padBottom
	return height - padBottom - v/top*plotH
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func num(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}

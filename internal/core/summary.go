package core

import (
	"strconv"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   Category
	Amount Money
	Color  string
}

// TrendPoint is the total spent on one calendar date.
type TrendPoint struct {
	Date   Date
	Amount Money
}

// Palette holds the chart colours assigned to categories by position.
var Palette = []string{"#3B82F6", "#8B5CF6", "#EC4899", "#F59E0B", "#10B981", "#06B6D4", "#6366F1", "#EF4444"}

// ColorAt returns the palette colour for the i-th series.
func ColorAt(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// FormatDate renders a date as "Jan 15, 2024".
func FormatDate(d Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("Jan 2, 2006")
}

// TrendLabel renders a date as "1/15/2024", the label used on the trend axis.
func TrendLabel(d Date) string {
	if d.IsZero() {
		return ""
	}
	return strconv.Itoa(int(d.Month())) + "/" + strconv.Itoa(d.Day()) + "/" + strconv.Itoa(d.Year())
}

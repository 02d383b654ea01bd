package google

import (
	"fmt"
	"strconv"
	"strings"

	"smartspend/internal/core"
	ports "smartspend/internal/sheets"
)

// rowValues lays out one expense as columns A:F.
func rowValues(e core.Expense) []any {
	return []any{e.ID, e.Date.ISO(), e.Title, e.Category.String(), e.Amount.Float(), e.Description}
}

func headerRow() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

// findRow returns the 1-based row whose column A holds id, or 0.
func findRow(values [][]any, id int64) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if v, ok := parseRowID(row[0]); ok && v == id {
			return i + 1
		}
	}
	return 0
}

// parseRowID reads an ID cell, which the API returns as a string or a number.
func parseRowID(cell any) (int64, bool) {
	s := strings.TrimSpace(fmt.Sprint(cell))
	if s == "" {
		return 0, false
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		if id <= 0 {
			return 0, false
		}
		return id, true
	}
	// Numbers may come back formatted as "3.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

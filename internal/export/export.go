// Package export builds the XLSX workbook offered as a download.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"smartspend/internal/core"
	"smartspend/internal/stats"
)

const (
	SheetExpenses   = "Expenses"
	SheetCategories = "Categories"
	SheetTrend      = "Trend"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook renders expenses and their summary into an XLSX file.
// Amounts are written as numbers; the currency only labels the amount columns.
func Workbook(expenses []core.Expense, sum stats.Summary, cur core.Currency) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetExpenses); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetCategories, SheetTrend} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{core.Palette[0]}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	number, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("number style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("total style: %w", err)
	}

	amountLabel := fmt.Sprintf("Amount (%s)", cur)

	w := sheetWriter{f: f}

	// Expenses
	w.row(SheetExpenses, 1, "ID", "Date", "Title", "Category", amountLabel, "Description")
	w.style(SheetExpenses, 1, 1, 6, header)
	for i, e := range expenses {
		r := i + 2
		w.row(SheetExpenses, r, e.ID, e.Date.ISO(), e.Title, e.Category.String(), e.Amount.Float(), e.Description)
		w.style(SheetExpenses, r, 5, 5, number)
	}
	totalRow := len(expenses) + 2
	w.row(SheetExpenses, totalRow, "", "", "Total", "", sum.Total.Float(), "")
	w.style(SheetExpenses, totalRow, 3, 5, bold)
	w.widths(SheetExpenses, map[string]float64{"A": 6, "B": 12, "C": 30, "D": 18, "E": 14, "F": 40})

	// Categories
	w.row(SheetCategories, 1, "Category", amountLabel, "Share (%)")
	w.style(SheetCategories, 1, 1, 3, header)
	for i, c := range sum.ByCategory {
		r := i + 2
		w.row(SheetCategories, r, c.Name.String(), c.Amount.Float(), stats.Share(c.Amount, sum.Total))
		w.style(SheetCategories, r, 2, 2, number)
	}
	w.widths(SheetCategories, map[string]float64{"A": 18, "B": 14, "C": 10})

	// Trend
	w.row(SheetTrend, 1, "Date", amountLabel)
	w.style(SheetTrend, 1, 1, 2, header)
	for i, p := range sum.Trend {
		r := i + 2
		w.row(SheetTrend, r, p.Date.ISO(), p.Amount.Float())
		w.style(SheetTrend, r, 2, 2, number)
	}
	w.widths(SheetTrend, map[string]float64{"A": 12, "B": 14})

	if w.err != nil {
		return nil, w.err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so the layout code above stays linear.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) row(sheet string, r int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, r, err)
	}
}

func (w *sheetWriter) style(sheet string, r, fromCol, toCol, style int) {
	if w.err != nil {
		return
	}
	from, _ := excelize.CoordinatesToCellName(fromCol, r)
	to, _ := excelize.CoordinatesToCellName(toCol, r)
	if err := w.f.SetCellStyle(sheet, from, to, style); err != nil {
		w.err = fmt.Errorf("style %s row %d: %w", sheet, r, err)
	}
}

func (w *sheetWriter) widths(sheet string, cols map[string]float64) {
	for col, width := range cols {
		if w.err != nil {
			return
		}
		if err := w.f.SetColWidth(sheet, col, col, width); err != nil {
			w.err = fmt.Errorf("width %s %s: %w", sheet, col, err)
		}
	}
}

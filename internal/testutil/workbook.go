// Package testutil provides fixtures shared by the biweekly test suites:
// budget workbooks built on disk and an in-memory history database.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/biweekly/internal/period"
	"github.com/Veraticus/biweekly/internal/workbook"
	"github.com/xuri/excelize/v2"
)

// TemplateTotalFormula is the total amount formula the template carries in
// Pay sheet i (i > 1) for row: it pulls the previous Pay sheet's new total.
func TemplateTotalFormula(prevSheet string, row int) string {
	return fmt.Sprintf("%s!%s", workbook.QuoteSheetName(prevSheet), workbook.Cell(workbook.NewTotalAmountColumn, row))
}

// NoteColumn holds NoteFormula in every Pay sheet after the first. The
// formula mentions "Pay 1" only inside a string literal.
const NoteColumn = "G"

// NoteFormula must survive sheet renaming untouched.
const NoteFormula = `IF(C2=0,"Pay 1 carried nothing","")`

// TemplateCachedResult is the stale result the template caches for each of
// its total amount formulas, as a spreadsheet application would on save.
const TemplateCachedResult = 7

// WriteTemplate creates a budget template at dir/name with the generic
// sheet names "Pay 1".."Pay 3" and "Receipt 1".."Receipt 3" and returns its path.
func WriteTemplate(t *testing.T, dir, name string) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheets := make([]string, 0, 2*period.Count)
	for i := 1; i <= period.Count; i++ {
		sheets = append(sheets, workbook.PaySheet(i))
	}
	for i := 1; i <= period.Count; i++ {
		sheets = append(sheets, workbook.ReceiptSheet(i))
	}
	mustNoErr(t, f.SetSheetName("Sheet1", sheets[0]))
	for _, s := range sheets[1:] {
		_, err := f.NewSheet(s)
		mustNoErr(t, err)
	}

	for i := 1; i <= period.Count; i++ {
		pay := workbook.PaySheet(i)
		mustNoErr(t, f.SetCellStr(pay, "A1", "Category"))
		mustNoErr(t, f.SetCellStr(pay, "C1", "Total Amount"))
		mustNoErr(t, f.SetCellStr(pay, "H1", "New Total Amount"))
		for _, row := range workbook.CategoryRows() {
			mustNoErr(t, f.SetCellStr(pay, workbook.Cell("A", row), fmt.Sprintf("Pay 1 category %d", row)))
			if i == 1 {
				mustNoErr(t, f.SetCellInt(pay, workbook.Cell(workbook.TotalAmountColumn, row), 0))
			} else {
				formula := TemplateTotalFormula(workbook.PaySheet(i-1), row)
				setCachedFormula(t, f, pay, workbook.Cell(workbook.TotalAmountColumn, row), formula, TemplateCachedResult)
				mustNoErr(t, f.SetCellFormula(pay, workbook.Cell(NoteColumn, row), NoteFormula))
			}
			setCachedFormula(t, f, pay, workbook.Cell(workbook.NewTotalAmountColumn, row),
				fmt.Sprintf("C%d+D%d-E%d", row, row, row), TemplateCachedResult)
		}
	}

	path := filepath.Join(dir, name)
	mustNoErr(t, f.SaveAs(path))
	return path
}

// PredecessorSheet describes one Pay sheet of a predecessor document.
type PredecessorSheet struct {
	EndDate time.Time
	// NewTotals maps category row to the value stored in the new total
	// amount column. Rows left out stay blank.
	NewTotals map[int]float64
	// Formulas maps category row to a formula for the new total amount
	// column. A row also present in NewTotals keeps that value as the
	// formula's cached result; otherwise the formula has none.
	Formulas map[int]string
	Index    int
}

// WritePredecessor writes a finished budget document for p under
// baseDir/<year>/ with month-qualified Pay sheet names and returns its path.
func WritePredecessor(t *testing.T, baseDir string, p period.Period, sheets ...PredecessorSheet) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for n, s := range sheets {
		name := workbook.RenamedPaySheet(p.MonthAbbrev(), s.Index)
		if n == 0 {
			mustNoErr(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			mustNoErr(t, err)
		}
		if !s.EndDate.IsZero() {
			mustNoErr(t, f.SetCellValue(name, workbook.PayStartDateCell, s.EndDate.AddDate(0, 0, -(period.Length-1))))
			mustNoErr(t, f.SetCellValue(name, workbook.PayEndDateCell, s.EndDate))
		}
		for row, v := range s.NewTotals {
			mustNoErr(t, f.SetCellFloat(name, workbook.Cell(workbook.NewTotalAmountColumn, row), v, -1, 64))
		}
		for row, formula := range s.Formulas {
			mustNoErr(t, f.SetCellFormula(name, workbook.Cell(workbook.NewTotalAmountColumn, row), formula))
		}
	}

	dir := filepath.Join(baseDir, fmt.Sprint(p.Year))
	mustNoErr(t, os.MkdirAll(dir, 0o750))
	path := filepath.Join(dir, p.FileName())
	mustNoErr(t, f.SaveAs(path))
	return path
}

// OpenWorkbook opens path with excelize for assertions and closes it when
// the test ends.
func OpenWorkbook(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	mustNoErr(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

// setCachedFormula writes formula to cell with result as its cached value.
// SetCellFormula keeps whatever value the cell already holds.
func setCachedFormula(t *testing.T, f *excelize.File, sheet, cell, formula string, result int) {
	t.Helper()
	mustNoErr(t, f.SetCellInt(sheet, cell, result))
	mustNoErr(t, f.SetCellFormula(sheet, cell, formula))
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fixture setup failed: %v", err)
	}
}

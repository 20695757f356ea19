// Package workbook wraps excelize with the cell layout of a biweekly budget document.
package workbook

import (
	"fmt"
	"strconv"
)

// Fixed cell layout of the budget template. Receipt sheets keep their
// dates one row above the Pay sheets.
const (
	PayStartDateCell     = "B25"
	PayEndDateCell       = "B26"
	ReceiptStartDateCell = "B24"
	ReceiptEndDateCell   = "B25"

	TotalAmountColumn    = "C"
	NewTotalAmountColumn = "H"

	FirstCategoryRow = 2
	LastCategoryRow  = 21
)

// PaySheet returns the template name of the i-th Pay sheet.
func PaySheet(i int) string {
	return fmt.Sprintf("Pay %d", i)
}

// ReceiptSheet returns the name of the i-th Receipt sheet.
func ReceiptSheet(i int) string {
	return fmt.Sprintf("Receipt %d", i)
}

// RenamedPaySheet returns the month-qualified name of the i-th Pay sheet,
// e.g. "Feb - Pay 1".
func RenamedPaySheet(monthAbbrev string, i int) string {
	return fmt.Sprintf("%s - %s", monthAbbrev, PaySheet(i))
}

// Cell joins a column letter and a row number.
func Cell(column string, row int) string {
	return column + strconv.Itoa(row)
}

// CategoryRows returns the rows holding budget categories.
func CategoryRows() []int {
	rows := make([]int, 0, LastCategoryRow-FirstCategoryRow+1)
	for r := FirstCategoryRow; r <= LastCategoryRow; r++ {
		rows = append(rows, r)
	}
	return rows
}

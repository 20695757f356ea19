package workbook_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/biweekly/internal/testutil"
	"github.com/Veraticus/biweekly/internal/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func openTemplate(t *testing.T) *workbook.Document {
	t.Helper()
	path := testutil.WriteTemplate(t, t.TempDir(), "template.xlsx")
	doc, err := workbook.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })
	return doc
}

func TestDocument_Sheets(t *testing.T) {
	doc := openTemplate(t)

	assert.Equal(t, []string{"Pay 1", "Pay 2", "Pay 3", "Receipt 1", "Receipt 2", "Receipt 3"}, doc.Sheets())
	assert.True(t, doc.HasSheet("Pay 2"))
	assert.False(t, doc.HasSheet("Pay 4"))

	require.NoError(t, doc.Require("Pay 1", "Receipt 3"))
	err := doc.Require("Pay 1", "Pay 4", "Receipt 9")
	require.ErrorIs(t, err, workbook.ErrSheetNotFound)
	assert.Contains(t, err.Error(), "Pay 4, Receipt 9")
}

func TestDocument_RequireSuggestsCloseNames(t *testing.T) {
	doc := openTemplate(t)
	require.NoError(t, doc.RenameSheet("Pay 2", "Pay2"))

	err := doc.Require("Pay 1", "Pay 2", "Pay 3")
	require.ErrorIs(t, err, workbook.ErrSheetNotFound)
	assert.Contains(t, err.Error(), `did you mean "Pay2" for "Pay 2"?`)

	err = doc.Require("Budget Summary")
	require.ErrorIs(t, err, workbook.ErrSheetNotFound)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestDocument_RenameAndDelete(t *testing.T) {
	doc := openTemplate(t)

	require.NoError(t, doc.RenameSheet("Pay 1", "Feb - Pay 1"))
	assert.True(t, doc.HasSheet("Feb - Pay 1"))
	assert.False(t, doc.HasSheet("Pay 1"))

	require.NoError(t, doc.DeleteSheet("Receipt 3"))
	assert.False(t, doc.HasSheet("Receipt 3"))

	assert.ErrorIs(t, doc.RenameSheet("Pay 9", "x"), workbook.ErrSheetNotFound)
	assert.ErrorIs(t, doc.DeleteSheet("Receipt 3"), workbook.ErrSheetNotFound)
}

func TestDocument_Values(t *testing.T) {
	doc := openTemplate(t)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "integer", raw: "500", want: "500"},
		{name: "decimal", raw: "123.45", want: "123.45"},
		{name: "negative", raw: "-20.5", want: "-20.5"},
		{name: "text", raw: "n/a", want: "n/a"},
		{name: "blank", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, doc.SetValue("Pay 1", "C5", "placeholder"))
			require.NoError(t, doc.SetValue("Pay 1", "C5", tt.raw))
			got, err := doc.Value("Pay 1", "C5")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := doc.Value("Missing", "A1")
	assert.ErrorIs(t, err, workbook.ErrSheetNotFound)
}

func TestDocument_Dates(t *testing.T) {
	doc := openTemplate(t)
	date := time.Date(2024, time.January, 28, 0, 0, 0, 0, time.UTC)

	require.NoError(t, doc.SetDate("Pay 1", workbook.PayEndDateCell, date.Add(9*time.Hour)))
	got, err := doc.Date("Pay 1", workbook.PayEndDateCell)
	require.NoError(t, err)
	assert.Equal(t, date, got)

	require.NoError(t, doc.SetValue("Pay 2", "B26", "2024-02-11"))
	got, err = doc.Date("Pay 2", "B26")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 11, 0, 0, 0, 0, time.UTC), got)

	_, err = doc.Date("Pay 3", "B26")
	assert.ErrorIs(t, err, workbook.ErrNotADate)

	require.NoError(t, doc.SetValue("Pay 3", "B26", "soon"))
	_, err = doc.Date("Pay 3", "B26")
	assert.ErrorIs(t, err, workbook.ErrNotADate)
}

func TestDocument_Dates1904(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mac.xlsx")
	f := excelize.NewFile()
	date1904 := true
	require.NoError(t, f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &date1904}))
	// 2024-01-28 is serial 45319 in the 1900 date system and 1462 less in 1904.
	require.NoError(t, f.SetCellInt("Sheet1", "B26", 43857))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	doc, err := workbook.Open(path, nil)
	require.NoError(t, err)
	defer func() { _ = doc.Close() }()

	want := time.Date(2024, time.January, 28, 0, 0, 0, 0, time.UTC)
	got, err := doc.Date("Sheet1", "B26")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	next := want.AddDate(0, 0, 14)
	require.NoError(t, doc.SetDate("Sheet1", "B27", next))
	raw, err := doc.Value("Sheet1", "B27")
	require.NoError(t, err)
	assert.Equal(t, "43871", raw)
	got, err = doc.Date("Sheet1", "B27")
	require.NoError(t, err)
	assert.Equal(t, next, got)
}

func TestDocument_Formulas(t *testing.T) {
	doc := openTemplate(t)

	formula, err := doc.Formula("Pay 2", "C2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pay 1"}, workbook.SheetReferences(formula))

	require.NoError(t, doc.SetFormula("Pay 2", "C2", "'Feb - Pay 1'!H2"))
	formula, err = doc.Formula("Pay 2", "C2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Feb - Pay 1"}, workbook.SheetReferences(formula))
}

func TestDocument_ClearCachedResults(t *testing.T) {
	doc := openTemplate(t)

	require.NoError(t, doc.SetValue("Pay 1", "C2", "42"))
	cached, err := doc.Value("Pay 1", "H2")
	require.NoError(t, err)
	require.Equal(t, fmt.Sprint(testutil.TemplateCachedResult), cached)

	require.NoError(t, doc.ClearCachedResults())

	for _, cell := range []string{"H2", "H21"} {
		v, err := doc.Value("Pay 1", cell)
		require.NoError(t, err)
		assert.Empty(t, v, cell)
		formula, err := doc.Formula("Pay 1", cell)
		require.NoError(t, err)
		assert.NotEmpty(t, formula, cell)
	}
	v, err := doc.Value("Pay 1", "C2")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestDocument_Checkpoint(t *testing.T) {
	doc := openTemplate(t)

	require.NoError(t, doc.RenameSheet("Pay 1", "Mar - Pay 1"))
	require.NoError(t, doc.SetValue("Mar - Pay 1", "C2", "42"))
	require.NoError(t, doc.Checkpoint("test"))

	reopened, err := workbook.Open(doc.Path(), nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	assert.True(t, reopened.HasSheet("Mar - Pay 1"))
	v, err := reopened.Value("Mar - Pay 1", "C2")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestOpen_Missing(t *testing.T) {
	_, err := workbook.Open(filepath.Join(t.TempDir(), "nope.xlsx"), nil)
	require.Error(t, err)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := testutil.WriteTemplate(t, dir, "template.xlsx")
	dst := filepath.Join(dir, "out", "2024 - February.xlsx")
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o750))

	require.NoError(t, workbook.CopyFile(src, dst))

	want, err := os.ReadFile(src)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(dst))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary copy should be gone")

	err = workbook.CopyFile(filepath.Join(dir, "missing.xlsx"), dst)
	require.Error(t, err)
}

func TestLayout(t *testing.T) {
	assert.Equal(t, "Feb - Pay 3", workbook.RenamedPaySheet("Feb", 3))
	assert.Equal(t, "H21", workbook.Cell(workbook.NewTotalAmountColumn, 21))

	rows := workbook.CategoryRows()
	assert.Len(t, rows, 20)
	assert.Equal(t, 2, rows[0])
	assert.Equal(t, 21, rows[len(rows)-1])
}

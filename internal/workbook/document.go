package workbook

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/biweekly/internal/period"
	"github.com/agnivade/levenshtein"
	"github.com/xuri/excelize/v2"
)

// Document errors.
var (
	ErrSheetNotFound = errors.New("sheet not found")
	ErrNotADate      = errors.New("cell does not hold a date")
)

// textDateLayouts are tried, in order, for dates stored as text.
var textDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
}

// Document is an open budget workbook. It stays in memory for its whole
// lifetime and is written back to disk with Checkpoint.
type Document struct {
	file     *excelize.File
	logger   *slog.Logger
	path     string
	date1904 bool
}

// Open loads the workbook at path.
func Open(path string, logger *slog.Logger) (*Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}

	doc := &Document{
		file:   f,
		path:   path,
		logger: logger,
	}

	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		doc.date1904 = *props.Date1904
	}

	return doc, nil
}

// Close releases the workbook. It does not save.
func (d *Document) Close() error {
	return d.file.Close()
}

// Path returns the file the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// Sheets returns the sheet names in workbook order.
func (d *Document) Sheets() []string {
	return d.file.GetSheetList()
}

// HasSheet reports whether a sheet named name exists.
func (d *Document) HasSheet(name string) bool {
	idx, err := d.file.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// Require returns ErrSheetNotFound naming every sheet in names that is absent.
func (d *Document) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if !d.HasSheet(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	msg := fmt.Sprintf("%s: %s", d.path, strings.Join(missing, ", "))
	requested := make(map[string]bool, len(names))
	for _, name := range names {
		requested[name] = true
	}
	var hints []string
	for _, name := range missing {
		if near := d.closestSheet(name, requested); near != "" {
			hints = append(hints, fmt.Sprintf("%q for %q", near, name))
		}
	}
	if len(hints) > 0 {
		msg += " (did you mean " + strings.Join(hints, ", ") + "?)"
	}
	return fmt.Errorf("%w in %s", ErrSheetNotFound, msg)
}

// maxSheetNameDistance bounds how different a sheet name may be and still be
// suggested for a missing one.
const maxSheetNameDistance = 2

// closestSheet returns the sheet whose name is nearest to name, skipping
// sheets in exclude, or "" when none is close enough.
func (d *Document) closestSheet(name string, exclude map[string]bool) string {
	best, bestDist := "", maxSheetNameDistance+1
	for _, sheet := range d.file.GetSheetList() {
		if exclude[sheet] {
			continue
		}
		dist := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(sheet))
		if dist < bestDist {
			best, bestDist = sheet, dist
		}
	}
	return best
}

// RenameSheet renames sheet from to to.
func (d *Document) RenameSheet(from, to string) error {
	if err := d.Require(from); err != nil {
		return err
	}
	if err := d.file.SetSheetName(from, to); err != nil {
		return fmt.Errorf("failed to rename sheet %q to %q: %w", from, to, err)
	}
	return nil
}

// DeleteSheet removes a sheet from the workbook.
func (d *Document) DeleteSheet(name string) error {
	if err := d.Require(name); err != nil {
		return err
	}
	if err := d.file.DeleteSheet(name); err != nil {
		return fmt.Errorf("failed to delete sheet %q: %w", name, err)
	}
	return nil
}

// Value returns the raw stored value of a cell. For formula cells this is
// the value cached when the workbook was last calculated; formulas are
// never evaluated here.
func (d *Document) Value(sheet, cell string) (string, error) {
	if err := d.Require(sheet); err != nil {
		return "", err
	}
	v, err := d.file.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return "", fmt.Errorf("failed to read %s!%s: %w", sheet, cell, err)
	}
	return v, nil
}

// Date reads a cell holding a date, either as a spreadsheet serial number
// or as text.
func (d *Document) Date(sheet, cell string) (time.Time, error) {
	raw, err := d.Value(sheet, cell)
	if err != nil {
		return time.Time{}, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s!%s is empty", ErrNotADate, sheet, cell)
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, d.date1904)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %s!%s: %v", ErrNotADate, sheet, cell, err)
		}
		return period.Day(t), nil
	}

	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return period.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s!%s holds %q", ErrNotADate, sheet, cell, raw)
}

// SetValue writes raw into a cell: numbers are stored as numbers, other text
// as text, and an empty string clears the cell.
func (d *Document) SetValue(sheet, cell, raw string) error {
	var err error
	switch v, parseErr := strconv.ParseFloat(raw, 64); {
	case raw == "":
		err = d.file.SetCellDefault(sheet, cell, "")
	case parseErr == nil:
		err = d.file.SetCellFloat(sheet, cell, v, -1, 64)
	default:
		err = d.file.SetCellStr(sheet, cell, raw)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// SetDate writes a calendar date into a cell.
func (d *Document) SetDate(sheet, cell string, date time.Time) error {
	if err := d.file.SetCellValue(sheet, cell, period.Day(date)); err != nil {
		return fmt.Errorf("failed to write date to %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// ClearCachedResults drops the cached result of every formula cell and the
// workbook's calculation properties, so spreadsheet applications recompute
// on open instead of showing values computed for the template.
func (d *Document) ClearCachedResults() error {
	if err := d.file.UpdateLinkedValue(); err != nil {
		return fmt.Errorf("failed to clear cached formula results: %w", err)
	}
	return nil
}

// Formula returns the formula of a cell, or "" when the cell has none.
func (d *Document) Formula(sheet, cell string) (string, error) {
	f, err := d.file.GetCellFormula(sheet, cell)
	if err != nil {
		return "", fmt.Errorf("failed to read formula %s!%s: %w", sheet, cell, err)
	}
	return f, nil
}

// SetFormula replaces the formula of a cell.
func (d *Document) SetFormula(sheet, cell, formula string) error {
	if err := d.file.SetCellFormula(sheet, cell, formula); err != nil {
		return fmt.Errorf("failed to write formula %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// Checkpoint writes the in-memory workbook to its path.
func (d *Document) Checkpoint(phase string) error {
	if err := d.file.SaveAs(d.path); err != nil {
		return fmt.Errorf("failed to save %s after %s: %w", d.path, phase, err)
	}
	d.logger.Debug("workbook checkpoint saved", "path", d.path, "phase", phase)
	return nil
}

package sheets

import (
	"time"

	"github.com/Veraticus/biweekly/internal/model"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Header is the first row of the published tab.
var Header = []any{"Period", "Pay Period", "Start", "End", "Retained", "Carried Total", "Anchor", "Document"}

// PeriodRow is one published row: a sub-period of a generated document.
type PeriodRow struct {
	Start        time.Time
	End          time.Time
	CarriedTotal decimal.Decimal
	Period       string
	Anchor       string
	Document     string
	SubPeriod    int
	Retained     bool
}

// RowsFor flattens a generation into one row per sub-period. The carried
// total is reported against the first sub-period only.
func RowsFor(gen *model.Generation) []PeriodRow {
	rows := make([]PeriodRow, 0, len(gen.SubPeriods))
	total := gen.CarriedTotal()
	for i, sp := range gen.SubPeriods {
		row := PeriodRow{
			Period:    gen.Period.String(),
			SubPeriod: sp.Index,
			Start:     sp.Start,
			End:       sp.End,
			Retained:  sp.Retained,
			Anchor:    string(gen.AnchorKind),
			Document:  gen.OutputPath,
		}
		if i == 0 {
			row.CarriedTotal = total
		}
		rows = append(rows, row)
	}
	return rows
}

// Values renders the row for the Sheets API.
func (r PeriodRow) Values() []any {
	total, _ := r.CarriedTotal.Float64()
	return []any{
		r.Period,
		r.SubPeriod,
		r.Start.Format(dateLayout),
		r.End.Format(dateLayout),
		r.Retained,
		total,
		r.Anchor,
		r.Document,
	}
}

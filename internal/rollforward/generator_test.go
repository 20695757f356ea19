package rollforward_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/biweekly/internal/common"
	"github.com/Veraticus/biweekly/internal/model"
	"github.com/Veraticus/biweekly/internal/period"
	"github.com/Veraticus/biweekly/internal/rollforward"
	"github.com/Veraticus/biweekly/internal/service"
	"github.com/Veraticus/biweekly/internal/testutil"
	"github.com/Veraticus/biweekly/internal/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dec2024 = period.Period{Year: 2024, Month: time.December}
	jan2024 = period.Period{Year: 2024, Month: time.January}
	feb2024 = period.Period{Year: 2024, Month: time.February}
	mar2024 = period.Period{Year: 2024, Month: time.March}
	jan2025 = period.Period{Year: 2025, Month: time.January}
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	cfg  rollforward.Config
	base string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, "budgets")
	return fixture{
		base: base,
		cfg: rollforward.Config{
			TemplatePath:  testutil.WriteTemplate(t, dir, "template.xlsx"),
			OutputBaseDir: base,
		},
	}
}

func readDate(t *testing.T, path, sheet, cell string) time.Time {
	t.Helper()
	doc, err := workbook.Open(path, nil)
	require.NoError(t, err)
	defer func() { _ = doc.Close() }()
	d, err := doc.Date(sheet, cell)
	require.NoError(t, err)
	return d
}

func failingStartDay(t *testing.T) service.StartDaySource {
	return service.StartDayFunc(func(context.Context, period.Period) (int, error) {
		t.Fatal("start day should not be requested when the previous workbook has an end date")
		return 0, nil
	})
}

func TestGenerate_FromPredecessor(t *testing.T) {
	fx := newFixture(t)
	predPath := testutil.WritePredecessor(t, fx.base, jan2024,
		testutil.PredecessorSheet{Index: 1, EndDate: date(2024, time.January, 14), NewTotals: map[int]float64{2: 1}},
		testutil.PredecessorSheet{Index: 2, EndDate: date(2024, time.January, 28), NewTotals: map[int]float64{2: 2}},
		testutil.PredecessorSheet{Index: 3, EndDate: date(2024, time.January, 28), NewTotals: map[int]float64{2: 500, 4: 12.5, 21: -3.25}},
	)

	gen, err := rollforward.NewGenerator(fx.cfg, rollforward.WithStartDaySource(failingStartDay(t))).
		Generate(context.Background(), feb2024)
	require.NoError(t, err)

	out := filepath.Join(fx.base, "2024", "2024 - February.xlsx")
	assert.Equal(t, out, gen.OutputPath)
	assert.Equal(t, predPath, gen.PredecessorPath)
	assert.Equal(t, "Jan - Pay 3", gen.SourceSheet)
	assert.Equal(t, model.AnchorPredecessor, gen.AnchorKind)
	assert.Equal(t, date(2024, time.January, 29), gen.AnchorDate)
	assert.Len(t, gen.ID, 36)

	f := testutil.OpenWorkbook(t, out)
	assert.Equal(t, []string{"Feb - Pay 1", "Feb - Pay 2", "Receipt 1", "Receipt 2"}, f.GetSheetList())

	balances := map[string]string{"C2": "500", "C3": "", "C4": "12.5", "C21": "-3.25"}
	for cell, want := range balances {
		got, err := f.GetCellValue("Feb - Pay 1", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}

	assert.Equal(t, date(2024, time.January, 29), readDate(t, out, "Feb - Pay 1", workbook.PayStartDateCell))
	assert.Equal(t, date(2024, time.February, 11), readDate(t, out, "Feb - Pay 1", workbook.PayEndDateCell))
	assert.Equal(t, date(2024, time.January, 29), readDate(t, out, "Receipt 1", workbook.ReceiptStartDateCell))
	assert.Equal(t, date(2024, time.February, 11), readDate(t, out, "Receipt 1", workbook.ReceiptEndDateCell))
	assert.Equal(t, date(2024, time.February, 12), readDate(t, out, "Feb - Pay 2", workbook.PayStartDateCell))
	assert.Equal(t, date(2024, time.February, 25), readDate(t, out, "Feb - Pay 2", workbook.PayEndDateCell))
	assert.Equal(t, date(2024, time.February, 25), readDate(t, out, "Receipt 2", workbook.ReceiptEndDateCell))

	require.Len(t, gen.SubPeriods, period.Count)
	assert.True(t, gen.SubPeriods[0].Retained)
	assert.True(t, gen.SubPeriods[1].Retained)
	assert.False(t, gen.SubPeriods[2].Retained)
	assert.Equal(t, date(2024, time.March, 10), gen.SubPeriods[2].End)
	assert.Equal(t, "509.25", gen.CarriedTotal().String())

	// The previous month's workbook is read-only input.
	pred := testutil.OpenWorkbook(t, predPath)
	assert.Equal(t, []string{"Jan - Pay 1", "Jan - Pay 2", "Jan - Pay 3"}, pred.GetSheetList())
}

func TestGenerate_OperatorStartDay(t *testing.T) {
	fx := newFixture(t)

	var asked []period.Period
	src := service.StartDayFunc(func(_ context.Context, p period.Period) (int, error) {
		asked = append(asked, p)
		return 15, nil
	})

	gen, err := rollforward.NewGenerator(fx.cfg, rollforward.WithStartDaySource(src)).
		Generate(context.Background(), mar2024)
	require.NoError(t, err)

	assert.Equal(t, []period.Period{mar2024}, asked)
	assert.Equal(t, model.AnchorOperator, gen.AnchorKind)
	assert.Equal(t, date(2024, time.March, 15), gen.AnchorDate)
	assert.False(t, gen.HasPredecessor())
	assert.Empty(t, gen.Balances)

	out := gen.OutputPath
	f := testutil.OpenWorkbook(t, out)
	assert.Equal(t, []string{"Mar - Pay 1", "Receipt 1"}, f.GetSheetList())

	assert.Equal(t, date(2024, time.March, 15), readDate(t, out, "Mar - Pay 1", workbook.PayStartDateCell))
	assert.Equal(t, date(2024, time.March, 28), readDate(t, out, "Mar - Pay 1", workbook.PayEndDateCell))
	assert.Equal(t, date(2024, time.March, 15), readDate(t, out, "Receipt 1", workbook.ReceiptStartDateCell))

	// Template balances are left alone without a previous workbook.
	v, err := f.GetCellValue("Mar - Pay 1", "C2")
	require.NoError(t, err)
	assert.Equal(t, "0", v)

	assert.Len(t, gen.RetainedSubPeriods(), 1)
}

func TestGenerate_AcrossYearBoundary(t *testing.T) {
	fx := newFixture(t)
	testutil.WritePredecessor(t, fx.base, dec2024,
		testutil.PredecessorSheet{Index: 1, EndDate: date(2024, time.December, 15)},
		testutil.PredecessorSheet{Index: 2, EndDate: date(2024, time.December, 29), NewTotals: map[int]float64{2: 75}},
	)

	gen, err := rollforward.NewGenerator(fx.cfg).Generate(context.Background(), jan2025)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(fx.base, "2025", "2025 - January.xlsx"), gen.OutputPath)
	assert.Equal(t, "Dec - Pay 2", gen.SourceSheet)
	assert.Equal(t, date(2024, time.December, 30), gen.AnchorDate)

	f := testutil.OpenWorkbook(t, gen.OutputPath)
	assert.Equal(t, []string{"Jan - Pay 1", "Jan - Pay 2", "Receipt 1", "Receipt 2"}, f.GetSheetList())
	v, err := f.GetCellValue("Jan - Pay 1", "C2")
	require.NoError(t, err)
	assert.Equal(t, "75", v)
}

func TestGenerate_PrefersLaterEndDate(t *testing.T) {
	fx := newFixture(t)
	testutil.WritePredecessor(t, fx.base, jan2024,
		testutil.PredecessorSheet{Index: 2, EndDate: date(2024, time.January, 28), NewTotals: map[int]float64{2: 20}},
		testutil.PredecessorSheet{Index: 3, EndDate: date(2024, time.January, 14), NewTotals: map[int]float64{2: 30}},
	)

	gen, err := rollforward.NewGenerator(fx.cfg).Generate(context.Background(), feb2024)
	require.NoError(t, err)

	assert.Equal(t, "Jan - Pay 2", gen.SourceSheet)
	assert.Equal(t, date(2024, time.January, 29), gen.AnchorDate)
	assert.Equal(t, "20", gen.CarriedTotal().String())
}

func TestGenerate_GenericPredecessorSheetNames(t *testing.T) {
	fx := newFixture(t)
	path := testutil.WritePredecessor(t, fx.base, jan2024,
		testutil.PredecessorSheet{Index: 1, EndDate: date(2024, time.January, 14), NewTotals: map[int]float64{2: 9}},
	)
	f := testutil.OpenWorkbook(t, path)
	require.NoError(t, f.SetSheetName("Jan - Pay 1", "Pay 1"))
	require.NoError(t, f.Save())

	gen, err := rollforward.NewGenerator(fx.cfg).Generate(context.Background(), feb2024)
	require.NoError(t, err)
	assert.Equal(t, "Pay 1", gen.SourceSheet)
	assert.Equal(t, date(2024, time.January, 15), gen.AnchorDate)
}

func TestGenerate_UnreadablePredecessorEndDate(t *testing.T) {
	fx := newFixture(t)
	testutil.WritePredecessor(t, fx.base, jan2024,
		testutil.PredecessorSheet{Index: 3, NewTotals: map[int]float64{2: 42}},
	)

	gen, err := rollforward.NewGenerator(fx.cfg, rollforward.WithStartDaySource(service.FixedStartDay(3))).
		Generate(context.Background(), feb2024)
	require.NoError(t, err)

	assert.Equal(t, model.AnchorOperator, gen.AnchorKind)
	assert.Equal(t, date(2024, time.February, 3), gen.AnchorDate)
	assert.True(t, gen.HasPredecessor())

	f := testutil.OpenWorkbook(t, gen.OutputPath)
	v, err := f.GetCellValue("Feb - Pay 1", "C2")
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestGenerate_PredecessorFormulaResults(t *testing.T) {
	fx := newFixture(t)
	testutil.WritePredecessor(t, fx.base, jan2024,
		testutil.PredecessorSheet{
			Index:     3,
			EndDate:   date(2024, time.January, 28),
			NewTotals: map[int]float64{2: 500},
			Formulas:  map[int]string{2: "C2+D2-E2", 3: "C3+D3-E3"},
		},
	)

	gen, err := rollforward.NewGenerator(fx.cfg).Generate(context.Background(), feb2024)
	require.NoError(t, err)
	assert.Equal(t, "500", gen.CarriedTotal().String())

	f := testutil.OpenWorkbook(t, gen.OutputPath)
	tests := []struct {
		cell string
		want string
	}{
		{cell: "C2", want: "500"},
		{cell: "C3", want: ""},
	}
	for _, tt := range tests {
		v, err := f.GetCellValue("Feb - Pay 1", tt.cell)
		require.NoError(t, err)
		assert.Equal(t, tt.want, v, tt.cell)

		// Only the result is carried, never the previous month's formula.
		formula, err := f.GetCellFormula("Feb - Pay 1", tt.cell)
		require.NoError(t, err)
		assert.Empty(t, formula, tt.cell)
	}
}

func TestGenerate_ClearsCachedFormulaResults(t *testing.T) {
	fx := newFixture(t)
	testutil.WritePredecessor(t, fx.base, jan2024,
		testutil.PredecessorSheet{Index: 3, EndDate: date(2024, time.January, 28), NewTotals: map[int]float64{2: 500}},
	)

	// The template caches a result for every total formula.
	tmpl := testutil.OpenWorkbook(t, fx.cfg.TemplatePath)
	cached, err := tmpl.GetCellValue("Pay 2", "C2")
	require.NoError(t, err)
	require.Equal(t, fmt.Sprint(testutil.TemplateCachedResult), cached)

	gen, err := rollforward.NewGenerator(fx.cfg).Generate(context.Background(), feb2024)
	require.NoError(t, err)

	f := testutil.OpenWorkbook(t, gen.OutputPath)
	v, err := f.GetCellValue("Feb - Pay 1", "C2")
	require.NoError(t, err)
	assert.Equal(t, "500", v)

	tests := []struct {
		sheet string
		cell  string
		refs  []string
	}{
		{sheet: "Feb - Pay 1", cell: "H2"},
		{sheet: "Feb - Pay 2", cell: "H5"},
		{sheet: "Feb - Pay 2", cell: "C2", refs: []string{"Feb - Pay 1"}},
	}
	for _, tt := range tests {
		formula, err := f.GetCellFormula(tt.sheet, tt.cell)
		require.NoError(t, err)
		assert.NotEmpty(t, formula, tt.cell)
		if tt.refs != nil {
			assert.Equal(t, tt.refs, workbook.SheetReferences(formula), tt.cell)
		}

		v, err := f.GetCellValue(tt.sheet, tt.cell)
		require.NoError(t, err)
		assert.Empty(t, v, "%s!%s still holds the template's cached result", tt.sheet, tt.cell)
	}
}

func TestGenerate_StartDayErrors(t *testing.T) {
	fx := newFixture(t)

	_, err := rollforward.NewGenerator(fx.cfg).Generate(context.Background(), feb2024)
	require.ErrorIs(t, err, rollforward.ErrNoStartDaySource)

	_, err = rollforward.NewGenerator(fx.cfg, rollforward.WithStartDaySource(service.FixedStartDay(30))).
		Generate(context.Background(), feb2024)
	require.ErrorIs(t, err, rollforward.ErrInvalidStartDay)

	boom := errors.New("operator went away")
	_, err = rollforward.NewGenerator(fx.cfg, rollforward.WithStartDaySource(service.StartDayFunc(
		func(context.Context, period.Period) (int, error) { return 0, boom },
	))).Generate(context.Background(), feb2024)
	require.ErrorIs(t, err, boom)

	// Nothing was written for any of the failures.
	_, statErr := os.Stat(filepath.Join(fx.base, "2024", "2024 - February.xlsx"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerate_ExistingDocument(t *testing.T) {
	fx := newFixture(t)
	gen := rollforward.NewGenerator(fx.cfg, rollforward.WithStartDaySource(service.FixedStartDay(1)))

	_, err := gen.Generate(context.Background(), mar2024)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), mar2024)
	require.ErrorIs(t, err, common.ErrDocumentExists)

	fx.cfg.Overwrite = true
	again, err := rollforward.NewGenerator(fx.cfg, rollforward.WithStartDaySource(service.FixedStartDay(8))).
		Generate(context.Background(), mar2024)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 8), again.AnchorDate)
}

func TestGenerate_MissingTemplateSheets(t *testing.T) {
	fx := newFixture(t)
	f := testutil.OpenWorkbook(t, fx.cfg.TemplatePath)
	require.NoError(t, f.DeleteSheet("Receipt 3"))
	require.NoError(t, f.Save())

	_, err := rollforward.NewGenerator(fx.cfg, rollforward.WithStartDaySource(service.FixedStartDay(1))).
		Generate(context.Background(), mar2024)
	require.ErrorIs(t, err, workbook.ErrSheetNotFound)
	assert.Contains(t, err.Error(), "Receipt 3")
}

func TestGenerate_ConfigErrors(t *testing.T) {
	fx := newFixture(t)

	_, err := rollforward.NewGenerator(rollforward.Config{OutputBaseDir: fx.base}).Generate(context.Background(), mar2024)
	require.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = rollforward.NewGenerator(rollforward.Config{TemplatePath: fx.cfg.TemplatePath}).Generate(context.Background(), mar2024)
	require.ErrorIs(t, err, common.ErrMissingConfig)

	cfg := fx.cfg
	cfg.TemplatePath = filepath.Join(t.TempDir(), "gone.xlsx")
	_, err = rollforward.NewGenerator(cfg, rollforward.WithStartDaySource(service.FixedStartDay(1))).
		Generate(context.Background(), mar2024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template")
}

func TestGenerate_ProgressAndRecording(t *testing.T) {
	fx := newFixture(t)
	db := testutil.SetupTestDB(t)
	stamp := date(2024, time.February, 20).Add(10 * time.Hour)

	var phases []string
	progress := func(phase string, done, total int) {
		assert.Equal(t, len(rollforward.Phases), total)
		assert.Equal(t, len(phases)+1, done)
		phases = append(phases, phase)
	}

	gen, err := rollforward.NewGenerator(fx.cfg,
		rollforward.WithStartDaySource(service.FixedStartDay(15)),
		rollforward.WithProgress(progress),
		rollforward.WithRecorder(db.Storage),
		rollforward.WithClock(func() time.Time { return stamp }),
	).Generate(context.Background(), mar2024)
	require.NoError(t, err)

	assert.Equal(t, rollforward.Phases, phases)
	assert.Equal(t, stamp, gen.CreatedAt)

	stored, err := db.Storage.GetGeneration(context.Background(), mar2024)
	require.NoError(t, err)
	assert.Equal(t, gen.OutputPath, stored.OutputPath)
	assert.Len(t, stored.RetainedSubPeriods(), 1)
}

type brokenRecorder struct{ calls int }

func (b *brokenRecorder) RecordGeneration(context.Context, *model.Generation) error {
	b.calls++
	return errors.New("disk full")
}

func TestGenerate_RecorderFailureIsNotFatal(t *testing.T) {
	fx := newFixture(t)
	rec := &brokenRecorder{}

	_, err := rollforward.NewGenerator(fx.cfg,
		rollforward.WithStartDaySource(service.FixedStartDay(1)),
		rollforward.WithRecorder(rec),
	).Generate(context.Background(), mar2024)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.calls)
}

func TestGenerate_Cancelled(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rollforward.NewGenerator(fx.cfg, rollforward.WithStartDaySource(service.FixedStartDay(1))).
		Generate(ctx, mar2024)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOutputPath(t *testing.T) {
	g := rollforward.NewGenerator(rollforward.Config{OutputBaseDir: "/budgets"})
	assert.Equal(t, "/budgets/2024/2024 - February.xlsx", g.OutputPath(feb2024))
	assert.Equal(t, "/budgets/2023/2023 - December.xlsx", g.OutputPath(jan2024.Previous()))
}

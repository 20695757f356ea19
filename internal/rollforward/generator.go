// Package rollforward produces a month's budget workbook from the template,
// carrying balances and dates forward from the previous month's workbook.
package rollforward

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Veraticus/biweekly/internal/common"
	"github.com/Veraticus/biweekly/internal/model"
	"github.com/Veraticus/biweekly/internal/period"
	"github.com/Veraticus/biweekly/internal/service"
	"github.com/Veraticus/biweekly/internal/workbook"
	"github.com/google/uuid"
)

// Generation phases, in the order they run. Every phase after PhaseCopy
// ends with a checkpoint of the workbook.
const (
	PhaseCopy         = "copy template"
	PhaseRename       = "rename sheets"
	PhaseCarryForward = "carry forward"
	PhaseFormulas     = "re-anchor formulas"
	PhasePrune        = "prune sub-periods"
)

// Phases lists every phase Generate reports progress for.
var Phases = []string{PhaseCopy, PhaseRename, PhaseCarryForward, PhaseFormulas, PhasePrune}

// Generator errors.
var (
	ErrNoStartDaySource = errors.New("no previous workbook and no start day source")
	ErrInvalidStartDay  = errors.New("start day is not a day of the target month")
)

// Config locates the template and the output tree.
type Config struct {
	TemplatePath  string
	OutputBaseDir string
	// Overwrite replaces an existing workbook for the target period.
	Overwrite bool
}

// Recorder stores a completed generation.
type Recorder interface {
	RecordGeneration(ctx context.Context, gen *model.Generation) error
}

// ProgressFunc is called after each phase completes.
type ProgressFunc func(phase string, done, total int)

// Option configures a Generator.
type Option func(*Generator)

// WithStartDaySource sets where the start day comes from when the previous
// month has no workbook.
func WithStartDaySource(src service.StartDaySource) Option {
	return func(g *Generator) { g.startDays = src }
}

// WithRecorder records every successful generation. Recording failures are
// logged and do not fail the run.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// WithProgress reports phase completion.
func WithProgress(fn ProgressFunc) Option {
	return func(g *Generator) { g.progress = fn }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// WithClock overrides the clock used to stamp generations.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// Generator rolls budget workbooks forward one month at a time.
type Generator struct {
	startDays service.StartDaySource
	recorder  Recorder
	progress  ProgressFunc
	logger    *slog.Logger
	now       func() time.Time
	cfg       Config
}

// NewGenerator creates a generator for cfg.
func NewGenerator(cfg Config, opts ...Option) *Generator {
	g := &Generator{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// OutputPath returns where the workbook for p lives:
// <outputBaseDir>/<year>/<year> - <MonthName>.xlsx.
func (g *Generator) OutputPath(p period.Period) string {
	return filepath.Join(g.cfg.OutputBaseDir, strconv.Itoa(p.Year), p.FileName())
}

// Generate creates the workbook for p and returns a description of what it wrote.
//
// A failure after the template has been copied leaves the workbook as it was
// at the last completed checkpoint.
func (g *Generator) Generate(ctx context.Context, p period.Period) (*model.Generation, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}

	out := g.OutputPath(p)
	logger := g.logger.With("period", p.String(), "output", out)
	logger.Info("Generating budget workbook", "template", g.cfg.TemplatePath)

	if _, err := os.Stat(g.cfg.TemplatePath); err != nil {
		return nil, fmt.Errorf("failed to locate template: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if _, err := os.Stat(out); err == nil && !g.cfg.Overwrite {
		return nil, fmt.Errorf("%w: %s", common.ErrDocumentExists, out)
	}

	pred, err := g.readPredecessor(p.Previous())
	if err != nil {
		return nil, err
	}

	gen := &model.Generation{
		ID:         uuid.NewString(),
		Period:     p,
		OutputPath: out,
	}
	logger = logger.With("run_id", gen.ID)
	if err := g.anchor(ctx, p, pred, gen); err != nil {
		return nil, err
	}
	chain := period.Chain(gen.AnchorDate)

	if err := workbook.CopyFile(g.cfg.TemplatePath, out); err != nil {
		return nil, err
	}
	g.report(PhaseCopy)

	doc, err := workbook.Open(out, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = doc.Close() }()

	if err := requireTemplateSheets(doc); err != nil {
		return nil, err
	}

	steps := []struct {
		run   func() error
		phase string
	}{
		{phase: PhaseRename, run: func() error { return renamePaySheets(doc, p) }},
		{phase: PhaseCarryForward, run: func() error { return carryForward(doc, p, chain, pred) }},
		{phase: PhaseFormulas, run: func() error {
			if err := reanchorFormulas(doc, p, logger); err != nil {
				return err
			}
			return doc.ClearCachedResults()
		}},
		{phase: PhasePrune, run: func() error {
			subs, err := prune(doc, p, chain, logger)
			gen.SubPeriods = subs
			return err
		}},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step.run(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.phase, err)
		}
		if err := doc.Checkpoint(step.phase); err != nil {
			return nil, err
		}
		g.report(step.phase)
	}

	gen.CreatedAt = g.now()
	logger.Info("Budget workbook generated",
		"anchor", gen.AnchorKind,
		"start", gen.AnchorDate.Format("2006-01-02"),
		"sub_periods", len(gen.RetainedSubPeriods()))

	if g.recorder != nil {
		if err := g.recorder.RecordGeneration(ctx, gen); err != nil {
			logger.Warn("Failed to record generation", "error", err)
		}
	}

	return gen, nil
}

func (g *Generator) validate() error {
	if g.cfg.TemplatePath == "" {
		return fmt.Errorf("%w: template path", common.ErrMissingConfig)
	}
	if g.cfg.OutputBaseDir == "" {
		return fmt.Errorf("%w: output base directory", common.ErrMissingConfig)
	}
	return nil
}

// anchor decides the first sub-period's start date and records the carried
// balances on gen.
func (g *Generator) anchor(ctx context.Context, p period.Period, pred *predecessor, gen *model.Generation) error {
	if pred != nil {
		gen.PredecessorPath = pred.path
		gen.SourceSheet = pred.sheet
		gen.Balances = pred.balances
		if !pred.end.IsZero() {
			gen.AnchorKind = model.AnchorPredecessor
			gen.AnchorDate = pred.end.AddDate(0, 0, 1)
			return nil
		}
	}

	if g.startDays == nil {
		return ErrNoStartDaySource
	}
	day, err := g.startDays.StartDay(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to get start day: %w", err)
	}
	if !p.ValidDay(day) {
		return fmt.Errorf("%w: %d for %s", ErrInvalidStartDay, day, p)
	}

	gen.AnchorKind = model.AnchorOperator
	gen.AnchorDate = p.Date(day)
	return nil
}

func (g *Generator) report(phase string) {
	if g.progress == nil {
		return
	}
	for i, name := range Phases {
		if name == phase {
			g.progress(phase, i+1, len(Phases))
			return
		}
	}
}

func requireTemplateSheets(doc *workbook.Document) error {
	names := make([]string, 0, 2*period.Count)
	for i := 1; i <= period.Count; i++ {
		names = append(names, workbook.PaySheet(i), workbook.ReceiptSheet(i))
	}
	return doc.Require(names...)
}

func renamePaySheets(doc *workbook.Document, p period.Period) error {
	for i := 1; i <= period.Count; i++ {
		if err := doc.RenameSheet(workbook.PaySheet(i), workbook.RenamedPaySheet(p.MonthAbbrev(), i)); err != nil {
			return err
		}
	}
	return nil
}

// carryForward writes the predecessor's balances into the first Pay sheet
// and every sub-period's dates into its Pay and Receipt sheets.
func carryForward(doc *workbook.Document, p period.Period, chain [period.Count]period.SubPeriod, pred *predecessor) error {
	first := workbook.RenamedPaySheet(p.MonthAbbrev(), 1)
	if pred != nil {
		for _, b := range pred.balances {
			if err := doc.SetValue(first, workbook.Cell(workbook.TotalAmountColumn, b.Row), b.Text); err != nil {
				return err
			}
		}
	}

	for _, sp := range chain {
		pay := workbook.RenamedPaySheet(p.MonthAbbrev(), sp.Index)
		receipt := workbook.ReceiptSheet(sp.Index)
		writes := []struct {
			date        time.Time
			sheet, cell string
		}{
			{sheet: pay, cell: workbook.PayStartDateCell, date: sp.Start},
			{sheet: pay, cell: workbook.PayEndDateCell, date: sp.End},
			{sheet: receipt, cell: workbook.ReceiptStartDateCell, date: sp.Start},
			{sheet: receipt, cell: workbook.ReceiptEndDateCell, date: sp.End},
		}
		for _, w := range writes {
			if err := doc.SetDate(w.sheet, w.cell, w.date); err != nil {
				return err
			}
		}
	}
	return nil
}

// reanchorFormulas points total amount formulas that still name a generic
// template Pay sheet at its renamed counterpart.
func reanchorFormulas(doc *workbook.Document, p period.Period, logger *slog.Logger) error {
	rewrites := 0
	for i := 1; i <= period.Count; i++ {
		sheet := workbook.RenamedPaySheet(p.MonthAbbrev(), i)
		for _, row := range workbook.CategoryRows() {
			cell := workbook.Cell(workbook.TotalAmountColumn, row)
			formula, err := doc.Formula(sheet, cell)
			if err != nil {
				return err
			}
			if formula == "" {
				continue
			}

			updated, n := formula, 0
			for j := 1; j <= period.Count; j++ {
				var c int
				updated, c = workbook.RewriteSheetReference(updated, workbook.PaySheet(j), workbook.RenamedPaySheet(p.MonthAbbrev(), j))
				n += c
			}
			if n == 0 {
				continue
			}
			if err := doc.SetFormula(sheet, cell, updated); err != nil {
				return err
			}
			rewrites += n
		}
	}
	logger.Debug("Re-anchored formulas", "references", rewrites)
	return nil
}

// prune removes the sheets of sub-periods that end after the target month.
// The first sub-period is always kept.
func prune(doc *workbook.Document, p period.Period, chain [period.Count]period.SubPeriod, logger *slog.Logger) ([]model.SubPeriod, error) {
	subs := make([]model.SubPeriod, len(chain))
	for i, sp := range chain {
		subs[i] = model.SubPeriod{SubPeriod: sp, Retained: true}
	}

	for i := len(chain) - 1; i >= 1; i-- {
		sp := chain[i]
		if !sp.Overflows(p) {
			continue
		}
		logger.Info("Sub-period ends in the next month, removing its sheets",
			"sub_period", sp.Index,
			"end", sp.End.Format("2006-01-02"))
		for _, sheet := range []string{workbook.RenamedPaySheet(p.MonthAbbrev(), sp.Index), workbook.ReceiptSheet(sp.Index)} {
			if err := doc.DeleteSheet(sheet); err != nil {
				return subs, err
			}
		}
		subs[i].Retained = false
	}
	return subs, nil
}

// predecessor is what the previous month's workbook contributes.
type predecessor struct {
	end      time.Time
	path     string
	sheet    string
	balances []model.Balance
}

// readPredecessor loads the workbook for prev. It returns nil when that
// workbook does not exist.
func (g *Generator) readPredecessor(prev period.Period) (*predecessor, error) {
	path := g.OutputPath(prev)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		g.logger.Info("No workbook for previous month", "expected", path)
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to check previous workbook: %w", err)
	}

	doc, err := workbook.Open(path, g.logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = doc.Close() }()

	sheet, end, err := g.mostRecentPaySheet(doc, prev)
	if err != nil {
		return nil, err
	}

	pred := &predecessor{path: path, sheet: sheet, end: end}
	for _, row := range workbook.CategoryRows() {
		raw, err := doc.Value(sheet, workbook.Cell(workbook.NewTotalAmountColumn, row))
		if err != nil {
			return nil, err
		}
		pred.balances = append(pred.balances, model.NewBalance(row, raw))
	}

	g.logger.Info("Read previous month's workbook",
		"path", path,
		"sheet", sheet,
		"end", end.Format("2006-01-02"))
	return pred, nil
}

// mostRecentPaySheet picks the highest-numbered Pay sheet present, unless a
// lower-numbered one carries a later end date. The returned end date is zero
// when the chosen sheet holds no readable date.
func (g *Generator) mostRecentPaySheet(doc *workbook.Document, prev period.Period) (string, time.Time, error) {
	var (
		chosen  string
		chosenT time.Time
	)
	for i := period.Count; i >= 1; i-- {
		name := workbook.RenamedPaySheet(prev.MonthAbbrev(), i)
		if !doc.HasSheet(name) {
			name = workbook.PaySheet(i)
			if !doc.HasSheet(name) {
				continue
			}
		}

		end, err := doc.Date(name, workbook.PayEndDateCell)
		if err != nil {
			g.logger.Warn("Unreadable end date in previous workbook", "sheet", name, "error", err)
		}

		switch {
		case chosen == "":
			chosen, chosenT = name, end
		case err == nil && end.After(chosenT):
			g.logger.Warn("Lower-numbered Pay sheet ends later, using it instead",
				"sheet", name, "end", end.Format("2006-01-02"), "instead_of", chosen)
			chosen, chosenT = name, end
		}
	}

	if chosen == "" {
		return "", time.Time{}, fmt.Errorf("%w: no Pay sheet in %s", workbook.ErrSheetNotFound, doc.Path())
	}
	return chosen, chosenT, nil
}

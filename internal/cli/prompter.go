package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/biweekly/internal/period"
	"github.com/Veraticus/biweekly/internal/service"
)

// Prompter asks the operator for values on a terminal.
type Prompter struct {
	reader *NonBlockingReader
	writer io.Writer
}

var _ service.StartDaySource = (*Prompter)(nil)

// NewPrompter creates a prompter. A nil reader reads standard input and a
// nil writer writes to standard output.
func NewPrompter(reader *NonBlockingReader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = NewNonBlockingReader(os.Stdin)
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{reader: reader, writer: writer}
}

// PromptInt asks for an integer in [lo, hi] until one is given.
func (p *Prompter) PromptInt(ctx context.Context, label string, lo, hi int) (int, error) {
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt(label)); err != nil {
			return 0, fmt.Errorf("failed to write prompt: %w", err)
		}

		line, err := p.reader.ReadLine(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}

		n, convErr := strconv.Atoi(line)
		if convErr == nil && n >= lo && n <= hi {
			return n, nil
		}

		msg := fmt.Sprintf("Value must be a number between %d and %d. Value selected: %s", lo, hi, line)
		if _, err := fmt.Fprintln(p.writer, FormatError(msg)); err != nil {
			return 0, fmt.Errorf("failed to write error: %w", err)
		}
	}
}

// StartDay asks which day of the month the first pay period starts on. It is
// used when the previous month has no workbook to continue from.
func (p *Prompter) StartDay(ctx context.Context, per period.Period) (int, error) {
	notice := fmt.Sprintf("No workbook found for %s to determine the start date of %s.", per.Previous(), per)
	if _, err := fmt.Fprintln(p.writer, FormatWarning(notice)); err != nil {
		return 0, fmt.Errorf("failed to write notice: %w", err)
	}
	return p.PromptInt(ctx, fmt.Sprintf("Start day of %s (1-%d)", per, per.DaysInMonth()), 1, per.DaysInMonth())
}

// PromptPeriod asks for a year and a month.
func (p *Prompter) PromptPeriod(ctx context.Context) (period.Period, error) {
	year, err := p.PromptInt(ctx, "Year", 1, 9999)
	if err != nil {
		return period.Period{}, err
	}
	month, err := p.PromptInt(ctx, "Month (1-12)", 1, 12)
	if err != nil {
		return period.Period{}, err
	}
	return period.New(year, month)
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(question+" [y/N]")); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}
	line, err := p.reader.ReadLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

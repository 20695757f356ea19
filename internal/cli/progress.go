package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// PhaseProgress shows a progress bar advanced once per completed phase.
type PhaseProgress struct {
	bar    *progressbar.ProgressBar
	writer io.Writer
}

// NewPhaseProgress creates a bar over total phases.
func NewPhaseProgress(writer io.Writer, total int) *PhaseProgress {
	p := &PhaseProgress{writer: writer}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan][bold]Generating workbook...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Update records that phase finished as step done of total.
func (p *PhaseProgress) Update(phase string, done, _ int) {
	p.bar.Describe(fmt.Sprintf("[cyan][bold]%s[reset]", phase))
	if err := p.bar.Set(done); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

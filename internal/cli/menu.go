package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Option is one numbered entry of a Menu.
type Option interface {
	Text() string
	// Run performs the option. It reports whether the menu should close.
	Run(ctx context.Context) (quit bool, err error)
}

// FuncOption runs a function.
type FuncOption struct {
	Fn        func(ctx context.Context) error
	Label     string
	QuitAfter bool
}

// Text implements Option.
func (o FuncOption) Text() string { return o.Label }

// Run implements Option.
func (o FuncOption) Run(ctx context.Context) (bool, error) {
	if o.Fn == nil {
		return o.QuitAfter, nil
	}
	return o.QuitAfter, o.Fn(ctx)
}

// NavigationOption opens another menu. When the sub-menu closes the parent
// is shown again unless QuitAfter is set.
type NavigationOption struct {
	Menu      *Menu
	Label     string
	QuitAfter bool
}

// Text implements Option.
func (o NavigationOption) Text() string { return o.Label }

// Run implements Option.
func (o NavigationOption) Run(ctx context.Context) (bool, error) {
	if o.Menu == nil {
		return true, nil
	}
	return o.QuitAfter, o.Menu.Run(ctx)
}

// QuitOption closes the menu.
type QuitOption struct {
	Label string
}

// Text implements Option.
func (o QuitOption) Text() string { return o.Label }

// Run implements Option.
func (o QuitOption) Run(context.Context) (bool, error) { return true, nil }

// Menu shows numbered options and runs the one the operator picks, until a
// quitting option is chosen or input ends.
type Menu struct {
	reader  *NonBlockingReader
	writer  io.Writer
	name    string
	options []Option
}

// NewMenu creates an empty menu.
func NewMenu(name string, reader *NonBlockingReader, writer io.Writer) *Menu {
	if reader == nil {
		reader = NewNonBlockingReader(os.Stdin)
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Menu{name: name, reader: reader, writer: writer}
}

// Add appends options in display order.
func (m *Menu) Add(opts ...Option) *Menu {
	m.options = append(m.options, opts...)
	return m
}

// Options returns the menu's options.
func (m *Menu) Options() []Option {
	return m.options
}

// Run shows the menu until it is quit. A failing option is reported and
// the menu is shown again. End of input closes the menu without error.
func (m *Menu) Run(ctx context.Context) error {
	if len(m.options) == 0 {
		return fmt.Errorf("menu %q has no options", m.name)
	}

	if _, err := fmt.Fprintf(m.writer, "%s\n%s\n", FormatTitle(strings.ToUpper(m.name)), strings.Repeat("-", 40)); err != nil {
		return fmt.Errorf("failed to write menu header: %w", err)
	}

	for {
		if _, err := fmt.Fprint(m.writer, m.prompt()); err != nil {
			return fmt.Errorf("failed to write menu: %w", err)
		}

		line, err := m.reader.ReadLine(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, ErrInputCancelled):
			return ctx.Err()
		case err != nil:
			return fmt.Errorf("failed to read selection: %w", err)
		}
		_, _ = fmt.Fprintln(m.writer)

		opt, ok := m.selection(line)
		if !ok {
			msg := fmt.Sprintf("Input option must be a number between 0 and %d. Value selected: %s", len(m.options)-1, line)
			_, _ = fmt.Fprintln(m.writer, FormatError(msg))
			continue
		}

		quit, err := opt.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Debug("Menu option failed", "menu", m.name, "option", opt.Text(), "error", err)
			_, _ = fmt.Fprintln(m.writer, FormatError(err.Error()))
		}
		if quit {
			return nil
		}
	}
}

func (m *Menu) prompt() string {
	var b strings.Builder
	b.WriteString("Select an option...\n")
	for i, opt := range m.options {
		fmt.Fprintf(&b, "%d) %s\n", i, opt.Text())
	}
	b.WriteString("\n")
	b.WriteString(FormatPrompt("Choice"))
	return b.String()
}

func (m *Menu) selection(line string) (Option, bool) {
	n, err := strconv.Atoi(line)
	if err != nil || n < 0 || n >= len(m.options) {
		return nil, false
	}
	return m.options[n], true
}

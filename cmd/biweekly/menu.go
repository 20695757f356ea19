package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Veraticus/biweekly/internal/cli"
	"github.com/Veraticus/biweekly/internal/common"
)

// newMainMenu builds the interactive menu. Every prompt shares reader so
// buffered input is never lost between the menu and its options.
func newMainMenu(reader *cli.NonBlockingReader, out io.Writer) *cli.Menu {
	prompter := cli.NewPrompter(reader, out)

	budget := cli.NewMenu("Budget tools", reader, out).Add(
		cli.FuncOption{
			Label: "Generate biweekly budget",
			Fn: func(ctx context.Context) error {
				return generateInteractive(ctx, prompter, out)
			},
		},
		cli.FuncOption{
			Label: "Show history",
			Fn: func(ctx context.Context) error {
				return showHistory(ctx, out)
			},
		},
		cli.QuitOption{Label: "Back"},
	)

	return cli.NewMenu("Biweekly", reader, out).Add(
		cli.NavigationOption{Label: "Budget tools", Menu: budget},
		cli.QuitOption{Label: "Quit"},
	)
}

func runMenu(ctx context.Context, in io.Reader, out io.Writer) error {
	return newMainMenu(cli.NewNonBlockingReader(in), out).Run(ctx)
}

// generateInteractive asks for the period and generates it, offering to
// replace a workbook that already exists.
func generateInteractive(ctx context.Context, prompter *cli.Prompter, out io.Writer) error {
	p, err := prompter.PromptPeriod(ctx)
	if err != nil {
		return err
	}

	opts := generateOptions{startDays: prompter}
	_, err = runGeneration(ctx, p, opts, out)
	if !errors.Is(err, common.ErrDocumentExists) {
		return err
	}

	replace, confirmErr := prompter.Confirm(ctx, fmt.Sprintf("A workbook for %s already exists. Replace it?", p))
	if confirmErr != nil {
		return confirmErr
	}
	if !replace {
		_, _ = fmt.Fprintln(out, cli.FormatInfo("Kept the existing workbook."))
		return nil
	}

	opts.force = true
	_, err = runGeneration(ctx, p, opts, out)
	return err
}

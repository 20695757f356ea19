package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Veraticus/biweekly/internal/cli"
	"github.com/Veraticus/biweekly/internal/common"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [year month]",
		Short: "Show generated budget workbooks",
		Long: `List every budget workbook recorded in the history database, most
recent first. Given a year and month, show the details of that generation.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				return showGeneration(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
			}
			return showHistory(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func showHistory(ctx context.Context, out io.Writer) error {
	store, err := initStorage(ctx, loadSettings())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	gens, err := store.ListGenerations(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, cli.RenderHistory(gens))
	return err
}

func showGeneration(ctx context.Context, out io.Writer, yearArg, monthArg string) error {
	p, err := parsePeriod(yearArg, monthArg)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, loadSettings())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	gen, err := store.GetGeneration(ctx, p)
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError(fmt.Sprintf("No workbook has been generated for %s.", p), err)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, cli.RenderGeneration(gen))
	return err
}

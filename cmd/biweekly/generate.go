package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/Veraticus/biweekly/internal/cli"
	"github.com/Veraticus/biweekly/internal/common"
	"github.com/Veraticus/biweekly/internal/config"
	"github.com/Veraticus/biweekly/internal/model"
	"github.com/Veraticus/biweekly/internal/period"
	"github.com/Veraticus/biweekly/internal/rollforward"
	"github.com/Veraticus/biweekly/internal/service"
	"github.com/Veraticus/biweekly/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type generateOptions struct {
	startDays service.StartDaySource
	force     bool
	publish   bool
	noHistory bool
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <year> <month>",
		Short: "Generate the budget workbook for a month",
		Long: `Generate the budget workbook for a month from the template.

The first pay period starts the day after the previous month's last pay
period ended. When the previous month has no workbook you are asked for the
start day, or it can be given with --start-day.`,
		Example: `  biweekly generate 2024 2
  biweekly generate 2024 3 --start-day 15
  biweekly generate 2025 1 --force --publish`,
		Args: cobra.ExactArgs(2),
		RunE: runGenerate,
	}

	cmd.Flags().Int("start-day", 0, "day of the month the first pay period starts on, used when there is no previous workbook")
	cmd.Flags().Bool("force", false, "overwrite an existing workbook for the month")
	cmd.Flags().Bool("publish", false, "append the generated pay periods to Google Sheets")
	cmd.Flags().Bool("no-history", false, "do not record the generation in the history database")

	return cmd
}

// parsePeriod parses the year and month arguments.
func parsePeriod(yearArg, monthArg string) (period.Period, error) {
	year, err := strconv.Atoi(yearArg)
	if err != nil {
		return period.Period{}, fmt.Errorf("%w: year %q is not a number", common.ErrInvalidInput, yearArg)
	}
	month, err := strconv.Atoi(monthArg)
	if err != nil {
		return period.Period{}, fmt.Errorf("%w: month %q is not a number", common.ErrInvalidInput, monthArg)
	}
	return period.New(year, month)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	p, err := parsePeriod(args[0], args[1])
	if err != nil {
		return err
	}

	startDay, _ := cmd.Flags().GetInt("start-day")
	opts := generateOptions{}
	opts.force, _ = cmd.Flags().GetBool("force")
	opts.publish, _ = cmd.Flags().GetBool("publish")
	opts.noHistory, _ = cmd.Flags().GetBool("no-history")

	if startDay != 0 {
		opts.startDays = service.FixedStartDay(startDay)
	} else {
		opts.startDays = cli.NewPrompter(cli.NewNonBlockingReader(cmd.InOrStdin()), cmd.OutOrStdout())
	}

	gen, err := runGeneration(cmd.Context(), p, opts, cmd.OutOrStdout())
	noteIgnoredStartDay(slog.Default(), gen, startDay)
	return err
}

// noteIgnoredStartDay logs when --start-day was given but the previous
// month's workbook supplied the start date instead. It reports whether it
// logged.
func noteIgnoredStartDay(logger *slog.Logger, gen *model.Generation, startDay int) bool {
	if startDay == 0 || gen == nil || gen.AnchorKind != model.AnchorPredecessor {
		return false
	}
	logger.Info("Ignoring --start-day, the previous month's workbook sets the start date",
		"start_day", startDay,
		"workbook", gen.PredecessorPath,
		"start", gen.AnchorDate.Format("2006-01-02"))
	return true
}

// runGeneration generates the workbook for p, records it and optionally
// publishes it, reporting progress and the result on out.
func runGeneration(ctx context.Context, p period.Period, opts generateOptions, out io.Writer) (*model.Generation, error) {
	settings := loadSettings()
	if err := settings.Validate(); err != nil {
		return nil, common.NewUserError(fmt.Sprintf("Settings in %s are incomplete", settings.File()), err)
	}

	progress := cli.NewPhaseProgress(out, len(rollforward.Phases))
	genOpts := []rollforward.Option{
		rollforward.WithStartDaySource(opts.startDays),
		rollforward.WithProgress(progress.Update),
		rollforward.WithLogger(slog.Default()),
	}

	if !opts.noHistory {
		store, err := initStorage(ctx, settings)
		if err != nil {
			slog.Warn("History database unavailable, generation will not be recorded", "error", err)
		} else {
			defer func() { _ = store.Close() }()
			genOpts = append(genOpts, rollforward.WithRecorder(store))
		}
	}

	generator := rollforward.NewGenerator(rollforward.Config{
		TemplatePath:  settings.TemplateFilePath,
		OutputBaseDir: settings.OutputBaseDir,
		Overwrite:     opts.force,
	}, genOpts...)

	interrupts := cli.NewInterruptHandler(out)
	genCtx := interrupts.HandleInterrupts(ctx, generator.OutputPath(p))
	defer interrupts.Stop()

	gen, err := generator.Generate(genCtx, p)
	if err != nil {
		if interrupts.WasInterrupted() {
			return nil, err
		}
		switch {
		case errors.Is(err, common.ErrDocumentExists):
			return nil, common.NewUserError(
				fmt.Sprintf("A workbook for %s already exists. Use --force to replace it.", p), err)
		case errors.Is(err, rollforward.ErrInvalidStartDay):
			return nil, common.NewUserError(
				fmt.Sprintf("The start day must be between 1 and %d for %s.", p.DaysInMonth(), p), err)
		}
		return nil, fmt.Errorf("failed to generate %s: %w", p, err)
	}

	if _, err := fmt.Fprintln(out, cli.RenderGeneration(gen)); err != nil {
		return gen, fmt.Errorf("failed to write summary: %w", err)
	}

	if opts.publish {
		if err := publish(ctx, gen); err != nil {
			return gen, err
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("Published to Google Sheets"))
	}

	return gen, nil
}

func publish(ctx context.Context, gen *model.Generation) error {
	sheetsConfig, err := config.LoadSheetsConfig(viper.GetViper())
	if err != nil {
		return common.NewUserError("Google Sheets is not configured. Run 'biweekly auth sheets' first.", err)
	}

	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}

	if err := writer.Publish(ctx, gen); err != nil {
		common.LogError(err, "Failed to publish generation", common.Fields{
			"period":         gen.Period.String(),
			"spreadsheet_id": sheetsConfig.SpreadsheetID,
		})
		return fmt.Errorf("failed to publish %s: %w", gen.Period, err)
	}
	return nil
}

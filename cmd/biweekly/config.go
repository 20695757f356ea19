package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/biweekly/internal/cli"
	"github.com/Veraticus/biweekly/internal/config"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved settings",
		Long: `Show the settings file in use and the values the generator will run with,
after environment overrides and path expansion.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := loadSettings()

			var b strings.Builder
			fmt.Fprintf(&b, "Settings file:    %s\n", settings.File())
			fmt.Fprintf(&b, "Template:         %s%s\n", settings.TemplateFilePath, fileState(settings.TemplateFilePath))
			fmt.Fprintf(&b, "Output directory: %s%s\n", settings.OutputBaseDir, fileState(settings.OutputBaseDir))
			fmt.Fprintf(&b, "History database: %s", settings.HistoryDatabase)

			if _, err := fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Settings", b.String())); err != nil {
				return err
			}

			if err := settings.Validate(); err != nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("%v (set %s in %s or BIWEEKLY_%s)",
					err, missingKey(settings), config.SettingsFileName, strings.ToUpper(missingKey(settings)))))
			}
			return nil
		},
	}
}

func fileState(path string) string {
	if path == "" {
		return " (not set)"
	}
	if _, err := os.Stat(path); err != nil {
		return " (missing)"
	}
	return ""
}

func missingKey(s *config.Settings) string {
	if s.TemplateFilePath == "" {
		return config.KeyTemplateFilePath
	}
	return config.KeyOutputBaseDir
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Veraticus/biweekly/internal/common"
	"github.com/Veraticus/biweekly/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// appModeCLI is the only supported --app-mode.
const appModeCLI = "cli"

var (
	cfgFile string
	appMode string
	version = "dev"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "biweekly",
		Short: "📒 Biweekly budget workbook generator",
		Long: `biweekly rolls a biweekly budget workbook forward one month at a time.

Each month's workbook is copied from a template. Pay sheets are renamed for
the month, category balances and dates are carried over from the previous
month's workbook, and pay periods that spill into the next month are removed.

Run without a command to use the interactive menu.`,
		PersistentPreRunE: initConfig,
		RunE:              runRoot,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default: <user config dir>/biweekly/<user>/service_config.json)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.Flags().StringVar(&appMode, "app-mode", appModeCLI, "front end to run when no command is given (cli)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		if userErr, ok := common.AsUserError(err); ok {
			fmt.Fprintln(os.Stderr, userErr.UserMessage)
			slog.Debug("Command failed", "error", userErr.Err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if cfgFile == "" {
		dir, err := config.UserDir()
		if err != nil {
			return err
		}
		created, err := config.Bootstrap(dir)
		if err != nil {
			return err
		}
		for _, name := range created {
			slog.Info("Created default settings file", "file", filepath.Join(dir, name))
		}
		cfgFile = filepath.Join(dir, config.SettingsFileName)
	}

	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("json")
	viper.SetEnvPrefix("BIWEEKLY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	if err := common.SetupLogger(viper.GetString("logging.level"), viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func runRoot(cmd *cobra.Command, _ []string) error {
	if appMode != appModeCLI {
		return fmt.Errorf("%w: unsupported app mode %q (only %q is available)", common.ErrInvalidConfig, appMode, appModeCLI)
	}
	return runMenu(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "biweekly %s\n", version)
		},
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/biweekly/internal/config"
	"github.com/Veraticus/biweekly/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

This command will:
1. Print a URL to authenticate with Google in your browser
2. Save the token next to your settings file
3. Store the refresh token in your settings file

Run it once before using 'biweekly generate --publish'.`,
		RunE: runAuthSheets,
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides settings)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides settings)")
	cmd.Flags().String("listen", "localhost:8080", "address for the OAuth2 callback server")

	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	clientID := viper.GetString("sheets.client_id")
	clientSecret := viper.GetString("sheets.client_secret")

	if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
		clientID = flagID
	}
	if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
		clientSecret = flagSecret
	}

	if clientID == "" {
		clientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}

	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("OAuth2 credentials not found. Please set sheets.client_id and sheets.client_secret in %s or use --client-id and --client-secret flags", config.SettingsFileName)
	}

	listen, _ := cmd.Flags().GetString("listen")
	tokenFile := filepath.Join(filepath.Dir(viper.ConfigFileUsed()), "sheets-token.json")

	slog.Info("Starting Google Sheets authentication", "token_file", tokenFile)

	token, err := sheets.Authenticate(ctx, sheets.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    tokenFile,
		ListenAddr:   listen,
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	viper.Set("sheets.client_id", clientID)
	viper.Set("sheets.client_secret", clientSecret)
	viper.Set("sheets.refresh_token", token.RefreshToken)

	if err := viper.WriteConfig(); err != nil {
		slog.Warn("Failed to update settings file with refresh token", "error", err)
		slog.Info("Add the refresh token to your settings file manually",
			"key", "sheets.refresh_token", "value", token.RefreshToken)
		return nil
	}

	slog.Info("Updated settings file with refresh token", "file", viper.ConfigFileUsed())
	slog.Info("Google Sheets is now configured. Use 'biweekly generate --publish' to publish pay periods.")

	return nil
}

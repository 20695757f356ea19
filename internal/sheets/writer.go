package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Veraticus/biweekly/internal/common"
	"github.com/Veraticus/biweekly/internal/model"
	"github.com/Veraticus/biweekly/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer implements service.Publisher for Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

var _ service.Publisher = (*Writer)(nil)

// NewWriter creates a new Google Sheets publisher.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// Publish appends one row per sub-period of gen to the configured tab.
func (w *Writer) Publish(ctx context.Context, gen *model.Generation) error {
	if gen == nil {
		return fmt.Errorf("%w: nil generation", common.ErrInvalidInput)
	}

	w.logger.Info("publishing generation",
		"period", gen.Period.String(),
		"sub_periods", len(gen.SubPeriods))

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var spreadsheetID string
	err := common.WithRetry(ctx, "get spreadsheet", func(ctx context.Context) error {
		id, err := w.getOrCreateSpreadsheet(ctx)
		spreadsheetID = id
		return classifyError(err)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	err = common.WithRetry(ctx, "ensure tab", func(ctx context.Context) error {
		return classifyError(w.ensureTab(ctx, spreadsheetID))
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to prepare tab %q: %w", w.config.TabName, err)
	}

	rows := RowsFor(gen)
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, r.Values())
	}

	err = common.WithRetry(ctx, "append rows", func(ctx context.Context) error {
		return classifyError(w.appendRows(ctx, spreadsheetID, values))
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to append rows: %w", err)
	}

	w.logger.Info("generation published",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets an existing spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: w.config.TabName}},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	// Remember it so a retry does not create a second spreadsheet.
	w.config.SpreadsheetID = created.SpreadsheetId
	return created.SpreadsheetId, nil
}

// ensureTab creates the publishing tab with its header row when missing.
func (w *Writer) ensureTab(ctx context.Context, spreadsheetID string) error {
	ss, err := w.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return err
	}

	if !hasTab(ss, w.config.TabName) {
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: w.config.TabName}}},
			},
		}
		if _, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
			return err
		}
		w.logger.Debug("added tab", "tab", w.config.TabName)
	}

	header, err := w.service.Spreadsheets.Values.Get(spreadsheetID, tabRange(w.config.TabName, "A1:H1")).Context(ctx).Do()
	if err != nil {
		return err
	}
	if len(header.Values) > 0 {
		return nil
	}

	_, err = w.service.Spreadsheets.Values.Update(spreadsheetID, tabRange(w.config.TabName, "A1"),
		&sheets.ValueRange{Values: [][]any{Header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// appendRows appends values after the last row of the tab.
func (w *Writer) appendRows(ctx context.Context, spreadsheetID string, values [][]any) error {
	_, err := w.service.Spreadsheets.Values.Append(spreadsheetID, tabRange(w.config.TabName, "A:H"),
		&sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func hasTab(ss *sheets.Spreadsheet, title string) bool {
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return true
		}
	}
	return false
}

func tabRange(tab, cells string) string {
	return fmt.Sprintf("'%s'!%s", tab, cells)
}

// classifyError marks API failures that are worth retrying.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
		case apiErr.Code >= http.StatusInternalServerError:
			return &common.RetryableError{Err: err, Retryable: true}
		default:
			return err
		}
	}

	return err
}

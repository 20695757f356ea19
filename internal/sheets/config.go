// Package sheets publishes generation summaries to Google Sheets.
package sheets

import (
	"fmt"
	"time"

	"github.com/Veraticus/biweekly/internal/common"
)

// Config says where generations are published and how to authenticate.
// Exactly one of the OAuth2 triple (ClientID, ClientSecret, RefreshToken)
// or ServiceAccountPath must be set.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	// SpreadsheetID selects an existing spreadsheet. When empty, one named
	// SpreadsheetName is created on first publish.
	SpreadsheetID   string
	SpreadsheetName string
	TabName         string
	// TimeZone is applied to a newly created spreadsheet.
	TimeZone      string
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns the publisher defaults; authentication is left unset.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName: "Biweekly Budget",
		TabName:         "Periods",
		TimeZone:        "America/New_York",
		RetryAttempts:   3,
		RetryDelay:      time.Second,
	}
}

func (c *Config) hasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Validate reports the first problem that would stop a publish.
func (c *Config) Validate() error {
	switch {
	case !c.hasOAuth() && c.ServiceAccountPath == "":
		return fmt.Errorf("%w: no authentication method configured", common.ErrMissingConfig)
	case c.hasOAuth() && c.ServiceAccountPath != "":
		return fmt.Errorf("%w: multiple authentication methods configured; use either OAuth2 or service account", common.ErrInvalidConfig)
	case c.TabName == "":
		return fmt.Errorf("%w: tab name cannot be empty", common.ErrMissingConfig)
	case c.RetryAttempts < 0:
		return fmt.Errorf("%w: retry attempts cannot be negative", common.ErrInvalidConfig)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry delay cannot be negative", common.ErrInvalidConfig)
	}

	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return fmt.Errorf("%w: time zone %q: %w", common.ErrInvalidConfig, c.TimeZone, err)
		}
	}
	return nil
}

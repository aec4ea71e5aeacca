// Package sheets exports analysis history to a Google Sheets spreadsheet.
package sheets

import (
	"fmt"
	"time"
)

// Config holds the configuration for the Google Sheets writer. Field tags
// match the sheets.* configuration keys.
type Config struct {
	ServiceAccountPath string        `mapstructure:"service_account"`
	ClientID           string        `mapstructure:"client_id"`
	ClientSecret       string        `mapstructure:"client_secret"`
	TokenFile          string        `mapstructure:"token_file"`
	SpreadsheetID      string        `mapstructure:"spreadsheet_id"`
	SpreadsheetName    string        `mapstructure:"spreadsheet_name"`
	SheetTitle         string        `mapstructure:"sheet_title"`
	TimeZone           string        `mapstructure:"time_zone"`
	CallbackAddr       string        `mapstructure:"callback_addr"`
	BatchSize          int           `mapstructure:"batch_size"`
	RetryAttempts      int           `mapstructure:"retry_attempts"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	EnableFormatting   bool          `mapstructure:"formatting"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName:  "ECG Analyses",
		SheetTitle:       "Analyses",
		TimeZone:         "UTC",
		CallbackAddr:     "localhost:8085",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
		EnableFormatting: true,
	}
}

// UsesOAuth reports whether the config authenticates as a user rather
// than a service account.
func (c *Config) UsesOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.TokenFile != ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasServiceAccount := c.ServiceAccountPath != ""
	if !c.UsesOAuth() && !hasServiceAccount {
		return fmt.Errorf("no authentication method configured: set sheets.service_account or sheets.client_id, sheets.client_secret and sheets.token_file")
	}
	if c.UsesOAuth() && hasServiceAccount {
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account")
	}

	if c.SpreadsheetID == "" && c.SpreadsheetName == "" {
		return fmt.Errorf("spreadsheet id or name is required")
	}
	if c.SheetTitle == "" {
		return fmt.Errorf("sheet title is required")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	return nil
}

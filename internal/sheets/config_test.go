package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidation(t *testing.T) {
	serviceAccount := func(mutate func(*Config)) Config {
		c := DefaultConfig()
		c.ServiceAccountPath = "/path/to/key.json"
		if mutate != nil {
			mutate(&c)
		}
		return c
	}

	tests := []struct {
		name   string
		errMsg string
		config Config
	}{
		{
			name:   "service account",
			config: serviceAccount(nil),
		},
		{
			name: "oauth",
			config: func() Config {
				c := DefaultConfig()
				c.ClientID, c.ClientSecret, c.TokenFile = "id", "secret", "/tmp/token.json"
				return c
			}(),
		},
		{
			name: "partial oauth credentials",
			config: func() Config {
				c := DefaultConfig()
				c.ClientID, c.TokenFile = "id", "/tmp/token.json"
				return c
			}(),
			errMsg: "no authentication method configured",
		},
		{
			name: "both methods",
			config: serviceAccount(func(c *Config) {
				c.ClientID, c.ClientSecret, c.TokenFile = "id", "secret", "/tmp/token.json"
			}),
			errMsg: "multiple authentication methods",
		},
		{
			name:   "no spreadsheet",
			config: serviceAccount(func(c *Config) { c.SpreadsheetName = "" }),
			errMsg: "spreadsheet id or name is required",
		},
		{
			name:   "bad time zone",
			config: serviceAccount(func(c *Config) { c.TimeZone = "Mars/Olympus" }),
			errMsg: "invalid time zone",
		},
		{
			name:   "zero batch",
			config: serviceAccount(func(c *Config) { c.BatchSize = 0 }),
			errMsg: "batch size must be positive",
		},
		{
			name:   "zero retry delay is valid",
			config: serviceAccount(func(c *Config) { c.RetryAttempts, c.RetryDelay = 0, 0 }),
		},
		{
			name:   "negative retry delay",
			config: serviceAccount(func(c *Config) { c.RetryDelay = -time.Second }),
			errMsg: "retry delay cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

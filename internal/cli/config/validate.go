package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// outputFormats are the accepted values of the output option.
var outputFormats = []string{"auto", "text", "markdown", "json", "csv"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url must be an absolute URL, got %q", c.APIURL)
	}
	if c.PageSize < 1 || c.PageSize > core.MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d, got %d", core.MaxPageSize, c.PageSize)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if !slices.Contains(outputFormats, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (available: %v)", c.OutputFormat, outputFormats)
	}
	return nil
}

// ValidateServe checks the settings the dev server needs.
func (c *Config) ValidateServe() error {
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port must be between 1 and 65535, got %d", c.Serve.Port)
	}
	if c.Serve.JWTSecret == "" {
		return fmt.Errorf("serve.jwt_secret is required\nHint: set LEAPCRM_SERVE__JWT_SECRET or pass --jwt-secret")
	}
	if c.Serve.SeedCompanies < 0 {
		return fmt.Errorf("serve.seed_companies must not be negative")
	}
	return nil
}

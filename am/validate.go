package am

import (
	"net/url"
	"strings"

	"github.com/teranos/jobsweep/errors"
)

// Validate checks the configuration for both utilities, as `am validate` reports it
func (c Config) Validate() error {
	if err := c.ValidateReset(); err != nil {
		return err
	}
	return c.ValidateRetry()
}

// ValidateReset checks only the keys reset-jobs reads
func (c Config) ValidateReset() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if c.Reset.DatabaseName == "" || c.Reset.CollectionName == "" {
		return errors.NewInvalidConfigError("reset.database_name and reset.collection_name must be set")
	}
	return c.validateShared()
}

// ValidateRetry checks only the keys retry-jobs reads
func (c Config) ValidateRetry() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if c.Retry.DatabaseName == "" || c.Retry.CollectionName == "" {
		return errors.NewInvalidConfigError("retry.database_name and retry.collection_name must be set")
	}

	u, err := url.Parse(c.Retry.BaseURL)
	if err != nil {
		return errors.NewInvalidConfigError("retry.base_url %q is not a URL: %v", c.Retry.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewInvalidConfigError("retry.base_url must be http or https, got %q", c.Retry.BaseURL)
	}
	if u.Host == "" {
		return errors.NewInvalidConfigError("retry.base_url has no host: %q", c.Retry.BaseURL)
	}

	// Delay: 0 = no pause (valid), negative = invalid
	if c.Retry.RetryDelay < 0 {
		return errors.NewInvalidConfigError("retry.retry_delay must be >= 0, got %v", c.Retry.RetryDelay)
	}
	if c.Retry.BatchSize < 1 {
		return errors.NewInvalidConfigError("retry.batch_size must be >= 1, got %d", c.Retry.BatchSize)
	}
	if c.Retry.TimeoutSeconds <= 0 {
		return errors.NewInvalidConfigError("retry.timeout_seconds must be > 0, got %d", c.Retry.TimeoutSeconds)
	}
	return c.validateShared()
}

func (c Config) validateStore() error {
	if strings.TrimSpace(c.Store.ConnectionString) == "" {
		return errors.WithHint(
			errors.NewInvalidConfigError("store.connection_string is empty"),
			"pass --connection-string, set JOBSWEEP_STORE_CONNECTION_STRING, or add it to jobsweep.toml")
	}
	return nil
}

// validateShared covers metrics and log keys both utilities read
func (c Config) validateShared() error {
	if c.Metrics.PushgatewayURL != "" && c.Metrics.JobName == "" {
		return errors.NewInvalidConfigError("metrics.job_name cannot be empty when metrics.pushgateway_url is set")
	}

	switch c.Log.Theme {
	case "", "everforest", "gruvbox":
	default:
		return errors.NewInvalidConfigError("log.theme must be everforest or gruvbox, got %q", c.Log.Theme)
	}
	return nil
}

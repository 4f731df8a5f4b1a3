package provider

import (
	"errors"
	"time"
)

// Config holds configuration for one email vendor.
type Config struct {
	// Name identifies the vendor: "sendgrid", "resend", or "stdout".
	Name string

	// APIKey is the authentication credential for the vendor.
	APIKey string

	// Endpoint overrides the default API URL (useful for testing).
	Endpoint string

	// Timeout is the maximum duration for API calls.
	Timeout time.Duration
}

const defaultTimeout = 30 * time.Second

// Validate checks that required fields are set based on the vendor name.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("provider name is required")
	}

	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}

	switch c.Name {
	case "sendgrid":
		if c.APIKey == "" {
			return errors.New("sendgrid: api_key is required")
		}
	case "resend":
		if c.APIKey == "" {
			return errors.New("resend: api_key is required")
		}
	case "stdout":
		// No configuration required.
	default:
		return errors.New("unknown provider name: " + c.Name)
	}

	return nil
}

// New creates a provider instance from the given config and HTTP client.
func New(cfg Config, client HTTPClient) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Name {
	case "sendgrid":
		return NewSendGrid(cfg, client), nil
	case "resend":
		return NewResend(cfg, client), nil
	case "stdout":
		return NewStdout(cfg), nil
	default:
		return nil, errors.New("unsupported provider name: " + cfg.Name)
	}
}

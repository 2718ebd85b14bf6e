package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds configuration for Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// WebhookSecret is the secret for verifying webhook signatures
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// IsTestMode indicates if using Stripe test mode
	IsTestMode bool `json:"is_test_mode" mapstructure:"is_test_mode"`

	// DefaultCurrency is the currency assumed when an event omits one (e.g., "usd")
	DefaultCurrency string `json:"default_currency" mapstructure:"default_currency"`

	// MaxWebhookBodyBytes caps the accepted webhook payload size
	MaxWebhookBodyBytes int64 `json:"max_webhook_body_bytes" mapstructure:"max_webhook_body_bytes"`
}

// DefaultMaxWebhookBodyBytes is the payload size cap applied when the
// configuration does not set one.
const DefaultMaxWebhookBodyBytes = 64 * 1024

// DefaultStripeConfig returns a default configuration for development/testing
func DefaultStripeConfig() *StripeConfig {
	return &StripeConfig{
		IsTestMode:          true,
		DefaultCurrency:     "usd",
		MaxWebhookBodyBytes: DefaultMaxWebhookBodyBytes,
	}
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}

	// Validate key format
	if c.IsTestMode {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_test" {
			return fmt.Errorf("stripe: test mode enabled but secret key is not a test key")
		}
	} else {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_live" {
			return fmt.Errorf("stripe: live mode enabled but secret key is not a live key")
		}
	}

	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe: webhook secret is required")
	}

	if c.DefaultCurrency == "" {
		return fmt.Errorf("stripe: default currency is required")
	}

	return nil
}

// BodyLimit returns the effective webhook payload size cap
func (c *StripeConfig) BodyLimit() int64 {
	if c.MaxWebhookBodyBytes > 0 {
		return c.MaxWebhookBodyBytes
	}
	return DefaultMaxWebhookBodyBytes
}

// InitStripeClient initializes the Stripe client with the configured API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}

package config

import "fmt"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	SiteBaseURL string `env:"SITE_BASE_URL"`

	// Path of the local sqlite file backing the reservation ledger and the
	// processed-webhook-event table. All business state lives in the
	// inventory store.
	LedgerDBPath string `env:"LEDGER_DB_PATH" envDefault:"checkout.db"`

	HoldMinutes  int `env:"HOLD_MINUTES" envDefault:"30"`
	SweepMinutes int `env:"SWEEP_MINUTES" envDefault:"5"`

	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Airtable Airtable `envPrefix:"AIRTABLE_"`
}

type Stripe struct {
	BaseApiURL    string `env:"BASE_API_URL" envDefault:"https://api.stripe.com"`
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type Airtable struct {
	BaseApiURL string `env:"BASE_API_URL" envDefault:"https://api.airtable.com/v0"`
	APIKey     string `env:"API_KEY"`
	BaseID     string `env:"BASE_ID"`

	ProductsTable      string `env:"PRODUCTS_TABLE" envDefault:"Products"`
	OrdersTable        string `env:"ORDERS_TABLE" envDefault:"Orders"`
	OrderItemsTable    string `env:"ORDER_ITEMS_TABLE" envDefault:"OrderItems"`
	ShippingRatesTable string `env:"SHIPPING_RATES_TABLE" envDefault:"ShippingRates"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

// Validate rejects a config that cannot serve checkouts, so a misdeployment
// fails at startup instead of on the first customer request.
func (c *Config) Validate() error {
	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	if c.Airtable.APIKey == "" {
		return fmt.Errorf("AIRTABLE_API_KEY is required")
	}
	if c.Airtable.BaseID == "" {
		return fmt.Errorf("AIRTABLE_BASE_ID is required")
	}
	if c.SiteBaseURL == "" {
		return fmt.Errorf("SITE_BASE_URL is required")
	}
	if c.HoldMinutes <= 0 {
		return fmt.Errorf("HOLD_MINUTES must be positive, got %d", c.HoldMinutes)
	}
	return nil
}

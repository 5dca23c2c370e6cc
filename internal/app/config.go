package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CHECKOUT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Pricing     PricingConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// PricingConfig controls tax and shipping fee calculation. Monetary values
// are decimal strings.
type PricingConfig struct {
	TaxRate string `default:"0.10" usage:"Tax rate applied to the subtotal (e.g. 0.10 for 10%)" flag:"tax-rate"`

	// ShippingPolicy selects the fee model: "threshold" charges a flat fee
	// waived above FreeShippingOver; "by_method" charges per shipping method.
	ShippingPolicy   string `default:"threshold" usage:"Shipping fee policy: threshold or by_method" flag:"shipping-policy"`
	ShippingFee      string `default:"5.00" usage:"Flat shipping fee for the threshold policy" flag:"shipping-fee"`
	FreeShippingOver string `default:"50.00" usage:"Subtotal at which shipping becomes free" flag:"free-shipping-over"`
	ExpressFee       string `default:"15.00" usage:"Express shipping fee for the by_method policy" flag:"express-fee"`
	OvernightFee     string `default:"30.00" usage:"Overnight shipping fee for the by_method policy" flag:"overnight-fee"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set CHECKOUT_DATABASE_URL or DATABASE_URL")
	}
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (p PricingConfig) validate() error {
	if p.ShippingPolicy != "threshold" && p.ShippingPolicy != "by_method" {
		return errors.Errorf("unknown shipping policy %q", p.ShippingPolicy)
	}
	for _, v := range []string{p.TaxRate, p.ShippingFee, p.FreeShippingOver, p.ExpressFee, p.OvernightFee} {
		if _, err := decimal.NewFromString(v); err != nil {
			return errors.Wrapf(err, "invalid pricing value %q", v)
		}
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the CHECKOUT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

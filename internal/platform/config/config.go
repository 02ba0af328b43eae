package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultShutdownTimeout     = 20 * time.Second
	defaultRedisAddr           = "127.0.0.1:6379"
	defaultRedisDB             = 0
	defaultRedisDialTimeout    = 5 * time.Second
	defaultCartTTL             = 14 * 24 * time.Hour
	defaultGuestContactTTL     = 30 * 24 * time.Hour
	defaultUpstreamTimeout     = 10 * time.Second
	defaultUpstreamRetries     = 2
	defaultSessionHeader       = "X-Session-Key"
	defaultSessionTokenTTL     = 24 * time.Hour
	defaultRateLimitDefault    = 120
	defaultRateLimitCheckout   = 30
	defaultRateLimitSearch     = 60
	defaultVoucherSearchMin    = 3
	defaultVoucherSearchWindow = 350 * time.Millisecond
	defaultCheckoutHoldTTL     = 2 * time.Minute
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Upstream   UpstreamConfig
	Session    SessionConfig
	RateLimits RateLimitConfig
	Cart       CartConfig
	Voucher    VoucherConfig
	Checkout   CheckoutConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig stores connection settings for the session state store.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// UpstreamConfig lists base URLs and client behaviour for the commerce APIs.
type UpstreamConfig struct {
	CatalogBaseURL     string
	VoucherBaseURL     string
	ShippingBaseURL    string
	TransactionBaseURL string
	APIKey             string
	Timeout            time.Duration
	MaxRetries         int
}

// SessionConfig controls session key extraction and signed session tokens.
type SessionConfig struct {
	Header    string
	JWTSecret string
	TokenTTL  time.Duration
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	DefaultPerMinute  int
	CheckoutPerMinute int
	SearchPerMinute   int
}

// CartConfig governs cart persistence behaviour.
type CartConfig struct {
	TTL             time.Duration
	GuestContactTTL time.Duration
}

// VoucherConfig tunes voucher lookup behaviour.
type VoucherConfig struct {
	MinQueryLength int
	SearchWindow   time.Duration
}

// CheckoutConfig tunes the checkout orchestrator.
type CheckoutConfig struct {
	HoldTTL time.Duration
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "STOREFRONT_SERVER_PORT", defaultPort),
			ReadTimeout:     durationWithDefault(lookup, "STOREFRONT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "STOREFRONT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "STOREFRONT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "STOREFRONT_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Redis: RedisConfig{
			Addr:        stringWithDefault(lookup, "STOREFRONT_REDIS_ADDR", defaultRedisAddr),
			Password:    stringWithDefault(lookup, "STOREFRONT_REDIS_PASSWORD", ""),
			DB:          intWithDefault(lookup, "STOREFRONT_REDIS_DB", defaultRedisDB),
			DialTimeout: durationWithDefault(lookup, "STOREFRONT_REDIS_DIAL_TIMEOUT", defaultRedisDialTimeout),
		},
		Upstream: UpstreamConfig{
			CatalogBaseURL:     stringWithDefault(lookup, "STOREFRONT_UPSTREAM_CATALOG_URL", ""),
			VoucherBaseURL:     stringWithDefault(lookup, "STOREFRONT_UPSTREAM_VOUCHER_URL", ""),
			ShippingBaseURL:    stringWithDefault(lookup, "STOREFRONT_UPSTREAM_SHIPPING_URL", ""),
			TransactionBaseURL: stringWithDefault(lookup, "STOREFRONT_UPSTREAM_TRANSACTION_URL", ""),
			APIKey:             stringWithDefault(lookup, "STOREFRONT_UPSTREAM_API_KEY", ""),
			Timeout:            durationWithDefault(lookup, "STOREFRONT_UPSTREAM_TIMEOUT", defaultUpstreamTimeout),
			MaxRetries:         intWithDefault(lookup, "STOREFRONT_UPSTREAM_MAX_RETRIES", defaultUpstreamRetries),
		},
		Session: SessionConfig{
			Header:    stringWithDefault(lookup, "STOREFRONT_SESSION_HEADER", defaultSessionHeader),
			JWTSecret: stringWithDefault(lookup, "STOREFRONT_SESSION_JWT_SECRET", ""),
			TokenTTL:  durationWithDefault(lookup, "STOREFRONT_SESSION_TOKEN_TTL", defaultSessionTokenTTL),
		},
		RateLimits: RateLimitConfig{
			DefaultPerMinute:  intWithDefault(lookup, "STOREFRONT_RATE_LIMIT_DEFAULT", defaultRateLimitDefault),
			CheckoutPerMinute: intWithDefault(lookup, "STOREFRONT_RATE_LIMIT_CHECKOUT", defaultRateLimitCheckout),
			SearchPerMinute:   intWithDefault(lookup, "STOREFRONT_RATE_LIMIT_SEARCH", defaultRateLimitSearch),
		},
		Cart: CartConfig{
			TTL:             durationWithDefault(lookup, "STOREFRONT_CART_TTL", defaultCartTTL),
			GuestContactTTL: durationWithDefault(lookup, "STOREFRONT_GUEST_CONTACT_TTL", defaultGuestContactTTL),
		},
		Voucher: VoucherConfig{
			MinQueryLength: intWithDefault(lookup, "STOREFRONT_VOUCHER_MIN_QUERY", defaultVoucherSearchMin),
			SearchWindow:   durationWithDefault(lookup, "STOREFRONT_VOUCHER_SEARCH_WINDOW", defaultVoucherSearchWindow),
		},
		Checkout: CheckoutConfig{
			HoldTTL: durationWithDefault(lookup, "STOREFRONT_CHECKOUT_HOLD_TTL", defaultCheckoutHoldTTL),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		missing = append(missing, "Redis.Addr")
	}
	if strings.TrimSpace(cfg.Upstream.CatalogBaseURL) == "" {
		missing = append(missing, "Upstream.CatalogBaseURL")
	}
	if strings.TrimSpace(cfg.Upstream.VoucherBaseURL) == "" {
		missing = append(missing, "Upstream.VoucherBaseURL")
	}
	if strings.TrimSpace(cfg.Upstream.ShippingBaseURL) == "" {
		missing = append(missing, "Upstream.ShippingBaseURL")
	}
	if strings.TrimSpace(cfg.Upstream.TransactionBaseURL) == "" {
		missing = append(missing, "Upstream.TransactionBaseURL")
	}
	if strings.TrimSpace(cfg.Session.Header) == "" {
		missing = append(missing, "Session.Header")
	}
	if strings.TrimSpace(cfg.Session.JWTSecret) == "" {
		missing = append(missing, "Session.JWTSecret")
	}
	if cfg.Cart.TTL <= 0 {
		missing = append(missing, "Cart.TTL")
	}
	if cfg.Voucher.MinQueryLength <= 0 {
		missing = append(missing, "Voucher.MinQueryLength")
	}
	if cfg.Checkout.HoldTTL <= 0 {
		missing = append(missing, "Checkout.HoldTTL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

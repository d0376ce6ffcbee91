// Package config loads the application configuration from viper into an
// explicit struct that is passed to the components that need it.
package config

import (
	"fmt"
	"runtime"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

// Version is reported in the outbound User-Agent.
const Version = "0.4.0"

// Source names accepted by the source key.
const (
	SourceOpenLibrary = "openlibrary"
	SourceGoogleBooks = "googlebooks"
)

// Config is the complete runtime configuration.
type Config struct {
	Source      string            `mapstructure:"source" yaml:"source"`
	AuthorRole  string            `mapstructure:"author_role" yaml:"author_role"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit" yaml:"ratelimit"`
	OpenLibrary OpenLibraryConfig `mapstructure:"openlibrary" yaml:"openlibrary"`
	GoogleBooks GoogleBooksConfig `mapstructure:"googlebooks" yaml:"googlebooks"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	ExpiryDays int    `mapstructure:"expiry_days" yaml:"expiry_days"`
	Disabled   bool   `mapstructure:"disabled" yaml:"disabled"`
}

// HTTPConfig controls outbound requests.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// RateLimitConfig is the shared request budget.
type RateLimitConfig struct {
	Calls       int           `mapstructure:"calls" yaml:"calls"`
	Window      time.Duration `mapstructure:"window" yaml:"window"`
	MinInterval time.Duration `mapstructure:"min_interval" yaml:"min_interval"`
}

// OpenLibraryConfig configures the Open Library provider.
type OpenLibraryConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// GoogleBooksConfig configures the Google Books provider.
type GoogleBooksConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// DatabaseConfig locates the catalog database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DefaultUserAgent identifies the client, platform and runtime.
func DefaultUserAgent() string {
	return fmt.Sprintf("Bookshelf/%s (%s/%s; %s)", Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source", SourceOpenLibrary)
	v.SetDefault("author_role", "Writer")

	v.SetDefault("cache.path", "")
	v.SetDefault("cache.expiry_days", 14)
	v.SetDefault("cache.disabled", false)

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", DefaultUserAgent())

	v.SetDefault("ratelimit.calls", 20)
	v.SetDefault("ratelimit.window", 60*time.Second)
	v.SetDefault("ratelimit.min_interval", time.Duration(0))

	v.SetDefault("openlibrary.base_url", "https://openlibrary.org")
	v.SetDefault("googlebooks.base_url", "https://www.googleapis.com/books/v1")
	v.SetDefault("googlebooks.api_key", "")

	v.SetDefault("database.path", "./bookshelf.db")
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Source,
			validation.Required,
			validation.In(SourceOpenLibrary, SourceGoogleBooks).Error("must be openlibrary or googlebooks"),
		),
		validation.Field(&c.AuthorRole, validation.Required),
		validation.Field(&c.Cache),
		validation.Field(&c.HTTP),
		validation.Field(&c.RateLimit),
		validation.Field(&c.OpenLibrary),
		validation.Field(&c.GoogleBooks),
	)
}

// Validate implements validation.Validatable.
func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ExpiryDays, validation.Min(0)),
	)
}

// Validate implements validation.Validatable.
func (c HTTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.UserAgent, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (c RateLimitConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Calls, validation.Required, validation.Min(1)),
		validation.Field(&c.Window, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.MinInterval, validation.Min(time.Duration(0))),
	)
}

// Validate implements validation.Validatable.
func (c OpenLibraryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
}

// Validate implements validation.Validatable.
func (c GoogleBooksConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
}

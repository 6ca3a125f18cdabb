package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/casemap/internal/dataset"
	"github.com/starford/casemap/internal/source"
	"github.com/starford/casemap/internal/watch"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// DefaultTitle is the page heading.
const DefaultTitle = "SARS-CoV-2 (COVID19) World Timeline"

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Dataset DatasetConfig     `yaml:"dataset"`
	UI      UIConfig          `yaml:"ui"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Dataset.Validate(); err != nil {
		return err
	}
	if err := c.UI.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port           int             `yaml:"port"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	CORSOrigins    []string        `yaml:"cors_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.CORSOrigins, validation.Each(validation.Required)),
	); err != nil {
		return err
	}
	return c.RateLimit.Validate()
}

// RateLimitConfig configures the API token bucket. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RPS, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.Min(0)),
	)
}

// DatasetConfig describes where the case data comes from.
type DatasetConfig struct {
	Source         string          `yaml:"source"`
	Path           string          `yaml:"path"`
	Table          string          `yaml:"table"`
	Watch          bool            `yaml:"watch"`
	ReloadDebounce time.Duration   `yaml:"reload_debounce"`
	Columns        dataset.Columns `yaml:"columns"`
}

// Validate validates the dataset configuration.
func (c *DatasetConfig) Validate() error {
	if c.Source == "" {
		c.Source = source.KindCSV
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required, validation.In(source.KindCSV, source.KindSQLite)),
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.ReloadDebounce, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	return validation.Errors{
		"columns.date":          validation.Validate(c.Columns.Date, validation.Required),
		"columns.location_code": validation.Validate(c.Columns.LocationCode, validation.Required),
		"columns.total_cases":   validation.Validate(c.Columns.TotalCases, validation.Required),
		"columns.population":    validation.Validate(c.Columns.Population, validation.Required),
	}.Filter()
}

// UIConfig holds the page chrome.
type UIConfig struct {
	Title     string `yaml:"title"`
	Footer    string `yaml:"footer"`
	PlotlyURL string `yaml:"plotly_url"`
}

// Validate validates the UI configuration.
func (c *UIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required, validation.Length(1, 200)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced on /api:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:           8080,
				RequestTimeout: 30 * time.Second,
			},
		},
		Dataset: DatasetConfig{
			Source:         source.KindCSV,
			Path:           "owid-covid-data.csv",
			Table:          source.DefaultTable,
			ReloadDebounce: watch.DefaultDebounce,
			Columns:        dataset.DefaultColumns(),
		},
		UI: UIConfig{
			Title: DefaultTitle,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

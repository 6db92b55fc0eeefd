package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers accepted in IMC_STORE_DRIVER
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverFile   = "file"
	StoreDriverMemory = "memory"
)

const envPrefix = "IMC"

// Settings is the Config loaded from the environment
type Settings struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	StoreDriver    string        `mapstructure:"store_driver"`
	StorePath      string        `mapstructure:"store_path"`
	WebAddr        string        `mapstructure:"web_addr"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
	CookieTTL      time.Duration `mapstructure:"cookie_ttl"`
}

var _ Config = (*Settings)(nil)

func (s *Settings) GetAPIBaseURL() string            { return s.APIBaseURL }
func (s *Settings) GetRequestTimeout() time.Duration { return s.RequestTimeout }
func (s *Settings) GetStoreDriver() string           { return s.StoreDriver }
func (s *Settings) GetStorePath() string             { return s.StorePath }
func (s *Settings) GetWebAddr() string               { return s.WebAddr }
func (s *Settings) GetCookieSecure() bool            { return s.CookieSecure }
func (s *Settings) GetCookieTTL() time.Duration      { return s.CookieTTL }

// ConfigOption tweaks LoadConfig
type ConfigOption func(*configLoader)

type configLoader struct {
	dotEnv    []string
	overrides map[string]any
}

// WithDotEnv loads the given files before reading the environment. Missing
// files are skipped.
func WithDotEnv(paths ...string) ConfigOption {
	return func(l *configLoader) {
		l.dotEnv = append(l.dotEnv, paths...)
	}
}

// WithOverride sets a key regardless of the environment, flags use it.
func WithOverride(key string, value any) ConfigOption {
	return func(l *configLoader) {
		if l.overrides == nil {
			l.overrides = map[string]any{}
		}
		l.overrides[key] = value
	}
}

// LoadConfig reads IMC_* environment variables, optionally seeded from a
// .env file in the working directory.
func LoadConfig(opts ...ConfigOption) (*Settings, error) {
	loader := &configLoader{dotEnv: []string{".env"}}
	for _, opt := range opts {
		opt(loader)
	}

	for _, path := range loader.dotEnv {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("config stat %s: %w", path, err)
		}
		// existing environment wins over the file
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("config load %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("api_base_url", DefaultAPIBaseURL)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("store_driver", StoreDriverSQLite)
	v.SetDefault("store_path", defaultStorePath())
	v.SetDefault("web_addr", ":8080")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("cookie_ttl", 7*24*time.Hour)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range loader.overrides {
		v.Set(key, value)
	}

	s := &Settings{
		APIBaseURL:     strings.TrimRight(v.GetString("api_base_url"), "/"),
		RequestTimeout: v.GetDuration("request_timeout"),
		StoreDriver:    strings.ToLower(v.GetString("store_driver")),
		StorePath:      v.GetString("store_path"),
		WebAddr:        v.GetString("web_addr"),
		CookieSecure:   v.GetBool("cookie_secure"),
		CookieTTL:      v.GetDuration("cookie_ttl"),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks values that would otherwise fail late
func (s *Settings) Validate() error {
	if s.APIBaseURL == "" {
		return fmt.Errorf("config: api base url is empty")
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("config: request timeout must be positive, got %s", s.RequestTimeout)
	}
	switch s.StoreDriver {
	case StoreDriverSQLite, StoreDriverFile:
		if s.StorePath == "" {
			return fmt.Errorf("config: store path is required for the %s driver", s.StoreDriver)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("config: unknown store driver %q", s.StoreDriver)
	}
	return nil
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "imc", "session.db")
}

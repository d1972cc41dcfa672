package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CSRF_SERVER_CSRF_SECRET.
const EnvPrefix = "CSRF_SERVER"

// ErrMissingSecret is the fatal configuration error for an absent CSRF secret.
var ErrMissingSecret = errors.New("config: csrf.secret must be set")

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	CSRF   CSRFConfig   `mapstructure:"csrf"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// PublicDir is served for every GET path without a route of its own.
	PublicDir       string        `mapstructure:"public_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type CSRFConfig struct {
	Secret string `mapstructure:"secret"`
	// ExpiresIn is the token validity window in seconds.
	ExpiresIn      int    `mapstructure:"expires_in"`
	CookieName     string `mapstructure:"cookie_name"`
	HeaderName     string `mapstructure:"header_name"`
	DoubleSubmit   bool   `mapstructure:"double_submit"`
	CookieSecure   bool   `mapstructure:"cookie_secure"`
	CookieHTTPOnly bool   `mapstructure:"cookie_http_only"`
	Persistent     bool   `mapstructure:"persistent"`
	// SameSite is one of "lax", "strict", "none" or "default".
	SameSite string `mapstructure:"same_site"`
}

// Expiry is ExpiresIn as a duration.
func (c CSRFConfig) Expiry() time.Duration {
	return time.Duration(c.ExpiresIn) * time.Second
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.public_dir", "./public")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// The secret has no usable default; it is registered so env binding sees it.
	v.SetDefault("csrf.secret", "")
	v.SetDefault("csrf.expires_in", 60)
	v.SetDefault("csrf.cookie_name", "x-csrf-jwt")
	v.SetDefault("csrf.header_name", "x-csrf-jwt")
	v.SetDefault("csrf.double_submit", true)
	v.SetDefault("csrf.cookie_secure", false)
	v.SetDefault("csrf.cookie_http_only", true)
	v.SetDefault("csrf.persistent", false)
	v.SetDefault("csrf.same_site", "lax")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configuration with precedence env > file > defaults. An empty
// path searches ./config.yaml and ./config/config.yaml and tolerates neither
// existing.
func Load(path string) (*Config, error) {
	return LoadFrom(viper.New(), path)
}

// LoadFrom is Load on a caller-supplied viper instance, so flags bound to
// v take precedence over everything else.
func LoadFrom(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CSRF.Secret) == "" {
		return ErrMissingSecret
	}
	if c.CSRF.ExpiresIn <= 0 {
		return fmt.Errorf("config: csrf.expires_in must be positive, got %d", c.CSRF.ExpiresIn)
	}
	if c.CSRF.CookieName == "" || strings.ContainsAny(c.CSRF.CookieName, " \t\r\n;,=") {
		return fmt.Errorf("config: invalid csrf.cookie_name %q", c.CSRF.CookieName)
	}
	if c.CSRF.HeaderName == "" || strings.ContainsAny(c.CSRF.HeaderName, " \t\r\n:") {
		return fmt.Errorf("config: invalid csrf.header_name %q", c.CSRF.HeaderName)
	}
	if _, err := ParseSameSite(c.CSRF.SameSite); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("config: server.shutdown_timeout must not be negative")
	}
	return nil
}

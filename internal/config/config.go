package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DBHost           string        `mapstructure:"DB_HOST"`
	DBUser           string        `mapstructure:"DB_USER"`
	DBPassword       string        `mapstructure:"DB_PASSWORD"`
	DBName           string        `mapstructure:"DB_NAME"`
	DBPort           int           `mapstructure:"DB_PORT"`
	DBSSLMode        string        `mapstructure:"DB_SSLMODE"`
	DBDSN            string        `mapstructure:"DB_DSN"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBConnectTimeout time.Duration `mapstructure:"DB_CONNECT_TIMEOUT"`

	Port           int    `mapstructure:"PORT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFormat     string `mapstructure:"LOG_FORMAT"`
	EnableMetrics bool   `mapstructure:"ENABLE_METRICS"`
	EnableSwagger bool   `mapstructure:"ENABLE_SWAGGER"`
}

var keys = []string{
	"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_PORT", "DB_SSLMODE",
	"DB_DSN", "DB_MAX_CONNS", "DB_CONNECT_TIMEOUT", "PORT", "ALLOWED_ORIGINS",
	"LOG_LEVEL", "LOG_FORMAT", "ENABLE_METRICS", "ENABLE_SWAGGER",
}

// Load reads configuration from the environment and an optional .env file in
// the working directory. Missing values fall back to local development
// defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "transport_vendor_db")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("PORT", 5000)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("ENABLE_METRICS", false)
	v.SetDefault("ENABLE_SWAGGER", false)

	// AutomaticEnv only covers keys viper already knows about when unmarshalling
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// LoadAndValidate loads the configuration and validates it.
func LoadAndValidate() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var sslModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBDSN == "" {
		if strings.TrimSpace(c.DBHost) == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if strings.TrimSpace(c.DBName) == "" {
			return fmt.Errorf("DB_NAME is required")
		}
		if c.DBPort <= 0 || c.DBPort > 65535 {
			return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.DBPort)
		}
		if !sslModes[c.DBSSLMode] {
			return fmt.Errorf("DB_SSLMODE %q is not a valid sslmode", c.DBSSLMode)
		}
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.DBConnectTimeout <= 0 {
		return fmt.Errorf("DB_CONNECT_TIMEOUT must be positive, got %v", c.DBConnectTimeout)
	}
	return nil
}

// DSN returns DB_DSN when set, otherwise a postgres URL built from the
// individual DB_* settings with the credentials escaped.
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:   "/" + c.DBName,
	}
	if c.DBPassword != "" {
		u.User = url.UserPassword(c.DBUser, c.DBPassword)
	} else {
		u.User = url.User(c.DBUser)
	}
	q := url.Values{}
	q.Set("sslmode", c.DBSSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

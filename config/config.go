// Package config builds the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DevEnv  = "dev"
	ProEnv  = "pro"
	TestEnv = "test"
)

type Config struct {
	Environment string `validate:"oneof=dev pro test"`
	Server      ServerConfig
	Database    DatabaseConfig
	Admin       AdminConfig
	JWTSecret   string `validate:"required"`
	CSRFEnabled bool
	LogLevel    string `validate:"oneof=debug info warn error"`
}

type ServerConfig struct {
	// Address is empty when the server should use AutoTLS on :443.
	Address       string
	WhitelistHost string
	CertCacheDir  string
}

type DatabaseConfig struct {
	Driver string `validate:"oneof=sqlite pgx"`
	URL    string `validate:"required"`
}

// AdminConfig describes the administrator accounts seeded at startup.
type AdminConfig struct {
	Username        string   `validate:"required"`
	Password        string   `validate:"required"`
	Roles           []string `validate:"min=1,dive,required"`
	EncodedPassword string
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	env := get("ENV", ProEnv)
	relaxed := env == DevEnv || env == TestEnv

	c := Config{
		Environment: env,
		Server: ServerConfig{
			Address:       get("ADDRESS_LISTEN", ""),
			WhitelistHost: get("WHITELIST_HOST", ""),
			CertCacheDir:  get("CERT_CACHE_DIR", "/var/www/.cache"),
		},
		Database: DatabaseConfig{
			Driver: get("DB_DRIVER", "sqlite"),
			URL:    get("DB_URL", "file:users?mode=memory&cache=shared"),
		},
		Admin: AdminConfig{
			Username:        get("ADMIN_USERNAME", "admin"),
			Password:        get("ADMIN_PASSWORD", ""),
			Roles:           splitList(get("ADMIN_ROLES", "ADMIN")),
			EncodedPassword: get("ADMIN_ENCODED_PASSWORD", ""),
		},
		JWTSecret: get("JWT_SECRET", ""),
		LogLevel:  strings.ToLower(get("LOG_LEVEL", "info")),
	}
	if relaxed {
		if c.Server.Address == "" {
			c.Server.Address = ":8080"
		}
		if c.JWTSecret == "" {
			c.JWTSecret = "unsecure"
		}
		if c.Admin.Password == "" {
			c.Admin.Password = "admin"
		}
	}

	csrf := get("CSRF_ENABLED", strconv.FormatBool(!relaxed))
	enabled, err := strconv.ParseBool(csrf)
	if err != nil {
		return Config{}, fmt.Errorf("CSRF_ENABLED: %w", err)
	}
	c.CSRFEnabled = enabled

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package config loads and validates the options of a database registry.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/godal/dalerr"
)

// Fs is the filesystem configuration and .env files are read from.
var Fs = afero.NewOsFs()

// Mode selects schema reconciliation before the first query.
type Mode string

const (
	MigrateOff         Mode = "off"
	MigrateAdditive    Mode = "additive"
	MigrateDestructive Mode = "destructive"
)

// Recognised option keys.
const (
	KeyURI               = "uri"
	KeyPoolSize          = "pool_size"
	KeyMigrate           = "migrate"
	KeyCheckoutTimeout   = "checkout_timeout"
	KeyReconnectAttempts = "reconnect_attempts"
	KeyStatementTimeout  = "statement_timeout"
	KeyServerVersion     = "server_version"
)

var keys = []string{
	KeyURI, KeyPoolSize, KeyMigrate, KeyCheckoutTimeout,
	KeyReconnectAttempts, KeyStatementTimeout, KeyServerVersion,
}

// MaxPoolSize bounds PoolSize.
const MaxPoolSize = 1024

// Config holds the registry configuration.
type Config struct {
	URI               string
	PoolSize          int
	Migrate           Mode
	CheckoutTimeout   time.Duration
	ReconnectAttempts int
	// StatementTimeout of 0 leaves statements bounded by the caller's context only.
	StatementTimeout time.Duration
	// ServerVersion gates version dependent SQL, e.g. "12.0".
	ServerVersion string
}

// Default returns the configuration used for options that are not set.
func Default() Config {
	return Config{
		PoolSize:          10,
		Migrate:           MigrateOff,
		CheckoutTimeout:   30 * time.Second,
		ReconnectAttempts: 3,
	}
}

// Validate checks every option.
func (c Config) Validate() error {
	var errs []error
	if c.URI == "" {
		errs = append(errs, errors.New("uri is required"))
	}
	if c.PoolSize < 1 || c.PoolSize > MaxPoolSize {
		errs = append(errs, fmt.Errorf("pool_size must be between 1 and %d, got %d", MaxPoolSize, c.PoolSize))
	}
	switch c.Migrate {
	case MigrateOff, MigrateAdditive, MigrateDestructive:
	default:
		errs = append(errs, fmt.Errorf("migrate must be off, additive or destructive, got %q", c.Migrate))
	}
	if c.CheckoutTimeout <= 0 {
		errs = append(errs, errors.New("checkout_timeout must be positive"))
	}
	if c.ReconnectAttempts < 1 {
		errs = append(errs, errors.New("reconnect_attempts must be at least 1"))
	}
	if c.StatementTimeout < 0 {
		errs = append(errs, errors.New("statement_timeout must not be negative"))
	}
	if c.ServerVersion != "" {
		if _, err := version.NewVersion(c.ServerVersion); err != nil {
			errs = append(errs, fmt.Errorf("server_version: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", dalerr.ErrConfig, errors.Join(errs...))
	}
	return nil
}

// FromMap builds a configuration from option values layered over Default.
// Unrecognised keys are rejected. Durations may be given as Go duration
// strings or as a number of seconds.
func FromMap(m map[string]any) (Config, error) {
	cfg := Default()
	var unknown []string
	for key, value := range m {
		var err error
		switch strings.ToLower(key) {
		case KeyURI:
			cfg.URI, err = stringValue(value)
		case KeyPoolSize:
			cfg.PoolSize, err = intValue(value)
		case KeyMigrate:
			var s string
			s, err = stringValue(value)
			cfg.Migrate = Mode(strings.ToLower(s))
		case KeyCheckoutTimeout:
			cfg.CheckoutTimeout, err = durationValue(value)
		case KeyReconnectAttempts:
			cfg.ReconnectAttempts, err = intValue(value)
		case KeyStatementTimeout:
			cfg.StatementTimeout, err = durationValue(value)
		case KeyServerVersion:
			cfg.ServerVersion, err = stringValue(value)
		default:
			unknown = append(unknown, key)
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", dalerr.ErrConfig, key, err)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return Config{}, fmt.Errorf("%w: unrecognised options: %s", dalerr.ErrConfig, strings.Join(unknown, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Map returns the configuration as option values accepted by FromMap.
func (c Config) Map() map[string]any {
	m := map[string]any{
		KeyURI:               c.URI,
		KeyPoolSize:          c.PoolSize,
		KeyMigrate:           string(c.Migrate),
		KeyCheckoutTimeout:   c.CheckoutTimeout.String(),
		KeyReconnectAttempts: c.ReconnectAttempts,
	}
	if c.StatementTimeout > 0 {
		m[KeyStatementTimeout] = c.StatementTimeout.String()
	}
	if c.ServerVersion != "" {
		m[KeyServerVersion] = c.ServerVersion
	}
	return m
}

// DefaultDir returns ~/.config/godal.
func DefaultDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "godal"), nil
}

// Load reads the configuration file at path, or searches for godal.yaml
// (or .toml, .json) in the working directory and DefaultDir when path is
// empty. GODAL_* environment variables override the file, and a .env file
// in the working directory is loaded first. DATABASE_URL is used when no
// uri is configured.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetFs(Fs)
	v.SetEnvPrefix("GODAL")
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("godal")
		v.AddConfigPath(".")
		if dir, err := DefaultDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("%w: %w", dalerr.ErrConfig, err)
		}
	}

	settings := make(map[string]any)
	for _, key := range v.AllKeys() {
		if value := v.Get(key); value != nil {
			settings[key] = value
		}
	}
	if settings[KeyURI] == nil {
		if url := os.Getenv("DATABASE_URL"); url != "" {
			settings[KeyURI] = url
		}
	}
	return FromMap(settings)
}

// Write saves cfg to path in the format given by its extension.
func Write(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	v := viper.New()
	v.SetFs(Fs)
	for key, value := range cfg.Map() {
		v.Set(key, value)
	}
	return v.WriteConfigAs(path)
}

// loadDotEnv sets the variables of a .env file that are not already set.
func loadDotEnv(path string) error {
	data, err := afero.ReadFile(Fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", dalerr.ErrConfig, path, err)
	}
	for k, v := range vars {
		if _, set := os.LookupEnv(k); !set {
			if err := os.Setenv(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func stringValue(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int64, float64:
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("expected a string, got %T", v)
}

func intValue(v any) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("expected an integer, got %v", v)
		}
		return int(v), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}

func durationValue(v any) (time.Duration, error) {
	switch v := v.(type) {
	case time.Duration:
		return v, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case string:
		v = strings.TrimSpace(v)
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(n * float64(time.Second)), nil
		}
		return time.ParseDuration(v)
	}
	n, err := intValue(v)
	if err != nil {
		return 0, fmt.Errorf("expected a duration, got %T", v)
	}
	return time.Duration(n) * time.Second, nil
}

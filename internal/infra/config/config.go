package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings" // For LogLevel normalization

	"github.com/joho/godotenv"
)

const (
	// DefaultFileName is created in the user's home directory.
	DefaultFileName = ".simpleice"
	// PathEnv overrides the default config file location.
	PathEnv = "SIMPLEICE_CONFIG"

	DriverJSON     = "json"
	DriverPostgres = "postgres"
)

// Keys understood in the config file and the environment
const (
	KeyStoreDriver = "ICE_STORE_DRIVER"
	KeyStorePath   = "ICE_STORE_PATH"
	KeyDatabaseURL = "DATABASE_URL"
	KeyLogLevel    = "LOG_LEVEL"
	KeyEnvironment = "ENVIRONMENT"
)

var ErrConfigNotFound = fmt.Errorf("cannot find configuration file")
var ErrConfigExists = fmt.Errorf("configuration file already exists")

// AppConfig holds all configuration for the application
type AppConfig struct {
	// Path is the file the configuration was read from.
	Path        string
	StoreDriver string
	StorePath   string
	DatabaseURL string
	LogLevel    string
	Environment string
}

// ResolvePath picks the config file location: an explicit path first, then
// $SIMPLEICE_CONFIG, then ~/.simpleice.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return expandHome(explicit)
	}
	if fromEnv := os.Getenv(PathEnv); fromEnv != "" {
		return expandHome(fromEnv)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot find home directory: %w", err)
	}
	return filepath.Join(home, DefaultFileName), nil
}

// Load reads the config file at path. Environment variables take precedence
// over values from the file.
func Load(path string) (*AppConfig, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to load configuration file %s: %w", path, err)
	}

	get := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return values[key]
	}

	cfg := &AppConfig{Path: path}

	cfg.StoreDriver = strings.ToLower(get(KeyStoreDriver))
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverJSON // Default store
	}

	switch cfg.StoreDriver {
	case DriverJSON:
		if cfg.StorePath = get(KeyStorePath); cfg.StorePath == "" {
			return nil, fmt.Errorf("%s is not set in %s", KeyStorePath, path)
		}
		if cfg.StorePath, err = expandHome(cfg.StorePath); err != nil {
			return nil, err
		}
	case DriverPostgres:
		if cfg.DatabaseURL = get(KeyDatabaseURL); cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("%s is not set in %s", KeyDatabaseURL, path)
		}
	default:
		return nil, fmt.Errorf("invalid %s %q (expected %s or %s)", KeyStoreDriver, cfg.StoreDriver, DriverJSON, DriverPostgres)
	}

	cfg.LogLevel = strings.ToLower(get(KeyLogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(get(KeyEnvironment))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}

// WriteEmpty creates a config file template at path. It never overwrites an
// existing file.
func WriteEmpty(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check configuration file %s: %w", path, err)
	}

	template := map[string]string{
		KeyStoreDriver: DriverJSON,
		KeyStorePath:   "",
		KeyDatabaseURL: "",
		KeyLogLevel:    "info",
		KeyEnvironment: "development",
	}
	if err := godotenv.Write(template, path); err != nil {
		return fmt.Errorf("failed to write configuration file %s: %w", path, err)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot find home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mcoot/minimarket/internal/factory"
	redisstorage "github.com/mcoot/minimarket/internal/storage/redis"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config holds CLI configuration
type Config struct {
	StorageType string
	DataDir     string
	RedisURL    string
	Output      string
	Verbose     bool
}

// DefaultConfig returns a Config seeded from the same environment variables
// the server reads
func DefaultConfig() *Config {
	return &Config{
		StorageType: getEnvOrDefault(factory.EnvStorageType, factory.StorageTypeFile),
		DataDir:     getEnvOrDefault(factory.EnvProfileDir, factory.DefaultDataDir),
		RedisURL:    os.Getenv(factory.EnvRedisURL),
		Output:      OutputText,
		Verbose:     false,
	}
}

// Validate checks flag combinations before any storage is opened
func (c *Config) Validate() error {
	switch c.Output {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("invalid output format %q: must be 'text' or 'json'", c.Output)
	}
	if c.StorageType == factory.StorageTypeRedis && c.RedisURL == "" {
		return fmt.Errorf("--redis-url is required with --storage redis")
	}
	return nil
}

// FactoryConfig translates the CLI flags into an application config
func (c *Config) FactoryConfig(logger *slog.Logger) factory.Config {
	fc := factory.Config{
		StorageType: c.StorageType,
		DataDir:     c.DataDir,
		Logger:      logger,
	}
	if c.StorageType == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.RedisURL
		fc.RedisConfig = &redisCfg
	}
	return fc
}

// Logger returns the logger for a command run; diagnostics go to stderr
func (c *Config) Logger() *slog.Logger {
	level := slog.LevelError
	if c.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

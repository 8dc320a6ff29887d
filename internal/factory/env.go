package factory

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/retry"
	redisstorage "github.com/mcoot/minimarket/internal/storage/redis"
)

// Environment variables read by ConfigFromEnv
const (
	EnvStorageType     = "STORAGE_TYPE"
	EnvProfileDir      = "PROFILE_DIR"
	EnvRedisURL        = "REDIS_URL"
	EnvSaveMaxAttempts = "SAVE_MAX_ATTEMPTS"
	EnvSaveRetryDelay  = "SAVE_RETRY_DELAY"
)

// ConfigFromEnv builds a Config from the process environment using lookup,
// normally os.LookupEnv. The logger and metrics registry are left unset.
func ConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	cfg := Config{
		StorageType: get(EnvStorageType),
		DataDir:     get(EnvProfileDir),
		Retry:       retry.DefaultConfig(),
	}

	if cfg.StorageType == StorageTypeRedis {
		url := get(EnvRedisURL)
		if url == "" {
			return Config{}, fmt.Errorf("%w: %s required when %s=redis", model.ErrInvalidArgument, EnvRedisURL, EnvStorageType)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = url
		cfg.RedisConfig = &redisCfg
	}

	if v := get(EnvSaveMaxAttempts); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("%w: %s must be a positive integer, got %q", model.ErrInvalidArgument, EnvSaveMaxAttempts, v)
		}
		cfg.Retry.MaxAttempts = n
	}

	if v := get(EnvSaveRetryDelay); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%w: %s must be a positive duration, got %q", model.ErrInvalidArgument, EnvSaveRetryDelay, v)
		}
		cfg.Retry.Delay = d
	}

	return cfg, nil
}

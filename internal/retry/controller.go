package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/minimarket/internal/dependencies/clock"
	"github.com/mcoot/minimarket/internal/metrics"
	"github.com/mcoot/minimarket/internal/model"
)

// Config holds retry behavior settings
type Config struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int

	// Delay is the flat wait between attempts
	Delay time.Duration
}

// DefaultConfig returns the standard save retry policy
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       100 * time.Millisecond,
	}
}

// Controller runs an action with bounded attempts and a flat delay
type Controller struct {
	cfg     Config
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Controller. A non-positive MaxAttempts or a negative Delay
// falls back to the default; a zero Delay retries immediately.
func New(cfg Config, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger) *Controller {
	defaults := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.Delay < 0 {
		cfg.Delay = defaults.Delay
	}
	return &Controller{
		cfg:     cfg,
		clock:   clk,
		metrics: m,
		logger:  logger.With(slog.String("component", "retry")),
	}
}

// Config returns the effective settings
func (c *Controller) Config() Config {
	return c.cfg
}

// IsPermanent reports whether retrying err cannot help
func IsPermanent(err error) bool {
	return errors.Is(err, model.ErrValidation) || errors.Is(err, model.ErrInvalidArgument)
}

// Do runs action until it succeeds, fails permanently, or attempts run out.
// The attempt number passed to action starts at 1.
func (c *Controller) Do(ctx context.Context, op string, action func(ctx context.Context, attempt int) error) error {
	logger := c.logger.With(slog.String("operation", op))

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		start := c.clock.Now()
		err := action(ctx, attempt)
		c.metrics.ObserveAttempt(err == nil, c.clock.Now().Sub(start))

		if err == nil {
			if attempt > 1 {
				logger.Info("attempt succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = err

		if IsPermanent(err) {
			logger.Warn("attempt failed permanently",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return err
		}

		if attempt == c.cfg.MaxAttempts {
			break
		}

		logger.Warn("attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.cfg.MaxAttempts),
			slog.Duration("delay", c.cfg.Delay),
			slog.String("error", err.Error()))

		if err := c.clock.Sleep(ctx, c.cfg.Delay); err != nil {
			return fmt.Errorf("%s aborted after %d attempts: %w", op, attempt, errors.Join(err, lastErr))
		}
	}

	c.metrics.ObserveExhausted()
	logger.Error("all attempts failed",
		slog.Int("attempts", c.cfg.MaxAttempts),
		slog.String("error", lastErr.Error()))
	return fmt.Errorf("%w: %s after %d attempts: %w", model.ErrExhaustedRetries, op, c.cfg.MaxAttempts, lastErr)
}

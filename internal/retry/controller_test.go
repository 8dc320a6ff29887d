package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/minimarket/internal/dependencies/mocks"
	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/testutil"
)

func newController(cfg Config) (*Controller, *mocks.MockClock) {
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return New(cfg, clk, nil, testutil.NopLogger()), clk
}

func TestDoSucceedsFirstTime(t *testing.T) {
	c, clk := newController(DefaultConfig())

	calls := 0
	err := c.Do(context.Background(), "save", func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clk.Sleeps())
}

func TestDoRetriesTransientFailure(t *testing.T) {
	c, clk := newController(Config{MaxAttempts: 3, Delay: 100 * time.Millisecond})

	var attempts []int
	err := c.Do(context.Background(), "save", func(ctx context.Context, attempt int) error {
		attempts = append(attempts, attempt)
		if attempt == 1 {
			return fmt.Errorf("%w: disk busy", model.ErrIO)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, clk.Sleeps())
}

func TestDoExhaustsAttempts(t *testing.T) {
	c, clk := newController(Config{MaxAttempts: 3, Delay: 50 * time.Millisecond})

	calls := 0
	cause := fmt.Errorf("%w: disk full", model.ErrIO)
	err := c.Do(context.Background(), "save", func(ctx context.Context, attempt int) error {
		calls++
		return cause
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrExhaustedRetries)
	assert.ErrorIs(t, err, model.ErrIO)
	assert.Equal(t, 3, calls)
	assert.Len(t, clk.Sleeps(), 2, "no wait after the final attempt")
}

func TestDoStopsOnPermanentError(t *testing.T) {
	c, clk := newController(DefaultConfig())

	calls := 0
	err := c.Do(context.Background(), "save", func(ctx context.Context, attempt int) error {
		calls++
		return &model.FieldError{Field: "name", Reason: "is empty"}
	})

	assert.ErrorIs(t, err, model.ErrValidation)
	assert.NotErrorIs(t, err, model.ErrExhaustedRetries)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clk.Sleeps())
}

func TestDoAbortsWhenContextCancelled(t *testing.T) {
	c, _ := newController(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := c.Do(ctx, "save", func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewAppliesDefaults(t *testing.T) {
	c, _ := newController(Config{MaxAttempts: 0, Delay: -1})
	assert.Equal(t, DefaultConfig(), c.Config())
}

func TestNewKeepsZeroDelay(t *testing.T) {
	c, clk := newController(Config{MaxAttempts: 2, Delay: 0})
	assert.Equal(t, Config{MaxAttempts: 2}, c.Config())

	err := c.Do(context.Background(), "op", func(ctx context.Context, attempt int) error {
		return model.ErrIO
	})
	assert.ErrorIs(t, err, model.ErrExhaustedRetries)
	assert.Equal(t, []time.Duration{0}, clk.Sleeps())
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(model.ErrValidation))
	assert.True(t, IsPermanent(fmt.Errorf("wrap: %w", model.ErrInvalidArgument)))
	assert.False(t, IsPermanent(model.ErrIO))
	assert.False(t, IsPermanent(errors.New("other")))
}

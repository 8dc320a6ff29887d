package factory

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/minimarket/internal/dependencies/mocks"
	"github.com/mcoot/minimarket/internal/retry"
	"github.com/mcoot/minimarket/internal/storage/memory"
	"github.com/mcoot/minimarket/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock   *mocks.MockClock
	MockRandom  *mocks.MockRandom
	MemoryStore *memory.Storage
}

// NewTestApp creates a started App over an in-memory store with mocked
// dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app, err := newWithDependencies(store, mockClock, mockRandom, retry.DefaultConfig(), prometheus.NewRegistry(), testutil.NopLogger())
	if err != nil {
		panic(err)
	}
	if err := app.Start(context.Background()); err != nil {
		panic(err)
	}

	return &TestApp{
		App:         app,
		MockClock:   mockClock,
		MockRandom:  mockRandom,
		MemoryStore: store,
	}
}

package factory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/retry"
	"github.com/mcoot/minimarket/internal/services/profile"
	"github.com/mcoot/minimarket/internal/storage/file"
	redisstorage "github.com/mcoot/minimarket/internal/storage/redis"
	"github.com/mcoot/minimarket/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	_ = s.app.Close(s.ctx)
}

// Test: Complete profile lifecycle from creation to deletion
func (s *IntegrationSuite) TestCompleteProfileFlow() {
	sub := s.app.Events.Subscribe("")
	s.app.MockRandom.QueueIntn(7)

	// Step 1: Create a profile
	p, err := s.app.Profiles.Create(s.ctx, "Alice", model.AvatarFarmer, model.LanguageSwedish)
	s.Require().NoError(err)
	s.Equal(model.ProfileID("profile_1704110400_0007"), p.ID)

	// Step 2: Play for a while and save progress, with one transient failure
	s.app.MockClock.Advance(30 * time.Minute)
	s.app.MemoryStore.FailNextWrites(1)
	p.Progress = map[string]any{"counting": map[string]any{"level": 2.0}}
	s.Require().NoError(s.app.Profiles.Save(s.ctx, p))

	// Step 3: Reload and check
	loaded, err := s.app.Profiles.Load(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p, loaded)

	// Step 4: Delete
	s.Require().NoError(s.app.Profiles.Delete(s.ctx, p.ID))
	all, err := s.app.Profiles.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)

	// Every step was announced in order
	var types []model.EventType
	for range 5 {
		select {
		case ev := <-sub.Events():
			types = append(types, ev.Type)
		case <-time.After(time.Second):
			s.FailNow("timed out waiting for events", "%v", types)
		}
	}
	s.Equal([]model.EventType{
		model.EventProfileSaved,
		model.EventProfileCreated,
		model.EventProfileSaved,
		model.EventProfileLoaded,
		model.EventProfileDeleted,
	}, types)
}

func (s *IntegrationSuite) TestRegistryIsRegisteredAsManager() {
	registry, ok := LookupAs[*profile.Registry](s.app.Managers, profile.ManagerKey)
	s.Require().True(ok)
	s.Same(s.app.Profiles, registry)
	s.Equal([]string{profile.ManagerKey}, s.app.Managers.Names())
}

func (s *IntegrationSuite) TestMetricsAreGathered() {
	_, err := s.app.Profiles.Create(s.ctx, "Alice", model.AvatarDefault, model.LanguageEnglish)
	s.Require().NoError(err)

	families, err := s.app.MetricsRegistry.Gather()
	s.Require().NoError(err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	s.True(names["minimarket_saves_total"])
	s.True(names["minimarket_save_attempts_total"])
	s.True(names["minimarket_cached_profiles"])
}

func TestNewWithFileStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "profiles")

	app, err := New(Config{StorageType: StorageTypeFile, DataDir: dir, Logger: testutil.NopLogger()})
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))

	_, ok := app.Storage.(*file.Storage)
	assert.True(t, ok)
	assert.DirExists(t, dir)

	_, err = app.Profiles.Create(context.Background(), "Alice", model.AvatarDefault, model.LanguageEnglish)
	require.NoError(t, err)
	require.NoError(t, app.Close(context.Background()))
}

func TestNewDefaultsRetryFieldsSeparately(t *testing.T) {
	tests := []struct {
		name string
		in   retry.Config
		want retry.Config
	}{
		{"zero", retry.Config{}, retry.DefaultConfig()},
		{"attempts only", retry.Config{MaxAttempts: 5}, retry.Config{MaxAttempts: 5, Delay: retry.DefaultConfig().Delay}},
		{"delay only", retry.Config{Delay: time.Second}, retry.Config{MaxAttempts: retry.DefaultConfig().MaxAttempts, Delay: time.Second}},
		{"both", retry.Config{MaxAttempts: 2, Delay: time.Millisecond}, retry.Config{MaxAttempts: 2, Delay: time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := New(Config{StorageType: StorageTypeMemory, Retry: tt.in, Logger: testutil.NopLogger()})
			require.NoError(t, err)
			assert.Equal(t, tt.want, app.Retry.Config())
		})
	}
}

func TestNewWithRedisStorage(t *testing.T) {
	mini := miniredis.RunT(t)
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mini.Addr()

	app, err := New(Config{StorageType: StorageTypeRedis, RedisConfig: &redisCfg})
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))

	p, err := app.Profiles.Create(context.Background(), "Alice", model.AvatarDefault, model.LanguageEnglish)
	require.NoError(t, err)
	assert.True(t, mini.Exists("minimarket:profile:"+string(p.ID)))

	require.NoError(t, app.Close(context.Background()))
}

func TestNewRejectsBadStorageConfig(t *testing.T) {
	_, err := New(Config{StorageType: "tape"})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = New(Config{StorageType: StorageTypeRedis})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

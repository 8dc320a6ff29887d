package profile

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/minimarket/internal/codec"
	"github.com/mcoot/minimarket/internal/dependencies/clock"
	"github.com/mcoot/minimarket/internal/dependencies/random"
	"github.com/mcoot/minimarket/internal/events"
	"github.com/mcoot/minimarket/internal/metrics"
	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/retry"
	"github.com/mcoot/minimarket/internal/storage"
)

// ManagerKey is the name the registry is registered under in the manager table
const ManagerKey = "profiles"

// SortOrder selects the ordering used by ListSorted
type SortOrder string

const (
	SortByCreated SortOrder = "created"
	SortByName    SortOrder = "name"
)

// ProfileUpdate holds setter-style changes. Nil fields are left alone;
// Settings entries are merged and Progress replaces the existing sub-record.
type ProfileUpdate struct {
	Name     *string
	Avatar   *model.Avatar
	Language *model.Language
	Settings map[string]any
	Progress map[string]any
}

// Stats describes what the registry currently holds
type Stats struct {
	Profiles     int   `json:"profiles"`
	StorageBytes int64 `json:"storage_bytes"`
}

// Registry coordinates profile creation, loading, saving and deletion over
// the cache and the store
type Registry struct {
	storage   storage.Storage
	retry     *retry.Controller
	publisher events.Publisher
	clock     clock.Clock
	random    random.Random
	metrics   *metrics.Metrics
	logger    *slog.Logger

	cache *cache

	// lifecycle guards ready. Operations hold it for reading while they run
	// so Shutdown waits for them.
	lifecycle sync.RWMutex
	ready     bool

	idLocksMu sync.Mutex
	idLocks   map[model.ProfileID]*idLock
	reserved  map[model.ProfileID]bool // IDs handed out by Create but not yet saved
}

// NewRegistry creates a Registry. It must be initialized before use.
func NewRegistry(
	store storage.Storage,
	retrier *retry.Controller,
	publisher events.Publisher,
	clk clock.Clock,
	rnd random.Random,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Registry {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Registry{
		storage:   store,
		retry:     retrier,
		publisher: publisher,
		clock:     clk,
		random:    rnd,
		metrics:   m,
		logger:    logger.With(slog.String("component", "profiles")),
		cache:     newCache(),
		idLocks:   make(map[model.ProfileID]*idLock),
		reserved:  make(map[model.ProfileID]bool),
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(model.EventType, model.ProfileID, string) {}

// Ready reports whether the registry has been initialized
func (r *Registry) Ready() bool {
	r.lifecycle.RLock()
	defer r.lifecycle.RUnlock()
	return r.ready
}

// acquire holds the lifecycle read lock for the duration of an operation.
// The returned release must be called when err is nil.
func (r *Registry) acquire() (release func(), err error) {
	r.lifecycle.RLock()
	if !r.ready {
		r.lifecycle.RUnlock()
		return nil, model.ErrNotInitialized
	}
	return r.lifecycle.RUnlock, nil
}

// idLock serializes writes to one ID. refs counts holders and waiters so the
// entry can be dropped once nobody needs it.
type idLock struct {
	mu   sync.Mutex
	refs int
}

// lockID takes the per-ID lock and returns its release
func (r *Registry) lockID(id model.ProfileID) func() {
	r.idLocksMu.Lock()
	l, ok := r.idLocks[id]
	if !ok {
		l = &idLock{}
		r.idLocks[id] = l
	}
	l.refs++
	r.idLocksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		r.idLocksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.idLocks, id)
		}
		r.idLocksMu.Unlock()
	}
}

// Initialize loads every stored profile into the cache and marks the
// registry ready. Calling it again once ready does nothing.
func (r *Registry) Initialize(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if r.ready {
		r.logger.Debug("registry already initialized")
		return nil
	}

	ids, err := r.storage.ListIDs(ctx)
	if err != nil {
		r.logger.Error("failed to enumerate stored profiles", slog.String("error", err.Error()))
		return fmt.Errorf("initialize profile registry: %w", err)
	}

	loaded := 0
	for _, id := range ids {
		if _, err := r.loadFromStore(ctx, model.ProfileID(id)); err != nil {
			r.logger.Error("skipping profile that failed to load",
				slog.String("profile_id", id),
				slog.String("error", err.Error()))
			continue
		}
		loaded++
	}

	r.ready = true
	r.metrics.SetCacheSize(r.cache.Len())
	r.logger.Info("profile registry initialized",
		slog.Int("stored", len(ids)),
		slog.Int("loaded", loaded))
	return nil
}

// Shutdown flushes every cached profile to the store, clears the cache and
// marks the registry uninitialized. Flush failures are logged and returned
// but do not stop the teardown.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	if !r.ready {
		return nil
	}

	var errs []error
	flushed := 0
	for _, p := range r.cache.List() {
		data, err := codec.Serialize(p)
		if err == nil {
			err = r.storage.Write(ctx, string(p.ID), data)
		}
		if err != nil {
			r.logger.Error("failed to flush profile",
				slog.String("profile_id", string(p.ID)),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("flush %s: %w", p.ID, err))
			continue
		}
		flushed++
	}

	r.cache.Clear()
	r.ready = false
	r.metrics.SetCacheSize(0)
	r.logger.Info("profile registry shut down",
		slog.Int("flushed", flushed),
		slog.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// Create builds a new profile with a generated ID and default settings and
// saves it before returning
func (r *Registry) Create(ctx context.Context, name string, avatar model.Avatar, language model.Language) (*model.Profile, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if strings.TrimSpace(name) == "" {
		r.logger.Warn("rejected profile creation with empty name")
		return nil, fmt.Errorf("%w: profile name must not be empty", model.ErrInvalidArgument)
	}
	if !language.Valid() {
		r.logger.Warn("unsupported language, using default",
			slog.String("language", string(language)),
			slog.String("default", string(model.DefaultLanguage)))
		language = model.DefaultLanguage
	}
	if !avatar.Valid() {
		r.logger.Warn("unsupported avatar, using default", slog.String("avatar", string(avatar)))
		avatar = model.AvatarDefault
	}

	id, err := r.generateID(ctx)
	if err != nil {
		r.logger.Error("failed to generate profile id", slog.String("error", err.Error()))
		return nil, err
	}
	defer r.releaseID(id)

	p := model.NewProfile(id, name, avatar, language, r.timestamp())
	if err := r.save(ctx, p); err != nil {
		return nil, err
	}

	r.publisher.Publish(model.EventProfileCreated, id, "")
	r.logger.Info("profile created",
		slog.String("profile_id", string(id)),
		slog.String("language", string(language)))
	return p, nil
}

// Save validates the profile, stamps LastPlayed and writes it with retries.
// On success the cache holds the saved record and p reflects what was
// persisted. On failure the cache and the store keep the last good copy.
func (r *Registry) Save(ctx context.Context, p *model.Profile) error {
	release, err := r.acquire()
	if err != nil {
		return err
	}
	defer release()

	if p == nil {
		return fmt.Errorf("%w: nil profile", model.ErrInvalidArgument)
	}
	return r.save(ctx, p)
}

func (r *Registry) save(ctx context.Context, p *model.Profile) error {
	working := p.Clone()
	logger := r.logger.With(slog.String("profile_id", string(working.ID)))

	repaired, err := working.Validate()
	if err != nil {
		logger.Warn("refusing to save invalid profile", slog.String("error", err.Error()))
		r.metrics.ObserveSave(false)
		r.publisher.Publish(model.EventSaveFailed, working.ID, err.Error())
		return err
	}
	if len(repaired) > 0 {
		logger.Warn("repaired profile fields before save", slog.Any("fields", repaired))
	}

	unlock := r.lockID(working.ID)
	defer unlock()

	working.LastPlayed = r.timestamp()
	data, err := codec.Serialize(working)
	if err != nil {
		r.metrics.ObserveSave(false)
		r.publisher.Publish(model.EventSaveFailed, working.ID, err.Error())
		return err
	}

	err = r.retry.Do(ctx, "save profile", func(ctx context.Context, attempt int) error {
		return r.storage.Write(ctx, string(working.ID), data)
	})
	if err != nil {
		logger.Error("failed to save profile", slog.String("error", err.Error()))
		r.metrics.ObserveSave(false)
		r.publisher.Publish(model.EventSaveFailed, working.ID, err.Error())
		return err
	}

	r.cache.Upsert(working)
	*p = *working
	r.metrics.ObserveSave(true)
	r.metrics.SetCacheSize(r.cache.Len())
	r.publisher.Publish(model.EventProfileSaved, working.ID, "")
	logger.Debug("profile saved", slog.Int("bytes", len(data)))
	return nil
}

// Load returns a copy of the profile, from the cache when present and
// otherwise from the store. Any failure is reported as ErrNotFound wrapping
// the cause.
func (r *Registry) Load(ctx context.Context, id model.ProfileID) (*model.Profile, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if id == "" {
		return nil, fmt.Errorf("%w: empty profile id", model.ErrInvalidArgument)
	}
	return r.load(ctx, id)
}

func (r *Registry) load(ctx context.Context, id model.ProfileID) (*model.Profile, error) {
	if p, ok := r.cache.Lookup(id); ok {
		r.metrics.ObserveLoad(metrics.SourceCache)
		r.publisher.Publish(model.EventProfileLoaded, id, "")
		return p, nil
	}

	p, err := r.loadFromStore(ctx, id)
	if err != nil {
		r.logger.Warn("failed to load profile",
			slog.String("profile_id", string(id)),
			slog.String("error", err.Error()))
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", model.ErrNotFound, id, err)
	}

	r.metrics.ObserveLoad(metrics.SourceStore)
	r.metrics.SetCacheSize(r.cache.Len())
	r.publisher.Publish(model.EventProfileLoaded, id, "")
	return p, nil
}

// loadFromStore reads, decodes and caches one stored profile
func (r *Registry) loadFromStore(ctx context.Context, id model.ProfileID) (*model.Profile, error) {
	data, err := r.storage.Read(ctx, string(id))
	if err != nil {
		return nil, err
	}

	p, err := codec.Deserialize(data)
	if err != nil {
		return nil, err
	}
	if p.ID != id {
		return nil, &model.FieldError{Field: "id", Reason: fmt.Sprintf("is %q, expected %q", p.ID, id)}
	}

	r.cache.Upsert(p)
	return p.Clone(), nil
}

// Update applies setter-style changes to a profile and saves it
func (r *Registry) Update(ctx context.Context, id model.ProfileID, update ProfileUpdate) (*model.Profile, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if id == "" {
		return nil, fmt.Errorf("%w: empty profile id", model.ErrInvalidArgument)
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, fmt.Errorf("%w: profile name must not be empty", model.ErrInvalidArgument)
	}

	p, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		p.Name = *update.Name
	}
	if update.Avatar != nil {
		p.Avatar = *update.Avatar
	}
	if update.Language != nil {
		p.Language = *update.Language
	}
	if update.Settings != nil {
		if p.Settings == nil {
			p.Settings = model.Settings{}
		}
		for key, value := range update.Settings {
			p.Settings[key] = value
		}
	}
	if update.Progress != nil {
		p.Progress = update.Progress
	}

	if err := r.save(ctx, p); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Delete removes a profile from the cache and the store. It reports
// ErrNotFound only when neither held the profile.
func (r *Registry) Delete(ctx context.Context, id model.ProfileID) error {
	release, err := r.acquire()
	if err != nil {
		return err
	}
	defer release()

	if id == "" {
		r.logger.Warn("rejected delete with empty profile id")
		return fmt.Errorf("%w: empty profile id", model.ErrInvalidArgument)
	}

	unlock := r.lockID(id)
	defer unlock()

	wasCached := r.cache.Remove(id)
	r.metrics.SetCacheSize(r.cache.Len())

	if err := r.storage.Delete(ctx, string(id)); err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			r.logger.Error("failed to delete stored profile",
				slog.String("profile_id", string(id)),
				slog.String("error", err.Error()))
			return err
		}
		if !wasCached {
			r.logger.Warn("delete of unknown profile", slog.String("profile_id", string(id)))
			return err
		}
		r.logger.Warn("profile had no stored record", slog.String("profile_id", string(id)))
	}

	r.publisher.Publish(model.EventProfileDeleted, id, "")
	r.logger.Info("profile deleted", slog.String("profile_id", string(id)))
	return nil
}

// ListAll returns copies of every cached profile in insertion order
func (r *Registry) ListAll(ctx context.Context) ([]*model.Profile, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return r.cache.List(), nil
}

// ListSorted returns copies of every cached profile in a stable order
func (r *Registry) ListSorted(ctx context.Context, by SortOrder) ([]*model.Profile, error) {
	release, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	profiles := r.cache.List()
	switch by {
	case SortByCreated, "":
		slices.SortStableFunc(profiles, func(a, b *model.Profile) int {
			return cmp.Or(a.CreatedDate.Compare(b.CreatedDate), cmp.Compare(a.ID, b.ID))
		})
	case SortByName:
		slices.SortStableFunc(profiles, func(a, b *model.Profile) int {
			return cmp.Or(
				cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
				cmp.Compare(a.ID, b.ID))
		})
	default:
		return nil, fmt.Errorf("%w: unknown sort order %q", model.ErrInvalidArgument, by)
	}
	return profiles, nil
}

// Stats reports the number of cached profiles and the bytes held by the store
func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	release, err := r.acquire()
	if err != nil {
		return Stats{}, err
	}
	defer release()

	size, err := r.storage.Size(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Profiles: r.cache.Len(), StorageBytes: size}, nil
}

// timestamp is the clock's current time at the precision records persist
func (r *Registry) timestamp() time.Time {
	return r.clock.Now().UTC().Truncate(time.Second)
}

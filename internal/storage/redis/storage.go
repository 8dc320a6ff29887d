package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a new Redis storage instance
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis url: %v", model.ErrInvalidArgument, err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, ioError("connect to redis", err)
	}

	return NewWithClient(client, cfg, logger), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, logger *slog.Logger) *Storage {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	if cfg.BackupTTL <= 0 {
		cfg.BackupTTL = DefaultConfig().BackupTTL
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "redis-storage")),
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, profileKey(s.cfg.KeyPrefix, id)).Result()
	if err != nil {
		return false, ioError("check record", err)
	}
	return n > 0, nil
}

func (s *Storage) Write(ctx context.Context, id string, data []byte) error {
	if id == "" {
		return fmt.Errorf("%w: empty profile id", model.ErrInvalidArgument)
	}
	key := profileKey(s.cfg.KeyPrefix, id)
	bkey := backupKey(s.cfg.KeyPrefix, id)

	previous, err := s.client.Get(ctx, key).Bytes()
	hadPrevious := err == nil
	if err != nil && !errors.Is(err, redis.Nil) {
		return ioError("read existing record", err)
	}

	if hadPrevious {
		if err := s.client.Set(ctx, bkey, previous, s.cfg.BackupTTL).Err(); err != nil {
			return ioError("write backup", err)
		}
		defer func() {
			if err := s.client.Del(context.WithoutCancel(ctx), bkey).Err(); err != nil {
				s.logger.Warn("failed to remove backup",
					slog.String("profile_id", id),
					slog.String("error", err.Error()))
			}
		}()
	}

	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		s.restore(ctx, id, previous, hadPrevious)
		return ioError("write record", err)
	}

	written, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		s.restore(ctx, id, previous, hadPrevious)
		return ioError("read back record", err)
	}

	if err := storage.Verify(id, written); err != nil {
		s.logger.Warn("written record failed verification, restoring previous content",
			slog.String("profile_id", id),
			slog.Bool("had_previous", hadPrevious),
			slog.String("error", err.Error()))
		s.restore(ctx, id, previous, hadPrevious)
		return err
	}

	return nil
}

// restore writes the previous content back without the backup's TTL, or
// removes the new record when there was nothing before
func (s *Storage) restore(ctx context.Context, id string, previous []byte, hadPrevious bool) {
	ctx = context.WithoutCancel(ctx)
	key := profileKey(s.cfg.KeyPrefix, id)

	var err error
	if hadPrevious {
		err = s.client.Set(ctx, key, previous, 0).Err()
	} else {
		err = s.client.Del(ctx, key).Err()
	}
	if err != nil {
		s.logger.Error("failed to restore record",
			slog.String("profile_id", id),
			slog.String("error", err.Error()))
	}
}

func (s *Storage) Read(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, profileKey(s.cfg.KeyPrefix, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
		}
		return nil, ioError("read record", err)
	}
	return data, nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, profileKey(s.cfg.KeyPrefix, id)).Result()
	if err != nil {
		return ioError("delete record", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	return nil
}

func (s *Storage) ListIDs(ctx context.Context) ([]string, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}

	ids := []string{}
	for _, key := range keys {
		if id, ok := idFromKey(s.cfg.KeyPrefix, key); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Storage) Size(ctx context.Context) (int64, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	lengths := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		lengths[i] = pipe.StrLen(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, ioError("measure records", err)
	}

	var total int64
	for _, cmd := range lengths {
		total += cmd.Val()
	}
	return total, nil
}

func (s *Storage) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, profilePattern(s.cfg.KeyPrefix), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, ioError("scan records", err)
	}
	return keys, nil
}

func ioError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", model.ErrIO, op, err)
}

package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/storage"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Storage keeps one JSON file per profile under a root directory, named
// <id>.json, with a transient <id>.json.backup sibling during writes
type Storage struct {
	root   string
	logger *slog.Logger

	// writeRecord writes the primary record file; replaced in tests to
	// simulate torn or corrupt writes
	writeRecord func(name string, data []byte, perm os.FileMode) error
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// New creates a file storage rooted at dir, creating the directory if needed
func New(dir string, logger *slog.Logger) (*Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: storage directory must be set", model.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, ioError("create storage directory", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, ioError("access storage directory", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", model.ErrIO, dir)
	}

	s := &Storage{
		root:        dir,
		logger:      logger.With(slog.String("component", "file-storage")),
		writeRecord: os.WriteFile,
	}
	if err := s.recoverBackups(); err != nil {
		return nil, err
	}
	return s, nil
}

// recoverBackups resolves backups left behind by a write that never finished.
// A backup replaces a primary record that is missing or fails verification;
// otherwise the primary wins and the backup is removed. Backups that fail
// verification themselves are left in place for inspection.
func (s *Storage) recoverBackups() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return ioError("read storage directory", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, storage.RecordExt+storage.BackupSuffix) {
			continue
		}
		id := strings.TrimSuffix(name, storage.RecordExt+storage.BackupSuffix)
		path, err := s.recordPath(id)
		if err != nil {
			continue
		}
		backup := path + storage.BackupSuffix
		logger := s.logger.With(slog.String("profile_id", id))

		if primary, err := os.ReadFile(path); err == nil && storage.Verify(id, primary) == nil {
			if err := os.Remove(backup); err != nil {
				logger.Warn("failed to remove stale backup", slog.String("error", err.Error()))
			} else {
				logger.Info("removed stale backup")
			}
			continue
		}

		saved, err := os.ReadFile(backup)
		if err != nil {
			logger.Warn("failed to read stray backup", slog.String("error", err.Error()))
			continue
		}
		if err := storage.Verify(id, saved); err != nil {
			logger.Warn("stray backup failed verification, leaving it in place", slog.String("error", err.Error()))
			continue
		}
		if err := os.Rename(backup, path); err != nil {
			return ioError("restore backup", err)
		}
		logger.Warn("restored record from backup left by an interrupted write")
	}
	return nil
}

// Root returns the storage directory
func (s *Storage) Root() string {
	return s.root
}

func (s *Storage) Exists(ctx context.Context, id string) (bool, error) {
	path, err := s.recordPath(id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, ioError("stat record", err)
}

func (s *Storage) Write(ctx context.Context, id string, data []byte) error {
	path, err := s.recordPath(id)
	if err != nil {
		return err
	}
	backup := path + storage.BackupSuffix

	previous, err := os.ReadFile(path)
	hadPrevious := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioError("read existing record", err)
	}

	if hadPrevious {
		if err := os.WriteFile(backup, previous, filePerm); err != nil {
			return ioError("write backup", err)
		}
		defer func() {
			if err := os.Remove(backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("failed to remove backup",
					slog.String("profile_id", id),
					slog.String("error", err.Error()))
			}
		}()
	}

	if err := s.writeRecord(path, data, filePerm); err != nil {
		s.restore(id, path, backup, hadPrevious)
		return ioError("write record", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		s.restore(id, path, backup, hadPrevious)
		return ioError("read back record", err)
	}

	if err := storage.Verify(id, written); err != nil {
		s.logger.Warn("written record failed verification, restoring previous content",
			slog.String("profile_id", id),
			slog.Bool("had_previous", hadPrevious),
			slog.String("error", err.Error()))
		s.restore(id, path, backup, hadPrevious)
		return err
	}

	return nil
}

// restore puts the backup back in place, or removes the new record when
// there was nothing to back up
func (s *Storage) restore(id, path, backup string, hadPrevious bool) {
	var err error
	if hadPrevious {
		err = os.Rename(backup, path)
	} else {
		err = os.Remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			err = nil
		}
	}
	if err != nil {
		s.logger.Error("failed to restore record",
			slog.String("profile_id", id),
			slog.String("error", err.Error()))
	}
}

func (s *Storage) Read(ctx context.Context, id string) ([]byte, error) {
	path, err := s.recordPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
		}
		return nil, ioError("read record", err)
	}
	return data, nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	path, err := s.recordPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", model.ErrNotFound, id)
		}
		return ioError("remove record", err)
	}
	return nil
}

func (s *Storage) ListIDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, ioError("read storage directory", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, storage.BackupSuffix) {
			continue
		}
		if !strings.HasSuffix(name, storage.RecordExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, storage.RecordExt))
	}
	return ids, nil
}

func (s *Storage) Size(ctx context.Context) (int64, error) {
	var total int64
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, ioError("measure storage directory", err)
	}
	return total, nil
}

// recordPath maps an id to its file, rejecting ids that would escape the root
func (s *Storage) recordPath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: invalid profile id %q", model.ErrInvalidArgument, id)
	}
	return filepath.Join(s.root, id+storage.RecordExt), nil
}

func ioError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", model.ErrIO, op, err)
}

package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcoot/minimarket/internal/model"
	"github.com/mcoot/minimarket/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// It keeps records in insertion order and can inject write failures for tests.
type Storage struct {
	mu sync.RWMutex

	records map[string][]byte
	backups map[string][]byte
	order   []string

	failWrites int
	corrupt    func(id string, data []byte) []byte
	writes     int
	reads      int
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		records: make(map[string][]byte),
		backups: make(map[string][]byte),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// FailNextWrites makes the next n writes fail with a transient I/O error
// before anything is written
func (s *Storage) FailNextWrites(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = n
}

// CorruptWrites transforms the bytes that land in the store on every
// subsequent write; nil turns corruption off
func (s *Storage) CorruptWrites(fn func(id string, data []byte) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corrupt = fn
}

// Writes returns the number of write attempts seen
func (s *Storage) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Reads returns the number of reads served
func (s *Storage) Reads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads
}

// Put stores raw bytes without verification, for seeding tests
func (s *Storage) Put(id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(id, append([]byte(nil), data...))
}

func (s *Storage) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok, nil
}

func (s *Storage) Write(ctx context.Context, id string, data []byte) error {
	if id == "" {
		return fmt.Errorf("%w: empty profile id", model.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++

	if s.failWrites > 0 {
		s.failWrites--
		return fmt.Errorf("%w: injected write failure", model.ErrIO)
	}

	previous, hadPrevious := s.records[id]
	if hadPrevious {
		s.backups[id] = previous
		defer delete(s.backups, id)
	}

	stored := append([]byte(nil), data...)
	if s.corrupt != nil {
		stored = s.corrupt(id, stored)
	}
	s.put(id, stored)

	if err := storage.Verify(id, s.records[id]); err != nil {
		if hadPrevious {
			s.records[id] = s.backups[id]
		} else {
			s.remove(id)
		}
		return err
	}
	return nil
}

func (s *Storage) Read(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	data, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	return append([]byte(nil), data...), nil
}

func (s *Storage) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	s.remove(id)
	return nil
}

func (s *Storage) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.order...), nil
}

func (s *Storage) Size(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, data := range s.records {
		total += int64(len(data))
	}
	for _, data := range s.backups {
		total += int64(len(data))
	}
	return total, nil
}

func (s *Storage) put(id string, data []byte) {
	if _, ok := s.records[id]; !ok {
		s.order = append(s.order, id)
	}
	s.records[id] = data
}

func (s *Storage) remove(id string) {
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

package tagscript

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of TagStorage.
// It is primarily intended for testing and development.
// All data is lost when the process terminates.
type MemoryStorage struct {
	mu     sync.RWMutex
	tags   map[string]*StoredTag
	closed bool
}

// MemoryStorageDriver is the driver for creating MemoryStorage instances.
type MemoryStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameMemory, &MemoryStorageDriver{})
}

// Open creates a new MemoryStorage instance.
// The connection string is ignored for memory storage.
func (d *MemoryStorageDriver) Open(string) (TagStorage, error) {
	return NewMemoryStorage(), nil
}

// NewMemoryStorage creates a new in-memory tag storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tags: make(map[string]*StoredTag),
	}
}

// Get retrieves a tag by name.
func (s *MemoryStorage) Get(ctx context.Context, name string) (*StoredTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	tag, ok := s.tags[name]
	if !ok {
		return nil, NewTagNotFoundError(name)
	}
	return copyStoredTag(tag), nil
}

// Save creates or replaces a tag.
func (s *MemoryStorage) Save(ctx context.Context, tag *StoredTag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tag == nil {
		return &StorageError{Message: ErrMsgEmptyTagName}
	}
	if err := ValidateTagName(tag.Name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	now := time.Now()
	stored := copyStoredTag(tag)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if existing, ok := s.tags[tag.Name]; ok {
		stored.CreatedAt = existing.CreatedAt
		stored.Uses = existing.Uses
	}

	tag.CreatedAt = stored.CreatedAt
	tag.UpdatedAt = stored.UpdatedAt
	tag.Uses = stored.Uses

	s.tags[tag.Name] = stored
	return nil
}

// Delete removes a tag.
func (s *MemoryStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	if _, ok := s.tags[name]; !ok {
		return NewTagNotFoundError(name)
	}
	delete(s.tags, name)
	return nil
}

// List returns tags matching the query.
func (s *MemoryStorage) List(ctx context.Context, query *TagQuery) ([]*StoredTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	result := make([]*StoredTag, 0, len(s.tags))
	for _, tag := range s.tags {
		if query.matches(tag) {
			result = append(result, copyStoredTag(tag))
		}
	}
	return query.paginate(result), nil
}

// Exists checks if a tag exists.
func (s *MemoryStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}

	_, ok := s.tags[name]
	return ok, nil
}

// RecordUse increments the use counter of a tag.
func (s *MemoryStorage) RecordUse(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	tag, ok := s.tags[name]
	if !ok {
		return NewTagNotFoundError(name)
	}
	tag.Uses++
	return nil
}

// Close marks the storage as closed.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.tags = nil
	return nil
}

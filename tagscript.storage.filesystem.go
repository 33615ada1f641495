package tagscript

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FilesystemStorage stores each tag as a YAML file:
//
//	<root>/
//	  greet.yaml
//	  roll.yaml
//	  ...
//
// Files are replaced atomically on save, so a reader never sees a partial
// tag. Files without the .yaml suffix are ignored.
type FilesystemStorage struct {
	mu     sync.RWMutex
	root   string
	closed bool
}

// FilesystemStorageDriver is the driver for creating FilesystemStorage instances.
type FilesystemStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameFilesystem, &FilesystemStorageDriver{})
}

// Open creates a new FilesystemStorage instance.
// The connection string is the root directory path.
func (d *FilesystemStorageDriver) Open(connectionString string) (TagStorage, error) {
	return NewFilesystemStorage(connectionString)
}

// NewFilesystemStorage creates a filesystem tag storage rooted at root. The
// directory is created if it doesn't exist.
func NewFilesystemStorage(root string) (*FilesystemStorage, error) {
	if root == StringEmpty {
		return nil, &StorageError{Message: ErrMsgFilesystemEmptyRoot}
	}
	if err := os.MkdirAll(root, FilesystemDirPerm); err != nil {
		return nil, &StorageError{Message: ErrMsgFilesystemIO, Name: root, Cause: err}
	}
	return &FilesystemStorage{root: root}, nil
}

// Root returns the storage directory.
func (s *FilesystemStorage) Root() string {
	return s.root
}

func (s *FilesystemStorage) path(name string) string {
	return filepath.Join(s.root, name+FilesystemTagSuffix)
}

// Get retrieves a tag by name.
func (s *FilesystemStorage) Get(ctx context.Context, name string) (*StoredTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateTagName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	return s.load(name)
}

// Save creates or replaces a tag.
func (s *FilesystemStorage) Save(ctx context.Context, tag *StoredTag) error {
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

	now := time.Now().UTC()
	stored := copyStoredTag(tag)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	existing, err := s.load(tag.Name)
	switch {
	case err == nil:
		stored.CreatedAt = existing.CreatedAt
		stored.Uses = existing.Uses
	case !IsTagNotFound(err):
		return err
	}

	if err := s.write(stored); err != nil {
		return err
	}

	tag.CreatedAt = stored.CreatedAt
	tag.UpdatedAt = stored.UpdatedAt
	tag.Uses = stored.Uses
	return nil
}

// Delete removes a tag.
func (s *FilesystemStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateTagName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewTagNotFoundError(name)
		}
		return &StorageError{Message: ErrMsgFilesystemIO, Name: name, Cause: err}
	}
	return nil
}

// List returns tags matching the query.
func (s *FilesystemStorage) List(ctx context.Context, query *TagQuery) ([]*StoredTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &StorageError{Message: ErrMsgFilesystemIO, Name: s.root, Cause: err}
	}

	result := make([]*StoredTag, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FilesystemTagSuffix) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), FilesystemTagSuffix)
		if ValidateTagName(name) != nil {
			continue
		}
		tag, err := s.load(name)
		if err != nil {
			return nil, err
		}
		if query.matches(tag) {
			result = append(result, tag)
		}
	}
	return query.paginate(result), nil
}

// Exists checks if a tag exists.
func (s *FilesystemStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if ValidateTagName(name) != nil {
		return false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}

	_, err := os.Stat(s.path(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &StorageError{Message: ErrMsgFilesystemIO, Name: name, Cause: err}
	}
}

// RecordUse increments the use counter of a tag.
func (s *FilesystemStorage) RecordUse(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateTagName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	tag, err := s.load(name)
	if err != nil {
		return err
	}
	tag.Uses++
	return s.write(tag)
}

// Close marks the storage as closed.
func (s *FilesystemStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// load reads one tag file. The caller holds the lock.
func (s *FilesystemStorage) load(name string) (*StoredTag, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewTagNotFoundError(name)
		}
		return nil, &StorageError{Message: ErrMsgFilesystemIO, Name: name, Cause: err}
	}

	var tag StoredTag
	if err := yaml.Unmarshal(data, &tag); err != nil {
		return nil, &StorageError{Message: ErrMsgFilesystemDecode, Name: name, Cause: err}
	}
	tag.Name = name
	return &tag, nil
}

// write replaces one tag file through a temporary file. The caller holds
// the lock.
func (s *FilesystemStorage) write(tag *StoredTag) error {
	data, err := yaml.Marshal(tag)
	if err != nil {
		return &StorageError{Message: ErrMsgFilesystemDecode, Name: tag.Name, Cause: err}
	}

	tmp, err := os.CreateTemp(s.root, "."+tag.Name+".*")
	if err != nil {
		return &StorageError{Message: ErrMsgFilesystemIO, Name: tag.Name, Cause: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &StorageError{Message: ErrMsgFilesystemIO, Name: tag.Name, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Message: ErrMsgFilesystemIO, Name: tag.Name, Cause: err}
	}
	if err := os.Chmod(tmpName, FilesystemFilePerm); err != nil {
		return &StorageError{Message: ErrMsgFilesystemIO, Name: tag.Name, Cause: err}
	}
	if err := os.Rename(tmpName, s.path(tag.Name)); err != nil {
		return &StorageError{Message: ErrMsgFilesystemIO, Name: tag.Name, Cause: err}
	}
	return nil
}

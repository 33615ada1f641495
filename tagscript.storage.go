package tagscript

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StoredTag is a named script kept in a TagStorage.
type StoredTag struct {
	// Name identifies the tag. It is unique within a storage.
	Name string `json:"name" yaml:"name"`

	// Content is the script processed by ProcessStored.
	Content string `json:"content" yaml:"content"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Metadata contains arbitrary key-value pairs for user-defined data.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Author identifies who saved the tag (optional).
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// TenantID for multi-tenant isolation (optional).
	TenantID string `json:"tenant_id,omitempty" yaml:"tenant_id,omitempty"`

	// Uses counts ProcessStored calls. Save keeps the stored count.
	Uses int64 `json:"uses" yaml:"uses"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// TagQuery defines filters for listing tags.
type TagQuery struct {
	// TenantID filters by tenant (empty matches all).
	TenantID string

	// Author filters by author.
	Author string

	// NamePrefix filters to names starting with this prefix.
	NamePrefix string

	// NameContains filters to names containing this substring.
	NameContains string

	// Limit is the maximum number of results (0 = no limit).
	Limit int

	// Offset is the number of results to skip (for pagination).
	Offset int
}

// TagStorage is the interface for pluggable tag storage backends.
// Implementations must be safe for concurrent use.
type TagStorage interface {
	// Get retrieves a tag by name. Missing tags yield a not-found error,
	// see IsTagNotFound.
	Get(ctx context.Context, name string) (*StoredTag, error)

	// Save creates or replaces a tag. CreatedAt and Uses of an existing tag
	// are kept; CreatedAt and UpdatedAt are set on the argument.
	Save(ctx context.Context, tag *StoredTag) error

	// Delete removes a tag.
	Delete(ctx context.Context, name string) error

	// List returns tags matching the query, ordered by name.
	List(ctx context.Context, query *TagQuery) ([]*StoredTag, error)

	// Exists checks if a tag with the given name exists.
	Exists(ctx context.Context, name string) (bool, error)

	// Close releases any resources held by the storage.
	Close() error
}

// UseRecorder is implemented by storages that count tag uses.
type UseRecorder interface {
	RecordUse(ctx context.Context, name string) error
}

// StorageDriver is a factory for creating storage instances.
// Drivers register themselves during init().
type StorageDriver interface {
	// Open creates a new storage instance with the given connection string.
	// The format of the connection string is driver-specific.
	Open(connectionString string) (TagStorage, error)
}

// Storage driver registry
var (
	storageDriversMu sync.RWMutex
	storageDrivers   = make(map[string]StorageDriver)
)

// RegisterStorageDriver registers a storage driver by name.
// Panics if a driver with the same name is already registered.
func RegisterStorageDriver(name string, driver StorageDriver) {
	storageDriversMu.Lock()
	defer storageDriversMu.Unlock()

	if driver == nil {
		panic(ErrMsgNilStorageDriver)
	}
	if _, exists := storageDrivers[name]; exists {
		panic(ErrMsgDriverAlreadyRegistered + ": " + name)
	}
	storageDrivers[name] = driver
}

// OpenStorage opens a storage connection using the named driver.
//
//	storage, err := tagscript.OpenStorage("memory", "")
//	storage, err := tagscript.OpenStorage("filesystem", "/path/to/tags")
func OpenStorage(driverName, connectionString string) (TagStorage, error) {
	storageDriversMu.RLock()
	driver, ok := storageDrivers[driverName]
	storageDriversMu.RUnlock()

	if !ok {
		return nil, NewStorageDriverNotFoundError(driverName)
	}
	return driver.Open(connectionString)
}

// ListStorageDrivers returns the names of all registered storage drivers,
// sorted.
func ListStorageDrivers() []string {
	storageDriversMu.RLock()
	defer storageDriversMu.RUnlock()

	names := make([]string, 0, len(storageDrivers))
	for name := range storageDrivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateTagName checks that a name can be stored by every driver.
func ValidateTagName(name string) error {
	if name == StringEmpty {
		return &StorageError{Message: ErrMsgEmptyTagName}
	}
	if len(name) > FilesystemNameMaxBytes ||
		strings.ContainsAny(name, invalidTagNameChars) ||
		strings.HasPrefix(name, ".") ||
		strings.TrimSpace(name) != name {
		return &StorageError{Message: ErrMsgInvalidTagName, Name: name}
	}
	return nil
}

const invalidTagNameChars = "/\\:*?\"<>|{}\x00"

// ProcessStored loads a tag and processes its content. The tag's name is
// available to the script as the variable "tag", and its use is recorded
// when the storage supports it.
func (i *Interpreter) ProcessStored(ctx context.Context, storage TagStorage, name string, seed map[string]Adapter, opts ...ProcessOption) (*Response, error) {
	if storage == nil {
		return nil, &StorageError{Message: ErrMsgNilStorage}
	}

	tag, err := storage.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]Adapter, len(seed)+1)
	vars[VariableTagName] = NewStringAdapter(tag.Name, false)
	for k, v := range seed {
		vars[k] = v
	}

	resp, err := i.Process(ctx, tag.Content, vars, append([]ProcessOption{WithCooldownKey(tag.Name)}, opts...)...)
	if err != nil {
		return nil, err
	}

	if recorder, ok := storage.(UseRecorder); ok {
		if err := recorder.RecordUse(ctx, tag.Name); err != nil {
			i.logger.Warn(LogMsgRecordUseFailed, zap.String(LogFieldTagName, tag.Name), zap.Error(err))
		}
	}
	return resp, nil
}

// matches reports whether tag passes the query filters.
func (q *TagQuery) matches(tag *StoredTag) bool {
	if q == nil {
		return true
	}
	if q.TenantID != "" && tag.TenantID != q.TenantID {
		return false
	}
	if q.Author != "" && tag.Author != q.Author {
		return false
	}
	if q.NamePrefix != "" && !strings.HasPrefix(tag.Name, q.NamePrefix) {
		return false
	}
	if q.NameContains != "" && !strings.Contains(tag.Name, q.NameContains) {
		return false
	}
	return true
}

// paginate applies Offset and Limit to tags sorted by name.
func (q *TagQuery) paginate(tags []*StoredTag) []*StoredTag {
	sort.Slice(tags, func(a, b int) bool { return tags[a].Name < tags[b].Name })
	if q == nil {
		return tags
	}
	if q.Offset > 0 {
		if q.Offset >= len(tags) {
			return []*StoredTag{}
		}
		tags = tags[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(tags) {
		tags = tags[:q.Limit]
	}
	return tags
}

// copyStoredTag returns a deep copy of tag.
func copyStoredTag(tag *StoredTag) *StoredTag {
	if tag == nil {
		return nil
	}
	c := *tag
	c.Metadata = copyStringMap(tag.Metadata)
	return &c
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Storage error message constants
const (
	ErrMsgNilStorageDriver         = "storage driver is nil"
	ErrMsgDriverAlreadyRegistered  = "storage driver already registered"
	ErrMsgStorageDriverNotFound    = "storage driver not found"
	ErrMsgStorageClosed            = "storage is closed"
	ErrMsgFilesystemEmptyRoot      = "filesystem storage root cannot be empty"
	ErrMsgFilesystemIO             = "filesystem storage I/O failed"
	ErrMsgFilesystemDecode         = "failed to decode stored tag"
	ErrMsgPostgresEmptyConnString  = "postgres connection string cannot be empty"
	ErrMsgPostgresConnectionFailed = "failed to connect to postgres"
	ErrMsgPostgresQueryFailed      = "postgres query failed"
	ErrMsgPostgresMigrationFailed  = "postgres migration failed"
	ErrMsgPostgresUnmarshalFailed  = "failed to unmarshal stored tag"
)

// NewStorageDriverNotFoundError creates an error for missing storage driver.
func NewStorageDriverNotFoundError(name string) error {
	return &StorageError{
		Message: ErrMsgStorageDriverNotFound,
		Name:    name,
	}
}

// NewStorageClosedError creates an error for operations on closed storage.
func NewStorageClosedError() error {
	return &StorageError{
		Message: ErrMsgStorageClosed,
	}
}

// StorageError represents a storage-related error.
type StorageError struct {
	Message string
	Name    string
	Cause   error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	msg := e.Message
	if e.Name != "" {
		msg += ": " + e.Name
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

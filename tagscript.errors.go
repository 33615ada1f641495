package tagscript

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/itsatony/go-cuserr"
)

// Error message constants - ALL error messages must be constants (NO MAGIC STRINGS)
const (
	// Processing errors
	ErrMsgWorkloadExceeded = "interpreter workload exceeded"
	ErrMsgProcessFailed    = "processing failed"
	ErrMsgBlockPanicked    = "block panicked"
	ErrMsgCooldownExceeded = "cooldown exceeded"

	// Construction errors
	ErrMsgNilBlock          = "block cannot be nil"
	ErrMsgInvalidVerbLimit  = "verb limit must be positive"
	ErrMsgInvalidCharLimit  = "char limit cannot be negative"
	ErrMsgUnknownBlockGroup = "unknown block group"
	ErrMsgUnknownDriver     = "unknown driver"
	ErrMsgConfigReadFailed  = "failed to read config"
	ErrMsgConfigParseFailed = "failed to parse config"
	ErrMsgInvalidLogLevel   = "invalid log level"

	// Storage errors
	ErrMsgTagNotFound    = "tag not found"
	ErrMsgEmptyTagName   = "tag name cannot be empty"
	ErrMsgInvalidTagName = "invalid tag name"
	ErrMsgNilStorage     = "storage cannot be nil"
)

// Error code constants for categorization
const (
	ErrCodeProcess  = "TAGSCRIPT_PROCESS"
	ErrCodeWorkload = "TAGSCRIPT_WORKLOAD"
	ErrCodeBlock    = "TAGSCRIPT_BLOCK"
	ErrCodeConfig   = "TAGSCRIPT_CONFIG"
	ErrCodeStorage  = "TAGSCRIPT_STORAGE"
)

// NewWorkloadExceededError creates the error returned when the produced
// characters exceed the configured budget.
func NewWorkloadExceededError(attempted, limit int) error {
	return cuserr.NewValidationError(ErrCodeWorkload, ErrMsgWorkloadExceeded).
		WithMetadata(MetaKeyKind, ErrKindWorkload).
		WithMetadata(MetaKeyAttempted, strconv.Itoa(attempted)).
		WithMetadata(MetaKeyLimit, strconv.Itoa(limit))
}

// NewBlockError creates an error a block returns on purpose, typically
// because the template author broke one of its preconditions. The interpreter
// returns it to the caller unchanged.
func NewBlockError(block, message string) error {
	return cuserr.NewValidationError(ErrCodeBlock, message).
		WithMetadata(MetaKeyKind, ErrKindBlock).
		WithMetadata(MetaKeyBlock, block)
}

// NewCooldownExceededError creates the block error raised by the cooldown
// block when a bucket is empty.
func NewCooldownExceededError(message, key string, retryAfter time.Duration) error {
	return cuserr.NewValidationError(ErrCodeBlock, message).
		WithMetadata(MetaKeyKind, ErrKindBlock).
		WithMetadata(MetaKeyBlock, DeclCooldown).
		WithMetadata(MetaKeyKey, key).
		WithMetadata(MetaKeyRetryAfter, strconv.FormatInt(retryAfter.Milliseconds(), 10))
}

// NewProcessError wraps an unexpected failure raised while resolving tags.
func NewProcessError(cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeProcess, ErrMsgProcessFailed).
		WithMetadata(MetaKeyKind, ErrKindProcess)
}

// NewBlockPanicError converts a recovered block panic into an error.
func NewBlockPanicError(block string, recovered any) error {
	return cuserr.WrapStdError(errors.New(panicString(recovered)), ErrCodeProcess, ErrMsgBlockPanicked).
		WithMetadata(MetaKeyBlock, block)
}

// NewConfigError creates a configuration validation error.
func NewConfigError(msg, option, value string) error {
	return cuserr.NewValidationError(ErrCodeConfig, msg).
		WithMetadata(MetaKeyKind, ErrKindConfig).
		WithMetadata(MetaKeyOption, option).
		WithMetadata(MetaKeyValue, value)
}

// NewConfigFileError wraps a failure to read or decode a config file.
func NewConfigFileError(msg, path string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeConfig, msg).
		WithMetadata(MetaKeyKind, ErrKindConfig).
		WithMetadata(MetaKeyPath, path)
}

// NewTagNotFoundError creates an error for a missing stored tag.
func NewTagNotFoundError(name string) error {
	return cuserr.NewNotFoundError(MetaKeyTagName, ErrMsgTagNotFound).
		WithMetadata(MetaKeyKind, ErrKindNotFound).
		WithMetadata(MetaKeyTagName, name)
}

// IsWorkloadExceeded reports whether err is a workload-exceeded error.
func IsWorkloadExceeded(err error) bool {
	return errorKind(err) == ErrKindWorkload
}

// IsBlockError reports whether err was raised on purpose by a block.
func IsBlockError(err error) bool {
	return errorKind(err) == ErrKindBlock
}

// IsProcessError reports whether err wraps an unexpected processing failure.
func IsProcessError(err error) bool {
	return errorKind(err) == ErrKindProcess
}

// IsCooldownExceeded reports whether err was raised by the cooldown block.
func IsCooldownExceeded(err error) bool {
	_, _, ok := CooldownDetails(err)
	return ok
}

// IsTagNotFound reports whether err is a missing stored tag error.
func IsTagNotFound(err error) bool {
	return errorKind(err) == ErrKindNotFound
}

// WorkloadDetails extracts the attempted and allowed totals from a
// workload-exceeded error.
func WorkloadDetails(err error) (attempted, limit int, ok bool) {
	if !IsWorkloadExceeded(err) {
		return 0, 0, false
	}
	attempted, okA := intMetadata(err, MetaKeyAttempted)
	limit, okL := intMetadata(err, MetaKeyLimit)
	return attempted, limit, okA && okL
}

// CooldownDetails extracts the bucket key and retry delay from a cooldown
// error.
func CooldownDetails(err error) (key string, retryAfter time.Duration, ok bool) {
	if !IsBlockError(err) {
		return "", 0, false
	}
	var customErr *cuserr.CustomError
	if !errors.As(err, &customErr) {
		return "", 0, false
	}
	key, okKey := customErr.GetMetadata(MetaKeyKey)
	ms, okMS := intMetadata(err, MetaKeyRetryAfter)
	if !okKey || !okMS {
		return "", 0, false
	}
	return key, time.Duration(ms) * time.Millisecond, true
}

// errorKind returns the kind recorded on the outermost custom error.
func errorKind(err error) string {
	var customErr *cuserr.CustomError
	if !errors.As(err, &customErr) {
		return ""
	}
	kind, _ := customErr.GetMetadata(MetaKeyKind)
	return kind
}

func intMetadata(err error, key string) (int, bool) {
	var customErr *cuserr.CustomError
	if !errors.As(err, &customErr) {
		return 0, false
	}
	raw, ok := customErr.GetMetadata(key)
	if !ok {
		return 0, false
	}
	n, convErr := strconv.Atoi(raw)
	if convErr != nil {
		return 0, false
	}
	return n, true
}

func panicString(recovered any) string {
	switch v := recovered.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

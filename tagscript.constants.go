package tagscript

import (
	"time"

	"github.com/itsatony/go-tagscript/internal"
)

// Interpreter limits
const (
	// DefaultVerbLimit caps the characters read from a single tag.
	DefaultVerbLimit = internal.DefaultVerbLimit

	// NoCharLimit disables the cumulative output budget.
	NoCharLimit = 0
)

// Action keys understood by the interpreter. All other action keys are
// passed through to the host untouched.
const (
	// ActionStop halts resolution after the current tag. The output is cut
	// right after that tag's result.
	ActionStop = "tagscript.stop"
)

// Extra keys carried on a Response for blocks that need host context
const (
	// ExtraKeyCooldown namespaces cooldown buckets. Defaults to the original
	// message when unset.
	ExtraKeyCooldown = "cooldown_key"
)

// Variable names seeded by the interpreter
const (
	// VariableTagName holds the stored tag's name in ProcessStored.
	VariableTagName = "tag"
)

// StringEmpty is the empty string.
const StringEmpty = ""

// Configuration keys, shared by the YAML file and error metadata
const (
	ConfigKeyVerbLimit   = "verb_limit"
	ConfigKeyCharLimit   = "char_limit"
	ConfigKeyBlocks      = "blocks"
	ConfigKeyCooldown    = "cooldown.driver"
	ConfigKeyStorage     = "storage.driver"
	ConfigKeyLogLevel    = "log.level"
	ConfigKeyTablePrefix = "cooldown.table_prefix"
)

// Block declarations
const (
	DeclIf           = "if"
	DeclAny          = "any"
	DeclOr           = "or"
	DeclAll          = "all"
	DeclAnd          = "and"
	DeclStop         = "stop"
	DeclHalt         = "halt"
	DeclError        = "error"
	DeclBreak        = "break"
	DeclShort        = "short"
	DeclShortCircuit = "shortcircuit"
	DeclAssign       = "assign"
	DeclLet          = "let"
	DeclAssignSymbol = "="
	DeclRandom       = "random"
	DeclRand         = "rand"
	DeclRandomSymbol = "#"
	DeclFifty        = "50"
	DeclFiftyFifty   = "5050"
	DeclFiftySymbol  = "?"
	DeclRange        = "range"
	DeclRangeFloat   = "rangef"
	DeclReplace      = "replace"
	DeclIn           = "in"
	DeclContains     = "contains"
	DeclIndex        = "index"
	DeclCooldown     = "cooldown"
)

// Built-in block group names, usable in Config.Blocks
const (
	BlockGroupControl  = "control"
	BlockGroupFlow     = "flow"
	BlockGroupVariable = "variable"
	BlockGroupRandom   = "random"
	BlockGroupStrings  = "strings"
	BlockGroupCooldown = "cooldown"
)

// Output values shared by several blocks
const (
	OutputTrue     = "true"
	OutputFalse    = "false"
	OutputNotFound = "-1"
)

// Cooldown message placeholders
const (
	DefaultCooldownMessage        = "The bucket for {key} has reached its cooldown. Retry in {retry_after} seconds."
	CooldownPlaceholderKey        = "{key}"
	CooldownPlaceholderRetryAfter = "{retry_after}"
)

// Storage driver names
const (
	StorageDriverNameMemory     = "memory"
	StorageDriverNameFilesystem = "filesystem"
	StorageDriverNamePostgres   = "postgres"
)

// Cooldown store driver names
const (
	CooldownDriverMemory   = "memory"
	CooldownDriverPostgres = "postgres"
)

// Filesystem storage constants
const (
	FilesystemTagSuffix    = ".yaml"
	FilesystemDirPerm      = 0o755
	FilesystemFilePerm     = 0o644
	FilesystemNameMaxBytes = 200
)

// Postgres defaults
const (
	PostgresTablePrefix            = "tagscript_"
	PostgresDefaultMaxOpenConns    = 25
	PostgresDefaultMaxIdleConns    = 5
	PostgresDefaultConnMaxLifetime = 5 * time.Minute
	PostgresDefaultConnMaxIdleTime = 5 * time.Minute
	PostgresDefaultQueryTimeout    = 30 * time.Second
	PostgresDriverName             = "postgres"
)

// Log message constants
const (
	LogMsgInterpreterCreated = "interpreter created"
	LogMsgProcessStart       = "processing message"
	LogMsgProcessComplete    = "processing complete"
	LogMsgRegionResolved     = "region resolved"
	LogMsgRegionUnresolved   = "region left unresolved"
	LogMsgRegionMalformed    = "region skipped as malformed"
	LogMsgStopRequested      = "stop action requested"
	LogMsgBlockPanic         = "block panicked"
	LogMsgWorkloadExceeded   = "workload exceeded"
	LogMsgStorageOpened      = "storage opened"
	LogMsgRecordUseFailed    = "failed to record tag use"
)

// Log field constants
const (
	LogFieldRegions     = "regions"
	LogFieldBlocks      = "blocks"
	LogFieldDeclaration = "declaration"
	LogFieldBlock       = "block"
	LogFieldStart       = "start"
	LogFieldEnd         = "end"
	LogFieldDelta       = "delta"
	LogFieldLength      = "length"
	LogFieldTotal       = "total"
	LogFieldLimit       = "limit"
	LogFieldSuggestions = "suggestions"
	LogFieldDriver      = "driver"
	LogFieldPanic       = "panic"
	LogFieldTagName     = "tag_name"
)

// Metadata keys for cuserr.WithMetadata
const (
	MetaKeyKind        = "kind"
	MetaKeyAttempted   = "attempted"
	MetaKeyLimit       = "limit"
	MetaKeyBlock       = "block"
	MetaKeyDeclaration = "declaration"
	MetaKeyKey         = "key"
	MetaKeyRetryAfter  = "retry_after"
	MetaKeyTagName     = "tag_name"
	MetaKeyOption      = "option"
	MetaKeyValue       = "value"
	MetaKeyPath        = "path"
)

// Error kinds recorded under MetaKeyKind
const (
	ErrKindWorkload = "workload_exceeded"
	ErrKindBlock    = "block"
	ErrKindProcess  = "process"
	ErrKindConfig   = "config"
	ErrKindNotFound = "not_found"
)

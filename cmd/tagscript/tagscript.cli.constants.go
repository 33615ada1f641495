package main

// Command names
const (
	CmdNameRender  = "render"
	CmdNameLint    = "lint"
	CmdNameTag     = "tag"
	CmdNameVersion = "version"

	CmdNameTagSave   = "save"
	CmdNameTagShow   = "show"
	CmdNameTagList   = "list"
	CmdNameTagDelete = "delete"
	CmdNameTagRun    = "run"
)

// Flag names - long form
const (
	FlagConfig      = "config"
	FlagVar         = "var"
	FlagVarsFile    = "vars-file"
	FlagCharLimit   = "char-limit"
	FlagCooldownKey = "cooldown-key"
	FlagOutput      = "output"
	FlagWatch       = "watch"
	FlagFormat      = "format"
	FlagDriver      = "driver"
	FlagConnection  = "conn"
	FlagDescription = "description"
	FlagAuthor      = "author"
	FlagTenant      = "tenant"
	FlagPrefix      = "prefix"
	FlagLimit       = "limit"
)

// Flag names - short form
const (
	FlagConfigShort   = "c"
	FlagVarShort      = "v"
	FlagVarsFileShort = "f"
	FlagOutputShort   = "o"
	FlagFormatShort   = "F"
	FlagWatchShort    = "w"
)

// Flag default values
const (
	FlagDefaultOutput = "-" // stdout
	FlagDefaultFormat = OutputFormatText
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
	ExitCodeCooldown        = 5
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Error messages - ALL must be constants
const (
	ErrMsgInvalidVar         = "invalid variable, expected key=value"
	ErrMsgReadFileFailed     = "failed to read file"
	ErrMsgReadVarsFailed     = "failed to read variables file"
	ErrMsgWriteOutputFailed  = "failed to write output"
	ErrMsgProcessFailed      = "processing failed"
	ErrMsgCooldown           = "cooldown active"
	ErrMsgInvalidFormat      = "invalid output format"
	ErrMsgConfigFailed       = "failed to load config"
	ErrMsgStorageFailed      = "storage operation failed"
	ErrMsgWatchStdin         = "--watch needs a file, not stdin"
	ErrMsgWatchFailed        = "watch failed"
	ErrMsgLintIssues         = "unresolved tags found"
	ErrMsgMarshalFailed      = "failed to encode output"
	ErrMsgInterpreterFailed  = "failed to create interpreter"
	ErrMsgInvalidCharLimit   = "char limit cannot be negative"
	ErrMsgTagContentRequired = "tag content cannot be empty"
)

// Text output
const (
	LintTextSuccess        = "All tags resolved"
	LintTextUnresolved     = "  unresolved %s%s\n"
	LintTextMalformed      = "  malformed %s at offset %d\n"
	LintTextSummary        = "%d unresolved, %d malformed\n"
	TagListRowFormat       = "%-32s %6d  %s\n"
	TagDeletedFormat       = "deleted %s\n"
	TagSavedFormat         = "saved %s\n"
	WatchRenderSeparator   = "---"
	VersionTextTemplate    = "go-tagscript version %s\nCommit: %s\nBuilt: %s\nGo: %s"
	VersionUnknown         = "unknown"
	VersionBuildKeyRev     = "vcs.revision"
	VersionBuildKeyTime    = "vcs.time"
	VersionDevelopmentMark = "(devel)"
)

// Log messages and fields
const (
	LogMsgWatchChanged = "watched file changed"
	LogMsgWatchError   = "watch error"
	LogFieldPath       = "path"
	LogFieldOp         = "op"
)

// CLI metadata
const (
	CLIName        = "tagscript"
	CLIDescription = "Process TagScript templates"
	CLILong        = `tagscript processes {tag} templates.

Tags are resolved innermost first. Variables are passed with --var key=value
or a YAML map in --vars-file. Configuration (limits, block groups, storage and
cooldown drivers, logging) is read from --config.`
)

// File permission constant
const (
	FilePermissions = 0o644
)

// Format string constants
const (
	FmtErrorWithCause = "%s: %v\n"
	FmtError          = "%s\n"
	FmtNewline        = "\n"
)

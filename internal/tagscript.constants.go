package internal

// Character constants
const (
	CharOpenBrace  = '{'
	CharCloseBrace = '}'
	CharOpenParen  = '('
	CharCloseParen = ')'
	CharColon      = ':'
	CharBackslash  = '\\'
	CharPipe       = '|'
	CharTilde      = '~'
	CharComma      = ','
)

// String constants used when splitting payloads and parameters
const (
	StrPipe        = "|"
	StrTilde       = "~"
	StrComma       = ","
	StrColon       = ":"
	StrEscapedOpen = "\\{"
	StrEscapedEnd  = "\\}"
	StrOpen        = "{"
	StrClose       = "}"
	StringEmpty    = ""
)

// Comparison operators recognised in conditions, in match priority order
const (
	OpNotEqual     = "!="
	OpEqual        = "=="
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpGreater      = ">"
	OpLess         = "<"
)

// DefaultVerbLimit caps the characters read from one bracket region.
const DefaultVerbLimit = 2000

// Log message constants
const (
	LogMsgScanStart    = "scanning regions"
	LogMsgScanComplete = "region scan complete"
)

// Log field constants
const (
	LogFieldLength  = "length"
	LogFieldRegions = "regions"
)

// Verb error message constants
const (
	ErrMsgVerbTooShort         = "verb text must be wrapped in brackets"
	ErrMsgEmptyDeclaration     = "declaration cannot be empty"
	ErrMsgUnterminatedParam    = "unterminated parameter"
	ErrMsgInvalidVerbLimit     = "verb limit must be positive"
	ErrFmtVerbErrorWithOffset  = "%s at offset %d"
	ErrFmtVerbErrorWithoutText = "%s"
)

package internal

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Verb is the parsed form of one bracket region:
//
//	{declaration(parameter):payload}
//
// Parameter and payload are optional. HasParameter and HasPayload tell an
// absent part apart from an empty one.
type Verb struct {
	Declaration  string
	Parameter    string
	Payload      string
	HasParameter bool
	HasPayload   bool
}

// ParseVerb parses the text of a region, brackets included.
//
// At most limit characters between the brackets are read; anything beyond is
// discarded. Escaped characters are skipped while looking for the structural
// parenthesis and colon but are otherwise left untouched.
func ParseVerb(raw string, limit int) (Verb, error) {
	if limit <= 0 {
		return Verb{}, NewVerbError(ErrMsgInvalidVerbLimit, -1)
	}
	if len(raw) < 2 || raw[0] != CharOpenBrace || raw[len(raw)-1] != CharCloseBrace {
		return Verb{}, NewVerbError(ErrMsgVerbTooShort, -1)
	}

	body := truncateRunes(raw[1:len(raw)-1], limit)

	var v Verb
	depth := 0
	paramStart := -1

	for i := 0; i < len(body); i++ {
		switch ch := body[i]; {
		case ch == CharBackslash:
			i++
		case ch == CharColon && depth == 0:
			v.Declaration = body[:i]
			v.Payload = body[i+1:]
			v.HasPayload = true
			return v, v.validate()
		case ch == CharOpenParen:
			if paramStart < 0 {
				paramStart = i
				v.Declaration = body[:i]
			}
			depth++
		case ch == CharCloseParen && depth > 0:
			depth--
			if depth > 0 {
				continue
			}
			v.Parameter = body[paramStart+1 : i]
			v.HasParameter = true
			if i+1 < len(body) && body[i+1] == CharColon {
				v.Payload = body[i+2:]
				v.HasPayload = true
			}
			return v, v.validate()
		}
	}

	if depth > 0 {
		return Verb{}, NewVerbError(ErrMsgUnterminatedParam, paramStart+1)
	}

	v.Declaration = body
	return v, v.validate()
}

func (v Verb) validate() error {
	if v.Declaration == StringEmpty {
		return NewVerbError(ErrMsgEmptyDeclaration, 1)
	}
	return nil
}

// Is reports whether the declaration matches any of names, ignoring case.
func (v Verb) Is(names ...string) bool {
	for _, name := range names {
		if strings.EqualFold(v.Declaration, name) {
			return true
		}
	}
	return false
}

// String renders the verb back into bracket syntax.
func (v Verb) String() string {
	var sb strings.Builder
	sb.WriteByte(CharOpenBrace)
	sb.WriteString(v.Declaration)
	if v.HasParameter {
		sb.WriteByte(CharOpenParen)
		sb.WriteString(v.Parameter)
		sb.WriteByte(CharCloseParen)
	}
	if v.HasPayload {
		sb.WriteByte(CharColon)
		sb.WriteString(v.Payload)
	}
	sb.WriteByte(CharCloseBrace)
	return sb.String()
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// VerbError describes why a region could not be parsed into a Verb.
type VerbError struct {
	Message string
	Offset  int
}

// NewVerbError creates a verb error. Offset is relative to the first
// character after the opening bracket, or -1 when it does not apply.
func NewVerbError(message string, offset int) *VerbError {
	return &VerbError{Message: message, Offset: offset}
}

// Error implements the error interface.
func (e *VerbError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf(ErrFmtVerbErrorWithOffset, e.Message, e.Offset)
	}
	return fmt.Sprintf(ErrFmtVerbErrorWithoutText, e.Message)
}

package tagscript

import (
	"strconv"
	"strings"

	"github.com/itsatony/go-tagscript/internal"
)

// Adapter provides the value of a variable. It receives the verb that
// referenced the variable so it can honour a parameter or payload, and
// returns false to decline.
type Adapter interface {
	GetValue(v Verb) (string, bool)
}

// StringAdapter exposes a string. The parameter selects words:
//
//	{name}        whole string
//	{name(2)}     second word
//	{name(2+)}    second word to the end
//	{name(+2)}    first two words
//	{name(1):,}   first item, splitting on "," instead of a space
//
// Parameters that do not select anything fall back to the whole string.
type StringAdapter struct {
	Value  string
	Escape bool
}

// NewStringAdapter creates a StringAdapter. With escape set, brackets in the
// value are escaped so they survive as literal text.
func NewStringAdapter(value string, escape bool) *StringAdapter {
	return &StringAdapter{Value: value, Escape: escape}
}

// GetValue implements Adapter.
func (a *StringAdapter) GetValue(v Verb) (string, bool) {
	out := a.selectWords(v)
	if a.Escape {
		out = EscapeContent(out)
	}
	return out, true
}

func (a *StringAdapter) selectWords(v Verb) string {
	if !v.HasParameter {
		return a.Value
	}

	sep := wordSeparator
	if v.HasPayload {
		sep = v.Payload
	}
	if sep == "" {
		return a.Value
	}

	param := strings.TrimSpace(v.Parameter)
	fromStart := strings.HasPrefix(param, plusSign)
	toEnd := !fromStart && strings.HasSuffix(param, plusSign)

	n, err := strconv.Atoi(strings.Trim(param, plusSign))
	if err != nil || n < 1 {
		return a.Value
	}

	words := strings.Split(a.Value, sep)
	if n > len(words) {
		return a.Value
	}

	switch {
	case fromStart:
		return strings.Join(words[:n], sep)
	case toEnd:
		return strings.Join(words[n-1:], sep)
	default:
		return words[n-1]
	}
}

const (
	wordSeparator = " "
	plusSign      = "+"
)

// IntAdapter exposes an integer in decimal form.
type IntAdapter struct {
	Value int
}

// NewIntAdapter creates an IntAdapter.
func NewIntAdapter(value int) *IntAdapter {
	return &IntAdapter{Value: value}
}

// GetValue implements Adapter.
func (a *IntAdapter) GetValue(Verb) (string, bool) {
	return strconv.Itoa(a.Value), true
}

// FunctionAdapter calls a function each time the variable is read.
type FunctionAdapter struct {
	Fn func() string
}

// NewFunctionAdapter creates a FunctionAdapter.
func NewFunctionAdapter(fn func() string) *FunctionAdapter {
	return &FunctionAdapter{Fn: fn}
}

// GetValue implements Adapter. A nil function declines.
func (a *FunctionAdapter) GetValue(Verb) (string, bool) {
	if a.Fn == nil {
		return "", false
	}
	return a.Fn(), true
}

// EscapeContent escapes brackets so the interpreter treats them as literal
// text.
func EscapeContent(s string) string {
	return internal.EscapeBrackets(s)
}

// StringVariables wraps plain strings as seed variables.
func StringVariables(values map[string]string) map[string]Adapter {
	vars := make(map[string]Adapter, len(values))
	for name, value := range values {
		vars[name] = NewStringAdapter(value, false)
	}
	return vars
}

package tagscript

import (
	"strconv"
	"strings"

	"github.com/itsatony/go-tagscript/internal"
)

// ReplaceBlock replaces every occurrence of one string with another.
//
//	{replace(<old>,<new>):<text>}
type ReplaceBlock struct{}

// Accepts implements Block.
func (b *ReplaceBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclReplace)
}

// Declarations implements Declarer.
func (b *ReplaceBlock) Declarations() []string {
	return []string{DeclReplace}
}

// Process implements Block.
func (b *ReplaceBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	if v.Parameter == StringEmpty || v.Payload == StringEmpty {
		return "", false, nil
	}
	before, after, found := strings.Cut(v.Parameter, internal.StrComma)
	if !found {
		return "", false, nil
	}
	return strings.ReplaceAll(v.Payload, before, after), true, nil
}

// SearchBlock looks for its parameter in its payload.
//
//	{in(<text>):<payload>}        true when text occurs anywhere
//	{contains(<word>):<payload>}  true when word is one of the words
//	{index(<word>):<payload>}     zero-based word position, -1 when absent
type SearchBlock struct{}

// Accepts implements Block.
func (b *SearchBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclIn, DeclContains, DeclIndex)
}

// Declarations implements Declarer.
func (b *SearchBlock) Declarations() []string {
	return []string{DeclIn, DeclContains, DeclIndex}
}

// Process implements Block.
func (b *SearchBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	if !v.HasParameter || !v.HasPayload {
		return "", false, nil
	}

	switch {
	case v.Is(DeclIn):
		return formatBool(strings.Contains(v.Payload, v.Parameter)), true, nil
	case v.Is(DeclContains):
		for _, word := range strings.Fields(v.Payload) {
			if word == v.Parameter {
				return OutputTrue, true, nil
			}
		}
		return OutputFalse, true, nil
	default:
		for i, word := range strings.Fields(v.Payload) {
			if word == v.Parameter {
				return strconv.Itoa(i), true, nil
			}
		}
		return OutputNotFound, true, nil
	}
}

func formatBool(b bool) string {
	if b {
		return OutputTrue
	}
	return OutputFalse
}

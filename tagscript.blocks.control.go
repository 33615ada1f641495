package tagscript

import (
	"github.com/itsatony/go-tagscript/internal"
)

// IfBlock chooses between two payloads.
//
//	{if(<condition>):<then>|<else>}
//
// Supported operators are ==, !=, >=, <=, > and <. Without an operator the
// parameter is read as a boolean word such as true, yes, off or disabled.
// A payload without | is returned when the condition holds and dropped
// otherwise.
type IfBlock struct{}

// Accepts implements Block.
func (b *IfBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclIf)
}

// Declarations implements Declarer.
func (b *IfBlock) Declarations() []string {
	return []string{DeclIf}
}

// Process implements Block.
func (b *IfBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	if !v.HasParameter || !v.HasPayload {
		return "", false, nil
	}
	result, ok := internal.ParseCondition(v.Parameter)
	if !ok {
		return "", false, nil
	}
	out, ok := chooseBranch(v.Payload, result)
	return out, ok, nil
}

// AnyBlock holds when at least one of its |-separated conditions holds.
//
//	{any(<condition>|<condition>):<then>|<else>}
//
// Aliases: or
type AnyBlock struct{}

// Accepts implements Block.
func (b *AnyBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclAny, DeclOr)
}

// Declarations implements Declarer.
func (b *AnyBlock) Declarations() []string {
	return []string{DeclAny, DeclOr}
}

// Process implements Block.
func (b *AnyBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	if !v.HasParameter || !v.HasPayload {
		return "", false, nil
	}
	result := false
	for _, r := range internal.ParseConditionList(v.Parameter) {
		if r {
			result = true
			break
		}
	}
	out, ok := chooseBranch(v.Payload, result)
	return out, ok, nil
}

// AllBlock holds when every one of its |-separated conditions holds.
//
//	{all(<condition>|<condition>):<then>|<else>}
//
// Aliases: and
type AllBlock struct{}

// Accepts implements Block.
func (b *AllBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclAll, DeclAnd)
}

// Declarations implements Declarer.
func (b *AllBlock) Declarations() []string {
	return []string{DeclAll, DeclAnd}
}

// Process implements Block.
func (b *AllBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	if !v.HasParameter || !v.HasPayload {
		return "", false, nil
	}
	results := internal.ParseConditionList(v.Parameter)
	result := len(results) > 0
	for _, r := range results {
		if !r {
			result = false
			break
		}
	}
	out, ok := chooseBranch(v.Payload, result)
	return out, ok, nil
}

// chooseBranch picks the then or else part of a payload.
func chooseBranch(payload string, result bool) (string, bool) {
	parts, ok := internal.SplitPayload(payload, false, -1)
	if ok && len(parts) == 2 {
		if result {
			return parts[0], true
		}
		return parts[1], true
	}
	if result {
		return payload, true
	}
	return StringEmpty, true
}

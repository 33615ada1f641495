package tagscript

import (
	"github.com/itsatony/go-tagscript/internal"
)

// StopBlock halts processing when its condition holds. The output is cut
// right after the block's message.
//
//	{stop(<condition>):[message]}
//
// Aliases: halt, error
type StopBlock struct{}

// Accepts implements Block.
func (b *StopBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclStop, DeclHalt, DeclError)
}

// Declarations implements Declarer.
func (b *StopBlock) Declarations() []string {
	return []string{DeclStop, DeclHalt, DeclError}
}

// Process implements Block.
func (b *StopBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	if !v.HasParameter {
		return "", false, nil
	}
	if result, _ := internal.ParseCondition(v.Parameter); !result {
		return StringEmpty, true, nil
	}
	ctx.Response.Stop()
	return v.Payload, true, nil
}

// BreakBlock replaces the whole output with its message when its condition
// holds. Processing continues, so later blocks may still set actions.
//
//	{break(<condition>):[message]}
//
// Aliases: short, shortcircuit
type BreakBlock struct{}

// Accepts implements Block.
func (b *BreakBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclBreak, DeclShort, DeclShortCircuit)
}

// Declarations implements Declarer.
func (b *BreakBlock) Declarations() []string {
	return []string{DeclBreak, DeclShort, DeclShortCircuit}
}

// Process implements Block.
func (b *BreakBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	if result, _ := internal.ParseCondition(v.Parameter); result {
		ctx.Response.SetBody(v.Payload)
	}
	return StringEmpty, true, nil
}

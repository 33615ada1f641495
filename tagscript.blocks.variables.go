package tagscript

import (
	"strings"
)

// AssignmentBlock stores a variable for the tags that follow it.
//
//	{=(<name>):<value>}
//
// Aliases: let, assign
type AssignmentBlock struct{}

// Accepts implements Block.
func (b *AssignmentBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclAssignSymbol, DeclLet, DeclAssign)
}

// Declarations implements Declarer.
func (b *AssignmentBlock) Declarations() []string {
	return []string{DeclAssignSymbol, DeclLet, DeclAssign}
}

// Process implements Block.
func (b *AssignmentBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	name := strings.TrimSpace(v.Parameter)
	if !v.HasParameter || name == StringEmpty {
		return "", false, nil
	}
	ctx.Response.SetVariable(name, NewStringAdapter(v.Payload, false))
	return StringEmpty, true, nil
}

// VariableGetterBlock resolves tags named after a variable by delegating to
// the variable's adapter.
//
//	{<name>}  {<name>(<parameter>)}  {<name>(<parameter>):<payload>}
type VariableGetterBlock struct{}

// Accepts implements Block.
func (b *VariableGetterBlock) Accepts(ctx *Context) bool {
	_, ok := ctx.Response.Variable(ctx.Verb.Declaration)
	return ok
}

// Process implements Block.
func (b *VariableGetterBlock) Process(ctx *Context) (string, bool, error) {
	adapter, ok := ctx.Response.Variable(ctx.Verb.Declaration)
	if !ok || adapter == nil {
		return "", false, nil
	}
	out, ok := adapter.GetValue(ctx.Verb)
	return out, ok, nil
}

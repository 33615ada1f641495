package tagscript

import (
	"context"

	"github.com/itsatony/go-tagscript/internal"
)

// Verb is the parsed form of one tag: {declaration(parameter):payload}.
// HasParameter and HasPayload tell an absent part apart from an empty one.
type Verb = internal.Verb

// Context is handed to blocks for one tag. It is only valid for the duration
// of the Accepts/Process calls it was created for.
type Context struct {
	// Verb is the tag being resolved, parsed from the current working text.
	Verb Verb

	// OriginalMessage is the message passed to Process, before any
	// substitution.
	OriginalMessage string

	// Response is the session result shared by every tag of this call.
	Response *Response

	// Interpreter is the interpreter running this call.
	Interpreter *Interpreter

	ctx context.Context
}

// Ctx returns the context.Context of the Process call.
func (c *Context) Ctx() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Response is the result of one Process call.
type Response struct {
	// Body is the processed text.
	Body string

	// Actions is written by blocks for the host application. The interpreter
	// only reads ActionStop.
	Actions map[string]any

	// Variables are looked up by variable blocks. Seed variables are copied
	// in, so blocks that assign never touch the caller's map.
	Variables map[string]Adapter

	// Extra carries host context for blocks, see ExtraKeyCooldown.
	Extra map[string]any

	// Trace lists every region in resolution order when WithTrace is set.
	Trace []NodeTrace

	bodyOverride *string
}

func newResponse(seed map[string]Adapter, extra map[string]any) *Response {
	vars := make(map[string]Adapter, len(seed))
	for name, adapter := range seed {
		vars[name] = adapter
	}
	ext := make(map[string]any, len(extra))
	for k, v := range extra {
		ext[k] = v
	}
	return &Response{
		Actions:   make(map[string]any),
		Variables: vars,
		Extra:     ext,
	}
}

// SetBody replaces the final body. The processed text is discarded when a
// body has been set.
func (r *Response) SetBody(body string) {
	r.bodyOverride = &body
}

// BodyOverridden reports whether a block called SetBody.
func (r *Response) BodyOverridden() bool {
	return r.bodyOverride != nil
}

// SetAction records an action for the host application.
func (r *Response) SetAction(key string, value any) {
	r.Actions[key] = value
}

// Action returns the action stored under key.
func (r *Response) Action(key string) (any, bool) {
	v, ok := r.Actions[key]
	return v, ok
}

// Stop asks the interpreter to halt after the current tag.
func (r *Response) Stop() {
	r.Actions[ActionStop] = true
}

// Stopped reports whether the stop action has been requested.
func (r *Response) Stopped() bool {
	_, ok := r.Actions[ActionStop]
	return ok
}

// SetVariable stores a variable for later tags of the same call.
func (r *Response) SetVariable(name string, adapter Adapter) {
	r.Variables[name] = adapter
}

// Variable returns the adapter stored under name.
func (r *Response) Variable(name string) (Adapter, bool) {
	a, ok := r.Variables[name]
	return a, ok
}

// ExtraString returns an extra value as a string.
func (r *Response) ExtraString(key string) (string, bool) {
	v, ok := r.Extra[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

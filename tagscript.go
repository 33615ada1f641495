// Package tagscript is an embeddable micro-templating interpreter for
// user-authored message templates.
//
// Templates contain tags in curly brackets:
//
//	{declaration}
//	{declaration(parameter)}
//	{declaration:payload}
//	{declaration(parameter):payload}
//
// # Basic Usage
//
//	interp := tagscript.MustNew()
//	resp, err := interp.Process(ctx, "Hi {user}! {if({user}==admin):Welcome back.|}",
//	    tagscript.StringVariables(map[string]string{"user": "admin"}))
//	// resp.Body: "Hi admin! Welcome back."
//
// Tags are resolved innermost first, so a tag may use the output of the tags
// nested inside it. Each result is written back into the text before the next
// tag is parsed. Tags that no block resolves are left untouched, and a
// bracket escaped with a backslash is printed literally:
//
//	\{not a tag\}
//
// # Blocks
//
// Blocks decide what a tag means. The interpreter offers each tag to its
// blocks in order; the first block that accepts it and produces a value
// wins. The default set covers conditions (if, any, all), flow (stop,
// break), variables (=, and lookup by name), randomness (random, 50, range),
// string helpers (replace, in, contains, index) and rate limiting
// (cooldown). Custom blocks implement Block:
//
//	upper := tagscript.NewBlockFunc(func(ctx *tagscript.Context) (string, bool, error) {
//	    return strings.ToUpper(ctx.Verb.Payload), true, nil
//	}, "upper")
//	interp := tagscript.MustNew(tagscript.WithBlocks(append(tagscript.DefaultBlocks(nil), upper)...))
//
// # Limits and Errors
//
// WithCharLimit bounds the characters all tags may produce in one call;
// exceeding it fails with an error matched by IsWorkloadExceeded. Blocks may
// abort a call on purpose with NewBlockError (IsBlockError); the cooldown
// block does so when a bucket is empty (IsCooldownExceeded). Any other block
// failure, including a panic, is reported as a processing error
// (IsProcessError).
//
// # Storage
//
// Tags can be kept in a TagStorage (memory, filesystem or postgres driver)
// and run with Interpreter.ProcessStored. Cooldown buckets live in a
// CooldownStore, in memory or in PostgreSQL.
package tagscript

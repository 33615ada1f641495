package tagscript

import (
	"go.uber.org/zap"
)

// Option is a functional option for configuring the Interpreter.
type Option func(*interpreterConfig)

// interpreterConfig holds the internal configuration for an Interpreter.
type interpreterConfig struct {
	blocks        []Block
	blocksSet     bool
	verbLimit     int
	charLimit     int
	cooldownStore CooldownStore
	logger        *zap.Logger
}

// defaultInterpreterConfig returns the default interpreter configuration.
func defaultInterpreterConfig() *interpreterConfig {
	return &interpreterConfig{
		verbLimit: DefaultVerbLimit,
		charLimit: NoCharLimit,
		logger:    nil,
	}
}

// WithBlocks sets the ordered block list. The first block that accepts a tag
// and produces a value wins.
// Default: DefaultBlocks()
func WithBlocks(blocks ...Block) Option {
	return func(c *interpreterConfig) {
		c.blocks = append([]Block(nil), blocks...)
		c.blocksSet = true
	}
}

// WithLogger sets the logger for the interpreter.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *interpreterConfig) {
		c.logger = logger
	}
}

// WithVerbLimit caps the characters read from a single tag. Longer tags are
// truncated before parsing.
// Default: 2000
func WithVerbLimit(limit int) Option {
	return func(c *interpreterConfig) {
		c.verbLimit = limit
	}
}

// WithDefaultCharLimit sets the output budget used when a Process call does
// not pass WithCharLimit. Use 0 for no budget.
// Default: 0
func WithDefaultCharLimit(limit int) Option {
	return func(c *interpreterConfig) {
		c.charLimit = limit
	}
}

// WithCooldownStore sets the store backing the default cooldown block.
// Default: a MemoryCooldownStore owned by the interpreter
func WithCooldownStore(store CooldownStore) Option {
	return func(c *interpreterConfig) {
		c.cooldownStore = store
	}
}

// ProcessOption configures a single Process call.
type ProcessOption func(*processConfig)

type processConfig struct {
	charLimit int
	trace     bool
	extra     map[string]any
}

// WithCharLimit sets the cumulative output budget for this call. Use 0 for
// no budget.
func WithCharLimit(limit int) ProcessOption {
	return func(c *processConfig) {
		c.charLimit = limit
	}
}

// WithTrace records a NodeTrace for every region on the Response.
func WithTrace() ProcessOption {
	return func(c *processConfig) {
		c.trace = true
	}
}

// WithExtra adds a host value to Response.Extra.
func WithExtra(key string, value any) ProcessOption {
	return func(c *processConfig) {
		if c.extra == nil {
			c.extra = make(map[string]any)
		}
		c.extra[key] = value
	}
}

// WithCooldownKey namespaces the cooldown buckets of this call, typically by
// tag name or author.
func WithCooldownKey(key string) ProcessOption {
	return WithExtra(ExtraKeyCooldown, key)
}

package tagscript

import (
	"sort"
	"strings"
	"sync"
)

// Block resolves tags. The interpreter walks its blocks in order and uses the
// first one that accepts a tag and produces a value.
//
// Process has three outcomes:
//   - ("", false, nil) declines, the next block is tried
//   - (s, true, nil) replaces the tag with s, which may be empty
//   - (_, _, err) aborts the whole Process call
//
// Errors built with NewBlockError reach the caller unchanged; any other error
// is wrapped in a processing error.
type Block interface {
	// Accepts reports whether the block wants to try the tag. It must not
	// mutate state.
	Accepts(ctx *Context) bool

	// Process resolves the tag.
	Process(ctx *Context) (string, bool, error)
}

// PreProcessor is implemented by blocks that want a callback before Process.
type PreProcessor interface {
	PreProcess(ctx *Context)
}

// PostProcessor is implemented by blocks that want a callback after Process,
// whatever its outcome.
type PostProcessor interface {
	PostProcess(ctx *Context)
}

// Declarer is implemented by blocks with a fixed set of declarations. The
// names feed "did you mean" suggestions for unresolved tags.
type Declarer interface {
	Declarations() []string
}

// BlockFunc adapts a function to the Block interface. It accepts tags whose
// declaration matches one of its names, case-insensitively.
type BlockFunc struct {
	names []string
	fn    func(ctx *Context) (string, bool, error)
}

// NewBlockFunc creates a function-based block for the given declarations.
func NewBlockFunc(fn func(ctx *Context) (string, bool, error), names ...string) *BlockFunc {
	return &BlockFunc{
		names: append([]string(nil), names...),
		fn:    fn,
	}
}

// Accepts implements Block.
func (b *BlockFunc) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(b.names...)
}

// Process implements Block.
func (b *BlockFunc) Process(ctx *Context) (string, bool, error) {
	return b.fn(ctx)
}

// Declarations implements Declarer.
func (b *BlockFunc) Declarations() []string {
	return append([]string(nil), b.names...)
}

// BlockGroupFactory builds the blocks of a named group. The cooldown store is
// never nil.
type BlockGroupFactory func(store CooldownStore) []Block

var (
	blockGroups      = make(map[string]BlockGroupFactory)
	blockGroupOrder  []string
	blockGroupsMutex sync.RWMutex
)

// RegisterBlockGroup makes a named group of blocks available to
// BlocksForGroups and the configuration file. Registering an existing name
// replaces it and keeps its position.
func RegisterBlockGroup(name string, factory BlockGroupFactory) {
	blockGroupsMutex.Lock()
	defer blockGroupsMutex.Unlock()
	name = strings.ToLower(name)
	if _, exists := blockGroups[name]; !exists {
		blockGroupOrder = append(blockGroupOrder, name)
	}
	blockGroups[name] = factory
}

// BlockGroups returns the registered group names in registration order.
func BlockGroups() []string {
	blockGroupsMutex.RLock()
	defer blockGroupsMutex.RUnlock()
	return append([]string(nil), blockGroupOrder...)
}

// BlocksForGroups builds the blocks of the named groups, in the order given.
// A nil store gets a fresh MemoryCooldownStore.
func BlocksForGroups(store CooldownStore, names ...string) ([]Block, error) {
	if store == nil {
		store = NewMemoryCooldownStore()
	}

	blockGroupsMutex.RLock()
	defer blockGroupsMutex.RUnlock()

	var blocks []Block
	for _, name := range names {
		factory, ok := blockGroups[strings.ToLower(name)]
		if !ok {
			return nil, NewConfigError(ErrMsgUnknownBlockGroup, MetaKeyBlock, name)
		}
		blocks = append(blocks, factory(store)...)
	}
	return blocks, nil
}

// DefaultBlocks returns every built-in block, in the default order. A nil
// store gets a fresh MemoryCooldownStore.
func DefaultBlocks(store CooldownStore) []Block {
	blocks, err := BlocksForGroups(store, defaultGroupOrder...)
	if err != nil {
		panic(err)
	}
	return blocks
}

var defaultGroupOrder = []string{
	BlockGroupControl,
	BlockGroupFlow,
	BlockGroupVariable,
	BlockGroupRandom,
	BlockGroupStrings,
	BlockGroupCooldown,
}

func init() {
	RegisterBlockGroup(BlockGroupControl, func(CooldownStore) []Block {
		return []Block{&IfBlock{}, &AnyBlock{}, &AllBlock{}}
	})
	RegisterBlockGroup(BlockGroupFlow, func(CooldownStore) []Block {
		return []Block{&StopBlock{}, &BreakBlock{}}
	})
	RegisterBlockGroup(BlockGroupVariable, func(CooldownStore) []Block {
		return []Block{&AssignmentBlock{}, &VariableGetterBlock{}}
	})
	RegisterBlockGroup(BlockGroupRandom, func(CooldownStore) []Block {
		return []Block{NewRandomBlock(), NewFiftyFiftyBlock(), NewRangeBlock()}
	})
	RegisterBlockGroup(BlockGroupStrings, func(CooldownStore) []Block {
		return []Block{&ReplaceBlock{}, &SearchBlock{}}
	})
	RegisterBlockGroup(BlockGroupCooldown, func(store CooldownStore) []Block {
		return []Block{NewCooldownBlock(store)}
	})
}

// knownDeclarations collects the declarations of every Declarer in blocks,
// plus the given variable names, sorted and deduplicated.
func knownDeclarations(blocks []Block, variables map[string]Adapter) []string {
	seen := make(map[string]bool)
	for _, b := range blocks {
		if d, ok := b.(Declarer); ok {
			for _, name := range d.Declarations() {
				seen[name] = true
			}
		}
	}
	for name := range variables {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

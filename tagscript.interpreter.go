package tagscript

import (
	"context"
	"strconv"
	"strings"

	"github.com/itsatony/go-tagscript/internal"
	"go.uber.org/zap"
)

// Interpreter resolves tags in text using an ordered list of blocks.
// An Interpreter is safe for concurrent use as long as its blocks are.
type Interpreter struct {
	blocks        []Block
	config        *interpreterConfig
	cooldownStore CooldownStore
	logger        *zap.Logger
}

// New creates a new Interpreter with the given options.
func New(opts ...Option) (*Interpreter, error) {
	config := defaultInterpreterConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.verbLimit <= 0 {
		return nil, NewConfigError(ErrMsgInvalidVerbLimit, ConfigKeyVerbLimit, strconv.Itoa(config.verbLimit))
	}
	if config.charLimit < 0 {
		return nil, NewConfigError(ErrMsgInvalidCharLimit, ConfigKeyCharLimit, strconv.Itoa(config.charLimit))
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := config.cooldownStore
	if store == nil {
		store = NewMemoryCooldownStore()
	}

	blocks := config.blocks
	if !config.blocksSet {
		blocks = DefaultBlocks(store)
	}
	for _, b := range blocks {
		if b == nil {
			return nil, NewConfigError(ErrMsgNilBlock, MetaKeyBlock, StringEmpty)
		}
	}

	logger.Debug(LogMsgInterpreterCreated,
		zap.Int(LogFieldBlocks, len(blocks)),
		zap.Int(LogFieldLimit, config.charLimit),
	)

	return &Interpreter{
		blocks:        blocks,
		config:        config,
		cooldownStore: store,
		logger:        logger,
	}, nil
}

// MustNew creates a new Interpreter and panics if there's an error.
func MustNew(opts ...Option) *Interpreter {
	interp, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return interp
}

// Blocks returns a copy of the interpreter's block list.
func (i *Interpreter) Blocks() []Block {
	return append([]Block(nil), i.blocks...)
}

// CooldownStore returns the store used by the default cooldown block.
func (i *Interpreter) CooldownStore() CooldownStore {
	return i.cooldownStore
}

// Process resolves every tag in message and returns the result.
//
// Tags are resolved innermost first. Each result is spliced into the working
// text before the next tag is parsed, so an enclosing tag sees the output of
// the tags nested in it. Tags that no block resolves, and tags that cannot
// be parsed, stay in the output as literal text.
//
// seed provides the initial variables; it is copied and never modified.
//
// Escaped brackets are unescaped once, over the final body. A backslash that
// a block emits directly before a literal bracket is taken as an escape
// marker too: with x set to `a\`, "{x}{nope}" yields "a{nope}".
func (i *Interpreter) Process(ctx context.Context, message string, seed map[string]Adapter, opts ...ProcessOption) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	pc := &processConfig{charLimit: i.config.charLimit}
	for _, opt := range opts {
		opt(pc)
	}
	if pc.charLimit < 0 {
		return nil, NewConfigError(ErrMsgInvalidCharLimit, ConfigKeyCharLimit, strconv.Itoa(pc.charLimit))
	}

	i.logger.Debug(LogMsgProcessStart, zap.Int(LogFieldLength, len(message)))

	resp := newResponse(seed, pc.extra)
	regions := internal.ScanRegions(message, i.logger)

	s := &session{
		interp:   i,
		ctx:      ctx,
		message:  message,
		text:     []byte(message),
		regions:  regions,
		response: resp,
		limit:    pc.charLimit,
		trace:    pc.trace,
	}
	text, err := s.solve()
	if err != nil {
		return nil, err
	}

	body := text
	if resp.bodyOverride != nil {
		body = *resp.bodyOverride
	}
	resp.Body = internal.UnescapeBrackets(strings.TrimSpace(body))

	i.logger.Debug(LogMsgProcessComplete,
		zap.Int(LogFieldRegions, len(regions)),
		zap.Int(LogFieldTotal, s.total),
		zap.Int(LogFieldLength, len(resp.Body)),
	)
	return resp, nil
}

// session is the state of one Process call. It is never shared.
type session struct {
	interp   *Interpreter
	ctx      context.Context
	message  string
	text     []byte
	regions  []internal.Region
	response *Response
	limit    int
	total    int
	trace    bool
}

func (s *session) solve() (string, error) {
	logger := s.interp.logger

	for idx := range s.regions {
		if err := s.ctx.Err(); err != nil {
			return "", NewProcessError(err)
		}

		region := s.regions[idx]
		raw := s.slice(region)
		node := NodeTrace{Order: idx, Start: region.Start, End: region.End, Raw: raw}

		verb, err := internal.ParseVerb(raw, s.interp.config.verbLimit)
		if err != nil {
			logger.Debug(LogMsgRegionMalformed,
				zap.Int(LogFieldStart, region.Start),
				zap.Error(err),
			)
			node.Malformed = true
			s.record(node)
			continue
		}
		node.Declaration = verb.Declaration

		bctx := &Context{
			Verb:            verb,
			OriginalMessage: s.message,
			Response:        s.response,
			Interpreter:     s.interp,
			ctx:             s.ctx,
		}
		output, block, ok, err := s.interp.dispatch(bctx)
		if err != nil {
			return "", err
		}
		if !ok {
			if ce := logger.Check(zap.DebugLevel, LogMsgRegionUnresolved); ce != nil {
				known := knownDeclarations(s.interp.blocks, s.response.Variables)
				ce.Write(
					zap.String(LogFieldDeclaration, verb.Declaration),
					zap.Int(LogFieldStart, region.Start),
					zap.Strings(LogFieldSuggestions, internal.FindSimilarStrings(verb.Declaration, known, maxSuggestions)),
				)
			}
			s.record(node)
			continue
		}

		s.total += internal.RuneLen(output)
		if s.limit > NoCharLimit && s.total > s.limit {
			logger.Debug(LogMsgWorkloadExceeded,
				zap.Int(LogFieldTotal, s.total),
				zap.Int(LogFieldLimit, s.limit),
			)
			return "", NewWorkloadExceededError(s.total, s.limit)
		}

		delta := len(output) - region.Len()
		s.splice(region, output)
		s.shift(idx, region.Start, delta)

		node.Block = blockName(block)
		node.Output = output
		node.Resolved = true
		s.record(node)

		logger.Debug(LogMsgRegionResolved,
			zap.String(LogFieldDeclaration, verb.Declaration),
			zap.String(LogFieldBlock, node.Block),
			zap.Int(LogFieldStart, region.Start),
			zap.Int(LogFieldDelta, delta),
		)

		if s.response.Stopped() {
			logger.Debug(LogMsgStopRequested, zap.Int(LogFieldStart, region.Start))
			return string(s.text[:region.Start+len(output)]), nil
		}
	}

	return string(s.text), nil
}

// slice returns the current text of a region, or "" when the region no longer
// fits the working text.
func (s *session) slice(r internal.Region) string {
	if r.Start < 0 || r.End >= len(s.text) || r.Start > r.End {
		return StringEmpty
	}
	return string(s.text[r.Start : r.End+1])
}

// splice replaces the region with output in the working text.
func (s *session) splice(r internal.Region, output string) {
	tail := append([]byte(output), s.text[r.End+1:]...)
	s.text = append(s.text[:r.Start], tail...)
}

// shift moves the offsets of regions after idx that lie behind start. Start
// and end are adjusted independently, so a region enclosing the resolved one
// keeps its start and grows or shrinks at its end.
func (s *session) shift(idx, start, delta int) {
	if delta == 0 {
		return
	}
	for j := idx + 1; j < len(s.regions); j++ {
		if s.regions[j].Start > start {
			s.regions[j].Start += delta
		}
		if s.regions[j].End > start {
			s.regions[j].End += delta
		}
	}
}

func (s *session) record(node NodeTrace) {
	if s.trace {
		s.response.Trace = append(s.response.Trace, node)
	}
}

// dispatch offers the tag to each block in order and returns the first value
// produced.
func (i *Interpreter) dispatch(ctx *Context) (string, Block, bool, error) {
	for _, b := range i.blocks {
		output, ok, err := i.callBlock(b, ctx)
		if err != nil {
			if IsBlockError(err) {
				return "", b, false, err
			}
			return "", b, false, NewProcessError(err)
		}
		if ok {
			return output, b, true, nil
		}
	}
	return "", nil, false, nil
}

// callBlock runs one block with its hooks and turns a panic into an error.
func (i *Interpreter) callBlock(b Block, ctx *Context) (output string, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Warn(LogMsgBlockPanic,
				zap.String(LogFieldBlock, blockName(b)),
				zap.Any(LogFieldPanic, r),
			)
			output, ok, err = "", false, NewBlockPanicError(blockName(b), r)
		}
	}()

	if !b.Accepts(ctx) {
		return "", false, nil
	}
	if pre, isPre := b.(PreProcessor); isPre {
		pre.PreProcess(ctx)
	}
	if post, isPost := b.(PostProcessor); isPost {
		defer post.PostProcess(ctx)
	}
	return b.Process(ctx)
}

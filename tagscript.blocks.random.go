package tagscript

import (
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/itsatony/go-tagscript/internal"
)

// chooser returns a number in [0, n). A seeded call is deterministic for a
// given seed.
type chooser func(seed string, seeded bool, n int) int

func defaultChooser(seed string, seeded bool, n int) int {
	if !seeded {
		return rand.IntN(n)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum)).IntN(n)
}

// RandomBlock picks one item of its payload. Items are separated by ~ or ,
// and may carry a weight as "<weight>|<item>". The parameter seeds the
// choice.
//
//	{random([seed]):<item>~<item>~...}
//
// Aliases: rand, #
type RandomBlock struct {
	choose chooser
}

// NewRandomBlock creates a RandomBlock.
func NewRandomBlock() *RandomBlock {
	return &RandomBlock{choose: defaultChooser}
}

// Accepts implements Block.
func (b *RandomBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclRandom, DeclRand, DeclRandomSymbol)
}

// Declarations implements Declarer.
func (b *RandomBlock) Declarations() []string {
	return []string{DeclRandom, DeclRand, DeclRandomSymbol}
}

// Process implements Block.
func (b *RandomBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	if !v.HasPayload {
		return "", false, nil
	}

	items := splitRandomItems(v.Payload)
	pool := make([]string, 0, len(items))
	for _, item := range items {
		weight, value, found := strings.Cut(item, internal.StrPipe)
		if !found {
			pool = append(pool, item)
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(weight))
		if err != nil {
			pool = append(pool, item)
			continue
		}
		for j := 0; j < n && j < maxRandomWeight; j++ {
			pool = append(pool, value)
		}
	}
	if len(pool) == 0 {
		return "", false, nil
	}
	return pool[b.choose(v.Parameter, v.HasParameter, len(pool))], true, nil
}

// splitRandomItems splits on ~ when present, else on a comma.
func splitRandomItems(payload string) []string {
	if strings.Contains(payload, internal.StrTilde) {
		return strings.Split(payload, internal.StrTilde)
	}
	return strings.Split(payload, internal.StrComma)
}

const maxRandomWeight = 1000

// FiftyFiftyBlock returns its payload half of the time and nothing otherwise.
//
//	{50:<payload>}
//
// Aliases: 5050, ?
type FiftyFiftyBlock struct {
	choose chooser
}

// NewFiftyFiftyBlock creates a FiftyFiftyBlock.
func NewFiftyFiftyBlock() *FiftyFiftyBlock {
	return &FiftyFiftyBlock{choose: defaultChooser}
}

// Accepts implements Block.
func (b *FiftyFiftyBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclFifty, DeclFiftyFifty, DeclFiftySymbol)
}

// Declarations implements Declarer.
func (b *FiftyFiftyBlock) Declarations() []string {
	return []string{DeclFifty, DeclFiftyFifty, DeclFiftySymbol}
}

// Process implements Block.
func (b *FiftyFiftyBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	if !v.HasPayload {
		return "", false, nil
	}
	if b.choose(v.Parameter, v.HasParameter, 2) == 0 {
		return StringEmpty, true, nil
	}
	return v.Payload, true, nil
}

// RangeBlock returns a random number between two bounds, both included.
// rangef returns a number with one decimal place.
//
//	{range([seed]):<low>-<high>}
//	{rangef([seed]):<low>-<high>}
type RangeBlock struct {
	choose chooser
}

// NewRangeBlock creates a RangeBlock.
func NewRangeBlock() *RangeBlock {
	return &RangeBlock{choose: defaultChooser}
}

// Accepts implements Block.
func (b *RangeBlock) Accepts(ctx *Context) bool {
	return ctx.Verb.Is(DeclRange, DeclRangeFloat)
}

// Declarations implements Declarer.
func (b *RangeBlock) Declarations() []string {
	return []string{DeclRange, DeclRangeFloat}
}

// Process implements Block.
func (b *RangeBlock) Process(ctx *Context) (string, bool, error) {
	v := ctx.Verb
	bounds := strings.Split(v.Payload, rangeSeparator)
	if !v.HasPayload || len(bounds) < 2 {
		return "", false, nil
	}
	lower, errL := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
	upper, errU := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
	if errL != nil || errU != nil {
		return "", false, nil
	}

	if v.Is(DeclRangeFloat) {
		lo, hi := int(lower*10), int(upper*10)
		if lo > hi {
			return "", false, nil
		}
		n := lo + b.choose(v.Parameter, v.HasParameter, hi-lo+1)
		return strconv.FormatFloat(float64(n)/10, 'f', 1, 64), true, nil
	}

	lo, hi := int(lower), int(upper)
	if lo > hi {
		return "", false, nil
	}
	return strconv.Itoa(lo + b.choose(v.Parameter, v.HasParameter, hi-lo+1)), true, nil
}

const rangeSeparator = "-"

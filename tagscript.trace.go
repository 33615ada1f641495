package tagscript

import (
	"context"
	"fmt"

	"github.com/itsatony/go-tagscript/internal"
)

// NodeTrace records what happened to one region during a traced Process
// call.
type NodeTrace struct {
	// Order is the position of the region in resolution order.
	Order int `json:"order" yaml:"order"`

	// Start and End are the inclusive offsets of the region in the working
	// text at the time it was visited.
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`

	// Raw is the region text as it was parsed.
	Raw string `json:"raw" yaml:"raw"`

	Declaration string `json:"declaration,omitempty" yaml:"declaration,omitempty"`

	// Block is the Go type of the block that produced the output.
	Block string `json:"block,omitempty" yaml:"block,omitempty"`

	Output string `json:"output,omitempty" yaml:"output,omitempty"`

	Resolved  bool `json:"resolved" yaml:"resolved"`
	Malformed bool `json:"malformed,omitempty" yaml:"malformed,omitempty"`
}

// Unresolved is a tag no block resolved, with close declarations the author
// may have meant.
type Unresolved struct {
	Declaration string   `json:"declaration" yaml:"declaration"`
	Raw         string   `json:"raw" yaml:"raw"`
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// Analysis is the result of Analyze.
type Analysis struct {
	Response   *Response    `json:"-" yaml:"-"`
	Unresolved []Unresolved `json:"unresolved" yaml:"unresolved"`
	Malformed  []NodeTrace  `json:"malformed,omitempty" yaml:"malformed,omitempty"`
}

// OK reports whether every tag was resolved.
func (a *Analysis) OK() bool {
	return len(a.Unresolved) == 0 && len(a.Malformed) == 0
}

// Analyze processes text with tracing enabled and reports the tags that no
// block resolved. Errors from Process are returned unchanged.
func (i *Interpreter) Analyze(ctx context.Context, text string, seed map[string]Adapter, opts ...ProcessOption) (*Analysis, error) {
	opts = append(append([]ProcessOption(nil), opts...), WithTrace())
	resp, err := i.Process(ctx, text, seed, opts...)
	if err != nil {
		return nil, err
	}

	known := knownDeclarations(i.blocks, resp.Variables)
	analysis := &Analysis{Response: resp}
	for _, node := range resp.Trace {
		switch {
		case node.Malformed:
			analysis.Malformed = append(analysis.Malformed, node)
		case !node.Resolved:
			analysis.Unresolved = append(analysis.Unresolved, Unresolved{
				Declaration: node.Declaration,
				Raw:         node.Raw,
				Suggestions: internal.FindSimilarStrings(node.Declaration, known, maxSuggestions),
			})
		}
	}
	return analysis, nil
}

// FormatSuggestions renders suggestions as a "did you mean" hint.
func FormatSuggestions(suggestions []string) string {
	return internal.FormatSuggestions(suggestions)
}

const maxSuggestions = 3

func blockName(b Block) string {
	return fmt.Sprintf("%T", b)
}

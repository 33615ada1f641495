package tagscript

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedChooser always picks index and records the pool size it was offered.
func fixedChooser(index int, sizes *[]int) chooser {
	return func(_ string, _ bool, n int) int {
		*sizes = append(*sizes, n)
		if index >= n {
			return n - 1
		}
		return index
	}
}

func TestRandomBlock(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		index    int
		expected string
		pool     int
	}{
		{"tilde separated", "{random:a~b~c}", 1, "b", 3},
		{"comma separated", "{rand:a,b,c}", 2, "c", 3},
		{"tilde wins over comma", "{#:a,b~c}", 0, "a,b", 2},
		{"weighted items", "{random:3|x~y}", 2, "x", 4},
		{"weighted last item", "{random:3|x~y}", 3, "y", 4},
		{"non-numeric weight is kept", "{random:a|b~c}", 0, "a|b", 2},
		{"single item", "{random:only}", 0, "only", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sizes []int
			block := &RandomBlock{choose: fixedChooser(tt.index, &sizes)}
			resp := process(t, MustNew(WithBlocks(block)), tt.message, nil)
			assert.Equal(t, tt.expected, resp.Body)
			assert.Equal(t, []int{tt.pool}, sizes)
		})
	}

	t.Run("missing payload declines", func(t *testing.T) {
		resp := process(t, MustNew(WithBlocks(NewRandomBlock())), "{random(seed)}", nil)
		assert.Equal(t, "{random(seed)}", resp.Body)
	})

	t.Run("weight is capped", func(t *testing.T) {
		var sizes []int
		block := &RandomBlock{choose: fixedChooser(0, &sizes)}
		process(t, MustNew(WithBlocks(block)), "{random:5000|x~y}", nil)
		assert.Equal(t, []int{maxRandomWeight + 1}, sizes)
	})
}

func TestRandomBlock_Seeded(t *testing.T) {
	interp := MustNew()
	message := "{random(user-42):a~b~c~d~e~f~g~h}"

	first := process(t, interp, message, nil).Body
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, process(t, interp, message, nil).Body)
	}
	assert.Contains(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, first)
}

func TestDefaultChooser(t *testing.T) {
	for i := 0; i < 100; i++ {
		n := defaultChooser("", false, 3)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 3)
	}
	assert.Equal(t, defaultChooser("seed", true, 1000), defaultChooser("seed", true, 1000))
}

func TestFiftyFiftyBlock(t *testing.T) {
	var sizes []int
	heads := &FiftyFiftyBlock{choose: fixedChooser(1, &sizes)}
	tails := &FiftyFiftyBlock{choose: fixedChooser(0, &sizes)}

	assert.Equal(t, "lucky", process(t, MustNew(WithBlocks(heads)), "{50:lucky}", nil).Body)
	assert.Equal(t, "lucky", process(t, MustNew(WithBlocks(heads)), "{5050:lucky}", nil).Body)
	assert.Equal(t, "", process(t, MustNew(WithBlocks(tails)), "{?:lucky}", nil).Body)
	assert.Equal(t, []int{2, 2, 2}, sizes)

	resp := process(t, MustNew(WithBlocks(NewFiftyFiftyBlock())), "{50}", nil)
	assert.Equal(t, "{50}", resp.Body)
}

func TestRangeBlock(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		index    int
		expected string
		pool     int
	}{
		{"lowest", "{range:1-6}", 0, "1", 6},
		{"highest", "{range:1-6}", 5, "6", 6},
		{"equal bounds", "{range:4-4}", 0, "4", 1},
		{"float tenths", "{rangef:1.5-2}", 3, "1.8", 6},
		{"float equal bounds", "{rangef:2.5-2.5}", 0, "2.5", 1},
		{"spaces around bounds", "{range: 2 - 3 }", 1, "3", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sizes []int
			block := &RangeBlock{choose: fixedChooser(tt.index, &sizes)}
			resp := process(t, MustNew(WithBlocks(block)), tt.message, nil)
			assert.Equal(t, tt.expected, resp.Body)
			assert.Equal(t, []int{tt.pool}, sizes)
		})
	}

	declined := []string{"{range:6-1}", "{range:a-b}", "{range:5}", "{range}"}
	for _, message := range declined {
		t.Run("declines "+message, func(t *testing.T) {
			resp := process(t, MustNew(WithBlocks(NewRangeBlock())), message, nil)
			assert.Equal(t, message, resp.Body)
		})
	}
}

func TestRangeBlock_Default(t *testing.T) {
	interp := MustNew()
	for i := 0; i < 50; i++ {
		n, err := strconv.Atoi(process(t, interp, "{range:10-20}", nil).Body)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 10)
		assert.LessOrEqual(t, n, 20)
	}
}

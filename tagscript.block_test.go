package tagscript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockFunc(t *testing.T) {
	upper := NewBlockFunc(func(ctx *Context) (string, bool, error) {
		return strings.ToUpper(ctx.Verb.Payload), true, nil
	}, "upper", "caps")

	assert.Equal(t, []string{"upper", "caps"}, upper.Declarations())

	interp := MustNew(WithBlocks(append(DefaultBlocks(nil), upper)...))
	resp := process(t, interp, "{upper:hi} {CAPS:{name}}", map[string]string{"name": "ada"})
	assert.Equal(t, "HI ADA", resp.Body)
}

func TestBlockGroups(t *testing.T) {
	groups := BlockGroups()
	assert.Equal(t, []string{
		BlockGroupControl,
		BlockGroupFlow,
		BlockGroupVariable,
		BlockGroupRandom,
		BlockGroupStrings,
		BlockGroupCooldown,
	}, groups[:6])
}

func TestBlocksForGroups(t *testing.T) {
	t.Run("order follows arguments", func(t *testing.T) {
		blocks, err := BlocksForGroups(nil, BlockGroupStrings, BlockGroupControl)
		require.NoError(t, err)
		require.Len(t, blocks, 5)
		assert.IsType(t, &ReplaceBlock{}, blocks[0])
		assert.IsType(t, &IfBlock{}, blocks[2])
	})

	t.Run("case-insensitive", func(t *testing.T) {
		blocks, err := BlocksForGroups(nil, "FLOW")
		require.NoError(t, err)
		assert.Len(t, blocks, 2)
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := BlocksForGroups(nil, "nope")
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
		assert.Contains(t, err.Error(), ErrMsgUnknownBlockGroup)
	})
}

func TestRegisterBlockGroup(t *testing.T) {
	shout := NewBlockFunc(func(ctx *Context) (string, bool, error) {
		return strings.ToUpper(ctx.Verb.Payload) + "!", true, nil
	}, "shout")
	RegisterBlockGroup("Test-Shout", func(CooldownStore) []Block { return []Block{shout} })

	assert.Contains(t, BlockGroups(), "test-shout")

	blocks, err := BlocksForGroups(nil, "test-shout")
	require.NoError(t, err)
	resp := process(t, MustNew(WithBlocks(blocks...)), "{shout:hey}", nil)
	assert.Equal(t, "HEY!", resp.Body)

	cfg := DefaultConfig()
	cfg.Blocks = []string{"test-shout"}
	assert.NoError(t, cfg.Validate())
}

func TestDefaultBlocks(t *testing.T) {
	store := NewMemoryCooldownStore()
	blocks := DefaultBlocks(store)
	require.Len(t, blocks, 13)

	cooldown, ok := blocks[len(blocks)-1].(*CooldownBlock)
	require.True(t, ok)
	assert.Same(t, store, cooldown.store)
}

func TestResponse(t *testing.T) {
	resp := newResponse(nil, map[string]any{"n": 1, "s": "x"})

	resp.SetAction("reaction", "👍")
	v, ok := resp.Action("reaction")
	assert.True(t, ok)
	assert.Equal(t, "👍", v)

	assert.False(t, resp.Stopped())
	resp.Stop()
	assert.True(t, resp.Stopped())

	s, ok := resp.ExtraString("s")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	_, ok = resp.ExtraString("n")
	assert.False(t, ok, "non-string extras are not strings")
	_, ok = resp.ExtraString("missing")
	assert.False(t, ok)

	assert.False(t, resp.BodyOverridden())
	resp.SetBody("")
	assert.True(t, resp.BodyOverridden())
}

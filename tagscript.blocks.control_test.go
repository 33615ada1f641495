package tagscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIfBlock(t *testing.T) {
	interp := MustNew(WithBlocks(&IfBlock{}))

	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{"equal", "{if(a==a):yes|no}", "yes"},
		{"not equal", "{if(a!=b):yes|no}", "yes"},
		{"greater", "{if(10>9):yes|no}", "yes"},
		{"less or equal", "{if(3<=2):yes|no}", "no"},
		{"greater or equal with decimals", "{if(2.5>=2.5):yes|no}", "yes"},
		{"whitespace around operands", "{if( a == a ):yes|no}", "yes"},
		{"implicit true", "{if(enabled):on|off}", "on"},
		{"implicit false", "{if(off):on|off}", "off"},
		{"single branch true", "{if(1==1):only}", "only"},
		{"single branch false", "{if(1==2):only}", ""},
		{"empty else", "{if(1==2):then|}", ""},
		{"escaped pipe is not a separator", `{if(1==2):a\|b}`, ""},
		{"unparseable condition declines", "{if(maybe):yes|no}", "{if(maybe):yes|no}"},
		{"numeric compare on words declines", "{if(a>b):yes|no}", "{if(a>b):yes|no}"},
		{"missing payload declines", "{if(1==1)}", "{if(1==1)}"},
		{"missing parameter declines", "{if:yes|no}", "{if:yes|no}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := process(t, interp, tt.message, nil)
			assert.Equal(t, tt.expected, resp.Body)
		})
	}
}

func TestAnyAllBlocks(t *testing.T) {
	interp := MustNew(WithBlocks(&AnyBlock{}, &AllBlock{}))

	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{"any one true", "{any(1==2|b==b):yes|no}", "yes"},
		{"any none true", "{any(1==2|a==b):yes|no}", "no"},
		{"or alias", "{or(no|yes):yes|no}", "yes"},
		{"all true", "{all(1==1|2>1|on):yes|no}", "yes"},
		{"all one false", "{all(1==1|2<1):yes|no}", "no"},
		{"and alias", "{and(yes|yes):yes|no}", "yes"},
		{"unparseable part counts as false", "{all(1==1|maybe):yes|no}", "no"},
		{"single condition", "{any(true):yes|no}", "yes"},
		{"missing payload declines", "{any(true)}", "{any(true)}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := process(t, interp, tt.message, nil)
			assert.Equal(t, tt.expected, resp.Body)
		})
	}
}

func TestChooseBranch(t *testing.T) {
	out, ok := chooseBranch("a|b", true)
	assert.True(t, ok)
	assert.Equal(t, "a", out)

	out, _ = chooseBranch("a|b", false)
	assert.Equal(t, "b", out)

	out, _ = chooseBranch("a|b|c", true)
	assert.Equal(t, "a|b|c", out, "more than two branches returns the payload")

	out, _ = chooseBranch("a|b|c", false)
	assert.Equal(t, "", out)
}

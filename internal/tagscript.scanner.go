package internal

import (
	"go.uber.org/zap"
)

// Region is a candidate bracket expression located by ScanRegions.
// Start and End are byte offsets of the opening and closing bracket in the
// working text; both are inclusive.
type Region struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the region, brackets included.
func (r Region) Len() int {
	return r.End - r.Start + 1
}

// ScanRegions finds every balanced bracket pair in message.
//
// Regions are returned in the order their closing bracket appears, so a
// nested region always precedes the region that encloses it. A bracket
// immediately preceded by a backslash never opens or closes a region.
// Unmatched opening brackets are dropped and unmatched closing brackets are
// ignored.
func ScanRegions(message string, logger *zap.Logger) []Region {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgScanStart, zap.Int(LogFieldLength, len(message)))

	var (
		regions []Region
		starts  []int
	)
	for i := 0; i < len(message); i++ {
		ch := message[i]
		if ch != CharOpenBrace && ch != CharCloseBrace {
			continue
		}
		if i > 0 && message[i-1] == CharBackslash {
			continue
		}

		if ch == CharOpenBrace {
			starts = append(starts, i)
			continue
		}

		if len(starts) == 0 {
			continue
		}
		last := len(starts) - 1
		regions = append(regions, Region{Start: starts[last], End: i})
		starts = starts[:last]
	}

	logger.Debug(LogMsgScanComplete, zap.Int(LogFieldRegions, len(regions)))
	return regions
}

// UnescapeBrackets removes the escape marker from escaped brackets.
func UnescapeBrackets(s string) string {
	if len(s) < 2 {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == CharBackslash && i+1 < len(s) &&
			(s[i+1] == CharOpenBrace || s[i+1] == CharCloseBrace) {
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

// EscapeBrackets prefixes every bracket in s with the escape marker so the
// scanner treats it as literal text.
func EscapeBrackets(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == CharOpenBrace || s[i] == CharCloseBrace {
			out = append(out, CharBackslash)
		}
		out = append(out, s[i])
	}
	return string(out)
}

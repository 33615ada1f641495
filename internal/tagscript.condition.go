package internal

import (
	"strconv"
	"strings"
)

// Implicit boolean words accepted in place of a comparison
var (
	implicitTrue  = []string{"true", "yes", "y", "on", "enable", "enabled"}
	implicitFalse = []string{"false", "no", "n", "off", "disable", "disabled"}
)

// comparisonOps lists operators in the order they are tried. Two-character
// operators come first so "<=" is never read as "<".
var comparisonOps = []string{OpNotEqual, OpEqual, OpGreaterEqual, OpLessEqual, OpGreater, OpLess}

// ImplicitBool interprets s as a boolean word. The second return value is
// false when s is not one of the recognised words.
func ImplicitBool(s string) (bool, bool) {
	word := strings.ToLower(strings.TrimSpace(s))
	for _, w := range implicitTrue {
		if word == w {
			return true, true
		}
	}
	for _, w := range implicitFalse {
		if word == w {
			return false, true
		}
	}
	return false, false
}

// ParseCondition evaluates a condition such as "a==b" or "3>=2".
// Equality operators compare trimmed strings; ordering operators compare
// numbers. The second return value is false when s cannot be evaluated.
func ParseCondition(s string) (bool, bool) {
	if b, ok := ImplicitBool(s); ok {
		return b, true
	}

	for _, op := range comparisonOps {
		left, right, found := strings.Cut(s, op)
		if !found {
			continue
		}
		left, right = strings.TrimSpace(left), strings.TrimSpace(right)

		switch op {
		case OpNotEqual:
			return left != right, true
		case OpEqual:
			return left == right, true
		}

		l, errL := strconv.ParseFloat(left, 64)
		r, errR := strconv.ParseFloat(right, 64)
		if errL != nil || errR != nil {
			return false, false
		}
		switch op {
		case OpGreaterEqual:
			return l >= r, true
		case OpLessEqual:
			return l <= r, true
		case OpGreater:
			return l > r, true
		default:
			return l < r, true
		}
	}
	return false, false
}

// ParseConditionList splits s on unescaped pipes and evaluates every part.
// Parts that cannot be evaluated count as false.
func ParseConditionList(s string) []bool {
	parts, ok := SplitPayload(s, false, -1)
	if !ok {
		parts = []string{s}
	}
	results := make([]bool, 0, len(parts))
	for _, part := range parts {
		b, _ := ParseCondition(part)
		results = append(results, b)
	}
	return results
}

// SplitPayload splits s on unescaped pipes. When easy is set and s has no
// unescaped pipe, it falls back to "~" and then ",". maxSplit limits the
// number of splits; a negative value means no limit. The second return
// value is false when no separator applies.
func SplitPayload(s string, easy bool, maxSplit int) ([]string, bool) {
	n := -1
	if maxSplit >= 0 {
		n = maxSplit + 1
	}

	if hasUnescaped(s, CharPipe) {
		return splitUnescaped(s, CharPipe, n), true
	}
	if !easy {
		return nil, false
	}
	if strings.Contains(s, StrTilde) {
		return strings.SplitN(s, StrTilde, n), true
	}
	if strings.Contains(s, StrComma) {
		return strings.SplitN(s, StrComma, n), true
	}
	return nil, false
}

func hasUnescaped(s string, sep byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == sep && (i == 0 || s[i-1] != CharBackslash) {
			return true
		}
	}
	return false
}

// splitUnescaped splits s on sep bytes not preceded by a backslash, returning
// at most n parts when n > 0.
func splitUnescaped(s string, sep byte, n int) []string {
	var parts []string
	last := 0
	for i := 0; i < len(s); i++ {
		if n > 0 && len(parts) == n-1 {
			break
		}
		if s[i] == sep && (i == 0 || s[i-1] != CharBackslash) {
			parts = append(parts, s[last:i])
			last = i + 1
		}
	}
	return append(parts, s[last:])
}

package internal

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// FindSimilarStrings finds strings from candidates that are similar to target.
// Returns up to maxSuggestions suggestions, closest first.
//
// A candidate qualifies when its edit distance to target is small, or when
// target is a fuzzy abbreviation of it ("rep" for "replace").
func FindSimilarStrings(target string, candidates []string, maxSuggestions int) []string {
	if len(candidates) == 0 || maxSuggestions <= 0 {
		return nil
	}

	maxDistance := len(target) / 2
	if maxDistance < 2 {
		maxDistance = 2
	}

	abbreviations := make(map[string]bool)
	for _, rank := range fuzzy.RankFindFold(target, candidates) {
		abbreviations[rank.Target] = true
	}

	type scored struct {
		str      string
		distance int
	}

	var similar []scored
	seen := make(map[string]bool, len(candidates))
	targetLower := strings.ToLower(target)

	for _, candidate := range candidates {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		dist := fuzzy.LevenshteinDistance(targetLower, strings.ToLower(candidate))
		if dist <= maxDistance || abbreviations[candidate] {
			similar = append(similar, scored{str: candidate, distance: dist})
		}
	}

	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].distance < similar[j].distance
	})

	result := make([]string, 0, maxSuggestions)
	for i := 0; i < len(similar) && i < maxSuggestions; i++ {
		result = append(result, similar[i].str)
	}
	return result
}

// FormatSuggestions formats a list of suggestions as a human-readable string.
// Example output: ". Did you mean 'if', 'in' or 'index'?"
func FormatSuggestions(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}

	if len(suggestions) == 1 {
		return ". Did you mean '" + suggestions[0] + "'?"
	}

	var sb strings.Builder
	sb.WriteString(". Did you mean ")

	for i, s := range suggestions {
		if i > 0 {
			if i == len(suggestions)-1 {
				sb.WriteString(" or ")
			} else {
				sb.WriteString(", ")
			}
		}
		sb.WriteByte('\'')
		sb.WriteString(s)
		sb.WriteByte('\'')
	}

	sb.WriteByte('?')
	return sb.String()
}

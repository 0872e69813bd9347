package internal

import (
	"strings"
	"unicode"
)

// searchWords extracts the distinct lowercase alphanumeric words of s, in the
// order they appear.
func searchWords(s string) []string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte(' ')
		}
	}
	fields := strings.Fields(b.String())
	seen := make(map[string]struct{}, len(fields))
	j := 0
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		fields[j] = f
		j++
	}
	return fields[:j]
}

// searchScore counts the query words found in name.
func searchScore(query []string, name string) int {
	var score int
	nameWords := searchWords(name)
	for _, q := range query {
		for _, w := range nameWords {
			if q == w {
				score++
				break
			}
		}
	}
	return score
}

package metrics

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Features holds basic local text features derived from a question or an answer.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
	// URLs counts distinct http(s) links, i.e. the citations of an answer.
	URLs int
}

var reURL = regexp.MustCompile(`https?://[^\s<>()\[\]"']+`)

// CountFeatures computes byte, rune, word, line and distinct URL counts for s.
func CountFeatures(s string) Features {
	return Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: countWords(s),
		Lines: countLines(s),
		URLs:  countURLs(s),
	}
}

// countWords counts words split on Unicode whitespace.
func countWords(s string) int {
	return len(strings.Fields(s))
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}

func countURLs(s string) int {
	seen := map[string]struct{}{}
	for _, u := range reURL.FindAllString(s, -1) {
		seen[strings.TrimRight(u, ".,;:!?")] = struct{}{}
	}
	return len(seen)
}

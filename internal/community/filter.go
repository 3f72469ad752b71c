package community

import "strings"

var defaultDenylist = []string{
	"fuck",
	"shit",
	"bitch",
	"bastard",
	"asshole",
	"dickhead",
	"cunt",
	"slut",
	"whore",
	"retard",
	"idiot",
	"moron",
	"kill yourself",
	"kys",
	"go die",
	"shut up",
}

// Filter rejects text containing denylisted words, matched as case-insensitive substrings.
type Filter struct {
	words []string
}

// NewFilter builds a filter over the default denylist plus any extra words.
func NewFilter(extra ...string) *Filter {
	words := make([]string, 0, len(defaultDenylist)+len(extra))
	seen := make(map[string]struct{}, cap(words))
	for _, word := range append(append([]string{}, defaultDenylist...), extra...) {
		normalized := strings.ToLower(strings.TrimSpace(word))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		words = append(words, normalized)
	}
	return &Filter{words: words}
}

// Contains reports whether text includes any denylisted word.
func (f *Filter) Contains(text string) bool {
	lowered := strings.ToLower(text)
	for _, word := range f.words {
		if strings.Contains(lowered, word) {
			return true
		}
	}
	return false
}

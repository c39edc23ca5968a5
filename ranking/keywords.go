package ranking

import (
	"strings"
	"unicode"
)

// Keywords matches whole words for Latin text and substrings for
// scripts without spaces between particles (Korean, Japanese).
type Keywords struct {
	words []string
}

func NewKeywords(words ...string) Keywords {
	k := Keywords{words: make([]string, 0, len(words))}
	for _, w := range words {
		if w = normalizeText(w); w != "" {
			k.words = append(k.words, w)
		}
	}
	return k
}

// Match reports whether any keyword occurs in text.
func (k Keywords) Match(text string) bool {
	if len(k.words) == 0 {
		return false
	}
	padded := " " + normalizeText(text) + " "
	for _, w := range k.words {
		if isASCII(w) {
			if strings.Contains(padded, " "+w+" ") {
				return true
			}
		} else if strings.Contains(padded, w) {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

package taxonomy

import (
	"regexp"
	"strings"
	"unicode"
)

// skillPattern is one skill's compiled alternation of aliases, plus the
// skill key it resolves to.
type skillPattern struct {
	key    string
	regexp *regexp.Regexp
}

// Matcher scans text for whole-token occurrences of skill names or
// aliases. It is a pure function of (text, taxonomy): once compiled it
// holds no mutable state.
//
// Token boundary: a match must not be preceded or followed by a word
// character, '-', '/', '#', or '.'. Multi-word aliases match across any
// run of whitespace between their words (resolving the ambiguity in the
// source implementation's escape/substitution step in favor of the
// clearly-intended behavior).
type Matcher struct {
	patterns []skillPattern
}

// boundaryChars are the extra characters (beyond word characters) that
// disqualify an adjacent rune from being a valid token boundary.
const boundaryChars = "-/#."

// NewMatcher compiles a Matcher over the given skills. Skills with no
// resolvable aliases (name and alias list both empty after normalization)
// compile to no pattern and never match.
func NewMatcher(skills []Skill) *Matcher {
	m := &Matcher{}
	for _, s := range skills {
		aliases := s.normalizedAliases()
		if len(aliases) == 0 {
			continue
		}

		parts := make([]string, 0, len(aliases))
		for _, alias := range aliases {
			parts = append(parts, escapeAliasWhitespace(alias))
		}

		pattern := "(?i)(?:" + strings.Join(parts, "|") + ")"
		re, err := regexp.Compile(pattern)
		if err != nil {
			// A malformed alias should never make it past taxonomy
			// loading; skip defensively rather than panic at match time.
			continue
		}
		m.patterns = append(m.patterns, skillPattern{key: s.Key, regexp: re})
	}
	return m
}

// escapeAliasWhitespace quotes every literal run of an alias and joins
// them with \s+, so "site reliability" matches across any whitespace run
// (tabs, multiple spaces, newlines) rather than only a single space.
func escapeAliasWhitespace(alias string) string {
	words := strings.Fields(alias)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}

// Match returns the ordered, deduplicated list of skill keys whose name or
// an alias occurs as a whole token in text. Order follows the order
// skills were compiled (taxonomy order), not the order they occur in
// text. Whitespace in text is collapsed to single spaces before matching.
func (m *Matcher) Match(text string) []string {
	normalized := collapseWhitespace(text)
	runes := []rune(normalized)

	var keys []string
	for _, p := range m.patterns {
		if matchesWithBoundary(p.regexp, normalized, runes) {
			keys = append(keys, p.key)
		}
	}
	return keys
}

// collapseWhitespace replaces every run of whitespace with a single space.
var whitespaceRun = regexp.MustCompile(`\s+`)

func collapseWhitespace(text string) string {
	return whitespaceRun.ReplaceAllString(text, " ")
}

// matchesWithBoundary reports whether re has at least one match in text
// whose surrounding runes satisfy the token-boundary rule. Go's RE2 engine
// has no lookaround, so boundaries are checked manually against each
// candidate match.
func matchesWithBoundary(re *regexp.Regexp, text string, runes []rune) bool {
	for _, loc := range re.FindAllStringIndex(text, -1) {
		start := byteToRuneIndex(text, loc[0])
		end := byteToRuneIndex(text, loc[1])
		if precedingOK(runes, start) && followingOK(runes, end) {
			return true
		}
	}
	return false
}

// byteToRuneIndex converts a byte offset into text to a rune offset.
func byteToRuneIndex(text string, byteIdx int) int {
	return len([]rune(text[:byteIdx]))
}

// precedingOK reports whether the rune immediately before a match starting
// at rune offset start is a valid boundary: absent, or not a word
// character and not one of boundaryChars.
func precedingOK(runes []rune, start int) bool {
	if start <= 0 {
		return true
	}
	return !isBoundaryBlocker(runes[start-1])
}

// followingOK reports whether the rune immediately after a match ending at
// rune offset end is a valid boundary: absent, or not a word character and
// not one of boundaryChars.
func followingOK(runes []rune, end int) bool {
	if end >= len(runes) {
		return true
	}
	return !isBoundaryBlocker(runes[end])
}

// isBoundaryBlocker reports whether r disqualifies an adjacent position as
// a token boundary.
func isBoundaryBlocker(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
		return true
	}
	return strings.ContainsRune(boundaryChars, r)
}

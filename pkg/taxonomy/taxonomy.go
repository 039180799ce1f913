// Package taxonomy holds the canonical skill catalog and the matcher that
// scans message text for skill mentions.
package taxonomy

import "strings"

// Skill is a canonical entry in the taxonomy.
type Skill struct {
	Key     string   `json:"key"`
	Name    string   `json:"name"`
	Domain  string   `json:"domain"`
	Aliases []string `json:"aliases"`
}

// normalizedAliases returns the skill's aliases plus its own lower-cased
// display name, deduplicated, lower-cased.
func (s Skill) normalizedAliases() []string {
	seen := make(map[string]bool, len(s.Aliases)+1)
	out := make([]string, 0, len(s.Aliases)+1)

	add := func(a string) {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			return
		}
		seen[a] = true
		out = append(out, a)
	}

	add(s.Name)
	for _, a := range s.Aliases {
		add(a)
	}
	return out
}

// Taxonomy is an immutable, compiled skill catalog.
type Taxonomy struct {
	Skills  []Skill
	Matcher *Matcher
}

// New compiles a Taxonomy from a list of skills. It does not de-duplicate
// keys: every skill, a repeated key included, stays in the catalog and
// compiles its own matcher pattern. LoadDir drops repeated keys before
// calling New.
func New(skills []Skill) *Taxonomy {
	return &Taxonomy{
		Skills:  skills,
		Matcher: NewMatcher(skills),
	}
}

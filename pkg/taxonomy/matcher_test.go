package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSkills() []Skill {
	return []Skill{
		{Key: "python", Name: "Python", Domain: "programming", Aliases: []string{"py", "python3"}},
		{Key: "react", Name: "React", Domain: "frontend", Aliases: []string{"reactjs", "react.js"}},
		{Key: "sre", Name: "Site Reliability Engineering", Domain: "ops", Aliases: []string{"site reliability", "sre"}},
		{Key: "csharp", Name: "C#", Domain: "programming", Aliases: []string{"c#", "csharp"}},
	}
}

func TestMatcher_WholeTokenBoundary(t *testing.T) {
	m := NewMatcher(sampleSkills())

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"plain mention", "I love Python and Django", []string{"python"}},
		{"alias mention", "been writing py for years", []string{"python"}},
		{"not a substring match", "mypython is not a real word", nil},
		{"hyphen blocks boundary", "python-like syntax", nil},
		{"dot blocks boundary", "python.org is a site", nil},
		{"slash blocks boundary", "a/python/b", nil},
		{"hash blocks boundary", "python#1", nil},
		{"punctuation allows boundary", "I use Python, and also React!", []string{"python", "react"}},
		{"case insensitive", "PYTHON is great", []string{"python"}},
		{"multi-word alias across whitespace run", "our   site reliability   team", []string{"sre"}},
		{"multi-word alias across newline", "site\nreliability work", []string{"sre"}},
		{"symbol alias", "I write C# daily", []string{"csharp"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Match(tc.text)
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatcher_OrderIsCompileOrderNotTextOrder(t *testing.T) {
	m := NewMatcher(sampleSkills())
	// "react" appears before "python" in the text, but python is compiled first.
	got := m.Match("React devs who also know Python")
	assert.Equal(t, []string{"python", "react"}, got)
}

func TestMatcher_Deduplicates(t *testing.T) {
	m := NewMatcher(sampleSkills())
	got := m.Match("python python python py")
	assert.Equal(t, []string{"python"}, got)
}

func TestMatcher_PurityAcrossWhitespaceCollapse(t *testing.T) {
	m := NewMatcher(sampleSkills())
	a := m.Match("I   use\tPython\n\nevery day")
	b := m.Match(collapseWhitespace("I   use\tPython\n\nevery day"))
	assert.Equal(t, a, b)
	require.Equal(t, []string{"python"}, a)
}

func TestMatcher_EmptyTaxonomy(t *testing.T) {
	m := NewMatcher(nil)
	assert.Empty(t, m.Match("anything at all"))
}

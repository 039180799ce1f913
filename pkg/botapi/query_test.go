package botapi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/truffle/expertise-miner/pkg/taxonomy"
)

func testMatcher() *taxonomy.Matcher {
	tax := taxonomy.New([]taxonomy.Skill{
		{Key: "python", Name: "Python"},
		{Key: "react", Name: "React"},
		{Key: "kubernetes", Name: "Kubernetes", Aliases: []string{"k8s"}},
	})
	return tax.Matcher
}

func TestParseQuestion_WhoKnowsPattern(t *testing.T) {
	q, ok := parseQuestion("who knows python?", testMatcher())
	assert.True(t, ok)
	assert.Equal(t, "who_knows", q.queryType)
	assert.Equal(t, []string{"python"}, q.skillKeys)
}

func TestParseQuestion_WhoCanHelpWithPattern(t *testing.T) {
	q, ok := parseQuestion("who can help with react", testMatcher())
	assert.True(t, ok)
	assert.Equal(t, "help_with", q.queryType)
	assert.Equal(t, []string{"react"}, q.skillKeys)
}

func TestParseQuestion_ExpertsInPattern(t *testing.T) {
	q, ok := parseQuestion("who is an expert in kubernetes", testMatcher())
	assert.True(t, ok)
	assert.Equal(t, "expert_in", q.queryType)
	assert.Equal(t, []string{"kubernetes"}, q.skillKeys)
}

func TestParseQuestion_FallsBackToGeneralMention(t *testing.T) {
	q, ok := parseQuestion("just mentioning python here", testMatcher())
	assert.True(t, ok)
	assert.Equal(t, "general_mention", q.queryType)
	assert.Equal(t, []string{"python"}, q.skillKeys)
}

func TestParseQuestion_NoSkillsReturnsFalse(t *testing.T) {
	_, ok := parseQuestion("good morning everyone", testMatcher())
	assert.False(t, ok)
}

func TestParseQuestion_PatternMatchesButNoKnownSkillFallsThrough(t *testing.T) {
	// "who knows javascript" matches the who_knows pattern, but javascript
	// isn't in the taxonomy, so it should fall through to the general
	// fallback and ultimately report no skills found.
	_, ok := parseQuestion("who knows javascript", testMatcher())
	assert.False(t, ok)
}

package botapi

import (
	"regexp"
	"strings"

	"github.com/truffle/expertise-miner/pkg/taxonomy"
)

// queryPattern pairs a phrasing regex with the query type it represents,
// mirroring the source bot's query_parser.py pattern table, trimmed to a
// handful of phrasings worth demonstrating end-to-end.
type queryPattern struct {
	re   *regexp.Regexp
	kind string
}

var queryPatterns = []queryPattern{
	{regexp.MustCompile(`(?i)who knows?\s+(?:about\s+)?(.+?)\??$`), "who_knows"},
	{regexp.MustCompile(`(?i)who(?:'s| is)\s+(?:an?\s+)?expert\s+(?:in|on|with|at)\s+(.+?)\??$`), "expert_in"},
	{regexp.MustCompile(`(?i)who can help\s+(?:me\s+)?(?:with\s+)?(.+?)\??$`), "help_with"},
	{regexp.MustCompile(`(?i)who has experience\s+(?:with\s+)?(.+?)\??$`), "experience_with"},
	{regexp.MustCompile(`(?i)(?:find|need|looking for)\s+(?:an?\s+)?expert\s+(?:in|on|with|for)\s+(.+?)\??$`), "find_expert"},
	{regexp.MustCompile(`(?i)anyone know\s+(?:about\s+)?(.+?)\??$`), "anyone_know"},
	{regexp.MustCompile(`(?i)(?:i\s+)?need help\s+(?:with\s+)?(.+?)\??$`), "need_help"},
}

// parsedQuery is a recognized expert-search intent extracted from a chat
// message, with the skill keys it resolved to.
type parsedQuery struct {
	skillKeys []string
	queryType string
}

// parseQuestion matches text against the known phrasings, resolving the
// captured phrase to taxonomy skill keys via matcher. Falls back to
// running the matcher over the whole message when no phrasing matches (the
// source's "general_mention" fallback), so a bare "python?" still works.
// Returns ok=false when no skills were found by either path.
func parseQuestion(text string, matcher *taxonomy.Matcher) (parsedQuery, bool) {
	cleaned := strings.TrimSpace(text)

	for _, p := range queryPatterns {
		m := p.re.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		if skills := matcher.Match(m[1]); len(skills) > 0 {
			return parsedQuery{skillKeys: skills, queryType: p.kind}, true
		}
	}

	if skills := matcher.Match(cleaned); len(skills) > 0 {
		return parsedQuery{skillKeys: skills, queryType: "general_mention"}, true
	}

	return parsedQuery{}, false
}

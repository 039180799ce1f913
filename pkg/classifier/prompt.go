package classifier

import (
	"fmt"
	"strings"

	"github.com/truffle/expertise-miner/pkg/model"
)

const systemPrompt = `You classify chat messages as evidence of a person's technical or business expertise.

For each skill listed, assign exactly one label:
- "positive_expertise": the author demonstrates knowledge, experience, or ownership of the skill.
- "negative_expertise": the author explicitly disclaims knowledge of the skill, asks a basic question about it, or reports a struggle or failure with it.
- "neutral": the message does not provide evidence either way.

Respect negation: "I don't know Python" is negative_expertise for python, not positive. Do not attribute quoted or pasted text (e.g. error messages, code another person wrote, text after "> ") to the author's own expertise.

Respond with strict JSON only, no prose, in exactly this shape:
{"results": [{"skill_key": "...", "label": "positive_expertise|negative_expertise|neutral", "confidence": 0.0, "rationale": "..."}]}`

func buildUserPrompt(c model.Candidate) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Message: %s\n", c.Text)
	if c.ParentText != "" {
		fmt.Fprintf(&b, "Parent message (for context only, not authored by this person): %s\n", c.ParentText)
	}
	fmt.Fprintf(&b, "Skills to classify: %s\n", strings.Join(c.SkillKeys, ", "))

	return b.String()
}

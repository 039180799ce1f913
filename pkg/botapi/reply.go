package botapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/truffle/expertise-miner/pkg/storage"
)

// fallbackReply is sent whenever a downstream error prevents a real answer.
const fallbackReply = "Sorry, I couldn't look that up right now — try again in a bit."

const noExpertsReplyFmt = "I couldn't find anyone with experience in %s yet."

// formatExpertReply renders a ranked expert list as a chat-friendly reply,
// one line per expert with their confidence and evidence count.
func formatExpertReply(skillKeys []string, results []storage.ExpertResult) string {
	if len(results) == 0 {
		return fmt.Sprintf(noExpertsReplyFmt, strings.Join(skillKeys, ", "))
	}

	byUser := aggregateByUser(results)

	var b strings.Builder
	b.WriteString("Here's who I'd ask about " + strings.Join(skillKeys, ", ") + ":\n")
	for i, card := range byUser {
		fmt.Fprintf(&b, "%d. *%s* (confidence %.0f%%, %d evidence)\n",
			i+1, card.name, card.score*100, card.evidenceCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

type expertCard struct {
	externalID    string
	name          string
	score         float64
	evidenceCount int
}

// aggregateByUser folds per-(user,skill) search rows into one card per
// user, keeping the best score across their matched skills. Mirrors
// pkg/expertapi's aggregation so the bot's reply ranks the same way the
// HTTP API's /experts/search response would.
func aggregateByUser(rows []storage.ExpertResult) []expertCard {
	order := make([]string, 0, len(rows))
	byUser := make(map[string]*expertCard, len(rows))

	for _, r := range rows {
		card, ok := byUser[r.UserExternalID]
		if !ok {
			card = &expertCard{externalID: r.UserExternalID, name: r.DisplayName}
			byUser[r.UserExternalID] = card
			order = append(order, r.UserExternalID)
		}
		card.evidenceCount += r.EvidenceCount
		if r.ExpertiseScore > card.score {
			card.score = r.ExpertiseScore
		}
	}

	cards := make([]expertCard, 0, len(order))
	for _, id := range order {
		cards = append(cards, *byUser[id])
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].score > cards[j].score
	})
	return cards
}

package expertapi

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/truffle/expertise-miner/pkg/model"
	"github.com/truffle/expertise-miner/pkg/storage"
)

const (
	defaultSearchLimit    = 10
	maxSearchLimit        = 50
	defaultMinConfidence  = 0.1
	searchWindowDays      = 180
	perUserRowLimitFactor = 20 // fetch this many times the requested card limit in rows, to aggregate per user
)

// searchRequest is the POST /experts/search request body.
type searchRequest struct {
	Skills            []string `json:"skills"`
	Limit             int      `json:"limit"`
	MinConfidence     *float64 `json:"min_confidence"`
	IncludeConfidence bool     `json:"include_confidence"`
}

// expertCard is one entry of the search response: a user's aggregated
// standing across every requested skill they matched on.
type expertCard struct {
	ExternalID      string   `json:"external_id"`
	DisplayName     string   `json:"display_name"`
	Skills          []string `json:"skills"`
	ConfidenceScore float64  `json:"confidence_score"`
	EvidenceCount   int      `json:"evidence_count"`
	TotalMessages   int      `json:"total_messages"`
}

type searchResponse struct {
	Results          []expertCard `json:"results"`
	TotalFound       int          `json:"total_found"`
	ProcessingTimeMS int64        `json:"processing_time_ms"`
	SearchStrategy   string       `json:"search_strategy"`
}

func (s *Server) handleSearch(c *gin.Context) {
	start := time.Now()

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Skills) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skills must be non-empty"})
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	minConfidence := defaultMinConfidence
	if req.MinConfidence != nil {
		minConfidence = *req.MinConfidence
	}

	rows, err := s.store.SearchExperts(c.Request.Context(), storage.ExpertQuery{
		SkillKeys:        req.Skills,
		MinConfidence:    minConfidence,
		MinEvidenceCount: 1,
		WindowDays:       searchWindowDays,
		ExcludeNeutral:   true,
		SortBy:           model.SortByScore,
		Limit:            limit * perUserRowLimitFactor,
	})
	if err != nil {
		// Storage failure degrades to an empty result set rather than a 5xx.
		s.logger.Error("expert search storage failure", "error", err)
		c.JSON(http.StatusOK, searchResponse{
			Results:          []expertCard{},
			TotalFound:       0,
			ProcessingTimeMS: time.Since(start).Milliseconds(),
			SearchStrategy:   "skill_keys",
		})
		return
	}

	cards := aggregateByUser(rows)
	if len(cards) > limit {
		cards = cards[:limit]
	}

	c.JSON(http.StatusOK, searchResponse{
		Results:          cards,
		TotalFound:       len(cards),
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		SearchStrategy:   "skill_keys",
	})
}

// aggregateByUser folds per-(user,skill) rows into one card per user: the
// matched skill keys, the best (highest) expertise score among them as the
// card's overall confidence, and summed evidence counts. Sorted by
// descending confidence score to preserve the underlying query's ranking.
func aggregateByUser(rows []storage.ExpertResult) []expertCard {
	order := make([]string, 0, len(rows))
	byUser := make(map[string]*expertCard, len(rows))

	for _, r := range rows {
		card, ok := byUser[r.UserExternalID]
		if !ok {
			card = &expertCard{ExternalID: r.UserExternalID, DisplayName: r.DisplayName}
			byUser[r.UserExternalID] = card
			order = append(order, r.UserExternalID)
		}
		card.Skills = append(card.Skills, r.SkillKey)
		card.EvidenceCount += r.EvidenceCount
		card.TotalMessages += r.EvidenceCount
		if r.ExpertiseScore > card.ConfidenceScore {
			card.ConfidenceScore = r.ExpertiseScore
		}
	}

	cards := make([]expertCard, 0, len(order))
	for _, id := range order {
		cards = append(cards, *byUser[id])
	}

	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].ConfidenceScore > cards[j].ConfidenceScore
	})

	return cards
}

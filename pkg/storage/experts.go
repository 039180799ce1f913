package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/truffle/expertise-miner/pkg/model"
)

// defaults per spec for the ranked expert query.
const (
	defaultTimeDecayFactor = 0.95
)

// ExpertQuery parameterizes SearchExperts.
type ExpertQuery struct {
	SkillKeys        []string
	MinConfidence    float64
	MinEvidenceCount int
	WindowDays       int
	IncludeNegative  bool
	ExcludeNeutral   bool
	TimeDecayFactor  float64 // 0 means use the default, 0.95
	SortBy           model.SortBy
	Limit            int
	Offset           int
}

// ExpertResult is one ranked row from SearchExperts.
type ExpertResult struct {
	UserExternalID  string
	DisplayName     string
	SkillKey        string
	ExpertiseScore  float64
	ConfidenceLevel string
	EvidenceCount   int
	PositiveCount   int
	NegativeCount   int
	NeutralCount    int
	LastActivity    *time.Time
}

// SearchExperts ranks (user, skill) pairs by time-decayed expertise score,
// implementing the shared query behind the Expert API's search endpoint.
func (s *Store) SearchExperts(ctx context.Context, q ExpertQuery) ([]ExpertResult, error) {
	if len(q.SkillKeys) == 0 {
		return nil, fmt.Errorf("storage: search experts: skill_keys must be non-empty")
	}

	decay := q.TimeDecayFactor
	if decay == 0 {
		decay = defaultTimeDecayFactor
	}

	labelFilter := `label = 'positive_expertise'`
	if q.IncludeNegative {
		labelFilter += ` OR label = 'negative_expertise'`
	}
	if !q.ExcludeNeutral {
		labelFilter += ` OR label = 'neutral'`
	}

	orderBy := expertOrderClause(q.SortBy)

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		WITH matched AS (
			SELECT
				e.user_id,
				e.skill_id,
				e.label,
				e.confidence,
				e.evidence_date,
				CASE e.label
					WHEN 'positive_expertise' THEN e.confidence * power($1::float8, (CURRENT_DATE - e.evidence_date))
					WHEN 'negative_expertise' THEN -0.5 * e.confidence * power($1::float8, (CURRENT_DATE - e.evidence_date))
					ELSE 0
				END AS weighted_contribution
			FROM expertise_evidence e
			JOIN skills sk ON sk.skill_id = e.skill_id
			WHERE sk.skill_key = ANY($2)
			  AND e.evidence_date >= (CURRENT_DATE - ($3 * INTERVAL '1 day'))
			  AND (%s)
		)
		SELECT
			u.external_id,
			u.display_name,
			sk.skill_key,
			avg(m.weighted_contribution) AS expertise_score,
			count(*) AS evidence_count,
			count(*) FILTER (WHERE m.label = 'positive_expertise') AS positive_count,
			count(*) FILTER (WHERE m.label = 'negative_expertise') AS negative_count,
			count(*) FILTER (WHERE m.label = 'neutral') AS neutral_count,
			max(m.evidence_date) AS last_activity
		FROM matched m
		JOIN users u ON u.user_id = m.user_id
		JOIN skills sk ON sk.skill_id = m.skill_id
		GROUP BY u.external_id, u.display_name, sk.skill_key
		HAVING count(*) >= $4 AND avg(m.weighted_contribution) >= $5
		ORDER BY %s
		LIMIT $6 OFFSET $7
	`, labelFilter, orderBy)

	rows, err := s.db.QueryContext(ctx, query,
		decay, q.SkillKeys, q.WindowDays, q.MinEvidenceCount, q.MinConfidence, limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("storage: search experts: %w", err)
	}
	defer rows.Close()

	var results []ExpertResult
	for rows.Next() {
		var r ExpertResult
		if err := rows.Scan(&r.UserExternalID, &r.DisplayName, &r.SkillKey, &r.ExpertiseScore,
			&r.EvidenceCount, &r.PositiveCount, &r.NegativeCount, &r.NeutralCount, &r.LastActivity); err != nil {
			return nil, fmt.Errorf("storage: search experts scan: %w", err)
		}
		r.ConfidenceLevel = model.ConfidenceLevel(r.ExpertiseScore)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: search experts rows: %w", err)
	}

	return results, nil
}

func expertOrderClause(sortBy model.SortBy) string {
	switch sortBy {
	case model.SortByRecent:
		return "last_activity DESC NULLS LAST"
	case model.SortByEvidenceCount:
		return "evidence_count DESC"
	case model.SortByAlphabetical:
		return "u.display_name ASC"
	default:
		return "expertise_score DESC"
	}
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/truffle/expertise-miner/pkg/model"
)

const (
	scoreLookbackDays  = 180
	scoreEmitThreshold = 0.1
	incrementalAlpha   = 0.1
	negativeWeight     = 0.5
)

// contributionExpr is the SQL CASE expression computing a single evidence
// row's contribution to a user/skill score: +confidence for positive
// expertise, -negativeWeight*confidence for negative, 0 for neutral.
const contributionExpr = `
	CASE label
		WHEN 'positive_expertise' THEN confidence
		WHEN 'negative_expertise' THEN -0.5 * confidence
		ELSE 0
	END
`

// RebuildAllScores truncates user_skill_scores and recomputes it from
// expertise_evidence within the last 180 days, emitting only rows whose
// average contribution exceeds 0.1.
func (s *Store) RebuildAllScores(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: rebuild scores begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE user_skill_scores`); err != nil {
		return fmt.Errorf("storage: truncate scores: %w", err)
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO user_skill_scores (user_id, skill_id, score, evidence_count, last_evidence_date)
		SELECT user_id, skill_id, avg(contribution) AS score, count(*) AS evidence_count, max(evidence_date) AS last_evidence_date
		FROM (
			SELECT user_id, skill_id, evidence_date, (%s) AS contribution
			FROM expertise_evidence
			WHERE evidence_date >= (CURRENT_DATE - INTERVAL '%d days')
		) contributions
		GROUP BY user_id, skill_id
		HAVING avg(contribution) > %f
	`, contributionExpr, scoreLookbackDays, scoreEmitThreshold))
	if err != nil {
		return fmt.Errorf("storage: rebuild scores insert: %w", err)
	}

	return tx.Commit()
}

// contribution computes a single evaluation's signed contribution to a
// user/skill score.
func contribution(label model.Label, confidence float64) float64 {
	switch label {
	case model.LabelPositive:
		return confidence
	case model.LabelNegative:
		return -negativeWeight * confidence
	default:
		return 0
	}
}

// UpdateIncrementalScore applies an exponential moving average update to a
// single user/skill score row. The per-message pipeline does not call it;
// ingested evidence reaches the scores table through RebuildAllScores.
func (s *Store) UpdateIncrementalScore(ctx context.Context, userExternalID, skillKey string, label model.Label, confidence float64, date time.Time) error {
	userID, err := userIDByExternal(ctx, s.db, userExternalID)
	if err != nil {
		return fmt.Errorf("storage: incremental update lookup user: %w", err)
	}
	if userID == 0 {
		return nil
	}

	skillID, err := skillIDByKey(ctx, s.db, skillKey)
	if err != nil {
		return fmt.Errorf("storage: incremental update lookup skill: %w", err)
	}
	if skillID == 0 {
		return nil
	}

	v := contribution(label, confidence)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: incremental update begin: %w", err)
	}
	defer tx.Rollback()

	var existingScore float64
	var existingDate time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT score, last_evidence_date FROM user_skill_scores
		WHERE user_id = $1 AND skill_id = $2
		FOR UPDATE
	`, userID, skillID).Scan(&existingScore, &existingDate)

	switch {
	case err == errNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO user_skill_scores (user_id, skill_id, score, evidence_count, last_evidence_date)
			VALUES ($1, $2, $3, 1, $4)
		`, userID, skillID, v, date)
		if err != nil {
			return fmt.Errorf("storage: incremental update insert: %w", err)
		}
	case err != nil:
		return fmt.Errorf("storage: incremental update lookup score: %w", err)
	default:
		newScore := (1-incrementalAlpha)*existingScore + incrementalAlpha*v
		lastDate := existingDate
		if date.After(lastDate) {
			lastDate = date
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE user_skill_scores
			SET score = $1, evidence_count = evidence_count + 1, last_evidence_date = $2
			WHERE user_id = $3 AND skill_id = $4
		`, newScore, lastDate, userID, skillID)
		if err != nil {
			return fmt.Errorf("storage: incremental update exec: %w", err)
		}
	}

	return tx.Commit()
}

// AggregationStats summarizes the current relationship between raw evidence
// volume and the derived scores table.
type AggregationStats struct {
	TotalEvidence    int64   `json:"total_evidence"`
	TotalScores      int64   `json:"total_scores"`
	UsersWithScores  int64   `json:"users_with_scores"`
	AggregationRatio float64 `json:"aggregation_ratio"`
}

// AggregationStats reports evidence/score row counts for observability.
func (s *Store) AggregationStats(ctx context.Context) (AggregationStats, error) {
	var stats AggregationStats

	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM expertise_evidence`).Scan(&stats.TotalEvidence); err != nil {
		return stats, fmt.Errorf("storage: count evidence: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM user_skill_scores`).Scan(&stats.TotalScores); err != nil {
		return stats, fmt.Errorf("storage: count scores: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT count(DISTINCT user_id) FROM user_skill_scores`).Scan(&stats.UsersWithScores); err != nil {
		return stats, fmt.Errorf("storage: count distinct score users: %w", err)
	}

	if stats.TotalEvidence > 0 {
		stats.AggregationRatio = float64(stats.TotalScores) / float64(stats.TotalEvidence)
	}

	return stats, nil
}

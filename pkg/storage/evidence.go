package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/truffle/expertise-miner/pkg/model"
)

// StoreEvidence inserts one evidence row per evaluation for userExternalID,
// dated evidenceDate. messageHash, when non-empty, is the dedup key: a row
// already present for (user, skill, message_hash) is skipped rather than
// duplicated. Evaluations against a skill key or user that doesn't exist
// are silently skipped.
func (s *Store) StoreEvidence(ctx context.Context, userExternalID string, evaluations []model.Evaluation, evidenceDate time.Time, messageHash string) error {
	if len(evaluations) == 0 {
		return nil
	}

	userID, err := userIDByExternal(ctx, s.db, userExternalID)
	if err != nil {
		return fmt.Errorf("storage: store evidence lookup user: %w", err)
	}
	if userID == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: store evidence begin: %w", err)
	}
	defer tx.Rollback()

	var hash sql.NullString
	if messageHash != "" {
		hash = sql.NullString{String: messageHash, Valid: true}
	}

	for _, ev := range evaluations {
		skillID, err := skillIDByKey(ctx, tx, ev.SkillKey)
		if err != nil {
			return fmt.Errorf("storage: store evidence lookup skill %q: %w", ev.SkillKey, err)
		}
		if skillID == 0 {
			continue
		}

		if hash.Valid {
			var exists bool
			err := tx.QueryRowContext(ctx, `
				SELECT EXISTS(
					SELECT 1 FROM expertise_evidence
					WHERE user_id = $1 AND skill_id = $2 AND message_hash = $3
				)
			`, userID, skillID, hash.String).Scan(&exists)
			if err != nil {
				return fmt.Errorf("storage: store evidence dedup check: %w", err)
			}
			if exists {
				continue
			}
		}

		clamped := ev.Clamp()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO expertise_evidence (user_id, skill_id, label, confidence, evidence_date, message_hash)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, userID, skillID, string(clamped.Label), clamped.Confidence, evidenceDate, hash)
		if err != nil {
			return fmt.Errorf("storage: store evidence insert: %w", err)
		}
	}

	return tx.Commit()
}

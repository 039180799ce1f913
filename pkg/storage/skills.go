package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/truffle/expertise-miner/pkg/taxonomy"
)

// UpsertSkills inserts or updates the taxonomy's skills, idempotent on
// skill_key. Aliases are serialized as a JSON text column.
func (s *Store) UpsertSkills(ctx context.Context, skills []taxonomy.Skill) error {
	if len(skills) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: upsert skills begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO skills (skill_key, name, domain, aliases)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (skill_key) DO UPDATE
		SET name = EXCLUDED.name,
		    domain = EXCLUDED.domain,
		    aliases = EXCLUDED.aliases,
		    updated_at = now()
	`)
	if err != nil {
		return fmt.Errorf("storage: upsert skills prepare: %w", err)
	}
	defer stmt.Close()

	for _, sk := range skills {
		aliasJSON, err := json.Marshal(sk.Aliases)
		if err != nil {
			return fmt.Errorf("storage: marshal aliases for %q: %w", sk.Key, err)
		}
		if _, err := stmt.ExecContext(ctx, sk.Key, sk.Name, sk.Domain, string(aliasJSON)); err != nil {
			return fmt.Errorf("storage: upsert skill %q: %w", sk.Key, err)
		}
	}

	return tx.Commit()
}

// IsDatabaseEmpty reports whether no evidence rows exist yet, used by the
// ingestion scheduler to pick the initial backfill window.
func (s *Store) IsDatabaseEmpty(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM expertise_evidence)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("storage: is database empty: %w", err)
	}
	return !exists, nil
}

// SkillSummary is one row of the /skills listing: a taxonomy entry plus how
// many users currently hold a score for it.
type SkillSummary struct {
	Key         string
	Name        string
	Domain      string
	Aliases     []string
	ExpertCount int
}

// ListSkills returns every skill in the taxonomy table along with the
// number of distinct users holding a current score for it.
func (s *Store) ListSkills(ctx context.Context) ([]SkillSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sk.skill_key, sk.name, sk.domain, sk.aliases,
		       count(DISTINCT uss.user_id) AS expert_count
		FROM skills sk
		LEFT JOIN user_skill_scores uss ON uss.skill_id = sk.skill_id
		GROUP BY sk.skill_id, sk.skill_key, sk.name, sk.domain, sk.aliases
		ORDER BY sk.domain, sk.name
	`)
	if err != nil {
		return nil, fmt.Errorf("storage: list skills: %w", err)
	}
	defer rows.Close()

	var out []SkillSummary
	for rows.Next() {
		var sum SkillSummary
		var aliasJSON string
		if err := rows.Scan(&sum.Key, &sum.Name, &sum.Domain, &aliasJSON, &sum.ExpertCount); err != nil {
			return nil, fmt.Errorf("storage: list skills scan: %w", err)
		}
		if aliasJSON != "" {
			if err := json.Unmarshal([]byte(aliasJSON), &sum.Aliases); err != nil {
				return nil, fmt.Errorf("storage: list skills unmarshal aliases for %q: %w", sum.Key, err)
			}
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list skills rows: %w", err)
	}
	return out, nil
}

func skillIDByKey(ctx context.Context, q querier, key string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT skill_id FROM skills WHERE skill_key = $1`, key).Scan(&id)
	if err == errNoRows {
		return 0, nil
	}
	return id, err
}

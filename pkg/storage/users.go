package storage

import (
	"context"
	"fmt"
)

// UserUpsert is one entry in an UpsertUsers call.
type UserUpsert struct {
	ExternalID  string
	DisplayName string
	Timezone    string
}

// UpsertUsers inserts or updates display_name/timezone per external_id.
// Existing rows are never deleted.
func (s *Store) UpsertUsers(ctx context.Context, users []UserUpsert) error {
	if len(users) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: upsert users begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO users (external_id, display_name, timezone)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    timezone = EXCLUDED.timezone,
		    updated_at = now()
	`)
	if err != nil {
		return fmt.Errorf("storage: upsert users prepare: %w", err)
	}
	defer stmt.Close()

	for _, u := range users {
		if _, err := stmt.ExecContext(ctx, u.ExternalID, u.DisplayName, u.Timezone); err != nil {
			return fmt.Errorf("storage: upsert user %q: %w", u.ExternalID, err)
		}
	}

	return tx.Commit()
}

// userIDByExternal resolves an external_id to its internal user_id. It
// returns 0, nil if no matching user exists.
func userIDByExternal(ctx context.Context, q querier, externalID string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT user_id FROM users WHERE external_id = $1`, externalID).Scan(&id)
	if err == errNoRows {
		return 0, nil
	}
	return id, err
}

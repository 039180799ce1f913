package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truffle/expertise-miner/pkg/model"
	"github.com/truffle/expertise-miner/pkg/storage"
	"github.com/truffle/expertise-miner/pkg/taxonomy"
	storagetest "github.com/truffle/expertise-miner/test/storage"
)

func seedUserAndSkill(t *testing.T, ctx context.Context, s *storage.Store) {
	t.Helper()
	require.NoError(t, s.UpsertUsers(ctx, []storage.UserUpsert{
		{ExternalID: "U1", DisplayName: "Ada Lovelace", Timezone: "UTC"},
	}))
	require.NoError(t, s.UpsertSkills(ctx, []taxonomy.Skill{
		{Key: "python", Name: "Python", Domain: "programming", Aliases: []string{"py"}},
	}))
}

func TestUpsertUsers_InsertThenUpdateNeverDeletes(t *testing.T) {
	s := storagetest.NewTestStore(t)
	storagetest.Reset(t, s)
	ctx := context.Background()

	require.NoError(t, s.UpsertUsers(ctx, []storage.UserUpsert{
		{ExternalID: "U1", DisplayName: "Old Name", Timezone: "UTC"},
	}))
	require.NoError(t, s.UpsertUsers(ctx, []storage.UserUpsert{
		{ExternalID: "U1", DisplayName: "New Name", Timezone: "America/New_York"},
	}))

	var name, tz string
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT display_name, timezone FROM users WHERE external_id = 'U1'`).Scan(&name, &tz))
	assert.Equal(t, "New Name", name)
	assert.Equal(t, "America/New_York", tz)

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestIsDatabaseEmpty(t *testing.T) {
	s := storagetest.NewTestStore(t)
	storagetest.Reset(t, s)
	ctx := context.Background()

	empty, err := s.IsDatabaseEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	seedUserAndSkill(t, ctx, s)
	require.NoError(t, s.StoreEvidence(ctx, "U1", []model.Evaluation{
		{SkillKey: "python", Label: model.LabelPositive, Confidence: 0.9},
	}, time.Now(), "hash1"))

	empty, err = s.IsDatabaseEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestStoreEvidence_DedupByMessageHash(t *testing.T) {
	s := storagetest.NewTestStore(t)
	storagetest.Reset(t, s)
	ctx := context.Background()
	seedUserAndSkill(t, ctx, s)

	evals := []model.Evaluation{{SkillKey: "python", Label: model.LabelPositive, Confidence: 0.8}}
	require.NoError(t, s.StoreEvidence(ctx, "U1", evals, time.Now(), "dup-hash"))
	require.NoError(t, s.StoreEvidence(ctx, "U1", evals, time.Now(), "dup-hash"))

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT count(*) FROM expertise_evidence`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestStoreEvidence_NoMessageHashAllowsMultiple(t *testing.T) {
	s := storagetest.NewTestStore(t)
	storagetest.Reset(t, s)
	ctx := context.Background()
	seedUserAndSkill(t, ctx, s)

	evals := []model.Evaluation{{SkillKey: "python", Label: model.LabelPositive, Confidence: 0.8}}
	require.NoError(t, s.StoreEvidence(ctx, "U1", evals, time.Now(), ""))
	require.NoError(t, s.StoreEvidence(ctx, "U1", evals, time.Now(), ""))

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT count(*) FROM expertise_evidence`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestStoreEvidence_SkipsMissingUserAndSkill(t *testing.T) {
	s := storagetest.NewTestStore(t)
	storagetest.Reset(t, s)
	ctx := context.Background()
	seedUserAndSkill(t, ctx, s)

	err := s.StoreEvidence(ctx, "UNKNOWN", []model.Evaluation{
		{SkillKey: "python", Label: model.LabelPositive, Confidence: 0.5},
	}, time.Now(), "")
	require.NoError(t, err)

	err = s.StoreEvidence(ctx, "U1", []model.Evaluation{
		{SkillKey: "does-not-exist", Label: model.LabelPositive, Confidence: 0.5},
	}, time.Now(), "")
	require.NoError(t, err)

	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT count(*) FROM expertise_evidence`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestRebuildAllScores_ThresholdAndIdempotence(t *testing.T) {
	s := storagetest.NewTestStore(t)
	storagetest.Reset(t, s)
	ctx := context.Background()
	seedUserAndSkill(t, ctx, s)

	require.NoError(t, s.StoreEvidence(ctx, "U1", []model.Evaluation{
		{SkillKey: "python", Label: model.LabelPositive, Confidence: 0.9},
	}, time.Now(), "h1"))
	require.NoError(t, s.StoreEvidence(ctx, "U1", []model.Evaluation{
		{SkillKey: "python", Label: model.LabelPositive, Confidence: 0.8},
	}, time.Now(), "h2"))

	require.NoError(t, s.RebuildAllScores(ctx))

	var score float64
	var evidenceCount int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT score, evidence_count FROM user_skill_scores`).Scan(&score, &evidenceCount))
	assert.InDelta(t, 0.85, score, 0.001)
	assert.Equal(t, 2, evidenceCount)

	// Idempotence: rebuilding again with no new evidence yields the same row.
	require.NoError(t, s.RebuildAllScores(ctx))
	var score2 float64
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT score FROM user_skill_scores`).Scan(&score2))
	assert.Equal(t, score, score2)
}

func TestUpdateIncrementalScore_InsertThenEMA(t *testing.T) {
	s := storagetest.NewTestStore(t)
	storagetest.Reset(t, s)
	ctx := context.Background()
	seedUserAndSkill(t, ctx, s)

	today := time.Now().Truncate(24 * time.Hour)
	require.NoError(t, s.UpdateIncrementalScore(ctx, "U1", "python", model.LabelPositive, 1.0, today))

	var score float64
	var count int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT score, evidence_count FROM user_skill_scores`).Scan(&score, &count))
	assert.Equal(t, 1.0, score)
	assert.Equal(t, 1, count)

	require.NoError(t, s.UpdateIncrementalScore(ctx, "U1", "python", model.LabelPositive, 0.0, today))
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT score, evidence_count FROM user_skill_scores`).Scan(&score, &count))
	assert.InDelta(t, 0.9, score, 0.001) // (1-0.1)*1.0 + 0.1*0
	assert.Equal(t, 2, count)
}

func TestSearchExperts_FiltersAndRanks(t *testing.T) {
	s := storagetest.NewTestStore(t)
	storagetest.Reset(t, s)
	ctx := context.Background()

	require.NoError(t, s.UpsertUsers(ctx, []storage.UserUpsert{
		{ExternalID: "U1", DisplayName: "Ada"},
		{ExternalID: "U2", DisplayName: "Bob"},
	}))
	require.NoError(t, s.UpsertSkills(ctx, []taxonomy.Skill{
		{Key: "python", Name: "Python", Domain: "programming"},
	}))

	require.NoError(t, s.StoreEvidence(ctx, "U1", []model.Evaluation{
		{SkillKey: "python", Label: model.LabelPositive, Confidence: 0.9},
	}, time.Now(), "a"))
	require.NoError(t, s.StoreEvidence(ctx, "U2", []model.Evaluation{
		{SkillKey: "python", Label: model.LabelNegative, Confidence: 0.9},
	}, time.Now(), "b"))

	// Without include_negative, U2 should not surface (no matching rows at all).
	results, err := s.SearchExperts(ctx, storage.ExpertQuery{
		SkillKeys:        []string{"python"},
		WindowDays:       30,
		MinEvidenceCount: 1,
		MinConfidence:    -10,
		SortBy:           model.SortByScore,
		Limit:            10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "U1", results[0].UserExternalID)

	// With include_negative, both surface; negative contributes a lower score.
	results, err = s.SearchExperts(ctx, storage.ExpertQuery{
		SkillKeys:        []string{"python"},
		WindowDays:       30,
		MinEvidenceCount: 1,
		MinConfidence:    -10,
		IncludeNegative:  true,
		SortBy:           model.SortByScore,
		Limit:            10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "U1", results[0].UserExternalID) // higher score first
}

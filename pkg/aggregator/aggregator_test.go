package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truffle/expertise-miner/pkg/model"
	"github.com/truffle/expertise-miner/pkg/storage"
)

type fakeStorage struct {
	rebuildCalls int
	rebuildErr   error

	incrementalCalls []incrementalCall
	incrementalErr   error

	stats    storage.AggregationStats
	statsErr error
}

type incrementalCall struct {
	userExternalID string
	skillKey       string
	label          model.Label
	confidence     float64
	date           time.Time
}

func (f *fakeStorage) RebuildAllScores(context.Context) error {
	f.rebuildCalls++
	return f.rebuildErr
}

func (f *fakeStorage) UpdateIncrementalScore(_ context.Context, userExternalID, skillKey string, label model.Label, confidence float64, date time.Time) error {
	f.incrementalCalls = append(f.incrementalCalls, incrementalCall{userExternalID, skillKey, label, confidence, date})
	return f.incrementalErr
}

func (f *fakeStorage) AggregationStats(context.Context) (storage.AggregationStats, error) {
	return f.stats, f.statsErr
}

func TestRebuildAll_DelegatesToStorage(t *testing.T) {
	store := &fakeStorage{}
	a := New(store)

	require.NoError(t, a.RebuildAll(context.Background()))
	assert.Equal(t, 1, store.rebuildCalls)
}

func TestRebuildAll_Idempotent(t *testing.T) {
	// Two consecutive rebuilds with no new evidence between them must be
	// indistinguishable from the caller's perspective: same call, same
	// (lack of) error, no accumulation of state in the aggregator itself.
	store := &fakeStorage{}
	a := New(store)

	require.NoError(t, a.RebuildAll(context.Background()))
	require.NoError(t, a.RebuildAll(context.Background()))
	assert.Equal(t, 2, store.rebuildCalls)
}

func TestRebuildAll_PropagatesStorageError(t *testing.T) {
	store := &fakeStorage{rebuildErr: assert.AnError}
	a := New(store)

	err := a.RebuildAll(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestUpdateIncremental_DelegatesWithArgs(t *testing.T) {
	store := &fakeStorage{}
	a := New(store)
	date := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	err := a.UpdateIncremental(context.Background(), "U1", "python", model.LabelPositive, 0.8, date)
	require.NoError(t, err)

	require.Len(t, store.incrementalCalls, 1)
	call := store.incrementalCalls[0]
	assert.Equal(t, "U1", call.userExternalID)
	assert.Equal(t, "python", call.skillKey)
	assert.Equal(t, model.LabelPositive, call.label)
	assert.Equal(t, 0.8, call.confidence)
	assert.Equal(t, date, call.date)
}

func TestStats_DelegatesToStorage(t *testing.T) {
	want := storage.AggregationStats{TotalEvidence: 10, TotalScores: 4, UsersWithScores: 3, AggregationRatio: 0.4}
	store := &fakeStorage{stats: want}
	a := New(store)

	got, err := a.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// Package aggregator orchestrates score rebuilds and incremental updates
// over the storage layer's evidence and score tables.
package aggregator

import (
	"context"
	"log/slog"
	"time"

	"github.com/truffle/expertise-miner/pkg/model"
	"github.com/truffle/expertise-miner/pkg/storage"
)

// Storage is the subset of pkg/storage's Store the aggregator depends on.
type Storage interface {
	RebuildAllScores(ctx context.Context) error
	UpdateIncrementalScore(ctx context.Context, userExternalID, skillKey string, label model.Label, confidence float64, date time.Time) error
	AggregationStats(ctx context.Context) (storage.AggregationStats, error)
}

// Aggregator recomputes user_skill_scores from expertise_evidence.
type Aggregator struct {
	store  Storage
	logger *slog.Logger
}

// New builds an Aggregator over store.
func New(store Storage) *Aggregator {
	return &Aggregator{store: store, logger: slog.Default().With("component", "aggregator")}
}

// RebuildAll truncates and recomputes user_skill_scores from the last 180
// days of evidence.
func (a *Aggregator) RebuildAll(ctx context.Context) error {
	a.logger.Info("rebuilding all scores")
	if err := a.store.RebuildAllScores(ctx); err != nil {
		return err
	}
	a.logger.Info("rebuilt all scores")
	return nil
}

// UpdateIncremental applies an EMA update to a single user/skill score.
// The pipeline does not call it: persisting evidence leaves
// user_skill_scores unchanged until the next RebuildAll.
func (a *Aggregator) UpdateIncremental(ctx context.Context, userExternalID, skillKey string, label model.Label, confidence float64, date time.Time) error {
	return a.store.UpdateIncrementalScore(ctx, userExternalID, skillKey, label, confidence, date)
}

// Stats reports the current evidence/score row-count relationship, exposed
// via the ops API's /scores/stats endpoint.
func (a *Aggregator) Stats(ctx context.Context) (storage.AggregationStats, error) {
	return a.store.AggregationStats(ctx)
}

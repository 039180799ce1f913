// Package opsapi implements the operational HTTP API: queue, worker and
// score introspection plus the write endpoints that trigger re-ingestion
// and database resets. Every write endpoint except POST /queue/clear
// dispatches its work on a background goroutine and answers 202 Accepted
// immediately; the caller polls the read endpoints for progress. POST
// /queue/clear clears completed tasks synchronously and answers 200 with
// the cleared count.
package opsapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/truffle/expertise-miner/pkg/model"
	"github.com/truffle/expertise-miner/pkg/queue"
	"github.com/truffle/expertise-miner/pkg/storage"
	"github.com/truffle/expertise-miner/pkg/taxonomy"
	"github.com/truffle/expertise-miner/pkg/worker"
)

// Queue is the subset of pkg/queue's Queue the operational API depends on.
type Queue interface {
	GetStats() queue.Stats
	ClearCompleted() int
}

// WorkerPool is the subset of pkg/worker's Pool the operational API depends on.
type WorkerPool interface {
	Health() worker.PoolHealth
}

// Aggregator is the subset of pkg/aggregator's Aggregator the operational
// API depends on.
type Aggregator interface {
	RebuildAll(ctx context.Context) error
	Stats(ctx context.Context) (storage.AggregationStats, error)
}

// Scheduler is the subset of pkg/scheduler's Scheduler the operational API
// depends on.
type Scheduler interface {
	RunOnce(ctx context.Context) error
	ImportChannel(ctx context.Context, channel model.Channel) error
}

// Storage is the subset of pkg/storage's Store the operational API depends on.
type Storage interface {
	Reset(ctx context.Context) error
	UpsertSkills(ctx context.Context, skills []taxonomy.Skill) error
}

// TaxonomyLoader loads the skill catalog from disk, e.g. taxonomy.LoadDir.
type TaxonomyLoader func() (*taxonomy.Taxonomy, error)

// Server wires the operational API's routes over the narrow interfaces above.
type Server struct {
	engine  *gin.Engine
	queue   Queue
	workers WorkerPool
	agg     Aggregator
	sched   Scheduler
	store   Storage
	loadTax TaxonomyLoader
	logger  *slog.Logger
}

// New builds a Server with all routes registered.
func New(q Queue, workers WorkerPool, agg Aggregator, sched Scheduler, store Storage, loadTax TaxonomyLoader) *Server {
	s := &Server{
		engine:  gin.Default(),
		queue:   q,
		workers: workers,
		agg:     agg,
		sched:   sched,
		store:   store,
		loadTax: loadTax,
		logger:  slog.Default().With("component", "ops-api"),
	}
	s.routes()
	return s
}

// Engine exposes the underlying router, e.g. for http.Server wiring or tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/queue/stats", s.handleQueueStats)
	s.engine.POST("/queue/clear", s.handleQueueClear)
	s.engine.GET("/workers/stats", s.handleWorkerStats)
	s.engine.GET("/scores/stats", s.handleScoresStats)
	s.engine.POST("/database/reset", s.handleDatabaseReset)
	s.engine.POST("/database/reset-and-reimport", s.handleDatabaseResetAndReimport)
	s.engine.POST("/slack/reimport", s.handleSlackReimport)
	s.engine.POST("/import/channel", s.handleImportChannel)
}

func (s *Server) handleQueueStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.queue.GetStats())
}

func (s *Server) handleQueueClear(c *gin.Context) {
	cleared := s.queue.ClearCompleted()
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

func (s *Server) handleWorkerStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.workers.Health())
}

func (s *Server) handleScoresStats(c *gin.Context) {
	stats, err := s.agg.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

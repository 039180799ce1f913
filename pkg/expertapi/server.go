// Package expertapi implements the read-only HTTP API that answers ranked
// expert queries and lists the skill taxonomy.
package expertapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/truffle/expertise-miner/pkg/storage"
)

// Storage is the subset of pkg/storage's Store the Expert API depends on.
type Storage interface {
	SearchExperts(ctx context.Context, q storage.ExpertQuery) ([]storage.ExpertResult, error)
	ListSkills(ctx context.Context) ([]storage.SkillSummary, error)
	Health(ctx context.Context) (*storage.HealthStatus, error)
}

// Server wires the Expert API's routes over a Storage implementation.
type Server struct {
	engine *gin.Engine
	store  Storage
	logger *slog.Logger
}

// New builds a Server with all routes registered.
func New(store Storage) *Server {
	s := &Server{
		engine: gin.Default(),
		store:  store,
		logger: slog.Default().With("component", "expert-api"),
	}
	s.routes()
	return s
}

// Engine exposes the underlying router, e.g. for http.Server wiring or tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) routes() {
	s.engine.POST("/experts/search", s.handleSearch)
	s.engine.GET("/skills", s.handleListSkills)
	s.engine.GET("/health", s.handleHealth)
}

func (s *Server) handleHealth(c *gin.Context) {
	health, err := s.store.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": health,
			"error":    err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": health,
	})
}

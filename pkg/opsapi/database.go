package opsapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/truffle/expertise-miner/pkg/model"
)

// backgroundTimeout bounds a dispatched background job so a stuck ingest or
// reset can't run forever after its originating HTTP request has returned.
const backgroundTimeout = 6 * time.Hour

// handleDatabaseReset truncates all domain tables, optionally reimporting
// the skill taxonomy from disk, in the background. Grounded on the
// original's reset_db.py, which always recreates the schema and only
// conditionally reimports skills.
func (s *Server) handleDatabaseReset(c *gin.Context) {
	importSkills := c.Query("import_skills") == "true"

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		if err := s.store.Reset(ctx); err != nil {
			s.logger.Error("database reset failed", "error", err)
			return
		}
		if importSkills {
			s.importSkills(ctx)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "import_skills": importSkills})
}

// handleDatabaseResetAndReimport resets the database, reimports the skill
// taxonomy, and re-runs a full ingestion pass, all in the background.
func (s *Server) handleDatabaseResetAndReimport(c *gin.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		if err := s.store.Reset(ctx); err != nil {
			s.logger.Error("database reset failed", "error", err)
			return
		}
		s.importSkills(ctx)

		if err := s.sched.RunOnce(ctx); err != nil {
			s.logger.Error("reimport after reset failed", "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// handleSlackReimport re-runs a full ingestion pass over every channel
// without touching existing data.
func (s *Server) handleSlackReimport(c *gin.Context) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		if err := s.sched.RunOnce(ctx); err != nil {
			s.logger.Error("slack reimport failed", "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type importChannelRequest struct {
	ChannelID   string `json:"channel_id" binding:"required"`
	ChannelName string `json:"channel_name"`
}

// handleImportChannel imports a single channel's recent history on demand,
// e.g. just after the bot is invited to a new channel.
func (s *Server) handleImportChannel(c *gin.Context) {
	var req importChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel := model.Channel{ID: req.ChannelID, Name: req.ChannelName}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()

		if err := s.sched.ImportChannel(ctx, channel); err != nil {
			s.logger.Error("channel import failed", "channel", req.ChannelID, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "channel_id": req.ChannelID})
}

func (s *Server) importSkills(ctx context.Context) {
	tax, err := s.loadTax()
	if err != nil {
		s.logger.Error("skill taxonomy load failed", "error", err)
		return
	}
	if err := s.store.UpsertSkills(ctx, tax.Skills); err != nil {
		s.logger.Error("skill taxonomy import failed", "error", err)
	}
}

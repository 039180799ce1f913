// Package botapi implements the Bot's chat-event webhook: it acknowledges
// Slack events immediately, then off the request path parses natural
// language questions, searches for matching experts, and replies.
package botapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/truffle/expertise-miner/pkg/model"
	"github.com/truffle/expertise-miner/pkg/storage"
	"github.com/truffle/expertise-miner/pkg/version"
)

// ExpertSearcher is the subset of pkg/storage's Store the bot depends on
// to answer a parsed question.
type ExpertSearcher interface {
	SearchExperts(ctx context.Context, q storage.ExpertQuery) ([]storage.ExpertResult, error)
}

// ChatPoster sends a reply back into the chat workspace, e.g. pkg/chat.Client.
type ChatPoster interface {
	PostMessage(ctx context.Context, channelID, text string) error
}

const (
	botSearchWindowDays    = 180
	botSearchMinConfidence = 0.1
	botSearchMinEvidence   = 1
	botSearchLimit         = 5
	eventHandlingTimeout   = 30 * time.Second
)

// Server wires the Bot's HTTP routes over its dependencies.
type Server struct {
	engine    *gin.Engine
	skills    *skillCache
	searcher  ExpertSearcher
	poster    ChatPoster
	botUserID string
	oauthURL  string
	logger    *slog.Logger

	eventsReceived atomic.Int64
	questionsAsked atomic.Int64
	repliesSent    atomic.Int64
}

// New builds a Server with all routes registered. botUserID is this
// integration's own Slack user ID (used to strip its mention from question
// text);
// oauthURL is the value GET /slack/oauth redirects users to.
func New(store SkillLister, searcher ExpertSearcher, poster ChatPoster, botUserID, oauthURL string) *Server {
	s := &Server{
		engine:    gin.Default(),
		skills:    newSkillCache(store),
		searcher:  searcher,
		poster:    poster,
		botUserID: botUserID,
		oauthURL:  oauthURL,
		logger:    slog.Default().With("component", "bot-api"),
	}
	s.routes()
	return s
}

// Engine exposes the underlying router, e.g. for http.Server wiring or tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) routes() {
	s.engine.POST("/slack/events", s.handleSlackEvents)
	s.engine.GET("/slack/oauth", s.handleOAuth)
	s.engine.GET("/debug/stats", s.handleDebugStats)
}

// handleSlackEvents acks immediately and, for a real event_callback,
// dispatches processing to a goroutine so Slack's multi-second ack budget
// is never at risk.
func (s *Server) handleSlackEvents(c *gin.Context) {
	var envelope slackEventEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if envelope.Type == "url_verification" {
		c.String(http.StatusOK, envelope.Challenge)
		return
	}

	s.eventsReceived.Add(1)

	if envelope.Type == "event_callback" && len(envelope.Event) > 0 {
		var msg slackMessageEvent
		if err := json.Unmarshal(envelope.Event, &msg); err == nil {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), eventHandlingTimeout)
				defer cancel()
				s.handleEvent(ctx, msg)
			}()
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleOAuth(c *gin.Context) {
	c.Redirect(http.StatusFound, s.oauthURL)
}

func (s *Server) handleDebugStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":         version.Full(),
		"events_received": s.eventsReceived.Load(),
		"questions_asked": s.questionsAsked.Load(),
		"replies_sent":    s.repliesSent.Load(),
	})
}

func (s *Server) search(ctx context.Context, skillKeys []string) ([]storage.ExpertResult, error) {
	s.questionsAsked.Add(1)
	results, err := s.searcher.SearchExperts(ctx, storage.ExpertQuery{
		SkillKeys:        skillKeys,
		MinConfidence:    botSearchMinConfidence,
		MinEvidenceCount: botSearchMinEvidence,
		WindowDays:       botSearchWindowDays,
		ExcludeNeutral:   true,
		SortBy:           model.SortByScore,
		Limit:            botSearchLimit,
	})
	if err == nil {
		s.repliesSent.Add(1)
	}
	return results, err
}

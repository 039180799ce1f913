package botapi

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// slackEventEnvelope is the outer Slack Events API payload: either a
// url_verification handshake or an event_callback wrapping the actual
// event. Mirrors original_source/slack_bot/models/slack_models.py's
// SlackEventContext, trimmed to the fields this bot actually reads.
type slackEventEnvelope struct {
	Type      string          `json:"type"`
	Challenge string          `json:"challenge"`
	TeamID    string          `json:"team_id"`
	Event     json.RawMessage `json:"event,omitempty"`
}

// slackMessageEvent is the nested event of an app_mention or message
// event_callback.
type slackMessageEvent struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	User        string `json:"user"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	ThreadTS    string `json:"thread_ts"`
	TS          string `json:"ts"`
	BotID       string `json:"bot_id"`
	SubType     string `json:"subtype"`
}

var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)>`)

// shouldProcess reports whether this event is a genuine user question the
// bot should answer: an app_mention, or a direct message, not from a bot,
// with no subtype (edits/joins etc. are ignored).
func (e slackMessageEvent) shouldProcess(botUserID string) bool {
	if e.BotID != "" || e.SubType != "" {
		return false
	}
	if e.Type == "app_mention" {
		return true
	}
	return e.Type == "message" && e.ChannelType == "im"
}

// cleanedText strips the bot's own mention token out of the message text,
// mirroring the source bot's cleaned_text field.
func (e slackMessageEvent) cleanedText(botUserID string) string {
	text := e.Text
	if botUserID != "" {
		text = strings.ReplaceAll(text, "<@"+botUserID+">", "")
	}
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// handleEvent processes one already-parsed event_callback's nested event:
// resolve a question, search for experts, and post the reply. Isolated
// from HTTP handling so it can run in the detached goroutine the handler
// dispatches it on.
func (s *Server) handleEvent(ctx context.Context, msg slackMessageEvent) {
	if !msg.shouldProcess(s.botUserID) {
		return
	}

	text := msg.cleanedText(s.botUserID)
	if text == "" {
		return
	}

	matcher, _, err := s.skills.matcherAndSkills(ctx)
	if err != nil {
		s.logger.Error("skill cache unavailable", "error", err)
		s.reply(ctx, msg, fallbackReply)
		return
	}

	query, ok := parseQuestion(text, matcher)
	if !ok {
		return
	}

	results, err := s.search(ctx, query.skillKeys)
	if err != nil {
		s.logger.Error("expert search failed", "error", err, "query_type", query.queryType)
		s.reply(ctx, msg, fallbackReply)
		return
	}

	s.reply(ctx, msg, formatExpertReply(query.skillKeys, results))
}

func (s *Server) reply(ctx context.Context, msg slackMessageEvent, text string) {
	target := msg.Channel
	if err := s.poster.PostMessage(ctx, target, text); err != nil {
		s.logger.Error("failed to post reply", "error", err, "channel", target)
	}
}

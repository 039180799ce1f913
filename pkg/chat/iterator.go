package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/truffle/expertise-miner/pkg/model"
)

// MessageIterator lazily streams a channel's recent top-level messages
// followed by each parent's thread replies, per spec: top-level messages
// in channel order (skipping subtyped and bot-mention messages), then, for
// each parent with replies, its thread replies in thread order (skipping
// the parent duplicate and bot-mention replies).
type MessageIterator struct {
	out  chan model.Message
	done chan struct{}
	err  error
}

// IterRecentMessages starts streaming channelID's messages from the last
// sinceHours. The caller must drain Next until it returns false.
func (c *Client) IterRecentMessages(ctx context.Context, channelID string, sinceHours int) *MessageIterator {
	it := &MessageIterator{
		out:  make(chan model.Message),
		done: make(chan struct{}),
	}
	go it.run(ctx, c, channelID, sinceHours)
	return it
}

// Next blocks until the next message is available, returning false when
// the stream is exhausted or ctx is cancelled. Check Err after Next
// returns false.
func (it *MessageIterator) Next(ctx context.Context) (model.Message, bool) {
	select {
	case m, ok := <-it.out:
		return m, ok
	case <-ctx.Done():
		return model.Message{}, false
	}
}

// Err returns the first error encountered while streaming, if any.
func (it *MessageIterator) Err() error {
	<-it.done
	return it.err
}

func (it *MessageIterator) run(ctx context.Context, c *Client, channelID string, sinceHours int) {
	defer close(it.out)
	defer close(it.done)

	botID, err := c.GetBotExternalID(ctx)
	if err != nil {
		it.err = err
		return
	}

	oldest := fmt.Sprintf("%.6f", float64(time.Now().Add(-time.Duration(sinceHours)*time.Hour).Unix()))
	cursor := ""

	for {
		var history *goslack.GetConversationHistoryResponse
		err := c.limiter.call(ctx, func() error {
			var innerErr error
			history, innerErr = c.api.GetConversationHistoryContext(ctx, &goslack.GetConversationHistoryParameters{
				ChannelID: channelID,
				Oldest:    oldest,
				Cursor:    cursor,
				Limit:     200,
			})
			return innerErr
		})
		if err != nil {
			it.err = fmt.Errorf("chat: conversations.history: %w", err)
			return
		}

		for i := len(history.Messages) - 1; i >= 0; i-- {
			msg := history.Messages[i]
			if msg.SubType != "" {
				continue
			}
			if mentionsBot(msg.Text, botID) {
				continue
			}

			top := toModelMessage(channelID, msg)
			if !it.emit(ctx, top) {
				return
			}

			if msg.ReplyCount > 0 {
				if !it.emitThread(ctx, c, channelID, msg.Timestamp, botID) {
					return
				}
			}
		}

		if !history.HasMore || history.ResponseMetaData == nil || history.ResponseMetaData.NextCursor == "" {
			return
		}
		cursor = history.ResponseMetaData.NextCursor
	}
}

func (it *MessageIterator) emitThread(ctx context.Context, c *Client, channelID, threadTS, botID string) bool {
	cursor := ""
	first := true

	for {
		var replies []goslack.Message
		var hasMore bool
		var nextCursor string

		err := c.limiter.call(ctx, func() error {
			var innerErr error
			replies, hasMore, nextCursor, innerErr = c.api.GetConversationRepliesContext(ctx, &goslack.GetConversationRepliesParameters{
				ChannelID: channelID,
				Timestamp: threadTS,
				Cursor:    cursor,
				Limit:     200,
			})
			return innerErr
		})
		if err != nil {
			it.err = fmt.Errorf("chat: conversations.replies: %w", err)
			return false
		}

		for _, reply := range replies {
			if first {
				first = false
				continue // parent duplicate, already emitted as the top-level message
			}
			if reply.SubType != "" {
				continue
			}
			if mentionsBot(reply.Text, botID) {
				continue
			}
			if !it.emit(ctx, toModelMessage(channelID, reply)) {
				return false
			}
		}

		if !hasMore || nextCursor == "" {
			return true
		}
		cursor = nextCursor
	}
}

func (it *MessageIterator) emit(ctx context.Context, m model.Message) bool {
	select {
	case it.out <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

func toModelMessage(channelID string, msg goslack.Message) model.Message {
	return model.Message{
		ChannelID:  channelID,
		TS:         msg.Timestamp,
		ThreadTS:   msg.ThreadTimestamp,
		AuthorID:   msg.User,
		Text:       msg.Text,
		Subtype:    msg.SubType,
		ReplyCount: msg.ReplyCount,
	}
}

func mentionsBot(text, botID string) bool {
	if botID == "" {
		return false
	}
	return strings.Contains(text, "<@"+botID+">")
}

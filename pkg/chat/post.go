package chat

import (
	"context"
	"fmt"

	goslack "github.com/slack-go/slack"
)

// PostMessage sends text to a channel (or, for a direct message, to a
// user's DM channel ID), rate-limited the same way every other chat call
// is. Used by the bot to reply with formatted expert suggestions.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	return c.limiter.call(ctx, func() error {
		_, _, err := c.api.PostMessageContext(ctx, channelID, goslack.MsgOptionText(text, false))
		if err != nil {
			return fmt.Errorf("chat: post message: %w", err)
		}
		return nil
	})
}

// Package chat provides rate-limited, paginated read access to a chat
// workspace's channels, users, and message history.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/truffle/expertise-miner/pkg/model"
)

// workspaceSystemUserID is Slack's pseudo-user representing the workspace
// itself (USLACKBOT); it is never a real expert candidate.
const workspaceSystemUserID = "USLACKBOT"

// Client wraps the Slack Web API with the rate-limiting and pagination
// contract the ingestor depends on.
type Client struct {
	api     *goslack.Client
	limiter *batchLimiter
	logger  *slog.Logger

	botIDOnce sync.Once
	botID     string
	botIDErr  error
}

// NewClient builds a chat client authenticated with token.
func NewClient(token string) *Client {
	return &Client{
		api:     goslack.New(token),
		limiter: newBatchLimiter(),
		logger:  slog.Default().With("component", "chat-client"),
	}
}

// NewClientWithAPIURL builds a chat client targeting a custom API URL,
// for tests against a mock server.
func NewClientWithAPIURL(token, apiURL string) *Client {
	return &Client{
		api:     goslack.New(token, goslack.OptionAPIURL(apiURL)),
		limiter: newBatchLimiter(),
		logger:  slog.Default().With("component", "chat-client"),
	}
}

// WithBatchConfig overrides the client's batch-window rate-limit knobs
// (batch_size/batch_wait_seconds, settable via the SLACK_BATCH_SIZE /
// SLACK_BATCH_WAIT_SECONDS environment variables) and returns the same
// client for chaining at construction time.
func (c *Client) WithBatchConfig(batchSize int, batchWait time.Duration) *Client {
	c.limiter.mu.Lock()
	defer c.limiter.mu.Unlock()
	if batchSize > 0 {
		c.limiter.batchSize = batchSize
	}
	if batchWait > 0 {
		c.limiter.batchWait = batchWait
	}
	return c
}

// ResetBatchCounter forces a fresh rate-limit batch window, intended to be
// called between logical operations such as per-channel polling.
func (c *Client) ResetBatchCounter() {
	c.limiter.reset()
}

// ListPublicChannels returns every public channel, optionally excluding
// archived ones, following cursor pagination until exhausted.
func (c *Client) ListPublicChannels(ctx context.Context, excludeArchived bool) ([]model.Channel, error) {
	var channels []model.Channel
	cursor := ""

	for {
		var page []goslack.Channel
		var nextCursor string

		err := c.limiter.call(ctx, func() error {
			params := &goslack.GetConversationsParameters{
				Types:           []string{"public_channel"},
				ExcludeArchived: excludeArchived,
				Limit:           200,
				Cursor:          cursor,
			}
			var innerErr error
			page, nextCursor, innerErr = c.api.GetConversationsContext(ctx, params)
			return innerErr
		})
		if err != nil {
			return nil, fmt.Errorf("chat: list channels: %w", err)
		}

		for _, ch := range page {
			channels = append(channels, model.Channel{
				ID:       ch.ID,
				Name:     ch.Name,
				IsMember: ch.IsMember,
				Archived: ch.IsArchived,
			})
		}

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	return channels, nil
}

// ListUsers returns every workspace member keyed by external ID, excluding
// deleted users, bots, and the workspace-system user. users.list returns
// its full membership in one paginated-by-the-SDK call.
func (c *Client) ListUsers(ctx context.Context, excludeDeleted, excludeBots bool) (map[string]model.ChatUser, error) {
	var page []goslack.User

	err := c.limiter.call(ctx, func() error {
		var innerErr error
		page, innerErr = c.api.GetUsersContext(ctx)
		return innerErr
	})
	if err != nil {
		return nil, fmt.Errorf("chat: list users: %w", err)
	}

	users := make(map[string]model.ChatUser, len(page))
	for _, u := range page {
		if u.ID == workspaceSystemUserID {
			continue
		}
		if excludeDeleted && u.Deleted {
			continue
		}
		if excludeBots && u.IsBot {
			continue
		}
		users[u.ID] = model.ChatUser{
			ExternalID:  u.ID,
			DisplayName: displayName(u),
			SlackName:   u.Name,
			Timezone:    u.TZ,
			IsBot:       u.IsBot,
			IsDeleted:   u.Deleted,
		}
	}

	return users, nil
}

func displayName(u goslack.User) string {
	if u.Profile.DisplayName != "" {
		return u.Profile.DisplayName
	}
	if u.RealName != "" {
		return u.RealName
	}
	return u.Name
}

// GetBotExternalID returns this integration's own bot user ID, caching it
// after the first successful call.
func (c *Client) GetBotExternalID(ctx context.Context) (string, error) {
	c.botIDOnce.Do(func() {
		c.botIDErr = c.limiter.call(ctx, func() error {
			resp, err := c.api.AuthTestContext(ctx)
			if err != nil {
				return err
			}
			c.botID = resp.UserID
			return nil
		})
	})
	if c.botIDErr != nil {
		return "", fmt.Errorf("chat: get bot external id: %w", c.botIDErr)
	}
	return c.botID, nil
}

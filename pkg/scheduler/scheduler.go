// Package scheduler drives periodic and on-demand ingestion runs: fetch
// channels/users, stream recent messages per channel onto the task queue,
// and (on first run) wait for the queue to drain before rebuilding scores.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/truffle/expertise-miner/pkg/chat"
	"github.com/truffle/expertise-miner/pkg/model"
	"github.com/truffle/expertise-miner/pkg/queue"
	"github.com/truffle/expertise-miner/pkg/storage"
)

const (
	firstRunWindowHours    = 24 * 30
	periodicWindowHours    = 1
	drainPollInterval      = 10 * time.Second
	drainMaxWait           = 60 * time.Minute
	channelImportPreWait   = 61 * time.Second
	excludeArchivedDefault = true
)

// ChatClient is the subset of pkg/chat's Client the scheduler depends on.
type ChatClient interface {
	ListPublicChannels(ctx context.Context, excludeArchived bool) ([]model.Channel, error)
	ListUsers(ctx context.Context, excludeDeleted, excludeBots bool) (map[string]model.ChatUser, error)
	ResetBatchCounter()
	IterRecentMessages(ctx context.Context, channelID string, sinceHours int) MessageIterator
}

// MessageIterator is the subset of pkg/chat's MessageIterator the scheduler
// depends on, to keep this package's interface narrow and test-friendly.
type MessageIterator interface {
	Next(ctx context.Context) (model.Message, bool)
	Err() error
}

// Storage is the subset of pkg/storage's Store the scheduler depends on.
type Storage interface {
	IsDatabaseEmpty(ctx context.Context) (bool, error)
	UpsertUsers(ctx context.Context, users []storage.UserUpsert) error
}

// Queue is the subset of pkg/queue's Queue the scheduler depends on.
type Queue interface {
	Enqueue(message model.Message, channel model.Channel, users map[string]model.ChatUser) string
	GetStats() queue.Stats
}

// Aggregator is the subset of pkg/aggregator's Aggregator the scheduler
// depends on.
type Aggregator interface {
	RebuildAll(ctx context.Context) error
}

// MentionReplacer rewrites chat-provider mention syntax into the classifier
// candidate's textual form, e.g. pkg/chat.ReplaceUserMentions.
type MentionReplacer func(text string, users map[string]model.ChatUser) string

// chatClientAdapter narrows *chat.Client to the ChatClient interface: its
// IterRecentMessages returns a concrete *chat.MessageIterator, which needs
// boxing into the MessageIterator interface for the method signatures to
// match exactly.
type chatClientAdapter struct{ client *chat.Client }

// WrapChatClient adapts a concrete chat client for use as a Scheduler's
// ChatClient dependency.
func WrapChatClient(c *chat.Client) ChatClient {
	return chatClientAdapter{client: c}
}

func (a chatClientAdapter) ListPublicChannels(ctx context.Context, excludeArchived bool) ([]model.Channel, error) {
	return a.client.ListPublicChannels(ctx, excludeArchived)
}

func (a chatClientAdapter) ListUsers(ctx context.Context, excludeDeleted, excludeBots bool) (map[string]model.ChatUser, error) {
	return a.client.ListUsers(ctx, excludeDeleted, excludeBots)
}

func (a chatClientAdapter) ResetBatchCounter() {
	a.client.ResetBatchCounter()
}

func (a chatClientAdapter) IterRecentMessages(ctx context.Context, channelID string, sinceHours int) MessageIterator {
	return a.client.IterRecentMessages(ctx, channelID, sinceHours)
}

// Scheduler runs ingestion on a cron trigger and supports an on-demand
// single-channel import used by the reimport/import-channel operational
// endpoints.
type Scheduler struct {
	chat            ChatClient
	store           Storage
	queue           Queue
	aggregator      Aggregator
	replaceMentions MentionReplacer

	logger  *slog.Logger
	running atomic.Bool

	drainPoll time.Duration

	cron    *cron.Cron
	entryID cron.EntryID
}

// New builds a Scheduler. replaceMentions may be nil, in which case
// messages are enqueued with their text unmodified.
func New(chatClient ChatClient, store Storage, q Queue, agg Aggregator, replaceMentions MentionReplacer) *Scheduler {
	if replaceMentions == nil {
		replaceMentions = func(text string, _ map[string]model.ChatUser) string { return text }
	}
	return &Scheduler{
		chat:            chatClient,
		store:           store,
		queue:           q,
		aggregator:      agg,
		replaceMentions: replaceMentions,
		logger:          slog.Default().With("component", "scheduler"),
		drainPoll:       drainPollInterval,
	}
}

// StartCron schedules RunOnce on the given cron spec (e.g. "@hourly"),
// guarding against overlapping runs explicitly rather than trusting the
// scheduling library.
func (s *Scheduler) StartCron(spec string) error {
	s.cron = cron.New()
	id, err := s.cron.AddFunc(spec, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("scheduled ingestion run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: add cron entry: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	return nil
}

// StopCron stops the cron scheduler, if running.
func (s *Scheduler) StopCron() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunOnce performs a single ingestion run across every public channel. It
// refuses to run concurrently with itself, matching cron's max_instances=1
// semantics by hand since cron/v3 has no such built-in guard.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("ingestion run already in progress, skipping")
		return nil
	}
	defer s.running.Store(false)

	start := time.Now()

	isFirstRun, err := s.store.IsDatabaseEmpty(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: check database empty: %w", err)
	}
	sinceHours := periodicWindowHours
	if isFirstRun {
		sinceHours = firstRunWindowHours
	}
	s.logger.Info("starting ingestion run", "first_run", isFirstRun, "since_hours", sinceHours)

	channels, err := s.chat.ListPublicChannels(ctx, excludeArchivedDefault)
	if err != nil {
		return fmt.Errorf("scheduler: list channels: %w", err)
	}
	users, err := s.chat.ListUsers(ctx, true, true)
	if err != nil {
		return fmt.Errorf("scheduler: list users: %w", err)
	}
	s.logger.Info("fetched workspace snapshot", "channels", len(channels), "users", len(users))

	if err := s.store.UpsertUsers(ctx, toUserUpserts(users)); err != nil {
		return fmt.Errorf("scheduler: upsert users: %w", err)
	}

	enqueued := 0
	for _, ch := range channels {
		n, err := s.ingestChannel(ctx, ch, users, sinceHours)
		if err != nil {
			s.logger.Error("channel ingestion failed, continuing", "channel", ch.Name, "error", err)
			continue
		}
		enqueued += n
	}

	s.logger.Info("ingestion run enqueued messages", "count", enqueued, "duration", time.Since(start))

	if isFirstRun && enqueued > 0 {
		s.waitForDrain(ctx)
		if err := s.aggregator.RebuildAll(ctx); err != nil {
			return fmt.Errorf("scheduler: post-drain score rebuild: %w", err)
		}
	}

	return nil
}

// ImportChannel ingests a single channel on demand, pre-waiting to respect
// the rate budget when channel-join events arrive in bursts.
func (s *Scheduler) ImportChannel(ctx context.Context, channel model.Channel) error {
	select {
	case <-time.After(channelImportPreWait):
	case <-ctx.Done():
		return ctx.Err()
	}

	users, err := s.chat.ListUsers(ctx, true, true)
	if err != nil {
		return fmt.Errorf("scheduler: list users: %w", err)
	}
	if err := s.store.UpsertUsers(ctx, toUserUpserts(users)); err != nil {
		return fmt.Errorf("scheduler: upsert users: %w", err)
	}

	isFirstRun, err := s.store.IsDatabaseEmpty(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: check database empty: %w", err)
	}
	sinceHours := periodicWindowHours
	if isFirstRun {
		sinceHours = firstRunWindowHours
	}

	enqueued, err := s.ingestChannel(ctx, channel, users, sinceHours)
	if err != nil {
		return fmt.Errorf("scheduler: import channel: %w", err)
	}

	if enqueued > 0 {
		s.waitForDrain(ctx)
		if err := s.aggregator.RebuildAll(ctx); err != nil {
			return fmt.Errorf("scheduler: post-drain score rebuild: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) ingestChannel(ctx context.Context, ch model.Channel, users map[string]model.ChatUser, sinceHours int) (int, error) {
	s.chat.ResetBatchCounter()

	it := s.chat.IterRecentMessages(ctx, ch.ID, sinceHours)
	count := 0
	for {
		msg, ok := it.Next(ctx)
		if !ok {
			break
		}
		if msg.Text != "" {
			msg.Text = s.replaceMentions(msg.Text, users)
		}
		s.queue.Enqueue(msg, ch, users)
		count++
	}
	if err := it.Err(); err != nil {
		return count, err
	}
	return count, nil
}

// waitForDrain polls queue stats until pending+processing reaches zero or
// drainMaxWait elapses.
func (s *Scheduler) waitForDrain(ctx context.Context) {
	deadline := time.Now().Add(drainMaxWait)
	ticker := time.NewTicker(s.drainPoll)
	defer ticker.Stop()

	for {
		stats := s.queue.GetStats()
		if stats.Pending+stats.Processing == 0 {
			return
		}
		if time.Now().After(deadline) {
			s.logger.Warn("drain wait exceeded max duration, proceeding to aggregation anyway")
			return
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func toUserUpserts(users map[string]model.ChatUser) []storage.UserUpsert {
	out := make([]storage.UserUpsert, 0, len(users))
	for _, u := range users {
		out = append(out, storage.UserUpsert{ExternalID: u.ExternalID, DisplayName: u.DisplayName, Timezone: u.Timezone})
	}
	return out
}

// Package pipeline implements the per-message processing pipeline: skill
// extraction, thread-context enrichment, classification, and evidence
// persistence.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/truffle/expertise-miner/pkg/model"
	"github.com/truffle/expertise-miner/pkg/queue"
)

// Matcher extracts skill keys from message text.
type Matcher interface {
	Match(text string) []string
}

// Classifier evaluates a single message candidate against its skill keys.
type Classifier interface {
	Classify(ctx context.Context, candidate model.Candidate) ([]model.Evaluation, error)
}

// Storage persists classified evidence.
type Storage interface {
	StoreEvidence(ctx context.Context, userExternalID string, evaluations []model.Evaluation, evidenceDate time.Time, messageHash string) error
}

// Processor runs the per-message pipeline and is handed to the worker pool
// as a worker.Processor. cmd/ingestor builds one Processor at startup and
// every worker shares it, so its thread-context cache is not reset between
// scheduler runs; only the cache's LRU capacity bounds it.
type Processor struct {
	matcher    Matcher
	classifier Classifier
	store      Storage
	threadCtx  *threadContextCache
	now        func() time.Time
	logger     *slog.Logger
}

// New builds a Processor with a fresh, empty thread-context cache.
func New(matcher Matcher, classifier Classifier, store Storage) *Processor {
	return &Processor{
		matcher:    matcher,
		classifier: classifier,
		store:      store,
		threadCtx:  newThreadContextCache(),
		now:        time.Now,
		logger:     slog.Default().With("component", "pipeline"),
	}
}

// Process runs one task through gate → extract → thread-context → hash →
// classify → persist. A drop at the gate, or a message left with no skills
// once thread context is applied, returns nil (not an error): the task is
// simply not evidence.
func (p *Processor) Process(ctx context.Context, task *queue.MessageTask) error {
	msg := task.Message

	if !p.gate(msg) {
		return nil
	}

	skills := p.extract(msg.Text)

	skills, parentText := p.applyThreadContext(msg, skills)
	if len(skills) == 0 {
		return nil
	}

	hash := messageHash(msg.ChannelID, msg.TS, msg.Text)

	candidate := model.Candidate{
		MessageID:  msg.TS,
		AuthorID:   msg.AuthorID,
		ChannelID:  msg.ChannelID,
		Text:       msg.Text,
		ParentText: parentText,
		SkillKeys:  skills,
	}

	evaluations, err := p.classifier.Classify(ctx, candidate)
	if err != nil {
		return err
	}
	if len(evaluations) == 0 {
		return nil
	}

	return p.store.StoreEvidence(ctx, msg.AuthorID, evaluations, p.now(), hash)
}

// gate drops messages with no author or no text.
func (p *Processor) gate(msg model.Message) bool {
	return msg.AuthorID != "" && msg.Text != ""
}

// extract runs the skill matcher over the message text.
func (p *Processor) extract(text string) []string {
	return p.matcher.Match(text)
}

// applyThreadContext caches parent messages that have replies, and
// augments a reply's own skill matches with any parent-only skill keys,
// preserving order and avoiding duplicates. Replies without a cached
// parent pass through unchanged.
func (p *Processor) applyThreadContext(msg model.Message, skills []string) ([]string, string) {
	key := msg.ThreadKey()

	if msg.ReplyCount > 0 {
		p.threadCtx.put(key, threadContext{text: msg.Text, skills: skills})
	}

	if !msg.IsThreadReply() {
		return skills, ""
	}

	parent, ok := p.threadCtx.get(key)
	if !ok {
		return skills, ""
	}

	return appendMissing(skills, parent.skills), parent.text
}

// appendMissing appends entries from extra that aren't already in base,
// preserving base's order and extra's relative order.
func appendMissing(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, k := range base {
		seen[k] = struct{}{}
	}

	result := base
	for _, k := range extra {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, k)
	}
	return result
}

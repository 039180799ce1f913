// Package classifier wraps an LLM chat endpoint to classify message
// candidates as positive, negative, or neutral expertise evidence.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/truffle/expertise-miner/pkg/model"
)

// ErrConfigError is returned when the classifier is constructed without a
// usable API credential.
var ErrConfigError = errors.New("classifier: missing API credential")

const temperature = 0

// Classifier is a stateless wrapper over an LLM chat endpoint.
type Classifier struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// New builds a Classifier. apiKey is required; baseURL is optional (empty
// targets the default OpenAI endpoint, set to point at a compatible
// self-hosted gateway).
func New(apiKey, baseURL, modelName string) (*Classifier, error) {
	if apiKey == "" {
		return nil, ErrConfigError
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Classifier{
		client: openai.NewClient(opts...),
		model:  modelName,
		logger: slog.Default().With("component", "classifier"),
	}, nil
}

// Classify evaluates a single message candidate, returning one evaluation
// per skill key the candidate carries. On malformed completion JSON the
// result is an empty, non-error slice.
func (c *Classifier) Classify(ctx context.Context, candidate model.Candidate) ([]model.Evaluation, error) {
	if len(candidate.SkillKeys) == 0 {
		return nil, nil
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildUserPrompt(candidate)),
		},
		Temperature: param.NewOpt(float64(temperature)),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("classifier: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classifier: no choices returned")
	}

	evaluations, ok := parseCompletion(resp.Choices[0].Message.Content)
	if !ok {
		c.logger.Warn("classifier: malformed completion JSON, returning empty evaluations",
			"message_id", candidate.MessageID)
		return nil, nil
	}

	return evaluations, nil
}

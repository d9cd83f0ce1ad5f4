package nli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/veracity-io/veracity/internal/model"
)

const nliSystemPrompt = `You are a natural language inference classifier.
Given a PREMISE and a HYPOTHESIS, output the probabilities that the premise
entails, contradicts, or is neutral toward the hypothesis.

Respond with ONLY a JSON object of this exact shape:
{"entailment": 0.0, "contradiction": 0.0, "neutral": 0.0}

The three values must be non-negative and sum to 1.`

// OpenAIProvider implements Provider using a chat model constrained to
// JSON three-score output
type OpenAIProvider struct {
	client *openai.Client
	config model.NLIConfig
}

// NewOpenAIProvider creates a new OpenAI-backed classifier
func NewOpenAIProvider(cfg model.NLIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Classify scores one (premise, hypothesis) pair
func (p *OpenAIProvider) Classify(ctx context.Context, premise, hypothesis string) (ClassScores, error) {
	timeout := p.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: nliSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("PREMISE: %s\n\nHYPOTHESIS: %s", premise, hypothesis),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0, // classification, not generation
	})
	if err != nil {
		return ClassScores{}, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ClassScores{}, fmt.Errorf("no response from OpenAI")
	}

	return parseClassScores(resp.Choices[0].Message.Content)
}

// parseClassScores decodes the strict JSON score object. Malformed JSON is
// an invalid-output contract violation, not a transient failure.
func parseClassScores(content string) (ClassScores, error) {
	var out struct {
		Entailment    float64 `json:"entailment"`
		Contradiction float64 `json:"contradiction"`
		Neutral       float64 `json:"neutral"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return ClassScores{}, fmt.Errorf("%w: %v", ErrInvalidClassifierOutput, err)
	}
	return ClassScores{
		Entailment:    out.Entailment,
		Contradiction: out.Contradiction,
		Neutral:       out.Neutral,
	}, nil
}

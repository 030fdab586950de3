package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"dialoguesum/internal/prompt"
)

const (
	// reasoningHeadroomTokens covers the output tokens the hosted API
	// spends on reasoning before the visible answer.
	reasoningHeadroomTokens int64 = 512
	limitMaxOutputTokens    int64 = 2048
)

// OpenAISummarizer is a fallback backend for setups without a local
// inference server. It submits the same built prompt to OpenAI's Responses
// API. The request's new-token cap carries over as the visible-answer
// budget, padded with reasoning headroom and doubled when the response
// comes back incomplete; beam width does not translate to the hosted API.
type OpenAISummarizer struct {
	client openai.Client
}

// initialOutputTokenBudget seeds the output-token budget from the request's
// new-token cap.
func initialOutputTokenBudget(maxNewTokens int) int64 {
	budget := int64(clampTokenBudget(maxNewTokens)) + reasoningHeadroomTokens
	if budget > limitMaxOutputTokens {
		budget = limitMaxOutputTokens
	}

	return budget
}

// NewOpenAISummarizer builds a new fallback summarizer instance.
func NewOpenAISummarizer(apiKey string) (*OpenAISummarizer, error) {
	return &OpenAISummarizer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}, nil
}

// Summarize sends the prompt built for the requested method and returns the
// response text.
func (s *OpenAISummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	input = input.withDefaults()

	builtPrompt := prompt.Build(input.Dialogue, input.Method)

	maxOutputTokens := initialOutputTokenBudget(input.MaxNewTokens)
	for {
		resp, err := s.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:           openai.ChatModelGPT5Mini2025_08_07,
			ServiceTier:     responses.ResponseNewParamsServiceTierFlex,
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Reasoning: responses.ReasoningParam{
				Effort: openai.ReasoningEffortLow,
			},
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(builtPrompt),
			},
		})
		if err != nil {
			return "", fmt.Errorf("do request: %w", err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limitMaxOutputTokens {
				maxOutputTokens *= 2
				if maxOutputTokens > limitMaxOutputTokens {
					maxOutputTokens = limitMaxOutputTokens
				}
				continue
			}
			return "", fmt.Errorf(
				"response is incomplete (reason = %s, maxOutputTokens = %d)",
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		summary := strings.TrimSpace(resp.OutputText())
		if summary == "" {
			return "", fmt.Errorf("output text is missing (status = %s)", resp.Status)
		}
		return summary, nil
	}
}

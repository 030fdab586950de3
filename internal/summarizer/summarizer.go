package summarizer

import (
	"context"

	"dialoguesum/internal/prompt"
)

// DefaultMaxNewTokens is the generation budget used when a request does not
// set one.
const DefaultMaxNewTokens = 50

// Input describes one summarization request.
type Input struct {
	// Dialogue is the conversation to compress. May be empty.
	Dialogue string
	// Method selects the prompting style. Empty means few-shot; unknown
	// values fall back to the minimal prompt template.
	Method prompt.Method
	// MaxNewTokens caps newly generated tokens, not the total sequence
	// length. Zero means DefaultMaxNewTokens; negative values request a
	// minimal continuation (the backend receives a zero cap).
	MaxNewTokens int
}

// withDefaults resolves the zero values so every implementation and the
// cache key agree on what a request means. It is idempotent: negative
// budgets stay negative here and are clamped only when the backend call is
// built, so a request that already passed through a wrapper keeps its
// meaning.
func (in Input) withDefaults() Input {
	if in.Method == "" {
		in.Method = prompt.MethodFewShot
	}

	if in.MaxNewTokens == 0 {
		in.MaxNewTokens = DefaultMaxNewTokens
	}

	return in
}

// clampTokenBudget resolves a normalized budget to what backends accept: a
// negative request becomes the zero cap that asks for a minimal
// continuation.
func clampTokenBudget(maxNewTokens int) int {
	if maxNewTokens < 0 {
		return 0
	}

	return maxNewTokens
}

// Summarizer produces a single summary for a given dialogue.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}

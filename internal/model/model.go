// Package model defines the boundary to the external generative-model
// capability: acquiring a model with its paired tokenizer, tokenizing text,
// running beam-search generation and decoding token ids back to text.
package model

import (
	"context"
	"fmt"
)

// GenerateOptions bound a single generation call. MaxNewTokens caps newly
// generated tokens, not the total sequence length; a zero cap requests a
// minimal (possibly empty) continuation. Beam search is deterministic for
// fixed model weights and options.
type GenerateOptions struct {
	MaxNewTokens  int
	NumBeams      int
	EarlyStopping bool
}

// Handle bundles a loaded model with its paired tokenizer. A handle exists
// only after a successful load, so the model and the tokenizer are never
// present independently.
type Handle interface {
	// Name returns the identifier the handle was loaded for.
	Name() string

	// Tokenize encodes text, truncating to the model's maximum input length.
	Tokenize(ctx context.Context, text string) ([]int64, error)

	// Generate runs beam search over the input ids and returns the
	// best-scoring generated sequence.
	Generate(ctx context.Context, ids []int64, opts GenerateOptions) ([]int64, error)

	// Decode turns token ids back into text, optionally dropping
	// special/control tokens.
	Decode(ctx context.Context, ids []int64, skipSpecialTokens bool) (string, error)
}

// Loader acquires a model and its tokenizer for an identifier such as a
// model-repository name. The identifier is not validated locally; unknown or
// unreachable identifiers surface as a *LoadError.
type Loader interface {
	Load(ctx context.Context, name string) (Handle, error)
}

// LoadError reports that a model and its tokenizer could not be acquired.
type LoadError struct {
	Model string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Model, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"dialoguesum/internal/model"
	"dialoguesum/internal/prompt"
)

// beamWidth is the fixed beam-search width used for every generation.
const beamWidth = 4

// Seq2SeqSummarizer drives a seq2seq model behind a model.Loader. The handle
// is acquired lazily on first use and kept for the lifetime of the
// summarizer; a failed load is retried on the next call.
type Seq2SeqSummarizer struct {
	loader    model.Loader
	modelName string
	log       *slog.Logger

	mu     sync.Mutex
	handle model.Handle
}

// NewSeq2SeqSummarizer builds a summarizer for the named model. The name is
// passed to the loader as-is and not otherwise validated.
func NewSeq2SeqSummarizer(
	loader model.Loader,
	modelName string,
	log *slog.Logger,
) *Seq2SeqSummarizer {
	return &Seq2SeqSummarizer{
		loader:    loader,
		modelName: modelName,
		log:       log,
	}
}

// Load acquires the model and its tokenizer. It is idempotent: once a handle
// exists, further calls are no-ops. On failure the error is logged, returned,
// and the summarizer stays usable (the next call retries).
func (s *Seq2SeqSummarizer) Load(ctx context.Context) error {
	_, err := s.ensureLoaded(ctx)

	return err
}

func (s *Seq2SeqSummarizer) ensureLoaded(ctx context.Context) (model.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return s.handle, nil
	}

	handle, err := s.loader.Load(ctx, s.modelName)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load model",
			"error", err,
			"model", s.modelName)

		return nil, fmt.Errorf("load model: %w", err)
	}

	s.handle = handle
	s.log.InfoContext(ctx, "Model is loaded",
		"model", s.modelName)

	return handle, nil
}

// Summarize builds the prompt for the requested method, tokenizes it, runs
// beam-search generation with early stopping and decodes the best sequence
// with special tokens skipped. The decoded text is returned verbatim.
// Tokenization, generation and decoding failures propagate to the caller.
func (s *Seq2SeqSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	handle, err := s.ensureLoaded(ctx)
	if err != nil {
		return "", err
	}

	input = input.withDefaults()

	ids, err := handle.Tokenize(ctx, prompt.Build(input.Dialogue, input.Method))
	if err != nil {
		return "", fmt.Errorf("tokenize prompt: %w", err)
	}

	generated, err := handle.Generate(ctx, ids, model.GenerateOptions{
		MaxNewTokens:  clampTokenBudget(input.MaxNewTokens),
		NumBeams:      beamWidth,
		EarlyStopping: true,
	})
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}

	summary, err := handle.Decode(ctx, generated, true)
	if err != nil {
		return "", fmt.Errorf("decode summary: %w", err)
	}

	return summary, nil
}

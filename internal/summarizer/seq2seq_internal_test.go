package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"dialoguesum/internal/model"
	"dialoguesum/internal/prompt"
)

type fakeHandle struct {
	name       string
	lastPrompt string
	lastOpts   model.GenerateOptions
}

func (h *fakeHandle) Name() string { return h.name }

func (h *fakeHandle) Tokenize(_ context.Context, text string) ([]int64, error) {
	h.lastPrompt = text

	ids := make([]int64, 0, len(text))
	for _, ch := range text {
		ids = append(ids, int64(ch))
	}

	return ids, nil
}

func (h *fakeHandle) Generate(_ context.Context, ids []int64, opts model.GenerateOptions) ([]int64, error) {
	h.lastOpts = opts

	if opts.MaxNewTokens < len(ids) {
		ids = ids[:opts.MaxNewTokens]
	}

	return ids, nil
}

func (h *fakeHandle) Decode(_ context.Context, ids []int64, _ bool) (string, error) {
	runes := make([]rune, 0, len(ids))
	for _, id := range ids {
		runes = append(runes, rune(id))
	}

	return string(runes), nil
}

type fakeLoader struct {
	loads  int
	err    error
	handle model.Handle
}

func (l *fakeLoader) Load(_ context.Context, name string) (model.Handle, error) {
	l.loads++

	if l.err != nil {
		return nil, &model.LoadError{Model: name, Err: l.err}
	}

	if l.handle == nil {
		l.handle = &fakeHandle{name: name}
	}

	return l.handle, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeq2SeqSummarizeLoadsOnce(t *testing.T) {
	loader := &fakeLoader{}
	s := NewSeq2SeqSummarizer(loader, "test/model", discardLogger())
	ctx := context.Background()

	if _, err := s.Summarize(ctx, Input{Dialogue: "hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.Summarize(ctx, Input{Dialogue: "hello again"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loader.loads != 1 {
		t.Fatalf("expected exactly one load, got %d", loader.loads)
	}
}

func TestSeq2SeqExplicitLoadSkipsLazyLoad(t *testing.T) {
	loader := &fakeLoader{}
	s := NewSeq2SeqSummarizer(loader, "test/model", discardLogger())
	ctx := context.Background()

	if err := s.Load(ctx); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	if err := s.Load(ctx); err != nil {
		t.Fatalf("unexpected repeated load error: %v", err)
	}

	if _, err := s.Summarize(ctx, Input{Dialogue: "hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loader.loads != 1 {
		t.Fatalf("expected exactly one load, got %d", loader.loads)
	}
}

func TestSeq2SeqLoadFailureIsReturnedAndRetried(t *testing.T) {
	cause := errors.New("registry unreachable")
	loader := &fakeLoader{err: cause}
	s := NewSeq2SeqSummarizer(loader, "test/model", discardLogger())
	ctx := context.Background()

	_, err := s.Summarize(ctx, Input{Dialogue: "hello"})
	if err == nil {
		t.Fatalf("expected load failure to surface")
	}

	var loadErr *model.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *model.LoadError, got %T: %v", err, err)
	}

	loader.err = nil

	if _, err := s.Summarize(ctx, Input{Dialogue: "hello"}); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}

	if loader.loads != 2 {
		t.Fatalf("expected a retry after failure, got %d loads", loader.loads)
	}
}

func TestSeq2SeqDefaultsToFewShotAndFiftyTokens(t *testing.T) {
	loader := &fakeLoader{}
	s := NewSeq2SeqSummarizer(loader, "test/model", discardLogger())

	if _, err := s.Summarize(context.Background(), Input{Dialogue: "hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	handle := loader.handle.(*fakeHandle)

	if handle.lastPrompt != prompt.Build("hello", prompt.MethodFewShot) {
		t.Fatalf("expected few-shot prompt, got %q", handle.lastPrompt)
	}

	if handle.lastOpts.MaxNewTokens != DefaultMaxNewTokens {
		t.Fatalf("expected default token budget, got %d", handle.lastOpts.MaxNewTokens)
	}
}

func TestSeq2SeqGenerationOptions(t *testing.T) {
	loader := &fakeLoader{}
	s := NewSeq2SeqSummarizer(loader, "test/model", discardLogger())

	if _, err := s.Summarize(context.Background(), Input{
		Dialogue:     "hello",
		Method:       prompt.MethodZeroShot,
		MaxNewTokens: 1,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	handle := loader.handle.(*fakeHandle)

	if handle.lastOpts.NumBeams != 4 {
		t.Fatalf("expected beam width 4, got %d", handle.lastOpts.NumBeams)
	}

	if !handle.lastOpts.EarlyStopping {
		t.Fatalf("expected early stopping to be enabled")
	}

	if handle.lastOpts.MaxNewTokens != 1 {
		t.Fatalf("expected token budget 1, got %d", handle.lastOpts.MaxNewTokens)
	}
}

func TestSeq2SeqNegativeBudgetRequestsMinimalContinuation(t *testing.T) {
	loader := &fakeLoader{}
	s := NewSeq2SeqSummarizer(loader, "test/model", discardLogger())

	summary, err := s.Summarize(context.Background(), Input{
		Dialogue:     "hello",
		MaxNewTokens: -1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary != "" {
		t.Fatalf("expected empty continuation, got %q", summary)
	}

	handle := loader.handle.(*fakeHandle)
	if handle.lastOpts.MaxNewTokens != 0 {
		t.Fatalf("expected zero token budget, got %d", handle.lastOpts.MaxNewTokens)
	}
}

func TestInputWithDefaultsIsIdempotent(t *testing.T) {
	inputs := []Input{
		{Dialogue: "x"},
		{Dialogue: "x", MaxNewTokens: -1},
		{Dialogue: "x", Method: prompt.MethodZeroShot, MaxNewTokens: 7},
	}

	for _, input := range inputs {
		once := input.withDefaults()
		twice := once.withDefaults()

		if once != twice {
			t.Fatalf("expected normalization to be idempotent for %+v, got %+v then %+v", input, once, twice)
		}
	}
}

func TestSeq2SeqSummarizeIsDeterministic(t *testing.T) {
	loader := &fakeLoader{}
	s := NewSeq2SeqSummarizer(loader, "test/model", discardLogger())
	ctx := context.Background()
	input := Input{Dialogue: "hello", Method: prompt.MethodFewShot, MaxNewTokens: 50}

	first, err := s.Summarize(ctx, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := s.Summarize(ctx, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Fatalf("expected identical summaries, got %q and %q", first, second)
	}
}

func TestSeq2SeqReturnsDecodedTextVerbatim(t *testing.T) {
	loader := &fakeLoader{}
	s := NewSeq2SeqSummarizer(loader, "test/model", discardLogger())

	summary, err := s.Summarize(context.Background(), Input{
		Dialogue:     "  spaced  ",
		Method:       prompt.Method("invalid"),
		MaxNewTokens: 1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary != prompt.Build("  spaced  ", prompt.Method("invalid")) {
		t.Fatalf("expected untrimmed round trip, got %q", summary)
	}

	if !strings.Contains(summary, "  spaced  ") {
		t.Fatalf("expected dialogue preserved verbatim, got %q", summary)
	}
}

type failingHandle struct {
	fakeHandle
	generateErr error
}

func (h *failingHandle) Generate(context.Context, []int64, model.GenerateOptions) ([]int64, error) {
	return nil, h.generateErr
}

func TestSeq2SeqGenerationErrorPropagates(t *testing.T) {
	cause := errors.New("out of memory")
	loader := &fakeLoader{handle: &failingHandle{generateErr: cause}}
	s := NewSeq2SeqSummarizer(loader, "test/model", discardLogger())

	_, err := s.Summarize(context.Background(), Input{Dialogue: "hello"})
	if err == nil {
		t.Fatalf("expected generation failure to surface")
	}

	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}

	if want := fmt.Sprintf("generate summary: %v", cause); err.Error() != want {
		t.Fatalf("unexpected error message: %q", err.Error())
	}
}

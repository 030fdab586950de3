package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"dialoguesum/internal/bot"
	"dialoguesum/internal/config"
	"dialoguesum/internal/database"
	"dialoguesum/internal/model"
	"dialoguesum/internal/models"
	"dialoguesum/internal/prompt"
	"dialoguesum/internal/summarizer"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(log)

	methodFlag := flag.String("method", string(prompt.MethodFewShot), "prompting style: zero-shot, one-shot or few-shot")
	maxNewTokens := flag.Int("max-new-tokens", summarizer.DefaultMaxNewTokens, "cap on newly generated tokens")
	file := flag.String("file", "", "read the dialogue from a file instead of stdin")
	batch := flag.String("batch", "", "summarize a file of blank-line separated dialogues")
	historyLimit := flag.Int("history", 0, "print the N most recent summaries and exit")
	check := flag.Bool("check", false, "verify the setup and exit")
	runBot := flag.Bool("bot", false, "run the Telegram bot")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err == nil {
		log.InfoContext(ctx, ".env file is loaded")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return 1
	}

	client := model.NewClient(cfg.ServerURL, cfg.RequestTimeout)

	if *check {
		return runCheck(ctx, client, cfg)
	}

	db := openDatabase(ctx, cfg, log)
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				log.ErrorContext(ctx, "Failed to close db",
					"error", err,
					"dbPath", cfg.DBPath)
			}
		}()
	}

	if *historyLimit > 0 {
		return runHistory(ctx, db, *historyLimit, log)
	}

	s, err := newSummarizer(cfg, client, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize summarizer",
			"error", err,
			"backend", cfg.Backend)

		return 1
	}

	switch {
	case *runBot:
		return runTelegramBot(ctx, cfg, s, db, log)
	case *batch != "":
		return runBatch(ctx, s, db, cfg, *batch, *methodFlag, *maxNewTokens, log)
	default:
		return runOnce(ctx, s, db, cfg, *file, *methodFlag, *maxNewTokens, log)
	}
}

func newSummarizer(
	cfg config.Config,
	client *model.Client,
	log *slog.Logger,
) (summarizer.Summarizer, error) {
	var s summarizer.Summarizer

	switch cfg.Backend {
	case config.BackendOpenAI:
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, errors.New("OPENAI_API_KEY is required for the openai backend")
		}

		openAISummarizer, err := summarizer.NewOpenAISummarizer(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create OpenAI summarizer: %w", err)
		}
		s = openAISummarizer
	default:
		s = summarizer.NewSeq2SeqSummarizer(client, cfg.ModelName, log)
	}

	if cfg.CacheSize > 0 {
		s = summarizer.NewCachingSummarizer(s, modelLabel(cfg), cfg.CacheSize, cfg.CacheTTL)
	}

	return s, nil
}

// modelLabel identifies the effective backend+model pair in cache keys and
// history records.
func modelLabel(cfg config.Config) string {
	if cfg.Backend == config.BackendOpenAI {
		return config.BackendOpenAI
	}

	return cfg.ModelName
}

func openDatabase(ctx context.Context, cfg config.Config, log *slog.Logger) *database.Database {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.WarnContext(ctx, "Failed to initialize db so history is disabled",
			"error", err,
			"dbPath", cfg.DBPath)

		return nil
	}

	return db
}

func runCheck(ctx context.Context, client *model.Client, cfg config.Config) int {
	fmt.Println("🚀 Checking setup...")
	fmt.Printf("Backend: %s\n", cfg.Backend)
	fmt.Printf("Model: %s\n", modelLabel(cfg))
	fmt.Printf("History DB: %s\n", cfg.DBPath)

	if cfg.Backend == config.BackendOpenAI {
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			fmt.Println("❌ OPENAI_API_KEY is missing")

			return 1
		}

		fmt.Println("✅ OPENAI_API_KEY is set")

		return 0
	}

	health, err := client.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("❌ Inference server is unreachable: %v\n", err)

		return 1
	}

	if health.Version != "" {
		fmt.Printf("✅ Inference server is reachable (status %s, version %s)\n", health.Status, health.Version)
	} else {
		fmt.Printf("✅ Inference server is reachable (status %s)\n", health.Status)
	}

	return 0
}

func runHistory(ctx context.Context, db *database.Database, limit int, log *slog.Logger) int {
	if db == nil {
		log.ErrorContext(ctx, "History is disabled",
			"envVar", "DB_PATH")

		return 1
	}

	records, err := db.RecentSummaries(ctx, int64(limit))
	if err != nil {
		log.ErrorContext(ctx, "Failed to fetch history",
			"error", err,
			"limit", limit)

		return 1
	}

	for _, record := range records {
		fmt.Printf("[%s] %s (%s): %s\n",
			record.CreatedAt.Format("2006-01-02 15:04:05"),
			record.Model,
			record.Method,
			record.Summary)
	}

	return 0
}

func runOnce(
	ctx context.Context,
	s summarizer.Summarizer,
	db *database.Database,
	cfg config.Config,
	file string,
	method string,
	maxNewTokens int,
	log *slog.Logger,
) int {
	dialogue, err := readDialogue(file)
	if err != nil {
		log.ErrorContext(ctx, "Failed to read dialogue",
			"error", err,
			"file", file)

		return 1
	}

	summary, err := summarizeAndRecord(ctx, s, db, cfg, dialogue, method, maxNewTokens, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to summarize",
			"error", err,
			"method", method)

		return 1
	}

	fmt.Println(summary)

	return 0
}

func runBatch(
	ctx context.Context,
	s summarizer.Summarizer,
	db *database.Database,
	cfg config.Config,
	batchPath string,
	method string,
	maxNewTokens int,
	log *slog.Logger,
) int {
	data, err := os.ReadFile(batchPath)
	if err != nil {
		log.ErrorContext(ctx, "Failed to read batch file",
			"error", err,
			"file", batchPath)

		return 1
	}

	var dialogues []string
	for _, chunk := range strings.Split(string(data), "\n\n") {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		dialogues = append(dialogues, chunk)
	}

	if len(dialogues) == 0 {
		log.ErrorContext(ctx, "Batch file contains no dialogues",
			"file", batchPath)

		return 1
	}

	bar := progressbar.NewOptions(len(dialogues),
		progressbar.OptionSetDescription("Summarizing..."),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
	)

	summaries := make([]string, 0, len(dialogues))
	for _, dialogue := range dialogues {
		summary, err := summarizeAndRecord(ctx, s, db, cfg, dialogue, method, maxNewTokens, log)
		if err != nil {
			log.ErrorContext(ctx, "Failed to summarize batch entry",
				"error", err,
				"method", method)

			return 1
		}

		summaries = append(summaries, summary)
		_ = bar.Add(1)
	}
	_ = bar.Clear()

	for _, summary := range summaries {
		fmt.Println(summary)
	}

	return 0
}

func summarizeAndRecord(
	ctx context.Context,
	s summarizer.Summarizer,
	db *database.Database,
	cfg config.Config,
	dialogue string,
	method string,
	maxNewTokens int,
	log *slog.Logger,
) (string, error) {
	summary, err := s.Summarize(ctx, summarizer.Input{
		Dialogue:     dialogue,
		Method:       prompt.Method(method),
		MaxNewTokens: maxNewTokens,
	})
	if err != nil {
		return "", err
	}

	if db != nil {
		if recordErr := db.RecordSummary(ctx, models.SummaryRecord{
			Dialogue:     dialogue,
			Method:       method,
			MaxNewTokens: int64(maxNewTokens),
			Model:        modelLabel(cfg),
			Summary:      summary,
		}); recordErr != nil {
			log.WarnContext(ctx, "Failed to record summary",
				"error", recordErr)
		}
	}

	return summary, nil
}

func readDialogue(file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}

		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return string(data), nil
}

func runTelegramBot(
	ctx context.Context,
	cfg config.Config,
	s summarizer.Summarizer,
	db *database.Database,
	log *slog.Logger,
) int {
	token := strings.TrimSpace(cfg.TelegramToken)
	if token == "" {
		log.ErrorContext(ctx, "TELEGRAM_TOKEN is required for bot mode",
			"envVar", "TELEGRAM_TOKEN")

		return 1
	}

	botInst, err := bot.New(token, s, db, modelLabel(cfg), cfg.AllowedUsers, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedUsersCount", len(cfg.AllowedUsers))

		return 1
	}
	log.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers))

	botInst.Start(ctx)
	botInst.Stop()

	log.InfoContext(ctx, "Bot is stopped")

	return 0
}

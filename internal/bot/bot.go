package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dialoguesum/internal/database"
	"dialoguesum/internal/prompt"
	"dialoguesum/internal/summarizer"
)

const (
	maxBackoffSeconds     = 60
	initialBackoffSeconds = 3
	backoffGrowthFactor   = 2

	BotUpdateTimeout = 60

	updateProcessingTimeout = 120 * time.Second
)

// Bot is a Telegram front end for the summarizer: any incoming text is
// summarized and the summary sent back.
type Bot struct {
	api          *tgbotapi.BotAPI
	summarizer   summarizer.Summarizer
	db           *database.Database
	modelName    string
	allowedUsers []int64
	log          *slog.Logger

	mu      sync.Mutex
	methods map[int64]prompt.Method
}

// New builds a bot. db may be nil when history is disabled.
func New(
	token string,
	s summarizer.Summarizer,
	db *database.Database,
	modelName string,
	allowedUsers []int64,
	log *slog.Logger,
) (*Bot, error) {
	token = strings.TrimSpace(token)

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &Bot{
		api:          api,
		summarizer:   s,
		db:           db,
		modelName:    modelName,
		allowedUsers: allowedUsers,
		log:          log,
		methods:      make(map[int64]prompt.Method),
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = BotUpdateTimeout

	backoffSeconds := initialBackoffSeconds

	for {
		select {
		case <-ctx.Done():
			b.log.InfoContext(ctx, "Bot context is done",
				"error", ctx.Err())
			return
		default:
		}

		updates := b.api.GetUpdatesChan(updateConfig)
		updatesClosed := false

		for !updatesClosed {
			select {
			case <-ctx.Done():
				b.log.InfoContext(ctx, "Bot context is done",
					"error", ctx.Err())
				return

			case update, ok := <-updates:
				if !ok {
					updatesClosed = true
					continue
				}
				updateConfig.Offset = update.UpdateID + 1

				b.handleUpdate(ctx, &update)
			}
		}

		if ctx.Err() != nil {
			return
		}

		b.log.WarnContext(ctx, "Update channel is closed, reconnecting...",
			"offset", updateConfig.Offset,
			"backoffSeconds", backoffSeconds)

		time.Sleep(time.Duration(backoffSeconds) * time.Second)

		backoffSeconds = updateBackoffSeconds(backoffSeconds)
	}
}

func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	updateCtx, cancel := context.WithTimeout(ctx, updateProcessingTimeout)
	defer cancel()

	userID := update.Message.From.ID
	if !b.userAllowed(userID) {
		b.log.DebugContext(updateCtx, "User is not allowed",
			"userID", userID,
			"chatID", update.Message.Chat.ID,
			"username", update.Message.From.UserName)

		return
	}

	if err := b.handleMessage(updateCtx, update.Message); err != nil {
		b.log.ErrorContext(updateCtx, "Failed to handle message",
			"error", err,
			"chatID", update.Message.Chat.ID,
			"userID", userID,
			"messageID", update.Message.MessageID)
	}
}

func (b *Bot) userAllowed(userID int64) bool {
	if len(b.allowedUsers) == 0 {
		return true
	}

	for _, allowed := range b.allowedUsers {
		if allowed == userID {
			return true
		}
	}

	return false
}

func (b *Bot) chatMethod(chatID int64) prompt.Method {
	b.mu.Lock()
	defer b.mu.Unlock()

	if method, ok := b.methods[chatID]; ok {
		return method
	}

	return prompt.MethodFewShot
}

func (b *Bot) setChatMethod(chatID int64, method prompt.Method) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.methods[chatID] = method
}

func updateBackoffSeconds(backoffSeconds int) int {
	if backoffSeconds < maxBackoffSeconds {
		backoffSeconds *= backoffGrowthFactor
		if backoffSeconds > maxBackoffSeconds {
			backoffSeconds = maxBackoffSeconds
		}
	}
	return backoffSeconds
}

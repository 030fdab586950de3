package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dialoguesum/internal/models"
	"dialoguesum/internal/prompt"
	"dialoguesum/internal/summarizer"
)

const welcomeText = `🤖 Welcome to Dialoguesum!

Send me a dialogue and I will summarize it.

Commands:
/method zero-shot|one-shot|few-shot — choose the prompting style
/start — show this help

The current style is few-shot unless you change it.`

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	text := strings.TrimSpace(message.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		return b.sendMessage(message.Chat.ID, welcomeText)
	case strings.HasPrefix(text, "/method"):
		return b.handleMethodCommand(text, message.Chat.ID)
	case text == "":
		return b.sendMessage(message.Chat.ID, "Send me a dialogue to summarize.")
	default:
		return b.handleDialogue(ctx, text, message.Chat.ID)
	}
}

func (b *Bot) handleMethodCommand(text string, chatID int64) error {
	arg := prompt.Method(strings.TrimSpace(strings.TrimPrefix(text, "/method")))

	if !prompt.Known(arg) {
		return b.sendMessage(
			chatID,
			fmt.Sprintf("Unknown method %q. Choose zero-shot, one-shot or few-shot.", string(arg)),
		)
	}

	b.setChatMethod(chatID, arg)

	return b.sendMessage(chatID, fmt.Sprintf("Prompting style is set to %s.", string(arg)))
}

func (b *Bot) handleDialogue(ctx context.Context, text string, chatID int64) error {
	method := b.chatMethod(chatID)

	summary, err := b.summarizer.Summarize(ctx, summarizer.Input{
		Dialogue: text,
		Method:   method,
	})
	if err != nil {
		sendErr := b.sendMessage(chatID, "✖️ Failed to summarize, please try again later.")
		if sendErr != nil {
			return fmt.Errorf("summarize: %w (send message: %v)", err, sendErr)
		}

		return fmt.Errorf("summarize: %w", err)
	}

	if b.db != nil {
		if recordErr := b.db.RecordSummary(ctx, models.SummaryRecord{
			Dialogue:     text,
			Method:       string(method),
			MaxNewTokens: summarizer.DefaultMaxNewTokens,
			Model:        b.modelName,
			Summary:      summary,
		}); recordErr != nil {
			b.log.WarnContext(ctx, "Failed to record summary",
				"error", recordErr,
				"chatID", chatID)
		}
	}

	return b.sendMessage(chatID, summary)
}

func (b *Bot) sendMessage(chatID int64, text string) error {
	message := tgbotapi.NewMessage(chatID, text)

	if _, err := b.api.Send(message); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/set-night/questboard/internal/config"
)

// Logger mirrors operationally significant events to a Telegram log chat,
// one forum topic per event type. Disabled when no chat is configured.
type Logger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewLogger(b *bot.Bot, cfg *config.Config) *Logger {
	return &Logger{bot: b, cfg: cfg}
}

type LogType string

const (
	LogTypeError        LogType = "error"
	LogTypeRegistration LogType = "registration"
	LogTypeClaim        LogType = "claim"
	LogTypeBalance      LogType = "balance"
)

func (l *Logger) Log(logType LogType, message string) {
	if l == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.getTopicID(logType)
	if topicID == 0 {
		return
	}

	// Truncate if too long
	if len([]rune(message)) > config.MaxTelegramMessageLen {
		message = string([]rune(message)[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

func (l *Logger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		context, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

func (l *Logger) LogRegistration(telegramID int64, username, referredBy string) {
	msg := fmt.Sprintf("👤 *New Registration*\n\n*ID:* `%d`\n*Username:* @%s", telegramID, username)
	if referredBy != "" {
		msg += fmt.Sprintf("\n*Referred by:* %s", referredBy)
	}
	l.Log(LogTypeRegistration, msg)
}

func (l *Logger) LogClaim(telegramID, taskID int64, title string, reward float64) {
	msg := fmt.Sprintf("💰 *Task Reward*\n\n*User:* `%d`\n*Task:* %s (#%d)\n*Reward:* $%.2f",
		telegramID, title, taskID, reward)
	l.Log(LogTypeClaim, msg)
}

func (l *Logger) LogBalanceChange(telegramID int64, amount float64, operation string) {
	msg := fmt.Sprintf("🏦 *Balance %s*\n\n*User:* `%d`\n*Amount:* $%.2f",
		operation, telegramID, amount)
	l.Log(LogTypeBalance, msg)
}

func (l *Logger) getTopicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeRegistration:
		return l.cfg.LogTopicRegistration
	case LogTypeClaim:
		return l.cfg.LogTopicClaim
	case LogTypeBalance:
		return l.cfg.LogTopicBalance
	default:
		return 0
	}
}

package command

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Replier sends a text message to a chat.
type Replier interface {
	Dispatch(ctx context.Context, chatID string, text string) error
}

// Handler answers bot commands.
type Handler struct {
	replier Replier
	sources []string
	logger  *zap.Logger
}

func NewHandler(replier Replier, sources []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{replier: replier, sources: sources, logger: logger}
}

// StartReply is the acknowledgement sent for /start.
func (h *Handler) StartReply() string {
	return "Monitoring new pairs on " + strings.Join(h.sources, ", ") + "..."
}

// HandleUpdate processes one update. Only /start is recognised; anything else
// is ignored. It reports whether a reply was attempted.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) bool {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return false
	}
	if msg.Command() != "start" {
		h.logger.Debug("ignoring command", zap.String("command", msg.Command()))
		return false
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	if err := h.replier.Dispatch(ctx, chatID, h.StartReply()); err != nil {
		h.logger.Warn("start reply failed", zap.String("chat_id", chatID), zap.Error(err))
	}
	return true
}

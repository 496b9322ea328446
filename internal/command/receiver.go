package command

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// DefaultLongPollTimeout is the getUpdates long-poll timeout in seconds.
const DefaultLongPollTimeout = 30

// ReceiverClientTimeout is the HTTP client timeout for a bot that long-polls:
// the idle long-poll plus callTimeout for the request itself.
func ReceiverClientTimeout(callTimeout time.Duration) time.Duration {
	return DefaultLongPollTimeout*time.Second + callTimeout
}

// UpdateSource is the long-polling subset of tgbotapi.BotAPI.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Requester is the raw request subset of tgbotapi.BotAPI.
type Requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Receive long-polls for updates and feeds them to h until ctx is cancelled.
func Receive(ctx context.Context, src UpdateSource, h *Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = DefaultLongPollTimeout
	updates := src.GetUpdatesChan(cfg)
	logger.Info("command receiver started", zap.String("mode", "poll"))

	for {
		select {
		case <-ctx.Done():
			src.StopReceivingUpdates()
			logger.Info("command receiver stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.HandleUpdate(context.WithoutCancel(ctx), update)
		}
	}
}

// RegisterWebhook points the bot at url. An empty url leaves the current
// registration untouched.
func RegisterWebhook(req Requester, url string) error {
	if url == "" {
		return nil
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := req.Request(wh); err != nil {
		return fmt.Errorf("register webhook: %w", err)
	}
	return nil
}

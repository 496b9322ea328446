package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pairwatch/internal/metrics"
)

var (
	// ErrDispatchFailure wraps every failed delivery.
	ErrDispatchFailure = errors.New("dispatch failed")
	// ErrNoDestination is returned when no chat id is configured.
	ErrNoDestination = errors.New("no destination chat configured")
)

// Sender is the subset of tgbotapi.BotAPI used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBot connects to the Telegram Bot API. An empty apiEndpoint selects the
// public API. Library logging is routed through logger.
func NewBot(token, apiEndpoint string, timeout time.Duration, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	if logger != nil {
		if err := tgbotapi.SetLogger(zap.NewStdLog(logger.Named("telegram"))); err != nil {
			return nil, fmt.Errorf("set telegram logger: %w", err)
		}
	}
	return tgbotapi.NewBotAPIWithClient(token, apiEndpoint, &http.Client{Timeout: timeout})
}

// TelegramDispatcher delivers messages to Telegram chats.
type TelegramDispatcher struct {
	sender  Sender
	retry   RetryPolicy
	metrics *metrics.Pipeline
	logger  *zap.Logger
}

// DispatcherConfig configures a TelegramDispatcher.
type DispatcherConfig struct {
	Retry   RetryPolicy
	Metrics *metrics.Pipeline
}

func NewTelegramDispatcher(sender Sender, cfg DispatcherConfig, logger *zap.Logger) *TelegramDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramDispatcher{
		sender:  sender,
		retry:   cfg.Retry,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// Dispatch sends text to chatID, which is either a numeric chat id or an
// @channel username. Failures are logged and returned wrapped in
// ErrDispatchFailure; they are never fatal to the caller.
func (d *TelegramDispatcher) Dispatch(ctx context.Context, chatID string, text string) error {
	err := d.dispatch(ctx, chatID, text)
	d.metrics.ObserveDispatch(err)
	if err != nil {
		d.logger.Warn("notification dispatch failed",
			zap.String("kind", "dispatch_failure"),
			zap.String("chat_id", chatID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrDispatchFailure, err)
	}
	return nil
}

func (d *TelegramDispatcher) dispatch(ctx context.Context, chatID string, text string) error {
	if d.sender == nil {
		return fmt.Errorf("telegram sender is nil")
	}
	msg, err := NewMessage(chatID, text)
	if err != nil {
		return err
	}

	return d.retry.do(ctx, func() error {
		_, err := d.sender.Send(msg)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, func(err error, wait time.Duration) {
		d.logger.Info("retrying notification dispatch", zap.String("chat_id", chatID), zap.Duration("backoff", wait), zap.Error(err))
	})
}

// NewMessage builds a plain-text message for chatID.
func NewMessage(chatID string, text string) (tgbotapi.MessageConfig, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return tgbotapi.MessageConfig{}, ErrNoDestination
	}

	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(chatID, "@") {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	} else {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return tgbotapi.MessageConfig{}, fmt.Errorf("invalid chat id %q: %w", chatID, err)
		}
		msg = tgbotapi.NewMessage(id, text)
	}
	msg.DisableWebPagePreview = true
	return msg, nil
}

// retryable reports whether a Telegram API error may succeed on redelivery.
// Client errors such as "chat not found" never do, except rate limiting.
func retryable(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return true
}

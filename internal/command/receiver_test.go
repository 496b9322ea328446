package command

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pairwatch/internal/notify"
)

type fakeUpdateSource struct {
	ch      chan tgbotapi.Update
	timeout int
	stopped atomic.Bool
}

func (f *fakeUpdateSource) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	f.timeout = cfg.Timeout
	return f.ch
}

func (f *fakeUpdateSource) StopReceivingUpdates() {
	f.stopped.Store(true)
}

func TestReceiveHandlesUntilCancelled(t *testing.T) {
	src := &fakeUpdateSource{ch: make(chan tgbotapi.Update, 1)}
	replier := &fakeReplier{}
	h := NewHandler(replier, []string{"PopSwap"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Receive(ctx, src, h, zaptest.NewLogger(t)) }()

	src.ch <- commandUpdate(5, "/start", 6)
	require.Eventually(t, func() bool { return len(replier.Replies()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("receiver did not stop")
	}
	assert.True(t, src.stopped.Load())
	assert.Equal(t, DefaultLongPollTimeout, src.timeout)
}

func TestReceiveReturnsWhenChannelCloses(t *testing.T) {
	src := &fakeUpdateSource{ch: make(chan tgbotapi.Update)}
	close(src.ch)

	err := Receive(context.Background(), src, NewHandler(&fakeReplier{}, nil, nil), nil)
	assert.NoError(t, err)
}

type fakeRequester struct {
	calls int
	err   error
}

func (f *fakeRequester) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.calls++
	return &tgbotapi.APIResponse{Ok: f.err == nil}, f.err
}

func TestRegisterWebhook(t *testing.T) {
	req := &fakeRequester{}
	require.NoError(t, RegisterWebhook(req, ""))
	assert.Equal(t, 0, req.calls)

	require.NoError(t, RegisterWebhook(req, "https://bot.example.com/api/webhook"))
	assert.Equal(t, 1, req.calls)

	req.err = errors.New("unauthorized")
	assert.Error(t, RegisterWebhook(req, "https://bot.example.com/api/webhook"))
}

func TestReceiverClientOutlastsIdleLongPoll(t *testing.T) {
	// Telegram holds an idle getUpdates for the requested timeout in seconds;
	// the server here holds it for timeout*10ms, so durations below are scaled
	// down 100x.
	const scale = 100
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"pairwatch","username":"pairwatch_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			held, _ := strconv.Atoi(r.FormValue("timeout"))
			select {
			case <-time.After(time.Duration(held) * time.Second / scale):
			case <-r.Context().Done():
				return
			}
			_, _ = io.WriteString(w, `{"ok":true,"result":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	endpoint := server.URL + "/bot%s/%s"
	callTimeout := 15 * time.Second
	longPoll := tgbotapi.NewUpdate(0)
	longPoll.Timeout = DefaultLongPollTimeout

	receiver, err := notify.NewBot("123:abc", endpoint, ReceiverClientTimeout(callTimeout)/scale, nil)
	require.NoError(t, err)
	updates, err := receiver.GetUpdates(longPoll)
	require.NoError(t, err)
	assert.Empty(t, updates)

	sender, err := notify.NewBot("123:abc", endpoint, callTimeout/scale, nil)
	require.NoError(t, err)
	_, err = sender.GetUpdates(longPoll)
	assert.Error(t, err, "a client bounded by the call timeout alone cuts the long-poll short")
}

package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testNotifier(baseURL string) *TelegramNotifier {
	return NewTelegramNotifier(NotifierConfig{
		BaseURL:        baseURL,
		Token:          "bot-token",
		ChatID:         "-100200300",
		MaxRetries:     3,
		RetryDelay:     time.Millisecond,
		RequestTimeout: time.Second,
	}, zap.NewNop())
}

func TestTelegramNotifier_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("Sends message", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, "/botbot-token/sendMessage", r.URL.Path)

			var payload sendMessagePayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "-100200300", payload.ChatID)
			assert.Equal(t, "привет, оператор", payload.Text)
			assert.Equal(t, "HTML", payload.ParseMode)

			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		testNotifier(server.URL).Notify(ctx, "привет, оператор")
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("Retries transient failure", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		testNotifier(server.URL).Notify(ctx, "сообщение")
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("Gives up after all attempts", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		testNotifier(server.URL).Notify(ctx, "сообщение")
		assert.Equal(t, int64(3), calls.Load())
	})

	t.Run("Unconfigured channel is a noop", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		notifier := NewTelegramNotifier(NotifierConfig{
			BaseURL:        server.URL,
			MaxRetries:     3,
			RequestTimeout: time.Second,
		}, zap.NewNop())

		notifier.Notify(ctx, "сообщение")
		assert.Equal(t, int64(0), calls.Load())
	})
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// NotifierConfig содержит параметры канала уведомлений оператора
type NotifierConfig struct {
	BaseURL        string // адрес Telegram Bot API
	Token          string
	ChatID         string
	MaxRetries     int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// TelegramNotifier отправляет уведомления оператору в Telegram-чат.
// Отправка fire-and-forget: сбой логируется и никогда не прерывает
// основной сценарий. Без токена или chat id уведомления отключены.
type TelegramNotifier struct {
	cfg        NotifierConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewTelegramNotifier создает канал уведомлений оператора
func NewTelegramNotifier(cfg NotifierConfig, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger,
	}
}

type sendMessagePayload struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Notify отправляет текст оператору с ограниченным числом попыток
func (n *TelegramNotifier) Notify(ctx context.Context, text string) {
	if n.cfg.Token == "" || n.cfg.ChatID == "" {
		n.logger.Debug("канал уведомлений не настроен, сообщение пропущено")
		return
	}

	payload := sendMessagePayload{
		ChatID:    n.cfg.ChatID,
		Text:      text,
		ParseMode: "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("не удалось сериализовать уведомление", zap.Error(err))
		return
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.cfg.BaseURL, n.cfg.Token)

	for attempt := 1; attempt <= n.cfg.MaxRetries; attempt++ {
		if err := n.send(ctx, endpoint, body); err == nil {
			return
		} else if attempt < n.cfg.MaxRetries {
			n.logger.Warn("ошибка отправки уведомления оператору",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			select {
			case <-time.After(n.cfg.RetryDelay):
			case <-ctx.Done():
				return
			}
		} else {
			n.logger.Error("уведомление оператору не доставлено", zap.Error(err))
		}
	}
}

func (n *TelegramNotifier) send(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notifier: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notifier: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notifier: unexpected status: %d", resp.StatusCode)
	}

	return nil
}

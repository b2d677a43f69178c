package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FragmentConfig содержит параметры клиента Fragment API
type FragmentConfig struct {
	BaseURL        string
	APIKey         string
	PhoneNumber    string
	Mnemonics      []string
	MaxRetries     int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// FragmentClient доставляет звезды получателю через Fragment API.
// Реализует domain.FulfillmentClient.
type FragmentClient struct {
	cfg        FragmentConfig
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.Mutex
	token string
}

// NewFragmentClient создает клиент доставки звезд
func NewFragmentClient(cfg FragmentConfig, logger *zap.Logger) *FragmentClient {
	return &FragmentClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		logger: logger,
	}
}

type authPayload struct {
	APIKey      string   `json:"api_key"`
	PhoneNumber string   `json:"phone_number"`
	Mnemonics   []string `json:"mnemonics"`
}

type authResponse struct {
	Token string `json:"token"`
}

type sendStarsPayload struct {
	Username string `json:"username"`
	Quantity int    `json:"quantity"`
}

type fragmentErrorResponse struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// Authenticate получает токен авторизации с ограниченным числом попыток.
// Пустой токен в успешном ответе — терминальная ошибка, не повторяется.
func (c *FragmentClient) Authenticate(ctx context.Context) error {
	payload := authPayload{
		APIKey:      c.cfg.APIKey,
		PhoneNumber: c.cfg.PhoneNumber,
		Mnemonics:   c.cfg.Mnemonics,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("fragment: marshal auth payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		c.logger.Info("попытка аутентификации в Fragment API", zap.Int("attempt", attempt))

		token, err := c.requestToken(ctx, body)
		if err == nil {
			if token == "" {
				return fmt.Errorf("fragment: auth response contains no token")
			}

			c.mu.Lock()
			c.token = token
			c.mu.Unlock()

			c.logger.Info("аутентификация в Fragment API успешна")
			return nil
		}

		lastErr = err
		c.logger.Warn("ошибка аутентификации",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < c.cfg.MaxRetries {
			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("fragment: authenticate after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

// SendStars отправляет звезды на указанный username.
// На 403 выполняется ровно одна переаутентификация и один повтор запроса;
// любая другая ошибка возвращается без повторов — повторная доставка
// грозит дублем.
func (c *FragmentClient) SendStars(ctx context.Context, username string, quantity int) error {
	token := c.currentToken()
	if token == "" {
		// Стартовая аутентификация могла не пройти, пробуем еще раз
		if err := c.Authenticate(ctx); err != nil {
			return fmt.Errorf("%w: %s", ErrNotAuthenticated, err)
		}
		token = c.currentToken()
	}

	payload := sendStarsPayload{Username: username, Quantity: quantity}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("fragment: marshal payload: %w", err)
	}

	c.logger.Info("отправка звезд",
		zap.String("username", username),
		zap.Int("quantity", quantity),
	)

	resp, err := c.doSendStars(ctx, body, token)
	if err != nil {
		return err
	}

	if resp.status == http.StatusForbidden {
		c.logger.Warn("токен Fragment API устарел, переаутентификация")

		if err := c.Authenticate(ctx); err != nil {
			return fmt.Errorf("fragment: re-authenticate: %w", err)
		}

		resp, err = c.doSendStars(ctx, body, c.currentToken())
		if err != nil {
			return err
		}
	}

	if resp.status != http.StatusOK {
		return fmt.Errorf("fragment: send stars: status %d: %s", resp.status, resp.errorDetail())
	}

	return nil
}

type fragmentResponse struct {
	status int
	body   []byte
}

// errorDetail извлекает человекочитаемую причину из тела ответа
func (r *fragmentResponse) errorDetail() string {
	var parsed fragmentErrorResponse
	if err := json.Unmarshal(r.body, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}

	detail := strings.TrimSpace(string(r.body))
	if len(detail) > 100 {
		detail = detail[:100]
	}
	return detail
}

func (c *FragmentClient) requestToken(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/auth/authenticate/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("fragment: create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fragment: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fragment: auth status %d", resp.StatusCode)
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("fragment: decode auth response: %w", err)
	}

	return parsed.Token, nil
}

func (c *FragmentClient) doSendStars(ctx context.Context, body []byte, token string) (*fragmentResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/order/stars/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fragment: create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Authorization", "JWT "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fragment: execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fragment: read response: %w", err)
	}

	return &fragmentResponse{status: resp.StatusCode, body: respBody}, nil
}

func (c *FragmentClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "FragmentBot/1.0")
}

// IsAuthenticated сообщает, получен ли токен Fragment API
func (c *FragmentClient) IsAuthenticated() bool {
	return c.currentToken() != ""
}

func (c *FragmentClient) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

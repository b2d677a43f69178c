package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

const (
	cryptoPayTokenHeader = "Crypto-Pay-API-Token"

	// Кнопка после оплаты ведет обратно в бот
	paidButtonName = "openBot"
	paidButtonURL  = "https://t.me/WhiteBearStars_bot"
)

// CryptoPayConfig содержит параметры клиента платежного процессора
type CryptoPayConfig struct {
	BaseURL        string
	Token          string
	RetryMax       int
	RetryWait      time.Duration
	RequestTimeout time.Duration
}

// CryptoPayClient реализует domain.PaymentClient поверх Crypto Pay API.
// Сетевые сбои и 5xx повторяются ограниченное число раз с фиксированной
// паузой; осмысленный отказ API (ok=false) возвращается сразу.
type CryptoPayClient struct {
	cfg        CryptoPayConfig
	httpClient *retryablehttp.Client
	logger     *zap.Logger
}

// NewCryptoPayClient создает клиент платежного процессора
func NewCryptoPayClient(cfg CryptoPayConfig, logger *zap.Logger) *CryptoPayClient {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = cfg.RetryWait
	client.RetryWaitMax = cfg.RetryWait
	client.HTTPClient.Timeout = cfg.RequestTimeout
	client.Logger = nil

	return &CryptoPayClient{
		cfg:        cfg,
		httpClient: client,
		logger:     logger,
	}
}

// invoicePayload повторяет формат createInvoice Crypto Pay API
type invoicePayload struct {
	Asset          string `json:"asset"`
	Amount         string `json:"amount"`
	Description    string `json:"description"`
	HiddenMessage  string `json:"hidden_message"`
	PaidBtnName    string `json:"paid_btn_name"`
	PaidBtnURL     string `json:"paid_btn_url"`
	Payload        string `json:"payload"`
	AllowComments  bool   `json:"allow_comments"`
	AllowAnonymous bool   `json:"allow_anonymous"`
}

type invoiceItem struct {
	InvoiceID int64  `json:"invoice_id"`
	Status    string `json:"status"`
	PayURL    string `json:"pay_url"`
	Amount    string `json:"amount"`
}

type apiError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type createInvoiceResponse struct {
	OK     bool         `json:"ok"`
	Error  *apiError    `json:"error,omitempty"`
	Result *invoiceItem `json:"result,omitempty"`
}

type getInvoicesResponse struct {
	OK     bool      `json:"ok"`
	Error  *apiError `json:"error,omitempty"`
	Result *struct {
		Items []invoiceItem `json:"items"`
	} `json:"result,omitempty"`
}

// CreateInvoice создает счет на оплату и возвращает его идентификатор и pay-URL
func (c *CryptoPayClient) CreateInvoice(ctx context.Context, req domain.CreateInvoiceRequest) (*domain.Invoice, error) {
	payload := invoicePayload{
		Asset:          string(req.Currency),
		Amount:         req.Amount,
		Description:    invoiceDescription(req),
		HiddenMessage:  hiddenMessage(req),
		PaidBtnName:    paidButtonName,
		PaidBtnURL:     paidButtonURL,
		Payload:        req.Payload,
		AllowComments:  true,
		AllowAnonymous: true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cryptopay: marshal payload: %w", err)
	}

	c.logger.Info("создание инвойса",
		zap.String("asset", payload.Asset),
		zap.String("amount", payload.Amount),
		zap.Int("stars", req.Stars),
	)

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/createInvoice", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cryptopay: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(cryptoPayTokenHeader, c.cfg.Token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cryptopay: create invoice: %w", err)
	}
	defer resp.Body.Close()

	var out createInvoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("cryptopay: decode response: %w", err)
	}

	if !out.OK || out.Result == nil {
		c.logger.Error("процессор отклонил инвойс", zap.String("error", out.Error.String()))
		return nil, fmt.Errorf("cryptopay: invoice rejected: %s", out.Error.String())
	}

	amount, err := decimal.NewFromString(out.Result.Amount)
	if err != nil {
		return nil, fmt.Errorf("cryptopay: parse invoice amount %q: %w", out.Result.Amount, err)
	}

	return &domain.Invoice{
		ID:     strconv.FormatInt(out.Result.InvoiceID, 10),
		PayURL: out.Result.PayURL,
		Amount: amount,
	}, nil
}

// GetInvoiceStatus запрашивает статус инвойса у процессора.
// Неизвестные статусы трактуются как "еще не оплачен": терминальное
// решение по неоднозначному ответу не принимается.
func (c *CryptoPayClient) GetInvoiceStatus(ctx context.Context, invoiceID string) (domain.InvoiceStatus, error) {
	query := url.Values{}
	query.Set("invoice_ids", invoiceID)

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/api/getInvoices?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("cryptopay: create request: %w", err)
	}
	httpReq.Header.Set(cryptoPayTokenHeader, c.cfg.Token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("cryptopay: get invoice status: %w", err)
	}
	defer resp.Body.Close()

	var out getInvoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("cryptopay: decode response: %w", err)
	}

	if !out.OK || out.Result == nil {
		return "", fmt.Errorf("cryptopay: status request rejected: %s", out.Error.String())
	}
	if len(out.Result.Items) == 0 {
		return "", fmt.Errorf("cryptopay: invoice %s not found in response", invoiceID)
	}

	switch out.Result.Items[0].Status {
	case "paid":
		return domain.InvoiceStatusPaid, nil
	case "expired":
		return domain.InvoiceStatusExpired, nil
	default:
		return domain.InvoiceStatusActive, nil
	}
}

func (e *apiError) String() string {
	if e == nil {
		return "unknown error"
	}
	return fmt.Sprintf("%d %s", e.Code, e.Name)
}

// invoiceDescription формирует описание счета с количеством звезд,
// скидкой и получателем
func invoiceDescription(req domain.CreateInvoiceRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Покупка звезд (%d звезд)", req.Stars)
	if req.DiscountPercent > 0 {
		fmt.Fprintf(&b, " со скидкой %d%%", req.DiscountPercent)
	}
	if req.Recipient != "" {
		fmt.Fprintf(&b, " для @%s", req.Recipient)
	}
	return b.String()
}

func hiddenMessage(req domain.CreateInvoiceRequest) string {
	msg := fmt.Sprintf("Спасибо за покупку %d звезд!", req.Stars)
	if req.Recipient != "" {
		msg += fmt.Sprintf(" для @%s", req.Recipient)
	}
	return msg
}

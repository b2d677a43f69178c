package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

// Идентификаторы монет в API источника котировок
const (
	coinIDTON  = "the-open-network"
	coinIDUSDT = "tether"

	quoteVSCurrency = "rub"
)

// CoinGeckoClient реализует domain.RateSource поверх HTTP API CoinGecko
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGeckoClient создает клиент источника котировок
func NewCoinGeckoClient(baseURL string, timeout time.Duration) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchRates запрашивает курсы TON и USDT к рублю одним вызовом
func (c *CoinGeckoClient) FetchRates(ctx context.Context) (map[domain.Currency]decimal.Decimal, error) {
	query := url.Values{}
	query.Set("ids", coinIDTON+","+coinIDUSDT)
	query.Set("vs_currencies", quoteVSCurrency)

	endpoint := fmt.Sprintf("%s/api/v3/simple/price?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("quote source: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote source: execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote source: unexpected status: %d", resp.StatusCode)
	}

	// Ответ вида {"the-open-network":{"rub":200.5},"tether":{"rub":90.1}}
	var payload map[string]map[string]decimal.Decimal
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("quote source: decode response: %w", err)
	}

	rates := make(map[domain.Currency]decimal.Decimal)
	if rate, ok := payload[coinIDTON][quoteVSCurrency]; ok {
		rates[domain.CurrencyTON] = rate
	}
	if rate, ok := payload[coinIDUSDT][quoteVSCurrency]; ok {
		rates[domain.CurrencyUSDT] = rate
	}

	return rates, nil
}

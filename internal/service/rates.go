package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

// Консервативные стартовые курсы к рублю: используются, пока не пришла
// первая котировка из внешнего источника.
var defaultRates = map[domain.Currency]decimal.Decimal{
	domain.CurrencyTON:  decimal.NewFromInt(200),
	domain.CurrencyUSDT: decimal.NewFromInt(90),
}

const refreshTimeout = 10 * time.Second

// RateCache хранит текущие курсы валют оплаты к рублю.
// Чтение никогда не блокируется и не падает: при сбое обновления
// остаются последние известные значения.
type RateCache struct {
	mu          sync.RWMutex
	rates       map[domain.Currency]decimal.Decimal
	lastRefresh time.Time

	source     domain.RateSource
	logger     *zap.Logger
	staleAfter time.Duration
	refreshing singleflight.Group
}

// NewRateCache создает кэш курсов, заполненный стартовыми значениями
func NewRateCache(source domain.RateSource, staleAfter time.Duration, logger *zap.Logger) *RateCache {
	rates := make(map[domain.Currency]decimal.Decimal, len(defaultRates))
	for currency, rate := range defaultRates {
		rates[currency] = rate
	}

	return &RateCache{
		rates:      rates,
		source:     source,
		logger:     logger,
		staleAfter: staleAfter,
	}
}

// Rate возвращает текущий курс валюты к рублю.
// Устаревшее значение запускает фоновое обновление, но возвращается сразу.
func (c *RateCache) Rate(currency domain.Currency) (decimal.Decimal, bool) {
	c.mu.RLock()
	rate, ok := c.rates[currency]
	stale := time.Since(c.lastRefresh) > c.staleAfter
	c.mu.RUnlock()

	if stale {
		go c.refreshAsync()
	}

	return rate, ok
}

// Snapshot возвращает копию всех текущих курсов
func (c *RateCache) Snapshot() map[domain.Currency]decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[domain.Currency]decimal.Decimal, len(c.rates))
	for currency, rate := range c.rates {
		snapshot[currency] = rate
	}

	return snapshot
}

// Refresh запрашивает котировки всех поддерживаемых валют.
// При частичном или полном сбое существующие значения не изменяются.
func (c *RateCache) Refresh(ctx context.Context) error {
	fetched, err := c.source.FetchRates(ctx)
	if err != nil {
		c.logger.Error("не удалось обновить курсы валют", zap.Error(err))
		return fmt.Errorf("rate cache: refresh: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for currency, rate := range fetched {
		if !rate.IsPositive() {
			continue
		}
		current, ok := c.rates[currency]
		if !ok {
			// Неподдерживаемые валюты из ответа игнорируем
			continue
		}
		if !current.Equal(rate) {
			c.logger.Info("обновлен курс валюты",
				zap.String("currency", string(currency)),
				zap.String("old", current.String()),
				zap.String("new", rate.String()),
			)
			c.rates[currency] = rate
		}
	}
	c.lastRefresh = time.Now()

	return nil
}

// refreshAsync выполняет обновление в фоне. Повторные вызовы во время
// идущего обновления схлопываются в одно.
func (c *RateCache) refreshAsync() {
	_, _, _ = c.refreshing.Do("refresh", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		// Ошибка уже залогирована внутри Refresh
		return nil, c.Refresh(ctx)
	})
}

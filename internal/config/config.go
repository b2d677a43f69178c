package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Config содержит конфигурацию приложения
type Config struct {
	RunAddress string `env:"RUN_ADDRESS"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Платежный процессор Crypto Pay
	CryptoPayAPIURL  string        `env:"CRYPTOPAY_API_URL" envDefault:"https://pay.crypt.bot"`
	CryptoPayToken   string        `env:"CRYPTOPAY_TOKEN"`
	CryptoPayRetries int           `env:"CRYPTOPAY_RETRIES" envDefault:"3"`
	CryptoPayDelay   time.Duration `env:"CRYPTOPAY_RETRY_DELAY" envDefault:"5s"`
	CryptoPayTimeout time.Duration `env:"CRYPTOPAY_TIMEOUT" envDefault:"30s"`

	// Канал доставки звезд Fragment API
	FragmentAPIURL    string        `env:"FRAGMENT_API_URL" envDefault:"https://api.fragment-api.com/v1"`
	FragmentAPIKey    string        `env:"FRAGMENT_API_KEY"`
	FragmentPhone     string        `env:"FRAGMENT_PHONE"`
	FragmentMnemonics []string      `env:"FRAGMENT_MNEMONICS" envSeparator:" "`
	FragmentRetries   int           `env:"FRAGMENT_RETRIES" envDefault:"3"`
	FragmentDelay     time.Duration `env:"FRAGMENT_RETRY_DELAY" envDefault:"5s"`
	FragmentTimeout   time.Duration `env:"FRAGMENT_TIMEOUT" envDefault:"60s"`

	// Уведомления оператора в Telegram. Без токена и chat id канал отключен.
	TelegramAPIURL string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	OperatorChatID string `env:"OPERATOR_CHAT_ID"`

	// Источник котировок
	QuoteAPIURL  string        `env:"QUOTE_API_URL" envDefault:"https://api.coingecko.com"`
	QuoteTimeout time.Duration `env:"QUOTE_TIMEOUT" envDefault:"10s"`

	// Курсы валют
	RateRefreshInterval time.Duration `env:"RATE_REFRESH_INTERVAL" envDefault:"10m"`
	RateStaleAfter      time.Duration `env:"RATE_STALE_AFTER" envDefault:"1h"`

	// Worker Pool конфигурация
	WorkerPoolSize  int           `env:"WORKER_POOL_SIZE" envDefault:"3"`
	WorkerQueueSize int           `env:"WORKER_QUEUE_SIZE" envDefault:"100"`
	SweepInterval   time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`

	// Ценообразование
	PricePerStarRaw  string          `env:"PRICE_PER_STAR_RUB" envDefault:"1.45"`
	MinInvoiceRaw    string          `env:"MIN_INVOICE_AMOUNT" envDefault:"0.01"`
	MinStars         int             `env:"MIN_STARS" envDefault:"50"`
	MaxStars         int             `env:"MAX_STARS" envDefault:"100000"`
	PricePerStarRUB  decimal.Decimal
	MinInvoiceAmount decimal.Decimal
}

// Load загружает конфигурацию из флагов и переменных окружения.
// Приоритет: env переменные > флаги > дефолтные значения.
func Load() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", ":8080", "address and port to run server")
	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.parsePricing(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) parsePricing() error {
	price, err := decimal.NewFromString(c.PricePerStarRaw)
	if err != nil || !price.IsPositive() {
		return fmt.Errorf("PRICE_PER_STAR_RUB must be a positive decimal, got %q", c.PricePerStarRaw)
	}
	c.PricePerStarRUB = price

	min, err := decimal.NewFromString(c.MinInvoiceRaw)
	if err != nil || min.IsNegative() {
		return fmt.Errorf("MIN_INVOICE_AMOUNT must be a non-negative decimal, got %q", c.MinInvoiceRaw)
	}
	c.MinInvoiceAmount = min

	return nil
}

func (c *Config) validate() error {
	if c.CryptoPayToken == "" {
		return fmt.Errorf("payment processor token is required (use CRYPTOPAY_TOKEN env)")
	}
	if c.FragmentAPIKey == "" {
		return fmt.Errorf("fulfillment API key is required (use FRAGMENT_API_KEY env)")
	}
	if c.FragmentPhone == "" {
		return fmt.Errorf("fulfillment phone number is required (use FRAGMENT_PHONE env)")
	}
	if len(c.FragmentMnemonics) == 0 {
		return fmt.Errorf("fulfillment wallet mnemonics are required (use FRAGMENT_MNEMONICS env)")
	}
	if c.MinStars <= 0 || c.MaxStars < c.MinStars {
		return fmt.Errorf("invalid star quantity bounds: min %d, max %d", c.MinStars, c.MaxStars)
	}

	return nil
}

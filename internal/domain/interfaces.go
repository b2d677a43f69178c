package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderRepository определяет методы для работы с заказами
type OrderRepository interface {
	Create(order *Order) error
	Get(invoiceID string) (*Order, error)
	Delete(invoiceID string)
	PendingIDs() []string
	// MarkProcessed атомарно выставляет флаг processed.
	// Возвращает true, если заказ уже был обработан ранее.
	MarkProcessed(invoiceID string) (bool, error)
}

// LedgerRepository определяет методы для работы с балансом и историей пользователя
type LedgerRepository interface {
	Credit(userID int64, stars int)
	AppendTransaction(userID int64, tx Transaction)
	Profile(userID int64) *Profile
}

// PromoRepository определяет методы для работы с промокодами
type PromoRepository interface {
	Get(code string) (*PromoCode, error)
	// Consume списывает одну активацию и возвращает остаток.
	Consume(code string) (int, error)
}

// PaymentClient определяет методы взаимодействия с платежным процессором
type PaymentClient interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error)
	GetInvoiceStatus(ctx context.Context, invoiceID string) (InvoiceStatus, error)
}

// FulfillmentClient определяет методы доставки звезд получателю
type FulfillmentClient interface {
	SendStars(ctx context.Context, username string, quantity int) error
}

// Notifier определяет канал уведомлений оператора
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// RateSource определяет источник котировок валют к рублю
type RateSource interface {
	FetchRates(ctx context.Context) (map[Currency]decimal.Decimal, error)
}

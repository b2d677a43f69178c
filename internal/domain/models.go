package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency представляет валюту оплаты
type Currency string

const (
	CurrencyTON  Currency = "TON"
	CurrencyUSDT Currency = "USDT"
)

// OrderStatus представляет статус заказа
type OrderStatus string

const (
	OrderStatusCreated           OrderStatus = "CREATED"
	OrderStatusPaidUnprocessed   OrderStatus = "PAID_UNPROCESSED"
	OrderStatusFulfilled         OrderStatus = "FULFILLED"
	OrderStatusFulfillmentFailed OrderStatus = "FULFILLMENT_FAILED"
	OrderStatusExpired           OrderStatus = "EXPIRED"
)

// InvoiceStatus представляет статус инвойса на стороне платежного процессора
type InvoiceStatus string

const (
	InvoiceStatusActive  InvoiceStatus = "active"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusExpired InvoiceStatus = "expired"
)

// Order представляет заказ на покупку звезд.
// Ключом заказа служит идентификатор инвойса, выданный процессором.
type Order struct {
	InvoiceID       string          `json:"invoice_id"`
	PayURL          string          `json:"pay_url"`
	UserID          int64           `json:"-"`
	SenderUsername  string          `json:"-"`
	Recipient       string          `json:"recipient,omitempty"` // пустая строка — покупка себе
	Stars           int             `json:"stars"`
	Currency        Currency        `json:"currency"`
	AmountCrypto    decimal.Decimal `json:"amount"`
	AmountRUB       decimal.Decimal `json:"amount_rub"`
	DiscountPercent int             `json:"discount_percent,omitempty"`
	PromoCode       string          `json:"-"`
	Processed       bool            `json:"-"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IsGift сообщает, покупаются ли звезды в подарок другому пользователю
func (o *Order) IsGift() bool {
	return o.Recipient != ""
}

// StarsRecipient возвращает username, на который отправляются звезды
func (o *Order) StarsRecipient() string {
	if o.Recipient != "" {
		return o.Recipient
	}
	return o.SenderUsername
}

// PromoCode представляет промокод со счетчиком оставшихся активаций
type PromoCode struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
	Activations     int    `json:"activations"`
}

// Transaction представляет запись в истории покупок пользователя
type Transaction struct {
	Stars      int       `json:"stars"`
	Recipient  string    `json:"recipient,omitempty"`
	PromoLabel string    `json:"promo,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Profile представляет профиль пользователя: накопленный баланс и историю
type Profile struct {
	UserID       int64         `json:"user_id"`
	TotalStars   int           `json:"total_stars"`
	Transactions []Transaction `json:"transactions"`
}

// Invoice представляет созданный процессором счет на оплату
type Invoice struct {
	ID     string
	PayURL string
	Amount decimal.Decimal
}

// CreateInvoiceRequest описывает параметры создаваемого инвойса
type CreateInvoiceRequest struct {
	Currency        Currency
	Amount          string // отформатированная сумма в валюте оплаты
	Stars           int
	DiscountPercent int
	Recipient       string
	Payload         string
}

package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

// Ошибки валидации заказа
var (
	ErrQuantityTooSmall = errors.New("star quantity below minimum")
	ErrQuantityTooLarge = errors.New("star quantity above maximum")
	ErrInvalidDiscount  = errors.New("invalid discount percent")
)

// Ошибки проверки платежа
var (
	// ErrCheckInFlight означает, что проверка этого инвойса уже идет.
	// Это не сбой: вызывающему достаточно повторить попытку позже.
	ErrCheckInFlight = errors.New("payment check already in progress")
	// ErrAlreadyProcessed означает, что доставка по заказу уже состоялась
	ErrAlreadyProcessed = errors.New("order already processed")
	// ErrFulfillmentFailed означает терминальный сбой доставки после оплаты
	ErrFulfillmentFailed = errors.New("fulfillment failed")
	// ErrNotAuthenticated означает отсутствие токена Fragment API
	ErrNotAuthenticated = errors.New("fulfillment client is not authenticated")
)

// AmountTooSmallError возвращается, когда сумма инвойса ниже минимума процессора.
// MinQuantity — минимальное количество звезд, при котором сумма проходит порог.
type AmountTooSmallError struct {
	Amount      decimal.Decimal
	Currency    domain.Currency
	MinQuantity int
}

func (e *AmountTooSmallError) Error() string {
	return fmt.Sprintf("payment amount %s %s is below the processor minimum, need at least %d stars",
		e.Amount.String(), e.Currency, e.MinQuantity)
}

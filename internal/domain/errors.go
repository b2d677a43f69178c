package domain

import "errors"

// Ошибки заказов
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderExists         = errors.New("order already exists")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// Ошибки промокодов
var (
	ErrPromoNotFound  = errors.New("promo code not found")
	ErrPromoExhausted = errors.New("promo code exhausted")
)

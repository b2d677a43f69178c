package service

import (
	"github.com/shopspring/decimal"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

// Точность форматирования суммы инвойса
const amountPrecision = 9

// RateProvider отдает текущий курс валюты оплаты к рублю
type RateProvider interface {
	Rate(currency domain.Currency) (decimal.Decimal, bool)
}

// PricingConfig содержит параметры расчета стоимости
type PricingConfig struct {
	PricePerStarRUB  decimal.Decimal // цена одной звезды в рублях
	MinStars         int
	MaxStars         int
	MinInvoiceAmount decimal.Decimal // минимальная сумма инвойса у процессора
}

// Quote представляет рассчитанную стоимость покупки
type Quote struct {
	Stars           int
	Currency        domain.Currency
	DiscountPercent int
	AmountRUB       decimal.Decimal
	AmountCrypto    decimal.Decimal
	FormattedAmount string // сумма в виде, пригодном для процессора
}

// Pricing вычисляет стоимость покупки звезд в валюте оплаты
type Pricing struct {
	cfg   PricingConfig
	rates RateProvider
}

// NewPricing создает калькулятор стоимости
func NewPricing(cfg PricingConfig, rates RateProvider) *Pricing {
	return &Pricing{cfg: cfg, rates: rates}
}

// Price рассчитывает сумму к оплате по формуле
// stars × цена_звезды × (1 − скидка/100) / курс.
// Результат детерминирован для зафиксированного курса.
func (p *Pricing) Price(stars int, currency domain.Currency, discountPercent int) (*Quote, error) {
	if stars < p.cfg.MinStars {
		return nil, ErrQuantityTooSmall
	}
	if stars > p.cfg.MaxStars {
		return nil, ErrQuantityTooLarge
	}
	if discountPercent < 0 || discountPercent > 100 {
		return nil, ErrInvalidDiscount
	}

	rate, ok := p.rates.Rate(currency)
	if !ok || !rate.IsPositive() {
		return nil, domain.ErrUnsupportedCurrency
	}

	discountFactor := discountFactor(discountPercent)

	amountRUB := decimal.NewFromInt(int64(stars)).
		Mul(p.cfg.PricePerStarRUB).
		Mul(discountFactor)
	amountCrypto := amountRUB.Div(rate)

	formatted := formatAmount(amountCrypto)

	// Сумма ниже минимума процессора (или схлопнувшаяся в ноль после
	// форматирования) отклоняется с подсказкой минимального количества
	if amountCrypto.LessThan(p.cfg.MinInvoiceAmount) || formatted == "0" {
		return nil, &AmountTooSmallError{
			Amount:      amountCrypto,
			Currency:    currency,
			MinQuantity: p.minQuantity(rate, discountFactor),
		}
	}

	return &Quote{
		Stars:           stars,
		Currency:        currency,
		DiscountPercent: discountPercent,
		AmountRUB:       amountRUB,
		AmountCrypto:    amountCrypto,
		FormattedAmount: formatted,
	}, nil
}

// minQuantity обращает формулу стоимости: минимальное количество звезд,
// при котором сумма инвойса достигает порога процессора
func (p *Pricing) minQuantity(rate, discountFactor decimal.Decimal) int {
	perStar := p.cfg.PricePerStarRUB.Mul(discountFactor)
	if !perStar.IsPositive() {
		return p.cfg.MaxStars
	}

	min := p.cfg.MinInvoiceAmount.Mul(rate).Div(perStar).Ceil().IntPart()
	if min < int64(p.cfg.MinStars) {
		return p.cfg.MinStars
	}

	return int(min)
}

// discountFactor возвращает множитель (1 − скидка/100)
func discountFactor(discountPercent int) decimal.Decimal {
	return decimal.NewFromInt(int64(100 - discountPercent)).
		Div(decimal.NewFromInt(100))
}

// formatAmount приводит сумму к виду с отброшенными хвостовыми нулями
func formatAmount(amount decimal.Decimal) string {
	return amount.Round(amountPrecision).String()
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/domain"
	"github.com/fusiokll/whitebearshop/internal/service"
)

// PriceCalculator определяет расчет стоимости покупки.
type PriceCalculator interface {
	Price(stars int, currency domain.Currency, discountPercent int) (*service.Quote, error)
}

// PromoResolver проверяет промокод и возвращает его параметры.
type PromoResolver interface {
	Redeem(code string) (*domain.PromoCode, error)
}

type PriceHandler struct {
	pricing PriceCalculator
	promos  PromoResolver
	logger  *zap.Logger
}

func NewPriceHandler(pricing PriceCalculator, promos PromoResolver, logger *zap.Logger) *PriceHandler {
	return &PriceHandler{
		pricing: pricing,
		promos:  promos,
		logger:  logger,
	}
}

type priceResponse struct {
	Stars           int    `json:"stars"`
	Currency        string `json:"currency"`
	DiscountPercent int    `json:"discount_percent,omitempty"`
	Amount          string `json:"amount"`
	AmountRUB       string `json:"amount_rub"`
}

// Quote возвращает стоимость покупки без создания заказа
func (h *PriceHandler) Quote(w http.ResponseWriter, r *http.Request) {
	stars, err := strconv.Atoi(r.URL.Query().Get("stars"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "stars must be an integer")
		return
	}
	currency := domain.Currency(r.URL.Query().Get("currency"))

	discountPercent := 0
	if code := r.URL.Query().Get("promo_code"); code != "" {
		promo, err := h.promos.Redeem(code)
		if err != nil {
			h.respondPromoError(w, err)
			return
		}
		discountPercent = promo.DiscountPercent
	}

	quote, err := h.pricing.Price(stars, currency, discountPercent)
	if err != nil {
		h.respondPriceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, priceResponse{
		Stars:           quote.Stars,
		Currency:        string(quote.Currency),
		DiscountPercent: quote.DiscountPercent,
		Amount:          quote.FormattedAmount,
		AmountRUB:       quote.AmountRUB.StringFixed(2),
	})
}

func (h *PriceHandler) respondPromoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrPromoNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPromoExhausted):
		writeError(w, http.StatusGone, err.Error())
	default:
		h.logger.Error("failed to resolve promo code", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *PriceHandler) respondPriceError(w http.ResponseWriter, err error) {
	var amountErr *service.AmountTooSmallError
	switch {
	case errors.As(err, &amountErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:       amountErr.Error(),
			MinQuantity: amountErr.MinQuantity,
		})
	case errors.Is(err, service.ErrQuantityTooSmall),
		errors.Is(err, service.ErrQuantityTooLarge),
		errors.Is(err, domain.ErrUnsupportedCurrency):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("failed to calculate price", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

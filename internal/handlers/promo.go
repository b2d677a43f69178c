package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

type PromoHandler struct {
	promos PromoResolver
	logger *zap.Logger
}

func NewPromoHandler(promos PromoResolver, logger *zap.Logger) *PromoHandler {
	return &PromoHandler{
		promos: promos,
		logger: logger,
	}
}

type redeemRequest struct {
	Code string `json:"code"`
}

type redeemResponse struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
}

// Redeem проверяет промокод. Активация при этом не списывается:
// счетчик уменьшается только после подтвержденной доставки.
func (h *PromoHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	promo, err := h.promos.Redeem(req.Code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPromoNotFound):
			writeError(w, http.StatusNotFound, "promo code not found")
		case errors.Is(err, domain.ErrPromoExhausted):
			writeError(w, http.StatusGone, "promo code exhausted")
		default:
			h.logger.Error("failed to redeem promo code", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, redeemResponse{
		Code:            promo.Code,
		DiscountPercent: promo.DiscountPercent,
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/domain"
	"github.com/fusiokll/whitebearshop/internal/service"
	"github.com/fusiokll/whitebearshop/internal/utils/username"
)

// PurchaseService определяет методы создания заказов.
type PurchaseService interface {
	CreateOrder(ctx context.Context, req service.PurchaseRequest) (*domain.Order, error)
}

// PaymentChecker определяет проверку оплаты инвойса.
type PaymentChecker interface {
	CheckPayment(ctx context.Context, invoiceID string) (*service.CheckResult, error)
}

type OrdersHandler struct {
	purchases PurchaseService
	checker   PaymentChecker
	logger    *zap.Logger
}

func NewOrdersHandler(purchases PurchaseService, checker PaymentChecker, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		purchases: purchases,
		checker:   checker,
		logger:    logger,
	}
}

type createOrderRequest struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Recipient string `json:"recipient,omitempty"`
	Stars     int    `json:"stars"`
	Currency  string `json:"currency"`
	PromoCode string `json:"promo_code,omitempty"`
}

func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == 0 || req.Username == "" {
		writeError(w, http.StatusBadRequest, "user_id and username are required")
		return
	}

	order, err := h.purchases.CreateOrder(r.Context(), service.PurchaseRequest{
		UserID:         req.UserID,
		SenderUsername: req.Username,
		Recipient:      req.Recipient,
		Stars:          req.Stars,
		Currency:       domain.Currency(req.Currency),
		PromoCode:      req.PromoCode,
	})
	if err != nil {
		h.respondCreateError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// respondCreateError переводит ошибки создания заказа в HTTP-статусы
func (h *OrdersHandler) respondCreateError(w http.ResponseWriter, err error) {
	var amountErr *service.AmountTooSmallError
	switch {
	case errors.As(err, &amountErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:       amountErr.Error(),
			MinQuantity: amountErr.MinQuantity,
		})
	case errors.Is(err, service.ErrQuantityTooSmall),
		errors.Is(err, service.ErrQuantityTooLarge),
		errors.Is(err, service.ErrInvalidDiscount),
		errors.Is(err, username.ErrTooShort),
		errors.Is(err, domain.ErrUnsupportedCurrency):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrPromoNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPromoExhausted):
		writeError(w, http.StatusGone, err.Error())
	default:
		h.logger.Error("failed to create order", zap.Error(err))
		writeError(w, http.StatusBadGateway, "payment processor unavailable")
	}
}

type checkOrderResponse struct {
	Status string        `json:"status"`
	Order  *domain.Order `json:"order,omitempty"`
}

// CheckOrder проверяет оплату инвойса по требованию пользователя
func (h *OrdersHandler) CheckOrder(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceID")
	if invoiceID == "" {
		writeError(w, http.StatusBadRequest, "invoice id is required")
		return
	}

	result, err := h.checker.CheckPayment(r.Context(), invoiceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckInFlight):
			// Параллельная проверка уже идет, повтор без побочных эффектов
			writeJSON(w, http.StatusAccepted, checkOrderResponse{Status: "checking"})
		case errors.Is(err, service.ErrAlreadyProcessed):
			writeError(w, http.StatusConflict, "order already processed")
		case errors.Is(err, domain.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrFulfillmentFailed):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			h.logger.Error("failed to check order",
				zap.String("invoice_id", invoiceID),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, checkOrderResponse{
		Status: string(result.Status),
		Order:  result.Order,
	})
}

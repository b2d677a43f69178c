package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// FulfillmentStatus сообщает о готовности канала доставки звезд.
type FulfillmentStatus interface {
	IsAuthenticated() bool
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	fulfillment FulfillmentStatus
	logger      *zap.Logger
}

// NewHealthHandler создает новый HealthHandler
func NewHealthHandler(fulfillment FulfillmentStatus, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		fulfillment: fulfillment,
		logger:      logger,
	}
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status      string `json:"status"`
	Fulfillment string `json:"fulfillment"`
}

// Health возвращает статус приложения.
// Без токена доставки сервис принимает заказы, но не может их закрывать.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:      "ok",
		Fulfillment: "ok",
	}

	if !h.fulfillment.IsAuthenticated() {
		response.Status = "degraded"
		response.Fulfillment = "unauthenticated"
		h.logger.Warn("health check: fulfillment client is not authenticated")
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode health response", zap.Error(err))
	}
}

// Ready возвращает готовность приложения принимать трафик
func (h *HealthHandler) Ready(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

// RatesProvider отдает текущие курсы валют оплаты.
type RatesProvider interface {
	Snapshot() map[domain.Currency]decimal.Decimal
}

type RatesHandler struct {
	rates  RatesProvider
	logger *zap.Logger
}

func NewRatesHandler(rates RatesProvider, logger *zap.Logger) *RatesHandler {
	return &RatesHandler{
		rates:  rates,
		logger: logger,
	}
}

// Rates возвращает текущие курсы валют к рублю
func (h *RatesHandler) Rates(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.rates.Snapshot()

	response := make(map[string]string, len(snapshot))
	for currency, rate := range snapshot {
		response[string(currency)] = rate.String()
	}

	writeJSON(w, http.StatusOK, response)
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/domain"
	"github.com/fusiokll/whitebearshop/internal/service"
)

type stubPurchases struct {
	order *domain.Order
	err   error
	got   service.PurchaseRequest
}

func (s *stubPurchases) CreateOrder(_ context.Context, req service.PurchaseRequest) (*domain.Order, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

type stubEngine struct {
	result *service.CheckResult
	err    error
}

func (s *stubEngine) CheckPayment(_ context.Context, _ string) (*service.CheckResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubPromos struct {
	promo *domain.PromoCode
	err   error
}

func (s *stubPromos) Redeem(_ string) (*domain.PromoCode, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.promo, nil
}

type stubPricing struct {
	quote *service.Quote
	err   error
}

func (s *stubPricing) Price(_ int, _ domain.Currency, _ int) (*service.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

type stubLedger struct {
	profile *domain.Profile
}

func (s *stubLedger) Profile(_ int64) *domain.Profile {
	return s.profile
}

type stubRatesSnapshot map[domain.Currency]decimal.Decimal

func (s stubRatesSnapshot) Snapshot() map[domain.Currency]decimal.Decimal {
	return s
}

type stubFulfillmentStatus bool

func (s stubFulfillmentStatus) IsAuthenticated() bool {
	return bool(s)
}

func testOrder() *domain.Order {
	return &domain.Order{
		InvoiceID:    "12345",
		PayURL:       "https://pay.crypt.bot/invoice/12345",
		UserID:       7,
		Stars:        50,
		Currency:     domain.CurrencyTON,
		AmountCrypto: decimal.RequireFromString("0.3625"),
		AmountRUB:    decimal.RequireFromString("72.5"),
		Status:       domain.OrderStatusCreated,
		CreatedAt:    time.Now(),
	}
}

func TestOrdersHandler_CreateOrder(t *testing.T) {
	logger := zap.NewNop()

	postOrder := func(h *OrdersHandler, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		h.CreateOrder(w, req)
		return w
	}

	validBody := `{"user_id":7,"username":"whitebear","stars":50,"currency":"TON"}`

	t.Run("Success", func(t *testing.T) {
		purchases := &stubPurchases{order: testOrder()}
		h := NewOrdersHandler(purchases, &stubEngine{}, logger)

		w := postOrder(h, validBody)
		assert.Equal(t, http.StatusCreated, w.Code)

		var got domain.Order
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "12345", got.InvoiceID)
		assert.Equal(t, "https://pay.crypt.bot/invoice/12345", got.PayURL)

		assert.Equal(t, int64(7), purchases.got.UserID)
		assert.Equal(t, "whitebear", purchases.got.SenderUsername)
		assert.Equal(t, 50, purchases.got.Stars)
	})

	t.Run("Invalid body", func(t *testing.T) {
		h := NewOrdersHandler(&stubPurchases{}, &stubEngine{}, logger)
		w := postOrder(h, "not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Missing user", func(t *testing.T) {
		h := NewOrdersHandler(&stubPurchases{}, &stubEngine{}, logger)
		w := postOrder(h, `{"stars":50,"currency":"TON"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Validation errors", func(t *testing.T) {
		tests := []struct {
			name string
			err  error
			code int
		}{
			{name: "Too few stars", err: service.ErrQuantityTooSmall, code: http.StatusUnprocessableEntity},
			{name: "Too many stars", err: service.ErrQuantityTooLarge, code: http.StatusUnprocessableEntity},
			{name: "Unsupported currency", err: domain.ErrUnsupportedCurrency, code: http.StatusUnprocessableEntity},
			{name: "Unknown promo", err: domain.ErrPromoNotFound, code: http.StatusNotFound},
			{name: "Exhausted promo", err: domain.ErrPromoExhausted, code: http.StatusGone},
			{name: "Processor failure", err: errors.New("connection refused"), code: http.StatusBadGateway},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := NewOrdersHandler(&stubPurchases{err: tt.err}, &stubEngine{}, logger)
				w := postOrder(h, validBody)
				assert.Equal(t, tt.code, w.Code)
			})
		}
	})

	t.Run("Amount below minimum returns hint", func(t *testing.T) {
		h := NewOrdersHandler(&stubPurchases{err: &service.AmountTooSmallError{
			Amount:      decimal.RequireFromString("0.007"),
			Currency:    domain.CurrencyTON,
			MinQuantity: 69,
		}}, &stubEngine{}, logger)

		w := postOrder(h, validBody)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 69, resp.MinQuantity)
	})
}

func TestOrdersHandler_CheckOrder(t *testing.T) {
	logger := zap.NewNop()

	checkOrder := func(h *OrdersHandler, invoiceID string) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Post("/api/orders/{invoiceID}/check", h.CheckOrder)

		req := httptest.NewRequest(http.MethodPost, "/api/orders/"+invoiceID+"/check", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("Fulfilled", func(t *testing.T) {
		order := testOrder()
		order.Status = domain.OrderStatusFulfilled
		h := NewOrdersHandler(&stubPurchases{}, &stubEngine{
			result: &service.CheckResult{Status: service.CheckStatusFulfilled, Order: order},
		}, logger)

		w := checkOrder(h, "12345")
		assert.Equal(t, http.StatusOK, w.Code)

		var resp checkOrderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "fulfilled", resp.Status)
		require.NotNil(t, resp.Order)
		assert.Equal(t, domain.OrderStatusFulfilled, resp.Order.Status)
	})

	t.Run("Pending", func(t *testing.T) {
		h := NewOrdersHandler(&stubPurchases{}, &stubEngine{
			result: &service.CheckResult{Status: service.CheckStatusPending, Order: testOrder()},
		}, logger)

		w := checkOrder(h, "12345")
		assert.Equal(t, http.StatusOK, w.Code)

		var resp checkOrderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "pending", resp.Status)
	})

	t.Run("Check already in progress", func(t *testing.T) {
		h := NewOrdersHandler(&stubPurchases{}, &stubEngine{err: service.ErrCheckInFlight}, logger)
		w := checkOrder(h, "12345")
		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("Already processed", func(t *testing.T) {
		h := NewOrdersHandler(&stubPurchases{}, &stubEngine{err: service.ErrAlreadyProcessed}, logger)
		w := checkOrder(h, "12345")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Not found", func(t *testing.T) {
		h := NewOrdersHandler(&stubPurchases{}, &stubEngine{err: domain.ErrOrderNotFound}, logger)
		w := checkOrder(h, "12345")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Fulfillment failed", func(t *testing.T) {
		h := NewOrdersHandler(&stubPurchases{}, &stubEngine{
			err: service.ErrFulfillmentFailed,
		}, logger)
		w := checkOrder(h, "12345")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestPriceHandler_Quote(t *testing.T) {
	logger := zap.NewNop()

	quote := &service.Quote{
		Stars:           50,
		Currency:        domain.CurrencyTON,
		AmountRUB:       decimal.RequireFromString("72.5"),
		AmountCrypto:    decimal.RequireFromString("0.3625"),
		FormattedAmount: "0.3625",
	}

	t.Run("Success", func(t *testing.T) {
		h := NewPriceHandler(&stubPricing{quote: quote}, &stubPromos{}, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/price?stars=50&currency=TON", nil)
		w := httptest.NewRecorder()
		h.Quote(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp priceResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "0.3625", resp.Amount)
		assert.Equal(t, "72.50", resp.AmountRUB)
	})

	t.Run("With promo code", func(t *testing.T) {
		discounted := *quote
		discounted.DiscountPercent = 10
		h := NewPriceHandler(&stubPricing{quote: &discounted}, &stubPromos{
			promo: &domain.PromoCode{Code: "WELCOME10", DiscountPercent: 10},
		}, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/price?stars=50&currency=TON&promo_code=WELCOME10", nil)
		w := httptest.NewRecorder()
		h.Quote(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp priceResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 10, resp.DiscountPercent)
	})

	t.Run("Non-numeric stars", func(t *testing.T) {
		h := NewPriceHandler(&stubPricing{quote: quote}, &stubPromos{}, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/price?stars=fifty&currency=TON", nil)
		w := httptest.NewRecorder()
		h.Quote(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unknown promo", func(t *testing.T) {
		h := NewPriceHandler(&stubPricing{quote: quote}, &stubPromos{err: domain.ErrPromoNotFound}, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/price?stars=50&currency=TON&promo_code=GHOST", nil)
		w := httptest.NewRecorder()
		h.Quote(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Quantity below minimum", func(t *testing.T) {
		h := NewPriceHandler(&stubPricing{err: service.ErrQuantityTooSmall}, &stubPromos{}, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/price?stars=10&currency=TON", nil)
		w := httptest.NewRecorder()
		h.Quote(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestPromoHandler_Redeem(t *testing.T) {
	logger := zap.NewNop()

	redeem := func(h *PromoHandler, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/promo/redeem", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		h.Redeem(w, req)
		return w
	}

	t.Run("Success", func(t *testing.T) {
		h := NewPromoHandler(&stubPromos{
			promo: &domain.PromoCode{Code: "WELCOME10", DiscountPercent: 10},
		}, logger)

		w := redeem(h, `{"code":"welcome10"}`)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp redeemResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "WELCOME10", resp.Code)
		assert.Equal(t, 10, resp.DiscountPercent)
	})

	t.Run("Empty code", func(t *testing.T) {
		h := NewPromoHandler(&stubPromos{}, logger)
		w := redeem(h, `{"code":""}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Not found", func(t *testing.T) {
		h := NewPromoHandler(&stubPromos{err: domain.ErrPromoNotFound}, logger)
		w := redeem(h, `{"code":"GHOST"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Exhausted", func(t *testing.T) {
		h := NewPromoHandler(&stubPromos{err: domain.ErrPromoExhausted}, logger)
		w := redeem(h, `{"code":"EMPTY"}`)
		assert.Equal(t, http.StatusGone, w.Code)
	})
}

func TestProfileHandler_Profile(t *testing.T) {
	logger := zap.NewNop()

	h := NewProfileHandler(&stubLedger{profile: &domain.Profile{
		UserID:     7,
		TotalStars: 150,
		Transactions: []domain.Transaction{
			{Stars: 50, CreatedAt: time.Now()},
			{Stars: 100, Recipient: "somefriend", CreatedAt: time.Now()},
		},
	}}, logger)

	r := chi.NewRouter()
	r.Get("/api/users/{userID}/profile", h.Profile)

	t.Run("Success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/7/profile", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp domain.Profile
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(7), resp.UserID)
		assert.Equal(t, 150, resp.TotalStars)
		assert.Len(t, resp.Transactions, 2)
	})

	t.Run("Non-numeric user id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/bear/profile", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRatesHandler_Rates(t *testing.T) {
	h := NewRatesHandler(stubRatesSnapshot{
		domain.CurrencyTON:  decimal.NewFromInt(200),
		domain.CurrencyUSDT: decimal.NewFromInt(90),
	}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/rates", nil)
	w := httptest.NewRecorder()
	h.Rates(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "200", resp["TON"])
	assert.Equal(t, "90", resp["USDT"])
}

func TestHealthHandler_Health(t *testing.T) {
	logger := zap.NewNop()

	t.Run("Healthy", func(t *testing.T) {
		h := NewHealthHandler(stubFulfillmentStatus(true), logger)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		h.Health(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
	})

	t.Run("Degraded without fulfillment token", func(t *testing.T) {
		h := NewHealthHandler(stubFulfillmentStatus(false), logger)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		h.Health(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "unauthenticated", resp.Fulfillment)
	})
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/domain"
	"github.com/fusiokll/whitebearshop/internal/utils/username"
)

// PurchaseRequest описывает запрос на покупку звезд от UI-слоя
type PurchaseRequest struct {
	UserID         int64
	SenderUsername string
	Recipient      string // пусто — покупка себе
	Stars          int
	Currency       domain.Currency
	PromoCode      string
}

// PurchaseService создает заказы: считает стоимость, открывает инвойс
// у процессора и регистрирует заказ в хранилище
type PurchaseService struct {
	pricing  *Pricing
	promos   *PromoService
	payments domain.PaymentClient
	orders   domain.OrderRepository
	logger   *zap.Logger
}

// NewPurchaseService создает сервис покупок
func NewPurchaseService(
	pricing *Pricing,
	promos *PromoService,
	payments domain.PaymentClient,
	orders domain.OrderRepository,
	logger *zap.Logger,
) *PurchaseService {
	return &PurchaseService{
		pricing:  pricing,
		promos:   promos,
		payments: payments,
		orders:   orders,
		logger:   logger,
	}
}

// CreateOrder проводит полный цикл создания заказа.
// Сумма вычисляется один раз здесь и больше не пересчитывается.
func (s *PurchaseService) CreateOrder(ctx context.Context, req PurchaseRequest) (*domain.Order, error) {
	discountPercent := 0
	promoCode := ""
	if req.PromoCode != "" {
		promo, err := s.promos.Redeem(req.PromoCode)
		if err != nil {
			return nil, err
		}
		discountPercent = promo.DiscountPercent
		promoCode = promo.Code
	}

	recipient := ""
	if req.Recipient != "" {
		normalized, err := username.Normalize(req.Recipient)
		if err != nil {
			return nil, err
		}
		recipient = normalized
	}

	quote, err := s.pricing.Price(req.Stars, req.Currency, discountPercent)
	if err != nil {
		return nil, err
	}

	invoice, err := s.payments.CreateInvoice(ctx, domain.CreateInvoiceRequest{
		Currency:        quote.Currency,
		Amount:          quote.FormattedAmount,
		Stars:           quote.Stars,
		DiscountPercent: quote.DiscountPercent,
		Recipient:       recipient,
		Payload:         fmt.Sprintf("stars_%d_%s", quote.Stars, uuid.NewString()),
	})
	if err != nil {
		return nil, fmt.Errorf("purchase: create invoice: %w", err)
	}

	order := &domain.Order{
		InvoiceID:       invoice.ID,
		PayURL:          invoice.PayURL,
		UserID:          req.UserID,
		SenderUsername:  req.SenderUsername,
		Recipient:       recipient,
		Stars:           quote.Stars,
		Currency:        quote.Currency,
		AmountCrypto:    invoice.Amount,
		AmountRUB:       quote.AmountRUB,
		DiscountPercent: quote.DiscountPercent,
		PromoCode:       promoCode,
		Status:          domain.OrderStatusCreated,
		CreatedAt:       time.Now(),
	}

	if err := s.orders.Create(order); err != nil {
		return nil, fmt.Errorf("purchase: store order %s: %w", order.InvoiceID, err)
	}

	s.logger.Info("заказ создан",
		zap.String("invoice_id", order.InvoiceID),
		zap.Int64("user_id", order.UserID),
		zap.Int("stars", order.Stars),
		zap.String("currency", string(order.Currency)),
		zap.Int("discount_percent", order.DiscountPercent),
	)

	return order, nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

// CheckStatus представляет исход проверки платежа
type CheckStatus string

const (
	CheckStatusPending   CheckStatus = "pending"
	CheckStatusFulfilled CheckStatus = "fulfilled"
	CheckStatusExpired   CheckStatus = "expired"
)

// CheckResult представляет результат проверки платежа для UI-слоя
type CheckResult struct {
	Status CheckStatus
	Order  *domain.Order
}

// inFlightSet — множество инвойсов, проверяемых прямо сейчас.
// Не дает проверке по требованию и фоновому обходу одновременно
// обрабатывать один и тот же инвойс.
type inFlightSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInFlightSet() *inFlightSet {
	return &inFlightSet{ids: make(map[string]struct{})}
}

// tryAcquire атомарно занимает идентификатор.
// Возвращает false, если он уже занят.
func (s *inFlightSet) tryAcquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}

	return true
}

func (s *inFlightSet) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.ids, id)
}

// ReconcileEngine — машина состояний заказа: опрашивает процессор,
// переводит заказы по статусам и гарантирует ровно одну доставку
// на каждый оплаченный инвойс
type ReconcileEngine struct {
	orders      domain.OrderRepository
	ledger      domain.LedgerRepository
	promos      domain.PromoRepository
	payments    domain.PaymentClient
	fulfillment domain.FulfillmentClient
	notifier    domain.Notifier
	logger      *zap.Logger
	inFlight    *inFlightSet
}

// NewReconcileEngine создает движок сверки платежей
func NewReconcileEngine(
	orders domain.OrderRepository,
	ledger domain.LedgerRepository,
	promos domain.PromoRepository,
	payments domain.PaymentClient,
	fulfillment domain.FulfillmentClient,
	notifier domain.Notifier,
	logger *zap.Logger,
) *ReconcileEngine {
	return &ReconcileEngine{
		orders:      orders,
		ledger:      ledger,
		promos:      promos,
		payments:    payments,
		fulfillment: fulfillment,
		notifier:    notifier,
		logger:      logger,
		inFlight:    newInFlightSet(),
	}
}

// CheckPayment проверяет статус оплаты одного инвойса и, если платеж
// подтвержден, проводит доставку. Безопасен при конкурентных вызовах
// с одним идентификатором: второй вызывающий получает ErrCheckInFlight
// без побочных эффектов.
func (e *ReconcileEngine) CheckPayment(ctx context.Context, invoiceID string) (*CheckResult, error) {
	if !e.inFlight.tryAcquire(invoiceID) {
		return nil, ErrCheckInFlight
	}
	// Снятие на каждом пути выхода, иначе инвойс зависнет навсегда
	defer e.inFlight.release(invoiceID)

	order, err := e.orders.Get(invoiceID)
	if err != nil {
		return nil, err
	}

	status, err := e.payments.GetInvoiceStatus(ctx, invoiceID)
	if err != nil {
		// Неоднозначный ответ процессора: решение откладывается
		// до следующего триггера
		e.logger.Warn("не удалось получить статус инвойса",
			zap.String("invoice_id", invoiceID),
			zap.Error(err),
		)
		return &CheckResult{Status: CheckStatusPending, Order: order}, nil
	}

	switch status {
	case domain.InvoiceStatusPaid:
		return e.processPaid(ctx, invoiceID)
	case domain.InvoiceStatusExpired:
		e.orders.Delete(invoiceID)
		e.logger.Info("инвойс истек, заказ удален", zap.String("invoice_id", invoiceID))
		order.Status = domain.OrderStatusExpired
		return &CheckResult{Status: CheckStatusExpired, Order: order}, nil
	default:
		return &CheckResult{Status: CheckStatusPending, Order: order}, nil
	}
}

// processPaid проводит доставку по оплаченному инвойсу.
// Флаг processed выставляется в хранилище до вызова доставки: даже если
// удаление заказа по какой-то причине не случится, повторная обработка
// оборвется на этом флаге.
func (e *ReconcileEngine) processPaid(ctx context.Context, invoiceID string) (*CheckResult, error) {
	already, err := e.orders.MarkProcessed(invoiceID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, ErrAlreadyProcessed
	}

	order, err := e.orders.Get(invoiceID)
	if err != nil {
		return nil, err
	}

	if err := e.fulfillment.SendStars(ctx, order.StarsRecipient(), order.Stars); err != nil {
		// Платеж уже прошел: автоматический повтор доставки грозит дублем,
		// дальше разбирается оператор
		e.orders.Delete(invoiceID)
		e.logger.Error("ошибка доставки звезд",
			zap.String("invoice_id", invoiceID),
			zap.String("recipient", order.StarsRecipient()),
			zap.Error(err),
		)
		e.notifier.Notify(ctx, fulfillmentFailedMessage(order, err))

		order.Status = domain.OrderStatusFulfillmentFailed
		return nil, fmt.Errorf("%w: invoice %s: %s", ErrFulfillmentFailed, invoiceID, err)
	}

	// Баланс растет только при покупке себе
	if !order.IsGift() {
		e.ledger.Credit(order.UserID, order.Stars)
	}

	tx := domain.Transaction{
		Stars:     order.Stars,
		Recipient: order.Recipient,
		CreatedAt: time.Now(),
	}

	if order.PromoCode != "" {
		remaining, err := e.promos.Consume(order.PromoCode)
		if err != nil {
			// Код мог исчерпаться между заказами; доставка уже состоялась,
			// поэтому только логируем
			e.logger.Warn("не удалось списать активацию промокода",
				zap.String("promo_code", order.PromoCode),
				zap.Error(err),
			)
		} else {
			tx.PromoLabel = fmt.Sprintf("промокод %s (%d%%)", order.PromoCode, order.DiscountPercent)
			if remaining == 0 {
				e.notifier.Notify(ctx, promoExhaustedMessage(order))
			}
		}
	}

	e.ledger.AppendTransaction(order.UserID, tx)
	e.orders.Delete(invoiceID)

	e.logger.Info("заказ выполнен",
		zap.String("invoice_id", invoiceID),
		zap.Int("stars", order.Stars),
		zap.String("recipient", order.StarsRecipient()),
	)
	e.notifier.Notify(ctx, fulfilledMessage(order))

	order.Status = domain.OrderStatusFulfilled
	return &CheckResult{Status: CheckStatusFulfilled, Order: order}, nil
}

// fulfilledMessage формирует уведомление оператора об успешной покупке
func fulfilledMessage(order *domain.Order) string {
	var b strings.Builder
	b.WriteString("✅ Успешная покупка:\n")
	fmt.Fprintf(&b, "• Покупатель: @%s\n", order.SenderUsername)
	fmt.Fprintf(&b, "• Звезд: %d\n", order.Stars)
	if order.DiscountPercent > 0 {
		fmt.Fprintf(&b, "• Скидка: %d%% (промокод: %s)\n", order.DiscountPercent, order.PromoCode)
	}
	if order.IsGift() {
		fmt.Fprintf(&b, "• Получатель: @%s\n", order.Recipient)
	}
	fmt.Fprintf(&b, "• Сумма: %s %s (~%s RUB)\n", order.AmountCrypto.String(), order.Currency, order.AmountRUB.StringFixed(2))
	fmt.Fprintf(&b, "• Инвойс: %s", order.InvoiceID)
	return b.String()
}

// fulfillmentFailedMessage формирует уведомление оператора о сбое доставки
func fulfillmentFailedMessage(order *domain.Order, cause error) string {
	var b strings.Builder
	b.WriteString("⚠️ Ошибка отправки звезд:\n")
	fmt.Fprintf(&b, "• Покупатель: @%s\n", order.SenderUsername)
	fmt.Fprintf(&b, "• Звезд: %d\n", order.Stars)
	if order.IsGift() {
		fmt.Fprintf(&b, "• Получатель: @%s\n", order.Recipient)
	}
	fmt.Fprintf(&b, "• Ошибка: %s\n", cause)
	fmt.Fprintf(&b, "• Инвойс: %s", order.InvoiceID)
	return b.String()
}

// promoExhaustedMessage формирует уведомление об исчерпании промокода
func promoExhaustedMessage(order *domain.Order) string {
	return fmt.Sprintf(
		"⚠️ Промокод <code>%s</code> израсходован!\n• Скидка: %d%%\n• Последняя активация: @%s",
		order.PromoCode, order.DiscountPercent, order.SenderUsername,
	)
}

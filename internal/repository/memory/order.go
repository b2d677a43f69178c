// Package memory содержит хранилища в памяти процесса.
// Состояние заказов, промокодов и профилей намеренно не переживает
// перезапуск сервиса.
package memory

import (
	"sync"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

// OrderRepository хранит заказы по идентификатору инвойса
type OrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

// NewOrderRepository создает новое хранилище заказов
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// Create сохраняет новый заказ
func (r *OrderRepository) Create(order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.InvoiceID]; ok {
		return domain.ErrOrderExists
	}

	stored := *order
	if stored.Status == "" {
		stored.Status = domain.OrderStatusCreated
	}
	r.orders[order.InvoiceID] = &stored

	return nil
}

// Get возвращает копию заказа по идентификатору инвойса
func (r *OrderRepository) Get(invoiceID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[invoiceID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}

	snapshot := *order
	return &snapshot, nil
}

// Delete удаляет заказ. Удаление неизвестного идентификатора — no-op.
func (r *OrderRepository) Delete(invoiceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.orders, invoiceID)
}

// PendingIDs возвращает идентификаторы всех незавершенных заказов
func (r *OrderRepository) PendingIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.orders))
	for id := range r.orders {
		ids = append(ids, id)
	}

	return ids
}

// MarkProcessed атомарно выставляет флаг processed заказа.
// Возвращает true, если флаг уже был выставлен ранее: в этом случае
// повторная доставка запрещена.
func (r *OrderRepository) MarkProcessed(invoiceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[invoiceID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}

	if order.Processed {
		return true, nil
	}

	order.Processed = true
	order.Status = domain.OrderStatusPaidUnprocessed

	return false, nil
}

package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/domain"
	"github.com/fusiokll/whitebearshop/internal/service"
)

// PaymentChecker проверяет оплату одного инвойса и проводит доставку
type PaymentChecker interface {
	CheckPayment(ctx context.Context, invoiceID string) (*service.CheckResult, error)
}

// RateRefresher обновляет курсы валют из внешнего источника
type RateRefresher interface {
	Refresh(ctx context.Context) error
}

// Pool представляет пул воркеров фоновой сверки платежей.
// Сканер периодически собирает незакрытые инвойсы и раздает их воркерам,
// отдельный цикл обновляет курсы валют.
type Pool struct {
	workers       int
	queue         chan string
	orders        domain.OrderRepository
	checker       PaymentChecker
	rates         RateRefresher
	logger        *zap.Logger
	wg            sync.WaitGroup
	sweepInterval time.Duration
	rateInterval  time.Duration
}

// NewPool создает новый worker pool
func NewPool(
	workers int,
	queueSize int,
	orders domain.OrderRepository,
	checker PaymentChecker,
	rates RateRefresher,
	sweepInterval time.Duration,
	rateInterval time.Duration,
	logger *zap.Logger,
) *Pool {
	return &Pool{
		workers:       workers,
		queue:         make(chan string, queueSize),
		orders:        orders,
		checker:       checker,
		rates:         rates,
		logger:        logger,
		sweepInterval: sweepInterval,
		rateInterval:  rateInterval,
	}
}

// Start запускает worker pool
func (p *Pool) Start(ctx context.Context) {
	// Запускаем воркеры
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	// Запускаем сканер незакрытых инвойсов
	p.wg.Add(1)
	go p.sweeper(ctx)

	// Запускаем обновление курсов
	p.wg.Add(1)
	go p.rateLoop(ctx)
}

// Stop останавливает worker pool
func (p *Pool) Stop() {
	close(p.queue)
	p.wg.Wait()
}

// worker обрабатывает инвойсы из очереди
func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Info("worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping", zap.Int("worker_id", id))
			return
		case invoiceID, ok := <-p.queue:
			if !ok {
				return
			}
			p.checkInvoice(ctx, invoiceID)
		}
	}
}

// sweeper периодически сканирует незакрытые инвойсы
func (p *Pool) sweeper(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
			p.sweepPendingInvoices(ctx)
		}
	}
}

// rateLoop периодически обновляет курсы валют
func (p *Pool) rateLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.rateInterval)
	defer ticker.Stop()

	// Первое обновление сразу при старте, а не через целый интервал
	p.refreshRates(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("rate loop stopping")
			return
		case <-ticker.C:
			p.refreshRates(ctx)
		}
	}
}

func (p *Pool) refreshRates(ctx context.Context) {
	if err := p.rates.Refresh(ctx); err != nil {
		// Кэш продолжает отдавать последние известные значения
		p.logger.Warn("фоновое обновление курсов не удалось", zap.Error(err))
	}
}

// sweepPendingInvoices собирает незакрытые инвойсы и отправляет их в очередь
func (p *Pool) sweepPendingInvoices(ctx context.Context) {
	ids := p.orders.PendingIDs()

	for _, id := range ids {
		select {
		case p.queue <- id:
			// Успешно добавлено в очередь
		case <-ctx.Done():
			return
		default:
			// Очередь заполнена, инвойс дождется следующего обхода
			p.logger.Warn("queue is full, skipping invoice", zap.String("invoice_id", id))
		}
	}
}

// checkInvoice проверяет оплату одного инвойса
func (p *Pool) checkInvoice(ctx context.Context, invoiceID string) {
	p.logger.Debug("checking invoice", zap.String("invoice_id", invoiceID))

	result, err := p.checker.CheckPayment(ctx, invoiceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCheckInFlight),
			errors.Is(err, service.ErrAlreadyProcessed),
			errors.Is(err, domain.ErrOrderNotFound):
			// Инвойс уже обрабатывается или закрыт параллельной проверкой
			p.logger.Debug("invoice check skipped",
				zap.String("invoice_id", invoiceID),
				zap.Error(err),
			)
		default:
			p.logger.Error("invoice check failed",
				zap.String("invoice_id", invoiceID),
				zap.Error(err),
			)
		}
		return
	}

	if result.Status != service.CheckStatusPending {
		p.logger.Info("invoice closed",
			zap.String("invoice_id", invoiceID),
			zap.String("status", string(result.Status)),
		)
	}
}

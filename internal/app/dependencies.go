package app

import (
	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/config"
	"github.com/fusiokll/whitebearshop/internal/domain"
	"github.com/fusiokll/whitebearshop/internal/handlers"
	"github.com/fusiokll/whitebearshop/internal/repository/memory"
	"github.com/fusiokll/whitebearshop/internal/service"
	"github.com/fusiokll/whitebearshop/internal/worker"
)

// repositories содержит все репозитории приложения
type repositories struct {
	orders domain.OrderRepository
	ledger domain.LedgerRepository
	promos domain.PromoRepository
}

// services содержит все сервисы приложения
type services struct {
	rates       *service.RateCache
	pricing     *service.Pricing
	promos      *service.PromoService
	purchase    *service.PurchaseService
	engine      *service.ReconcileEngine
	payments    *service.CryptoPayClient
	fulfillment *service.FragmentClient
	notifier    *service.TelegramNotifier
}

// handlerSet содержит все хендлеры приложения
type handlerSet struct {
	orders  *handlers.OrdersHandler
	price   *handlers.PriceHandler
	promo   *handlers.PromoHandler
	profile *handlers.ProfileHandler
	rates   *handlers.RatesHandler
	health  *handlers.HealthHandler
}

// dependencies содержит все зависимости приложения
type dependencies struct {
	repos      *repositories
	services   *services
	handlers   *handlerSet
	workerPool *worker.Pool
}

// initDependencies создает все зависимости приложения
func initDependencies(cfg *config.Config, logger *zap.Logger) *dependencies {
	// Создание репозиториев. Состояние живет в памяти процесса:
	// перезапуск очищает заказы, балансы и счетчики промокодов.
	repos := &repositories{
		orders: memory.NewOrderRepository(),
		ledger: memory.NewLedgerRepository(),
		promos: memory.NewPromoRepository(memory.DefaultPromoCodes()),
	}

	// Создание клиентов внешних систем
	payments := service.NewCryptoPayClient(service.CryptoPayConfig{
		BaseURL:        cfg.CryptoPayAPIURL,
		Token:          cfg.CryptoPayToken,
		RetryMax:       cfg.CryptoPayRetries,
		RetryWait:      cfg.CryptoPayDelay,
		RequestTimeout: cfg.CryptoPayTimeout,
	}, logger)

	fulfillment := service.NewFragmentClient(service.FragmentConfig{
		BaseURL:        cfg.FragmentAPIURL,
		APIKey:         cfg.FragmentAPIKey,
		PhoneNumber:    cfg.FragmentPhone,
		Mnemonics:      cfg.FragmentMnemonics,
		MaxRetries:     cfg.FragmentRetries,
		RetryDelay:     cfg.FragmentDelay,
		RequestTimeout: cfg.FragmentTimeout,
	}, logger)

	notifier := service.NewTelegramNotifier(service.NotifierConfig{
		BaseURL:        cfg.TelegramAPIURL,
		Token:          cfg.TelegramToken,
		ChatID:         cfg.OperatorChatID,
		MaxRetries:     cfg.CryptoPayRetries,
		RetryDelay:     cfg.CryptoPayDelay,
		RequestTimeout: cfg.QuoteTimeout,
	}, logger)

	quoteSource := service.NewCoinGeckoClient(cfg.QuoteAPIURL, cfg.QuoteTimeout)

	// Создание сервисов
	rates := service.NewRateCache(quoteSource, cfg.RateStaleAfter, logger)
	pricing := service.NewPricing(service.PricingConfig{
		PricePerStarRUB:  cfg.PricePerStarRUB,
		MinStars:         cfg.MinStars,
		MaxStars:         cfg.MaxStars,
		MinInvoiceAmount: cfg.MinInvoiceAmount,
	}, rates)
	promos := service.NewPromoService(repos.promos)
	purchase := service.NewPurchaseService(pricing, promos, payments, repos.orders, logger)
	engine := service.NewReconcileEngine(
		repos.orders, repos.ledger, repos.promos,
		payments, fulfillment, notifier, logger,
	)

	svcs := &services{
		rates:       rates,
		pricing:     pricing,
		promos:      promos,
		purchase:    purchase,
		engine:      engine,
		payments:    payments,
		fulfillment: fulfillment,
		notifier:    notifier,
	}

	// Создание handlers
	hdlrs := &handlerSet{
		orders:  handlers.NewOrdersHandler(purchase, engine, logger),
		price:   handlers.NewPriceHandler(pricing, promos, logger),
		promo:   handlers.NewPromoHandler(promos, logger),
		profile: handlers.NewProfileHandler(repos.ledger, logger),
		rates:   handlers.NewRatesHandler(rates, logger),
		health:  handlers.NewHealthHandler(fulfillment, logger),
	}

	// Создание worker pool
	workerPool := worker.NewPool(
		cfg.WorkerPoolSize,
		cfg.WorkerQueueSize,
		repos.orders,
		engine,
		rates,
		cfg.SweepInterval,
		cfg.RateRefreshInterval,
		logger,
	)

	return &dependencies{
		repos:      repos,
		services:   svcs,
		handlers:   hdlrs,
		workerPool: workerPool,
	}
}

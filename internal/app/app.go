package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/config"
	"github.com/fusiokll/whitebearshop/internal/service"
	"github.com/fusiokll/whitebearshop/internal/worker"
)

// App представляет приложение
type App struct {
	config      *config.Config
	logger      *zap.Logger
	router      *chi.Mux
	workerPool  *worker.Pool
	fulfillment *service.FragmentClient
	server      *http.Server
}

// NewApp создает новое приложение
func NewApp() (*App, error) {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Инициализация логгера
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	// Инициализация зависимостей
	deps := initDependencies(cfg, logger)

	// Настройка роутера
	router := setupRouter(deps, logger)

	// Создание HTTP сервера
	server := createServer(cfg.RunAddress, router)

	return &App{
		config:      cfg,
		logger:      logger,
		router:      router,
		workerPool:  deps.workerPool,
		fulfillment: deps.services.fulfillment,
		server:      server,
	}, nil
}

// Run запускает приложение
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Аутентификация в канале доставки. Сбой не роняет сервис:
	// заказы принимаются, доставка восстановится после переаутентификации.
	if err := a.fulfillment.Authenticate(ctx); err != nil {
		a.logger.Error("fulfillment authentication failed on startup", zap.Error(err))
	}

	// Запуск worker pool
	a.workerPool.Start(ctx)
	a.logger.Info("worker pool started")

	// Запуск HTTP сервера и ожидание сигнала завершения
	if err := a.runServer(ctx); err != nil {
		return err
	}

	// Graceful shutdown
	a.shutdown(cancel)

	return nil
}

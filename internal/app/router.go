package app

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/handlers"
)

// setupRouter создает и настраивает роутер
func setupRouter(deps *dependencies, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	setupMiddleware(r, logger)

	// Маршруты
	setupRoutes(r, deps)

	return r
}

// setupMiddleware настраивает middleware для роутера
func setupMiddleware(r *chi.Mux, logger *zap.Logger) {
	r.Use(handlers.RequestIDMiddleware())
	r.Use(handlers.LoggingMiddleware(logger))
	r.Use(handlers.RecoveryMiddleware(logger))
	r.Use(middleware.Compress(5))
}

// setupRoutes настраивает маршруты приложения
func setupRoutes(r *chi.Mux, deps *dependencies) {
	// Health check эндпоинты
	r.Get("/health", deps.handlers.health.Health)
	r.Get("/ready", deps.handlers.health.Ready)

	// Заказы
	r.Post("/api/orders", deps.handlers.orders.CreateOrder)
	r.Post("/api/orders/{invoiceID}/check", deps.handlers.orders.CheckOrder)

	// Стоимость и курсы
	r.Get("/api/price", deps.handlers.price.Quote)
	r.Get("/api/rates", deps.handlers.rates.Rates)

	// Промокоды
	r.Post("/api/promo/redeem", deps.handlers.promo.Redeem)

	// Профиль пользователя
	r.Get("/api/users/{userID}/profile", deps.handlers.profile.Profile)
}

package memory

import (
	"strings"
	"sync"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

// PromoRepository хранит каталог промокодов со счетчиками активаций
type PromoRepository struct {
	mu    sync.Mutex
	codes map[string]*domain.PromoCode
}

// NewPromoRepository создает хранилище промокодов с заданным каталогом
func NewPromoRepository(seed []domain.PromoCode) *PromoRepository {
	codes := make(map[string]*domain.PromoCode, len(seed))
	for _, promo := range seed {
		stored := promo
		stored.Code = normalizeCode(promo.Code)
		codes[stored.Code] = &stored
	}

	return &PromoRepository{codes: codes}
}

// DefaultPromoCodes возвращает стартовый каталог промокодов
func DefaultPromoCodes() []domain.PromoCode {
	return []domain.PromoCode{
		{Code: "WELCOME10", DiscountPercent: 10, Activations: 5},
		{Code: "STARS20", DiscountPercent: 20, Activations: 5},
		{Code: "BEAR30", DiscountPercent: 30, Activations: 5},
	}
}

// Get возвращает копию промокода. Поиск нечувствителен к регистру.
func (r *PromoRepository) Get(code string) (*domain.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	promo, ok := r.codes[normalizeCode(code)]
	if !ok {
		return nil, domain.ErrPromoNotFound
	}

	snapshot := *promo
	return &snapshot, nil
}

// Consume списывает одну активацию промокода и возвращает остаток.
// Счетчик не может уйти в минус.
func (r *PromoRepository) Consume(code string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	promo, ok := r.codes[normalizeCode(code)]
	if !ok {
		return 0, domain.ErrPromoNotFound
	}

	if promo.Activations <= 0 {
		return 0, domain.ErrPromoExhausted
	}

	promo.Activations--

	return promo.Activations, nil
}

// normalizeCode приводит промокод к каноничному виду
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

package service

import (
	"github.com/fusiokll/whitebearshop/internal/domain"
)

// PromoService проверяет промокоды при вводе.
// Счетчик активаций здесь не трогается: он списывается движком сверки
// только после подтвержденной доставки, поэтому брошенный заказ
// активацию не сжигает.
type PromoService struct {
	promos domain.PromoRepository
}

// NewPromoService создает сервис промокодов
func NewPromoService(promos domain.PromoRepository) *PromoService {
	return &PromoService{promos: promos}
}

// Redeem проверяет промокод и возвращает размер скидки.
// Неизвестный или израсходованный код отклоняется.
func (s *PromoService) Redeem(code string) (*domain.PromoCode, error) {
	promo, err := s.promos.Get(code)
	if err != nil {
		return nil, err
	}

	if promo.Activations <= 0 {
		return nil, domain.ErrPromoExhausted
	}

	return promo, nil
}

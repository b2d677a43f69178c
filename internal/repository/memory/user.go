package memory

import (
	"sync"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

// LedgerRepository хранит баланс звезд и историю покупок по пользователям
type LedgerRepository struct {
	mu       sync.Mutex
	profiles map[int64]*domain.Profile
}

// NewLedgerRepository создает новое хранилище профилей
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		profiles: make(map[int64]*domain.Profile),
	}
}

// Credit увеличивает баланс звезд пользователя
func (r *LedgerRepository) Credit(userID int64, stars int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profile(userID).TotalStars += stars
}

// AppendTransaction добавляет запись в историю покупок.
// История только растет, существующие записи не изменяются.
func (r *LedgerRepository) AppendTransaction(userID int64, tx domain.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile := r.profile(userID)
	profile.Transactions = append(profile.Transactions, tx)
}

// Profile возвращает копию профиля пользователя.
// Для неизвестного пользователя возвращается пустой профиль.
func (r *LedgerRepository) Profile(userID int64) *domain.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile := r.profile(userID)

	snapshot := domain.Profile{
		UserID:       profile.UserID,
		TotalStars:   profile.TotalStars,
		Transactions: make([]domain.Transaction, len(profile.Transactions)),
	}
	copy(snapshot.Transactions, profile.Transactions)

	return &snapshot
}

// profile возвращает профиль пользователя, создавая его при необходимости.
// Вызывающий должен держать мьютекс.
func (r *LedgerRepository) profile(userID int64) *domain.Profile {
	profile, ok := r.profiles[userID]
	if !ok {
		profile = &domain.Profile{UserID: userID}
		r.profiles[userID] = profile
	}

	return profile
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

// ProfileProvider отдает профиль пользователя.
type ProfileProvider interface {
	Profile(userID int64) *domain.Profile
}

type ProfileHandler struct {
	ledger ProfileProvider
	logger *zap.Logger
}

func NewProfileHandler(ledger ProfileProvider, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		ledger: ledger,
		logger: logger,
	}
}

// Profile возвращает накопленный баланс и историю покупок пользователя.
// Для неизвестного пользователя возвращается пустой профиль.
func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user id must be an integer")
		return
	}

	writeJSON(w, http.StatusOK, h.ledger.Profile(userID))
}

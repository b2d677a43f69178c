package memory

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusiokll/whitebearshop/internal/domain"
)

func newTestOrder(invoiceID string) *domain.Order {
	return &domain.Order{
		InvoiceID:      invoiceID,
		PayURL:         "https://pay.crypt.bot/invoice/" + invoiceID,
		UserID:         42,
		SenderUsername: "whitebear",
		Stars:          100,
		Currency:       domain.CurrencyTON,
		AmountCrypto:   decimal.RequireFromString("0.725"),
		AmountRUB:      decimal.RequireFromString("145"),
	}
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo := NewOrderRepository()

	t.Run("Success", func(t *testing.T) {
		order := newTestOrder("1001")

		require.NoError(t, repo.Create(order))

		got, err := repo.Get("1001")
		require.NoError(t, err)
		assert.Equal(t, "1001", got.InvoiceID)
		assert.Equal(t, domain.OrderStatusCreated, got.Status)
		assert.False(t, got.Processed)
	})

	t.Run("Duplicate invoice id", func(t *testing.T) {
		err := repo.Create(newTestOrder("1001"))
		assert.ErrorIs(t, err, domain.ErrOrderExists)
	})

	t.Run("Unknown invoice id", func(t *testing.T) {
		_, err := repo.Get("9999")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("Get returns a snapshot", func(t *testing.T) {
		got, err := repo.Get("1001")
		require.NoError(t, err)

		got.Stars = 7

		again, err := repo.Get("1001")
		require.NoError(t, err)
		assert.Equal(t, 100, again.Stars)
	})
}

func TestOrderRepository_Delete(t *testing.T) {
	repo := NewOrderRepository()
	require.NoError(t, repo.Create(newTestOrder("2001")))

	repo.Delete("2001")

	_, err := repo.Get("2001")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	// Повторное удаление — no-op
	repo.Delete("2001")
}

func TestOrderRepository_PendingIDs(t *testing.T) {
	repo := NewOrderRepository()

	assert.Empty(t, repo.PendingIDs())

	require.NoError(t, repo.Create(newTestOrder("3001")))
	require.NoError(t, repo.Create(newTestOrder("3002")))

	assert.ElementsMatch(t, []string{"3001", "3002"}, repo.PendingIDs())
}

func TestOrderRepository_MarkProcessed(t *testing.T) {
	t.Run("First call sets the flag", func(t *testing.T) {
		repo := NewOrderRepository()
		require.NoError(t, repo.Create(newTestOrder("4001")))

		already, err := repo.MarkProcessed("4001")
		require.NoError(t, err)
		assert.False(t, already)

		got, err := repo.Get("4001")
		require.NoError(t, err)
		assert.True(t, got.Processed)
		assert.Equal(t, domain.OrderStatusPaidUnprocessed, got.Status)
	})

	t.Run("Second call reports already processed", func(t *testing.T) {
		repo := NewOrderRepository()
		require.NoError(t, repo.Create(newTestOrder("4002")))

		_, err := repo.MarkProcessed("4002")
		require.NoError(t, err)

		already, err := repo.MarkProcessed("4002")
		require.NoError(t, err)
		assert.True(t, already)
	})

	t.Run("Unknown invoice id", func(t *testing.T) {
		repo := NewOrderRepository()

		_, err := repo.MarkProcessed("9999")
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("Concurrent calls set the flag exactly once", func(t *testing.T) {
		repo := NewOrderRepository()
		require.NoError(t, repo.Create(newTestOrder("4003")))

		const attempts = 50

		var wg sync.WaitGroup
		var mu sync.Mutex
		firstWins := 0

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				already, err := repo.MarkProcessed("4003")
				if err != nil {
					return
				}
				if !already {
					mu.Lock()
					firstWins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, firstWins)
	})
}

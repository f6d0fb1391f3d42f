package repositories_test

import (
	"testing"
	"time"

	"kedai/internal/models"
	"kedai/internal/repositories"

	"github.com/stretchr/testify/assert"
)

func TestMockOrderRepository_StatusAxesAreIndependent(t *testing.T) {
	repo := repositories.NewMockOrderRepository()

	order := &models.Order{UserID: "user-1", TotalPrice: 100}
	assert.NoError(t, repo.Create(order))
	assert.NotEmpty(t, order.ID)

	// Delivery can be flipped while the order is still unpaid
	assert.NoError(t, repo.MarkDelivered(order.ID, time.Now()))

	got, err := repo.GetByID(order.ID)
	assert.NoError(t, err)
	assert.True(t, got.IsDelivered)
	assert.NotNil(t, got.DeliveredAt)
	assert.False(t, got.IsPaid)
	assert.Nil(t, got.PaidAt)

	// Flipping payment leaves the delivery axis alone
	result := models.PaymentResult{ProviderID: "pay-1", Status: "COMPLETED"}
	assert.NoError(t, repo.MarkPaid(order.ID, result, time.Now()))

	got, err = repo.GetByID(order.ID)
	assert.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.NotNil(t, got.PaidAt)
	assert.Equal(t, "pay-1", got.PaymentResult.ProviderID)
	assert.True(t, got.IsDelivered)
}

func TestMockOrderRepository_GetByUser(t *testing.T) {
	repo := repositories.NewMockOrderRepository()

	assert.NoError(t, repo.Create(&models.Order{UserID: "user-1"}))
	assert.NoError(t, repo.Create(&models.Order{UserID: "user-2"}))
	assert.NoError(t, repo.Create(&models.Order{UserID: "user-1"}))

	orders, err := repo.GetByUser("user-1")
	assert.NoError(t, err)
	assert.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, "user-1", o.UserID)
	}
}

func TestMockOrderRepository_NotFound(t *testing.T) {
	repo := repositories.NewMockOrderRepository()

	_, err := repo.GetByID("ghost")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repo.MarkPaid("ghost", models.PaymentResult{}, time.Now()), repositories.ErrNotFound)
	assert.ErrorIs(t, repo.MarkDelivered("ghost", time.Now()), repositories.ErrNotFound)
}

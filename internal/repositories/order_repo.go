package repositories

import (
	"time"

	"kedai/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	GetAll() ([]models.Order, error)
	GetByUser(userID string) ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	Create(order *models.Order) error

	// MarkPaid flips the payment axis: it records the provider's payment
	// result and the paid timestamp. The delivery axis is untouched.
	MarkPaid(id string, result models.PaymentResult, paidAt time.Time) error

	// MarkDelivered flips the delivery axis and records the delivered
	// timestamp. The payment axis is untouched.
	MarkDelivered(id string, deliveredAt time.Time) error
}

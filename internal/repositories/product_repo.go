package repositories

import (
	"kedai/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error

	// DecrementStock atomically decrements a product's stock by qty, guarded
	// by stock >= qty. It wraps ErrInsufficientStock when the guard rejects
	// the decrement and ErrNotFound when the product does not exist.
	DecrementStock(id string, qty int) error

	// RestoreStock adds qty back to a product's stock. Used as the
	// compensating action when a later step of order placement fails.
	RestoreStock(id string, qty int) error
}

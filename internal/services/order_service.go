package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"kedai/internal/models"
	"kedai/internal/pricing"
	"kedai/internal/repositories"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Validation errors surfaced by order placement before anything is mutated.
var (
	ErrNoItems         = errors.New("no order items")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
)

// EventPublisher publishes order lifecycle events to the message broker.
// Publishing is fire-and-forget from the order flow's point of view: a
// failed publish must never fail the order.
type EventPublisher interface {
	Publish(eventType string, body []byte) error
}

// OrderItemRequest is one requested line item: a product and a quantity.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"qty" validate:"required,gt=0"`
}

// PlaceOrderRequest is the caller-submitted order payload.
type PlaceOrderRequest struct {
	Items           []OrderItemRequest     `json:"order_items" validate:"required,min=1,dive"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method" validate:"required"`

	// Price fields submitted by the client are accepted in the payload for
	// compatibility but never trusted; totals are recomputed from the
	// catalog prices at placement time.
	ItemsPrice    float64 `json:"items_price"`
	ShippingPrice float64 `json:"shipping_price"`
	TaxPrice      float64 `json:"tax_price"`
	TotalPrice    float64 `json:"total_price"`
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	publisher   EventPublisher
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository, publisher EventPublisher) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		publisher:   publisher,
	}
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// GetOrdersByUser retrieves the orders belonging to a single user.
func (s *OrderService) GetOrdersByUser(userID string) ([]models.Order, error) {
	return s.orderRepo.GetByUser(userID)
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// PlaceOrder validates the requested line items against the catalog,
// decrements stock, persists the order with server-computed prices and
// dispatches an order-created notification.
func (s *OrderService) PlaceOrder(userID string, req PlaceOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}

	// 1. Validate every line item against the catalog. Lookups run
	// concurrently; nothing is mutated until all of them pass.
	products := make([]*models.Product, len(req.Items))
	var g errgroup.Group
	for i, item := range req.Items {
		g.Go(func() error {
			if item.Quantity <= 0 {
				return fmt.Errorf("product %s: %w", item.ProductID, ErrInvalidQuantity)
			}
			product, err := s.productRepo.GetByID(item.ProductID)
			if err != nil {
				return err
			}
			if product.Stock < item.Quantity {
				return fmt.Errorf("product %s (requested: %d, available: %d): %w",
					product.Name, item.Quantity, product.Stock, repositories.ErrInsufficientStock)
			}
			products[i] = product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 2. Apply a conditional atomic decrement per item. The guard re-checks
	// stock at mutation time, so a race lost to a concurrent order surfaces
	// here as insufficient stock rather than oversell. Decrements already
	// applied are compensated when a later item fails.
	decremented := make([]OrderItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		if err := s.productRepo.DecrementStock(item.ProductID, item.Quantity); err != nil {
			s.restock(decremented)
			return nil, err
		}
		decremented = append(decremented, item)
	}

	// 3. Snapshot line items and recompute totals from catalog prices,
	// discarding whatever prices the client submitted.
	items := make([]models.OrderItem, len(req.Items))
	lines := make([]pricing.Line, len(req.Items))
	for i, item := range req.Items {
		product := products[i]
		items[i] = models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Image,
			Price:     product.Price,
			Quantity:  item.Quantity,
		}
		lines[i] = pricing.Line{UnitPrice: product.Price, Quantity: item.Quantity}
	}
	totals := pricing.Calc(lines)

	newOrder := &models.Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      totals.ItemsPrice,
		ShippingPrice:   totals.ShippingPrice,
		TaxPrice:        totals.TaxPrice,
		TotalPrice:      totals.TotalPrice,
	}

	// 4. Persist the order; on failure restore every decrement from step 2.
	if err := s.orderRepo.Create(newOrder); err != nil {
		s.restock(decremented)
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}

	// 5. Fire-and-forget notification.
	s.publishOrderCreated(newOrder)

	return newOrder, nil
}

// MarkOrderPaid flips the payment axis of an order, recording the external
// provider's payment result. The delivery axis is left untouched.
func (s *OrderService) MarkOrderPaid(id string, result models.PaymentResult) (*models.Order, error) {
	if err := s.orderRepo.MarkPaid(id, result, time.Now()); err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(id)
}

// MarkOrderDelivered flips the delivery axis of an order. The payment axis
// is left untouched.
func (s *OrderService) MarkOrderDelivered(id string) (*models.Order, error) {
	if err := s.orderRepo.MarkDelivered(id, time.Now()); err != nil {
		return nil, err
	}
	return s.orderRepo.GetByID(id)
}

// restock is the compensating action for decrements applied before a later
// step of placement failed. Failures here are logged; there is nothing the
// caller can do about them.
func (s *OrderService) restock(items []OrderItemRequest) {
	for _, item := range items {
		if err := s.productRepo.RestoreStock(item.ProductID, item.Quantity); err != nil {
			log.Printf("Warning: failed to restore %d units of product %s: %v",
				item.Quantity, item.ProductID, err)
		}
	}
}

func (s *OrderService) publishOrderCreated(order *models.Order) {
	if s.publisher == nil {
		log.Println("Event publisher is not configured. Skipping order notification.")
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"order_id":   order.ID,
		"user_id":    order.UserID,
		"total":      order.TotalPrice,
		"item_count": len(order.Items),
	})
	if err != nil {
		log.Printf("Failed to marshal order %s for notification: %v", order.ID, err)
		return
	}

	if err := s.publisher.Publish("order.created", body); err != nil {
		log.Printf("Warning: failed to publish order created event for order %s: %v", order.ID, err)
	} else {
		log.Printf("Published order created event for order %s", order.ID)
	}
}

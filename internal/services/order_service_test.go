package services_test

import (
	"fmt"
	"testing"
	"time"

	"kedai/internal/models"
	"kedai/internal/repositories"
	"kedai/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of repositories.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetAll() ([]models.Order, error) {
	args := m.Called()
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByUser(userID string) ([]models.Order, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(order *models.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkPaid(id string, result models.PaymentResult, paidAt time.Time) error {
	args := m.Called(id, result, paidAt)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkDelivered(id string, deliveredAt time.Time) error {
	args := m.Called(id, deliveredAt)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of services.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(eventType string, body []byte) error {
	args := m.Called(eventType, body)
	return args.Error(0)
}

func placeOrderFixture() (*MockOrderRepository, *MockProductRepository, *MockEventPublisher, *services.OrderService) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	publisher := new(MockEventPublisher)
	service := services.NewOrderService(orderRepo, productRepo, publisher)
	return orderRepo, productRepo, publisher, service
}

func TestOrderService_PlaceOrder_Success(t *testing.T) {
	orderRepo, productRepo, publisher, service := placeOrderFixture()

	laptop := &models.Product{ID: "p1", Name: "Laptop", Image: "https://cdn.example.com/laptop.png", Price: 1200.00, Stock: 10}
	mouse := &models.Product{ID: "p2", Name: "Mouse", Price: 25.00, Stock: 50}

	productRepo.On("GetByID", "p1").Return(laptop, nil).Once()
	productRepo.On("GetByID", "p2").Return(mouse, nil).Once()
	productRepo.On("DecrementStock", "p1", 2).Return(nil).Once()
	productRepo.On("DecrementStock", "p2", 3).Return(nil).Once()
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(nil).Once()
	publisher.On("Publish", "order.created", mock.Anything).Return(nil).Once()

	order, err := service.PlaceOrder("user-1", services.PlaceOrderRequest{
		Items: []services.OrderItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 3},
		},
		PaymentMethod: "card",
		// Client-submitted prices must be discarded
		ItemsPrice: 1.23,
		TotalPrice: 1.23,
	})

	assert.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, "user-1", order.UserID)
	assert.NotEmpty(t, order.ID)
	assert.Len(t, order.Items, 2)

	// Line items are server-side snapshots of the catalog
	assert.Equal(t, "Laptop", order.Items[0].Name)
	assert.Equal(t, 1200.00, order.Items[0].Price)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "https://cdn.example.com/laptop.png", order.Items[0].Image)

	// Totals come from catalog prices, not the request body
	assert.Equal(t, 2475.00, order.ItemsPrice)
	assert.Equal(t, 2475.00, order.TotalPrice)
	assert.Equal(t, 0.0, order.ShippingPrice)
	assert.Equal(t, 0.0, order.TaxPrice)

	assert.False(t, order.IsPaid)
	assert.False(t, order.IsDelivered)

	orderRepo.AssertExpectations(t)
	productRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_EmptyItems(t *testing.T) {
	orderRepo, productRepo, _, service := placeOrderFixture()

	order, err := service.PlaceOrder("user-1", services.PlaceOrderRequest{PaymentMethod: "card"})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, services.ErrNoItems)
	// Nothing touched the store
	productRepo.AssertNotCalled(t, "GetByID", mock.Anything)
	productRepo.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestOrderService_PlaceOrder_InvalidQuantity(t *testing.T) {
	_, productRepo, _, service := placeOrderFixture()

	productRepo.On("GetByID", mock.Anything).Return(&models.Product{ID: "p1", Stock: 5}, nil).Maybe()

	order, err := service.PlaceOrder("user-1", services.PlaceOrderRequest{
		Items: []services.OrderItemRequest{{ProductID: "p1", Quantity: 0}},
	})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)
	productRepo.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything)
}

func TestOrderService_PlaceOrder_ProductNotFound(t *testing.T) {
	orderRepo, productRepo, _, service := placeOrderFixture()

	laptop := &models.Product{ID: "p1", Name: "Laptop", Price: 1200.00, Stock: 10}
	productRepo.On("GetByID", "p1").Return(laptop, nil).Maybe()
	productRepo.On("GetByID", "missing").
		Return(nil, fmt.Errorf("product with ID missing: %w", repositories.ErrNotFound)).Once()

	order, err := service.PlaceOrder("user-1", services.PlaceOrderRequest{
		Items: []services.OrderItemRequest{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "missing", Quantity: 1},
		},
	})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	// Validation failed, so no stock was mutated
	productRepo.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestOrderService_PlaceOrder_InsufficientStock(t *testing.T) {
	orderRepo, productRepo, _, service := placeOrderFixture()

	keyboard := &models.Product{ID: "p1", Name: "Keyboard", Price: 75.00, Stock: 2}
	productRepo.On("GetByID", "p1").Return(keyboard, nil).Once()

	order, err := service.PlaceOrder("user-1", services.PlaceOrderRequest{
		Items: []services.OrderItemRequest{{ProductID: "p1", Quantity: 5}},
	})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock)
	productRepo.AssertNotCalled(t, "DecrementStock", mock.Anything, mock.Anything)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestOrderService_PlaceOrder_CompensatesFailedDecrement(t *testing.T) {
	orderRepo, productRepo, _, service := placeOrderFixture()

	laptop := &models.Product{ID: "p1", Name: "Laptop", Price: 1200.00, Stock: 10}
	mouse := &models.Product{ID: "p2", Name: "Mouse", Price: 25.00, Stock: 50}
	productRepo.On("GetByID", "p1").Return(laptop, nil).Once()
	productRepo.On("GetByID", "p2").Return(mouse, nil).Once()

	// The second decrement loses a race: a concurrent order drained the
	// stock between validation and mutation.
	productRepo.On("DecrementStock", "p1", 2).Return(nil).Once()
	productRepo.On("DecrementStock", "p2", 3).
		Return(fmt.Errorf("product p2 (requested: 3): %w", repositories.ErrInsufficientStock)).Once()
	productRepo.On("RestoreStock", "p1", 2).Return(nil).Once()

	order, err := service.PlaceOrder("user-1", services.PlaceOrderRequest{
		Items: []services.OrderItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 3},
		},
	})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
	productRepo.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_CompensatesFailedPersist(t *testing.T) {
	orderRepo, productRepo, publisher, service := placeOrderFixture()

	laptop := &models.Product{ID: "p1", Name: "Laptop", Price: 1200.00, Stock: 10}
	productRepo.On("GetByID", "p1").Return(laptop, nil).Once()
	productRepo.On("DecrementStock", "p1", 1).Return(nil).Once()
	productRepo.On("RestoreStock", "p1", 1).Return(nil).Once()
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).
		Return(fmt.Errorf("database error")).Once()

	order, err := service.PlaceOrder("user-1", services.PlaceOrderRequest{
		Items: []services.OrderItemRequest{{ProductID: "p1", Quantity: 1}},
	})

	assert.Nil(t, order)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	productRepo.AssertExpectations(t)
	orderRepo.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	orderRepo, productRepo, publisher, service := placeOrderFixture()

	laptop := &models.Product{ID: "p1", Name: "Laptop", Price: 1200.00, Stock: 10}
	productRepo.On("GetByID", "p1").Return(laptop, nil).Once()
	productRepo.On("DecrementStock", "p1", 1).Return(nil).Once()
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(nil).Once()
	publisher.On("Publish", "order.created", mock.Anything).
		Return(fmt.Errorf("broker unavailable")).Once()

	order, err := service.PlaceOrder("user-1", services.PlaceOrderRequest{
		Items: []services.OrderItemRequest{{ProductID: "p1", Quantity: 1}},
	})

	assert.NoError(t, err)
	assert.NotNil(t, order)
	publisher.AssertExpectations(t)
}

func TestOrderService_PlaceOrder_NilPublisher(t *testing.T) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	service := services.NewOrderService(orderRepo, productRepo, nil)

	laptop := &models.Product{ID: "p1", Name: "Laptop", Price: 1200.00, Stock: 10}
	productRepo.On("GetByID", "p1").Return(laptop, nil).Once()
	productRepo.On("DecrementStock", "p1", 1).Return(nil).Once()
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(nil).Once()

	order, err := service.PlaceOrder("user-1", services.PlaceOrderRequest{
		Items: []services.OrderItemRequest{{ProductID: "p1", Quantity: 1}},
	})

	assert.NoError(t, err)
	assert.NotNil(t, order)
}

func TestOrderService_MarkOrderPaid(t *testing.T) {
	orderRepo, _, _, service := placeOrderFixture()

	result := models.PaymentResult{
		ProviderID: "pay-123",
		Status:     "COMPLETED",
		UpdateTime: "2024-05-01T10:00:00Z",
		PayerEmail: "buyer@example.com",
	}
	paidAt := time.Now()
	paid := &models.Order{
		ID: "order-1", UserID: "user-1",
		IsPaid: true, PaidAt: &paidAt, PaymentResult: result,
		IsDelivered: false,
	}

	orderRepo.On("MarkPaid", "order-1", result, mock.AnythingOfType("time.Time")).Return(nil).Once()
	orderRepo.On("GetByID", "order-1").Return(paid, nil).Once()

	order, err := service.MarkOrderPaid("order-1", result)

	assert.NoError(t, err)
	assert.True(t, order.IsPaid)
	assert.NotNil(t, order.PaidAt)
	assert.Equal(t, "pay-123", order.PaymentResult.ProviderID)
	// The delivery axis is untouched
	assert.False(t, order.IsDelivered)
	assert.Nil(t, order.DeliveredAt)
	orderRepo.AssertExpectations(t)
}

func TestOrderService_MarkOrderPaid_NotFound(t *testing.T) {
	orderRepo, _, _, service := placeOrderFixture()

	orderRepo.On("MarkPaid", "missing", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(fmt.Errorf("order with ID missing: %w", repositories.ErrNotFound)).Once()

	order, err := service.MarkOrderPaid("missing", models.PaymentResult{})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	orderRepo.AssertExpectations(t)
}

func TestOrderService_MarkOrderDelivered(t *testing.T) {
	orderRepo, _, _, service := placeOrderFixture()

	deliveredAt := time.Now()
	delivered := &models.Order{
		ID: "order-1", UserID: "user-1",
		IsDelivered: true, DeliveredAt: &deliveredAt,
		IsPaid: false,
	}

	orderRepo.On("MarkDelivered", "order-1", mock.AnythingOfType("time.Time")).Return(nil).Once()
	orderRepo.On("GetByID", "order-1").Return(delivered, nil).Once()

	order, err := service.MarkOrderDelivered("order-1")

	assert.NoError(t, err)
	assert.True(t, order.IsDelivered)
	assert.NotNil(t, order.DeliveredAt)
	// An order can be delivered while still unpaid; the payment axis is
	// untouched.
	assert.False(t, order.IsPaid)
	assert.Nil(t, order.PaidAt)
	orderRepo.AssertExpectations(t)
}

func TestOrderService_GetOrdersByUser(t *testing.T) {
	orderRepo, _, _, service := placeOrderFixture()

	expected := []models.Order{{ID: "order-1", UserID: "user-1"}}
	orderRepo.On("GetByUser", "user-1").Return(expected, nil).Once()

	orders, err := service.GetOrdersByUser("user-1")

	assert.NoError(t, err)
	assert.Equal(t, expected, orders)
	orderRepo.AssertExpectations(t)
}

package handlers

import (
	"errors"
	"fmt"
	"log"

	"kedai/internal/middleware"
	"kedai/internal/models"
	"kedai/internal/repositories"
	"kedai/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app. All routes
// require an authenticated caller; listing everything and marking delivery
// additionally require admin.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandlePlaceOrder)
	orderRoutes.Get("/", middleware.AdminRequired(), h.HandleGetOrders)
	orderRoutes.Get("/mine", h.HandleGetMyOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Put("/:id/pay", h.HandleMarkOrderPaid)
	orderRoutes.Put("/:id/deliver", middleware.AdminRequired(), h.HandleMarkOrderDelivered)
}

// orderErrorStatus maps order flow errors onto HTTP status codes.
func orderErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrNoItems), errors.Is(err, services.ErrInvalidQuantity):
		return fiber.StatusBadRequest
	case errors.Is(err, repositories.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, repositories.ErrInsufficientStock):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// HandlePlaceOrder places a new order for the authenticated user.
func (h *OrderHandler) HandlePlaceOrder(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authenticated user identity is required",
		})
	}

	var req services.PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing order request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	createdOrder, err := h.service.PlaceOrder(userID, req)
	if err != nil {
		log.Printf("Error placing order for user %s: %v", userID, err)
		return c.Status(orderErrorStatus(err)).JSON(fiber.Map{
			"message": "Could not place order",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(createdOrder)
}

// HandleGetOrders retrieves all orders. Admin only.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.GetAllOrders()
	if err != nil {
		log.Printf("Error getting all orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
			"error":   err.Error(),
		})
	}
	return c.JSON(orders)
}

// HandleGetMyOrders retrieves the authenticated user's orders.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authenticated user identity is required",
		})
	}

	orders, err := h.service.GetOrdersByUser(userID)
	if err != nil {
		log.Printf("Error getting orders for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
			"error":   err.Error(),
		})
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.GetOrderByID(orderID)
	if err != nil {
		log.Printf("Error getting order by ID %s: %v", orderID, err)
		return c.Status(orderErrorStatus(err)).JSON(fiber.Map{
			"message": "Could not retrieve order",
			"error":   err.Error(),
		})
	}
	return c.JSON(order)
}

// HandleMarkOrderPaid records an external payment confirmation on an order.
func (h *OrderHandler) HandleMarkOrderPaid(c *fiber.Ctx) error {
	orderID := c.Params("id")

	var result models.PaymentResult
	if err := c.BodyParser(&result); err != nil {
		log.Printf("Error parsing payment result body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid payment result body",
			"error":   err.Error(),
		})
	}

	order, err := h.service.MarkOrderPaid(orderID, result)
	if err != nil {
		log.Printf("Error marking order %s paid: %v", orderID, err)
		return c.Status(orderErrorStatus(err)).JSON(fiber.Map{
			"message": "Could not mark order paid",
			"error":   err.Error(),
		})
	}
	return c.JSON(order)
}

// HandleMarkOrderDelivered marks an order as delivered. Admin only.
func (h *OrderHandler) HandleMarkOrderDelivered(c *fiber.Ctx) error {
	orderID := c.Params("id")

	order, err := h.service.MarkOrderDelivered(orderID)
	if err != nil {
		log.Printf("Error marking order %s delivered: %v", orderID, err)
		return c.Status(orderErrorStatus(err)).JSON(fiber.Map{
			"message": "Could not mark order delivered",
			"error":   err.Error(),
		})
	}
	return c.JSON(order)
}

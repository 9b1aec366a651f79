package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tradehub/internal/middleware"
	"tradehub/internal/models"
	"tradehub/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes registers the order routes. Buyers see only their own orders.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, guards Guards) {
	orders := router.Group("/orders", guards.Auth)
	orders.Post("/", h.HandleCheckout)
	orders.Get("/", h.HandleGetOrders)
	orders.Get("/:id", h.HandleGetOrderByID)
	orders.Patch("/:id/status", guards.Admin, h.HandleUpdateOrderStatus)

	router.Get("/admin/orders", guards.Auth, guards.Admin, h.HandleListAllOrders)
}

// HandleCheckout places an order for the authenticated user.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	var in services.CheckoutInput
	if err := parseBody(c, &in); err != nil {
		return writeError(c, err)
	}
	order, err := h.service.Checkout(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleGetOrders lists the authenticated user's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListForUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order of the authenticated user.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}

func (h *OrderHandler) HandleListAllOrders(c *fiber.Ctx) error {
	orders, err := h.service.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(orders)
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := parseBody(c, &req); err != nil {
		return writeError(c, err)
	}
	order, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), models.OrderStatus(req.Status))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(order)
}

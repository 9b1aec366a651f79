package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"tradehub/internal/errs"
	"tradehub/internal/models"
	"tradehub/internal/repositories"
)

// CheckoutItem is one cart line submitted at checkout. Prices are always recomputed.
type CheckoutItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CheckoutInput struct {
	Items []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	Notes string         `json:"notes" validate:"max=2000"`
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orders    repositories.OrderRepository
	products  repositories.ProductRepository
	publisher EventPublisher
}

// NewOrderService creates a new OrderService.
func NewOrderService(orders repositories.OrderRepository, products repositories.ProductRepository, publisher EventPublisher) *OrderService {
	return &OrderService{orders: orders, products: products, publisher: publisher}
}

// Checkout prices every line from the product's tier schedule and stores a pending order.
// Lines naming the same product are merged first, so MOQ and tier apply to the combined quantity.
func (s *OrderService) Checkout(ctx context.Context, userID string, in CheckoutInput) (*models.Order, error) {
	if err := models.ValidateStruct(in); err != nil {
		return nil, err
	}

	lines, firstIndex := mergeCheckoutItems(in.Items)

	var total float64
	items := make([]models.OrderItem, 0, len(lines))
	for n, item := range lines {
		field := fmt.Sprintf("items[%d]", firstIndex[n])
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return nil, errs.Validation("Validation failed", map[string]string{field: "product does not exist"})
			}
			return nil, err
		}
		if item.Quantity < product.MOQ {
			return nil, errs.Validation("Validation failed", map[string]string{
				field: fmt.Sprintf("minimum order quantity for %s is %d", product.Name, product.MOQ),
			})
		}
		unit, err := product.PriceForQuantity(item.Quantity)
		if err != nil {
			return nil, errs.Validation("Validation failed", map[string]string{field: err.Error()})
		}

		line := roundCents(unit * float64(item.Quantity))
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   unit,
			LineTotal:   line,
		})
		total += line
	}

	order := &models.Order{
		UserID: userID,
		Items:  items,
		Total:  roundCents(total),
		Status: models.OrderPending,
		Notes:  in.Notes,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	zap.L().Info("order placed", zap.String("order_id", order.ID), zap.String("user_id", userID), zap.Float64("total", order.Total))
	publish(ctx, s.publisher, EventOrderCreated, OrderCreatedEvent{
		OrderID: order.ID,
		UserID:  order.UserID,
		Total:   order.Total,
		Items:   order.Items,
	})
	return order, nil
}

// mergeCheckoutItems sums the quantities of lines with the same product, keeping
// first-seen order. firstIndex[n] is the input position of merged line n.
func mergeCheckoutItems(in []CheckoutItem) (lines []CheckoutItem, firstIndex []int) {
	pos := make(map[string]int, len(in))
	for i, item := range in {
		if n, ok := pos[item.ProductID]; ok {
			lines[n].Quantity += item.Quantity
			continue
		}
		pos[item.ProductID] = len(lines)
		lines = append(lines, item)
		firstIndex = append(firstIndex, i)
	}
	return lines, firstIndex
}

// ListForUser returns the caller's own orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.GetByUser(ctx, userID)
}

// Get returns one of the caller's orders. Orders of other users are reported as not found.
func (s *OrderService) Get(ctx context.Context, userID, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, errs.NotFound("order", id)
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context) ([]models.Order, error) {
	return s.orders.GetAll(ctx)
}

// UpdateStatus updates the status of an existing order.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, errs.Validation("Validation failed", map[string]string{"status": fmt.Sprintf("invalid order status: %s", status)})
	}
	return s.orders.UpdateStatus(ctx, id, status)
}

// OrderCreatedEvent is the payload published on order.created.
type OrderCreatedEvent struct {
	OrderID string             `json:"orderId"`
	UserID  string             `json:"userId"`
	Total   float64            `json:"total"`
	Items   []models.OrderItem `json:"items"`
}

// OrderCounter keeps products' orderCount in step with placed orders.
type OrderCounter struct {
	products repositories.ProductRepository
}

func NewOrderCounter(products repositories.ProductRepository) *OrderCounter {
	return &OrderCounter{products: products}
}

// HandleOrderCreated counts one order for every product on the order.
// Products deleted since checkout are skipped.
func (c *OrderCounter) HandleOrderCreated(ctx context.Context, _ string, body []byte) error {
	var event OrderCreatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode order event: %w", err)
	}
	seen := make(map[string]bool, len(event.Items))
	for _, item := range event.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		err := c.products.IncrementOrderCount(ctx, item.ProductID, 1)
		if err != nil && !errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("failed to count order %s for product %s: %w", event.OrderID, item.ProductID, err)
		}
	}
	return nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

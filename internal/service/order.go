package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/metrics"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// OrderService turns carts into orders and serves order history.
type OrderService struct {
	store   repository.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewOrderService(store repository.Store, m *metrics.Metrics, logger *slog.Logger) *OrderService {
	return &OrderService{store: store, metrics: m, logger: logger}
}

// Checkout places an order for everything in the owner's cart.
//
// ONE TRANSACTION:
// Reading the cart, writing the order and its items, and clearing the cart
// happen in a single transaction. Either the shopper ends up with an order
// and an empty cart, or nothing changed at all. Item prices are copied from
// the product at this moment and never re-read afterwards.
func (s *OrderService) Checkout(ctx context.Context, owner model.Owner, addr model.ShippingAddress) (*model.Order, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	addr, err := validateAddress(addr)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		UserID:          owner.UserID,
		SessionID:       owner.SessionID,
		Status:          model.OrderStatusPending,
		ShippingAddress: addr,
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		lines, err := tx.ListCartItems(ctx, owner)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperror.ValidationFailed("cart", "cart is empty")
		}

		total := decimal.Zero
		items := make([]model.OrderItem, 0, len(lines))
		for _, line := range lines {
			if !line.Product.Active {
				return apperror.ValidationFailed("cart",
					fmt.Sprintf("%s is no longer available", line.Product.Name))
			}
			total = total.Add(line.LineTotal())
			items = append(items, model.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     line.Product.Price,
			})
		}
		order.Total = total
		order.Items = items

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		if _, err := tx.ClearCart(ctx, owner); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderPlaced(order.Total)
	s.logger.Info("order placed",
		slog.String("orderID", order.ID),
		slog.String("owner", owner.String()),
		slog.String("total", order.Total.StringFixed(2)),
		slog.Int("items", len(order.Items)),
	)

	return s.store.GetOrder(ctx, order.ID)
}

// ListForOwner returns the owner's orders, newest first.
func (s *OrderService) ListForOwner(ctx context.Context, owner model.Owner) ([]model.Order, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	orders, err := s.store.ListOrdersByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

// GetForOwner returns one of the owner's orders. Someone else's order is
// NotFound.
func (s *OrderService) GetForOwner(ctx context.Context, owner model.Owner, id string) (*model.Order, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "order ID is required")
	}

	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Owner() != owner {
		return nil, apperror.NotFound("order", id)
	}
	return o, nil
}

// ListAll returns every order. Admin only; the route enforces that.
func (s *OrderService) ListAll(ctx context.Context) ([]model.Order, error) {
	orders, err := s.store.ListAllOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing all orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus sets an order's status to any enumerated value.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, apperror.ValidationFailed("status",
			"status must be one of pending, processing, shipped, delivered, cancelled")
	}
	if err := s.store.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		slog.String("orderID", id),
		slog.String("status", string(status)),
	)
	return s.store.GetOrder(ctx, id)
}

func validateAddress(a model.ShippingAddress) (model.ShippingAddress, error) {
	fields := []struct {
		name  string
		value *string
	}{
		{"firstName", &a.FirstName},
		{"lastName", &a.LastName},
		{"address", &a.Address},
		{"city", &a.City},
		{"state", &a.State},
		{"zipCode", &a.ZipCode},
		{"country", &a.Country},
	}
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			return a, apperror.ValidationFailed("shippingAddress."+f.name,
				fmt.Sprintf("shippingAddress.%s is required", f.name))
		}
	}
	return a, nil
}

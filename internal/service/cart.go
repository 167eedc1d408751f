package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/metrics"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// MaxQuantity bounds a cart line's quantity, including the sum reached by
// repeated adds.
const MaxQuantity = 999

// CartService manages cart lines for an owner (logged-in user or guest session).
//
// OWNERSHIP:
// Every method takes the owner resolved by the auth middleware; item IDs from
// the URL are only ever looked up together with that owner. A line owned by
// someone else is reported as NotFound, the same as a missing one, so item
// IDs can't be guessed.
type CartService struct {
	store   repository.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCartService(store repository.Store, m *metrics.Metrics, logger *slog.Logger) *CartService {
	return &CartService{store: store, metrics: m, logger: logger}
}

// Get returns the owner's lines joined with live product data.
func (s *CartService) Get(ctx context.Context, owner model.Owner) ([]model.CartItem, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	items, err := s.store.ListCartItems(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("getting cart: %w", err)
	}
	return items, nil
}

// Add puts quantity units of a product in the cart. Adding a product that is
// already there increments its line.
func (s *CartService) Add(ctx context.Context, owner model.Owner, productID string, quantity int) (*model.CartItem, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperror.ValidationFailed("productId", "productId is required")
	}
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}

	var item *model.CartItem
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !p.Active {
			return apperror.NotFound("product", productID)
		}

		item, err = tx.AddCartItem(ctx, owner, productID, quantity)
		if err != nil {
			return err
		}
		// Returning an error rolls the increment back.
		if item.Quantity > MaxQuantity {
			return apperror.ValidationFailed("quantity",
				fmt.Sprintf("a cart line holds at most %d units; it already has %d",
					MaxQuantity, item.Quantity-quantity))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CartMutation("add")
	s.logger.Debug("cart item added",
		slog.String("owner", owner.String()),
		slog.String("productID", productID),
		slog.Int("quantity", item.Quantity),
	)
	return item, nil
}

// UpdateQuantity overwrites a line's quantity. A quantity of zero or less
// removes the line; the returned item is then nil.
func (s *CartService) UpdateQuantity(ctx context.Context, owner model.Owner, itemID string, quantity int) (*model.CartItem, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, apperror.ValidationFailed("id", "cart item ID is required")
	}
	if quantity > MaxQuantity {
		return nil, apperror.ValidationFailed("quantity",
			fmt.Sprintf("quantity must be %d or less", MaxQuantity))
	}

	var item *model.CartItem
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if quantity <= 0 {
			return tx.DeleteCartItem(ctx, owner, itemID)
		}
		if err := tx.SetCartItemQuantity(ctx, owner, itemID, quantity); err != nil {
			return err
		}
		var err error
		item, err = tx.GetCartItem(ctx, owner, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if item == nil {
		s.metrics.CartMutation("remove")
	} else {
		s.metrics.CartMutation("update")
	}
	return item, nil
}

// Remove deletes one line.
func (s *CartService) Remove(ctx context.Context, owner model.Owner, itemID string) error {
	if err := checkOwner(owner); err != nil {
		return err
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return apperror.ValidationFailed("id", "cart item ID is required")
	}

	if err := s.store.DeleteCartItem(ctx, owner, itemID); err != nil {
		return err
	}
	s.metrics.CartMutation("remove")
	return nil
}

// Clear empties the cart in one statement.
func (s *CartService) Clear(ctx context.Context, owner model.Owner) error {
	if err := checkOwner(owner); err != nil {
		return err
	}

	var n int64
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		n, err = tx.ClearCart(ctx, owner)
		return err
	})
	if err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}

	s.metrics.CartMutation("clear")
	s.logger.Debug("cart cleared", slog.String("owner", owner.String()), slog.Int64("lines", n))
	return nil
}

func checkOwner(owner model.Owner) error {
	if !owner.Valid() {
		return apperror.Unauthenticated("a session is required")
	}
	return nil
}

func checkQuantity(q int) error {
	if q <= 0 {
		return apperror.ValidationFailed("quantity", "quantity must be a positive integer")
	}
	if q > MaxQuantity {
		return apperror.ValidationFailed("quantity",
			fmt.Sprintf("quantity must be %d or less", MaxQuantity))
	}
	return nil
}

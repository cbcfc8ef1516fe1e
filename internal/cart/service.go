package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/greenbasket/greenbasket/internal/product"
)

var ErrInsufficientQuantity = errors.New("insufficient product quantity")

type Service interface {
	GetCart(ctx context.Context, userID int64) ([]SnapshotItem, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*Line, error)
	UpdateItem(ctx context.Context, userID, lineID int64, quantity int) (*Line, error)
	RemoveItem(ctx context.Context, userID, lineID int64) error
}

type service struct {
	cartRepo    Repository
	productRepo product.Repository
}

func NewService(cartRepo Repository, productRepo product.Repository) Service {
	return &service{cartRepo: cartRepo, productRepo: productRepo}
}

func (s *service) GetCart(ctx context.Context, userID int64) ([]SnapshotItem, error) {
	items, err := s.cartRepo.Snapshot(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("service: failed to read cart snapshot")
		return nil, fmt.Errorf("service: failed to read cart: %w", err)
	}
	return items, nil
}

// AddItem checks the product exists and has enough stock before the
// upsert. This is a courtesy check only; the commit transaction re-checks
// under its own isolation.
func (s *service) AddItem(ctx context.Context, userID, productID int64, quantity int) (*Line, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("service: quantity must be at least 1, got %d", quantity)
	}

	p, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			return nil, product.ErrProductNotFound
		}
		log.Error().Err(err).Int64("product_id", productID).Msg("service: failed to fetch product for cart add")
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}

	if p.Quantity < quantity {
		return nil, ErrInsufficientQuantity
	}

	line, err := s.cartRepo.Upsert(ctx, userID, productID, quantity)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Int64("product_id", productID).Msg("service: failed to upsert cart item")
		return nil, fmt.Errorf("service: failed to add cart item: %w", err)
	}

	return line, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, lineID int64, quantity int) (*Line, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("service: quantity must be at least 1, got %d", quantity)
	}

	line, err := s.cartRepo.UpdateQuantity(ctx, userID, lineID, quantity)
	if err != nil {
		if errors.Is(err, ErrLineNotFound) {
			return nil, ErrLineNotFound
		}
		log.Error().Err(err).Int64("cart_item_id", lineID).Msg("service: failed to update cart item")
		return nil, fmt.Errorf("service: failed to update cart item: %w", err)
	}

	return line, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, lineID int64) error {
	err := s.cartRepo.Remove(ctx, userID, lineID)
	if err != nil {
		if errors.Is(err, ErrLineNotFound) {
			return ErrLineNotFound
		}
		log.Error().Err(err).Int64("cart_item_id", lineID).Msg("service: failed to remove cart item")
		return fmt.Errorf("service: failed to remove cart item: %w", err)
	}
	return nil
}

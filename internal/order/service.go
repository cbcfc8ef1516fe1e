package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// maxCommitAttempts bounds retries of serialization aborts. Each retry
// starts a fresh transaction, so a retried commit is still all-or-nothing.
const maxCommitAttempts = 3

type Service interface {
	Checkout(ctx context.Context, userID int64) (*Order, error)
	CommitWithPayment(ctx context.Context, userID int64, expectedTotal decimal.Decimal, reference string) (*Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrderByReference(ctx context.Context, reference string) (*Order, error)
	ListForUser(ctx context.Context, userID int64, limit uint64) ([]Summary, error)
	ListAll(ctx context.Context, filter ListFilter) ([]Summary, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Checkout is the direct (non-gateway) commit path.
func (s *service) Checkout(ctx context.Context, userID int64) (*Order, error) {
	return s.commitWithRetry(ctx, userID, nil, nil)
}

// CommitWithPayment is the gateway path: the gateway-reported amount is
// cross-checked against the cart total and the reference is stored
// uniquely on the order.
func (s *service) CommitWithPayment(ctx context.Context, userID int64, expectedTotal decimal.Decimal, reference string) (*Order, error) {
	return s.commitWithRetry(ctx, userID, &expectedTotal, &reference)
}

func (s *service) commitWithRetry(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, reference *string) (*Order, error) {
	var lastErr error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		ord, err := s.repo.Commit(ctx, userID, expectedTotal, reference)
		if err == nil {
			log.Info().
				Stringer("order_id", ord.ID).
				Int64("user_id", userID).
				Str("total", ord.TotalAmount.String()).
				Msg("service: order committed")
			return ord, nil
		}
		if !errors.Is(err, ErrTxConflict) {
			return nil, err
		}
		lastErr = err
		log.Warn().Err(err).Int64("user_id", userID).Int("attempt", attempt).Msg("service: commit aborted by concurrent transaction, retrying")
	}
	return nil, fmt.Errorf("service: commit failed after %d attempts: %w", maxCommitAttempts, lastErr)
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	ord, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return ord, nil
}

func (s *service) GetOrderByReference(ctx context.Context, reference string) (*Order, error) {
	return s.repo.GetByPaymentReference(ctx, reference)
}

func (s *service) ListForUser(ctx context.Context, userID int64, limit uint64) ([]Summary, error) {
	summaries, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("service: failed to list user orders")
		return nil, fmt.Errorf("service: failed to list user orders: %w", err)
	}
	return summaries, nil
}

func (s *service) ListAll(ctx context.Context, filter ListFilter) ([]Summary, error) {
	summaries, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return summaries, nil
}

// UpdateStatus is the admin mutation. Orders are never deleted; cancelling
// is a status change only.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Str("new_status", status.String()).Msg("service: failed to update order status")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", id).Str("new_status", status.String()).Msg("service: order status updated")
	return s.repo.GetByID(ctx, id)
}

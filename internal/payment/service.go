package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/greenbasket/greenbasket/internal/order"
)

// ErrPaymentNotConfirmed means the gateway reported anything other than a
// successful final status. No order is created and the cart is left as is.
var ErrPaymentNotConfirmed = errors.New("payment not confirmed by gateway")

// VerifyOutcome carries the committed (or pre-existing) order plus the raw
// gateway data for the receipt page.
type VerifyOutcome struct {
	Order          *order.Order
	AlreadyHandled bool
	Gateway        *VerifyResult
}

type Reconciler interface {
	Initialize(ctx context.Context, userID int64, amount decimal.Decimal, email string) (*InitializeResult, error)
	Verify(ctx context.Context, userID int64, reference string) (*VerifyOutcome, error)
}

type reconciler struct {
	gateway Gateway
	orders  order.Service
}

func NewReconciler(gateway Gateway, orders order.Service) Reconciler {
	return &reconciler{gateway: gateway, orders: orders}
}

// Initialize hands the attempt off to the gateway. No durable local state
// is created; the reference the gateway returns is the only handle.
func (r *reconciler) Initialize(ctx context.Context, userID int64, amount decimal.Decimal, email string) (*InitializeResult, error) {
	result, err := r.gateway.Initialize(ctx, amount, email, map[string]any{"user_id": userID})
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("service: payment initialization failed")
		return nil, err
	}

	log.Info().Int64("user_id", userID).Str("reference", result.Reference).Msg("service: payment initialized")
	return result, nil
}

// Verify drives the commit on gateway-confirmed success, exactly once per
// reference. A repeat call for an already-committed reference returns the
// existing order instead of re-running the commit; the unique constraint
// on the stored reference backstops the race between concurrent verifies.
func (r *reconciler) Verify(ctx context.Context, userID int64, reference string) (*VerifyOutcome, error) {
	if existing, err := r.orders.GetOrderByReference(ctx, reference); err == nil {
		// References travel in gateway redirect URLs, so another
		// customer's reference must not reveal that customer's order.
		if existing.UserID != userID {
			log.Warn().Str("reference", reference).Int64("user_id", userID).Int64("owner_id", existing.UserID).Msg("service: reference belongs to another customer")
			return nil, order.ErrOrderNotFound
		}
		log.Info().Str("reference", reference).Stringer("order_id", existing.ID).Msg("service: reference already committed, returning existing order")
		return &VerifyOutcome{Order: existing, AlreadyHandled: true}, nil
	} else if !errors.Is(err, order.ErrOrderNotFound) {
		return nil, fmt.Errorf("service: failed to look up reference: %w", err)
	}

	result, err := r.gateway.Verify(ctx, reference)
	if err != nil {
		log.Error().Err(err).Str("reference", reference).Msg("service: gateway verification failed")
		return nil, err
	}

	if !result.Succeeded() {
		log.Warn().Str("reference", reference).Str("gateway_status", result.Status).Msg("service: payment not successful")
		return nil, ErrPaymentNotConfirmed
	}

	ord, err := r.orders.CommitWithPayment(ctx, userID, result.Amount, reference)
	if err != nil {
		if errors.Is(err, order.ErrDuplicateReference) {
			// Lost the race against a concurrent verify for the same
			// reference. The order exists; fetch and return it.
			existing, lookupErr := r.orders.GetOrderByReference(ctx, reference)
			if lookupErr != nil {
				return nil, fmt.Errorf("service: reference committed concurrently but lookup failed: %w", lookupErr)
			}
			if existing.UserID != userID {
				log.Warn().Str("reference", reference).Int64("user_id", userID).Int64("owner_id", existing.UserID).Msg("service: reference belongs to another customer")
				return nil, order.ErrOrderNotFound
			}
			return &VerifyOutcome{Order: existing, AlreadyHandled: true, Gateway: result}, nil
		}
		return nil, err
	}

	log.Info().Stringer("order_id", ord.ID).Str("reference", reference).Msg("service: payment verified and order committed")
	return &VerifyOutcome{Order: ord, Gateway: result}, nil
}

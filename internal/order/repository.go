package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/greenbasket/greenbasket/internal/cart"
)

// amountEpsilon is the tolerance when cross-checking a gateway-reported
// amount against the locally computed total.
var amountEpsilon = decimal.New(1, -2)

type ListFilter struct {
	Status string
	Limit  uint64
}

type Repository interface {
	Commit(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (*Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*Order, error)
	ListByUser(ctx context.Context, userID int64, limit uint64) ([]Summary, error)
	List(ctx context.Context, filter ListFilter) ([]Summary, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{db: pool}
}

// Commit is the single atomic transition from "cart + inventory" to
// "order + depleted inventory + empty cart". Every write in here either
// all lands or none does; the serializable isolation level guards the
// stock check against concurrent commits on the same products.
func (r *postgresRepository) Commit(ctx context.Context, userID int64, expectedTotal *decimal.Decimal, paymentReference *string) (o *Order, err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to begin commit transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Int64("user_id", userID).Msg("Failed to rollback commit transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Int64("user_id", userID).Msg("Failed to rollback commit transaction")
			}
			err = classifyCommitErr(err)
			o = nil
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = classifyCommitErr(fmt.Errorf("repository: failed to commit order transaction: %w", commitErr))
				o = nil
			}
		}
	}()

	// Authoritative re-read of the cart inside the transaction. Client
	// supplied state is never trusted here.
	snapshot, err := cart.Snapshot(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if len(snapshot) == 0 {
		return nil, ErrEmptyCart
	}

	// First insufficient line aborts the whole commit, in cart line order.
	for _, item := range snapshot {
		if item.Quantity > item.Available {
			return nil, &InsufficientStockError{Product: item.ProductName}
		}
	}

	total := cart.Total(snapshot)

	if expectedTotal != nil && total.Sub(*expectedTotal).Abs().GreaterThan(amountEpsilon) {
		log.Warn().
			Int64("user_id", userID).
			Str("cart_total", total.String()).
			Str("expected_total", expectedTotal.String()).
			Msg("repository: payment amount does not match cart total")
		return nil, ErrAmountMismatch
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate order ID: %w", err)
	}

	createdAt := time.Now().UTC()
	ord := &Order{
		ID:               orderID,
		UserID:           userID,
		TotalAmount:      total,
		Status:           StatusCompleted,
		PaymentReference: paymentReference,
		CreatedAt:        createdAt,
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total_amount, status, payment_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ord.ID, ord.UserID, ord.TotalAmount, string(ord.Status), ord.PaymentReference, ord.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to insert order: %w", err)
	}

	lines := make([]Line, 0, len(snapshot))
	for _, item := range snapshot {
		line := Line{
			OrderID:         orderID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.UnitPrice,
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			line.OrderID, line.ProductID, line.Quantity, line.PriceAtPurchase,
		).Scan(&line.ID)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to insert order item for order %s: %w", orderID, err)
		}

		// Conditional decrement: even outside serializable isolation this
		// cannot take quantity below zero.
		cmdTag, decErr := tx.Exec(ctx, `
			UPDATE products SET quantity = quantity - $1
			WHERE id = $2 AND quantity >= $1`,
			item.Quantity, item.ProductID,
		)
		if decErr != nil {
			err = fmt.Errorf("repository: failed to decrement stock for product %d: %w", item.ProductID, decErr)
			return nil, err
		}
		if cmdTag.RowsAffected() == 0 {
			err = &InsufficientStockError{Product: item.ProductName}
			return nil, err
		}

		lines = append(lines, line)
	}

	_, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to clear cart for user %d: %w", userID, err)
	}

	ord.Lines = lines
	return ord, nil
}

// classifyCommitErr maps driver-level failures onto the domain errors the
// service layer acts on: unique payment_reference violations and
// serialization aborts.
func classifyCommitErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == "orders_payment_reference_key" {
			return fmt.Errorf("%w: %s", ErrDuplicateReference, pgErr.ConstraintName)
		}
		return err
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("%w: %s", ErrTxConflict, pgErr.Code)
	}
	return err
}

const orderColumns = "id, user_id, total_amount, status, payment_reference, created_at"

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.PaymentReference, &o.CreatedAt)
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	lines, err := r.linesForOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Lines = lines

	return &o, nil
}

func (r *postgresRepository) GetByPaymentReference(ctx context.Context, reference string) (*Order, error) {
	var o Order
	err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1`, reference), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by payment reference: %w", err)
	}

	lines, err := r.linesForOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines

	return &o, nil
}

func (r *postgresRepository) linesForOrder(ctx context.Context, orderID uuid.UUID) ([]Line, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price_at_purchase
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var line Line
		err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.ProductName, &line.Quantity, &line.PriceAtPurchase)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order %s: %w", orderID, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order %s: %w", orderID, err)
	}

	return lines, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID int64, limit uint64) ([]Summary, error) {
	builder := summaryBuilder().
		Where(sq.Eq{"o.user_id": userID})
	if limit > 0 {
		builder = builder.Limit(limit)
	}

	return r.querySummaries(ctx, builder)
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Summary, error) {
	builder := summaryBuilder()
	if filter.Status != "" && filter.Status != "all" {
		builder = builder.Where(sq.Eq{"o.status": filter.Status})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	return r.querySummaries(ctx, builder)
}

func summaryBuilder() sq.SelectBuilder {
	return sq.Select(
		"o.id", "o.user_id", "o.total_amount", "o.status", "o.payment_reference",
		"COUNT(oi.id) AS item_count", "o.created_at",
	).
		From("orders o").
		LeftJoin("order_items oi ON oi.order_id = o.id").
		GroupBy("o.id").
		OrderBy("o.created_at DESC").
		PlaceholderFormat(sq.Dollar)
}

func (r *postgresRepository) querySummaries(ctx context.Context, builder sq.SelectBuilder) ([]Summary, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to build order list query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var s Summary
		err := rows.Scan(&s.ID, &s.UserID, &s.TotalAmount, &s.Status, &s.PaymentReference, &s.ItemCount, &s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order summaries: %w", err)
	}

	return summaries, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update order status %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenbasket/greenbasket/internal/db"
)

var ErrLineNotFound = errors.New("cart item not found")

type Repository interface {
	Snapshot(ctx context.Context, userID int64) ([]SnapshotItem, error)
	Upsert(ctx context.Context, userID, productID int64, quantity int) (*Line, error)
	UpdateQuantity(ctx context.Context, userID, lineID int64, quantity int) (*Line, error)
	Remove(ctx context.Context, userID, lineID int64) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{db: pool}
}

// Snapshot reads the joined cart view against any Querier. The order
// commit calls it on its own transaction; the pool-backed Repository
// method below serves display reads.
func Snapshot(ctx context.Context, q db.Querier, userID int64) ([]SnapshotItem, error) {
	query := `
		SELECT ci.id, ci.product_id, p.name, ci.quantity, p.price, p.quantity AS available_quantity,
		       p.description, p.image_url
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at
	`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart for user %d: %w", userID, err)
	}
	defer rows.Close()

	items := make([]SnapshotItem, 0)
	for rows.Next() {
		var item SnapshotItem
		err := rows.Scan(
			&item.LineID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.Available,
			&item.Description,
			&item.ImageURL,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for user %d: %w", userID, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items for user %d: %w", userID, err)
	}

	return items, nil
}

func (r *postgresRepository) Snapshot(ctx context.Context, userID int64) ([]SnapshotItem, error) {
	return Snapshot(ctx, r.db, userID)
}

func (r *postgresRepository) Upsert(ctx context.Context, userID, productID int64, quantity int) (*Line, error) {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, user_id, product_id, quantity, created_at
	`

	var line Line
	err := r.db.QueryRow(ctx, query, userID, productID, quantity).
		Scan(&line.ID, &line.UserID, &line.ProductID, &line.Quantity, &line.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to upsert cart item for user %d: %w", userID, err)
	}

	return &line, nil
}

func (r *postgresRepository) UpdateQuantity(ctx context.Context, userID, lineID int64, quantity int) (*Line, error) {
	query := `
		UPDATE cart_items
		SET quantity = $1
		WHERE id = $2 AND user_id = $3
		RETURNING id, user_id, product_id, quantity, created_at
	`

	var line Line
	err := r.db.QueryRow(ctx, query, quantity, lineID, userID).
		Scan(&line.ID, &line.UserID, &line.ProductID, &line.Quantity, &line.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLineNotFound
		}
		return nil, fmt.Errorf("repository: failed to update cart item %d: %w", lineID, err)
	}

	return &line, nil
}

func (r *postgresRepository) Remove(ctx context.Context, userID, lineID int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, lineID, userID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item %d: %w", lineID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

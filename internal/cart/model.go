package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is one (user, product) row of working cart state. It is transient:
// deleted on order commit or explicit removal.
type Line struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotItem is a cart line joined with the product's current price and
// availability. The snapshot is the authoritative commit input: it is
// re-read inside the commit transaction, never taken from the client.
type SnapshotItem struct {
	LineID      int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"price"`
	Available   int             `json:"available_quantity"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}

func (s SnapshotItem) LineTotal() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// Total sums line totals over a snapshot.
func Total(items []SnapshotItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

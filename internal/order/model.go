package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Line freezes the unit price at purchase time. PriceAtPurchase never
// changes after the commit, whatever happens to the live product price.
type Line struct {
	ID              int64           `json:"id"`
	OrderID         uuid.UUID       `json:"order_id"`
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"name,omitempty"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

type Order struct {
	ID               uuid.UUID       `json:"id"`
	UserID           int64           `json:"user_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Status           Status          `json:"status"`
	PaymentReference *string         `json:"payment_reference,omitempty"`
	Lines            []Line          `json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Summary is the listing projection: an order row with its line count,
// without the lines themselves.
type Summary struct {
	ID               uuid.UUID       `json:"id"`
	UserID           int64           `json:"user_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Status           Status          `json:"status"`
	PaymentReference *string         `json:"payment_reference,omitempty"`
	ItemCount        int             `json:"item_count"`
	CreatedAt        time.Time       `json:"created_at"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event topic names published to the external bus after commit. Publishing is
// best-effort and never rolls back the originating transaction.
const (
	EventOrderPlaced = "order.placed"
	EventLowStock    = "inventory.low_stock"
)

// OrderPlacedEvent signals a successfully committed order.
type OrderPlacedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	TotalAmount int64     `json:"total_amount"`
	PlacedAt    time.Time `json:"placed_at"`
}

// LowStockEvent signals that a product crossed the low-stock threshold.
type LowStockEvent struct {
	ProductID      uuid.UUID `json:"product_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	RemainingStock int64     `json:"remaining_stock"`
}

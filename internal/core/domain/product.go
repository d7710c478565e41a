package domain

import (
	"time"

	"github.com/google/uuid"
)

// LowStockThreshold is the remaining-stock level at or below which an
// inventory.low_stock event is emitted after an order commits.
const LowStockThreshold = 10

// Product is a catalog listing. Price is in minor currency units; stock is
// mutated only by the order engine's atomic decrement and never goes negative.
type Product struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Stock     int64     `json:"stock"`
	SellerID  uuid.UUID `json:"seller_id"`
	Unit      string    `json:"unit,omitempty"` // kg, crate, litre...
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsLowStock reports whether the product has crossed the low-stock threshold.
func (p *Product) IsLowStock() bool {
	return p.Stock <= LowStockThreshold
}

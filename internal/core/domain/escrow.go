package domain

import (
	"time"

	"github.com/google/uuid"
)

// EscrowStatus represents the state of held funds. RELEASED and REFUNDED are
// terminal; no transition out of a terminal state.
type EscrowStatus string

const (
	EscrowStatusHeld     EscrowStatus = "HELD"
	EscrowStatusReleased EscrowStatus = "RELEASED"
	EscrowStatusRefunded EscrowStatus = "REFUNDED"
)

// Escrow holds buyer funds on behalf of a pending order until a release or
// refund decision. One escrow per order.
type Escrow struct {
	ID             uuid.UUID    `json:"id"`
	OrderID        uuid.UUID    `json:"order_id"`
	BuyerWalletID  uuid.UUID    `json:"buyer_wallet_id"`
	SellerWalletID uuid.UUID    `json:"seller_wallet_id"`
	Amount         int64        `json:"amount"`
	Status         EscrowStatus `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	SettledAt      *time.Time   `json:"settled_at,omitempty"`
}

// IsTerminal reports whether the escrow has been settled.
func (e *Escrow) IsTerminal() bool {
	return e.Status == EscrowStatusReleased || e.Status == EscrowStatusRefunded
}

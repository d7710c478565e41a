package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit       TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal    TransactionType = "WITHDRAWAL"
	TransactionTypeEscrowHold    TransactionType = "ESCROW_HOLD"
	TransactionTypeEscrowRelease TransactionType = "ESCROW_RELEASE"
	TransactionTypeRefund        TransactionType = "REFUND"
)

// TransactionStatus represents the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is an immutable ledger entry: one row per completed wallet
// mutation, never updated. Amount is signed (positive credits the wallet,
// negative debits it). IdempotencyKey is unique when present.
type Transaction struct {
	ID             uuid.UUID         `json:"id"`
	WalletID       uuid.UUID         `json:"wallet_id"`
	Type           TransactionType   `json:"type"`
	Amount         int64             `json:"amount"`
	BalanceBefore  int64             `json:"balance_before"`
	BalanceAfter   int64             `json:"balance_after"`
	Reason         *string           `json:"reason,omitempty"`
	IdempotencyKey *string           `json:"idempotency_key,omitempty"`
	OrderID        *uuid.UUID        `json:"order_id,omitempty"`
	Status         TransactionStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}

// IsCredit reports whether this entry increased the spendable balance.
func (t *Transaction) IsCredit() bool {
	return t.Amount > 0
}

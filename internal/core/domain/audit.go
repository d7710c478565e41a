package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditOperation represents the type of balance-affecting operation recorded.
type AuditOperation string

const (
	AuditOpDeposit       AuditOperation = "DEPOSIT"
	AuditOpWithdraw      AuditOperation = "WITHDRAW"
	AuditOpEscrowHold    AuditOperation = "ESCROW_HOLD"
	AuditOpEscrowRelease AuditOperation = "ESCROW_RELEASE"
	AuditOpEscrowRefund  AuditOperation = "ESCROW_REFUND"
	AuditOpLimitChange   AuditOperation = "LIMIT_CHANGE"
)

// WalletAuditLog records a single balance-affecting operation. Write-once,
// created in the same transaction as the balance mutation it describes.
type WalletAuditLog struct {
	ID            uuid.UUID      `json:"id"`
	WalletID      uuid.UUID      `json:"wallet_id"`
	UserID        *uuid.UUID     `json:"user_id,omitempty"`
	Operation     AuditOperation `json:"operation"`
	Amount        int64          `json:"amount"`
	BalanceBefore int64          `json:"balance_before"`
	BalanceAfter  int64          `json:"balance_after"`
	VersionBefore int64          `json:"version_before"`
	VersionAfter  int64          `json:"version_after"`
	IPAddress     string         `json:"ip_address,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

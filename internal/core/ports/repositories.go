package ports

import (
	"context"
	"time"

	"agri-market-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks; mutations go
// through UpdateLocked, whose WHERE clause carries the previously read version
// (zero rows affected means a concurrent writer won).
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// UpdateLocked persists balance/escrow/limit mutations with an optimistic
	// version check; expectedVersion is the version observed at the locked
	// read. Returns false when zero rows were affected.
	UpdateLocked(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet, expectedVersion int64) (bool, error)
}

// TransactionRepository defines persistence for immutable ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// GetByIdempotencyKey returns nil, nil when no entry carries the key.
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Transaction, error)
	MonthlyTotals(ctx context.Context, walletID uuid.UUID, months int) ([]MonthlyTotal, error)
}

// MonthlyTotal is one month of aggregated wallet activity for the dashboard.
type MonthlyTotal struct {
	Month       time.Time
	Credits     int64
	Debits      int64
	EntryCount  int64
}

// AuditRepository defines persistence for wallet audit logs.
type AuditRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.WalletAuditLog) error
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletAuditLog, error)
}

// ProductRepository defines persistence for catalog products. Stock is only
// mutated through DecrementStock inside the order transaction.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// GetByIDsForUpdate locks and returns the product rows in ascending ID
	// order; missing IDs are simply absent from the result.
	GetByIDsForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]domain.Product, error)
	// DecrementStock subtracts quantity guarded by stock >= quantity.
	// Returns false when the guard failed (insufficient stock).
	DecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int64) (bool, error)
}

// OrderRepository defines persistence for orders and their items.
type OrderRepository interface {
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]domain.Order, error)
	// ListBySeller returns orders containing at least one item whose product
	// belongs to the seller.
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]domain.Order, error)
	// UpdateStatus transitions from -> to with a status guard in the WHERE
	// clause. Returns false when zero rows were affected.
	UpdateStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, from, to domain.OrderStatus) (bool, error)
}

// EscrowRepository defines persistence for escrow records.
type EscrowRepository interface {
	Create(ctx context.Context, tx pgx.Tx, escrow *domain.Escrow) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Escrow, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Escrow, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.Escrow, error)
	// MarkSettled moves HELD -> status with a status guard; returns false
	// when the escrow was no longer HELD.
	MarkSettled(ctx context.Context, tx pgx.Tx, escrowID uuid.UUID, status domain.EscrowStatus, settledAt time.Time) (bool, error)
	// SumHeldByBuyerWallet / SumHeldBySellerWallet aggregate HELD amounts for
	// the wallet dashboard.
	SumHeldByBuyerWallet(ctx context.Context, walletID uuid.UUID) (int64, error)
	SumHeldBySellerWallet(ctx context.Context, walletID uuid.UUID) (int64, error)
}

// DBTransactor provides database transaction management. Begin opens a
// serializable transaction; every atomic unit in the engine runs under one.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

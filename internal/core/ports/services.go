package ports

import (
	"context"
	"time"

	"agri-market-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Clock supplies the current time. Injected so daily-limit rollover can be
// simulated deterministically in tests.
type Clock interface {
	Now() time.Time
}

// IdempotencyCache is the fast-path idempotency check in front of the
// transactions table. Best-effort: errors fall through to the DB check.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil, nil on miss
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EventPublisher hands domain events to the external bus. Fire-and-forget:
// a publish failure must never fail the originating transaction.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// --- Service Ports (Business Logic) ---

// LedgerRequest holds validated input for a deposit or withdrawal.
type LedgerRequest struct {
	WalletID       uuid.UUID
	Amount         int64
	Reason         *string
	IdempotencyKey *string
	ActorID        *uuid.UUID
	ClientIP       string
}

// LedgerResult is the outcome of a ledger operation. Duplicate is true when
// the idempotency key matched a previously completed transaction and no new
// mutation was performed.
type LedgerResult struct {
	Wallet      *domain.Wallet
	Transaction *domain.Transaction
	Duplicate   bool
}

// WalletDashboard aggregates a wallet's read-only overview. Sub-reads are
// individually consistent snapshots; cross-read staleness is acceptable.
type WalletDashboard struct {
	Wallet             *domain.Wallet
	EscrowAsBuyer      int64
	EscrowAsSeller     int64
	Limits             domain.TierLimits
	RecentTransactions []domain.Transaction
	MonthlyChart       []MonthlyTotal
}

// LedgerService executes wallet money movement with locking, limit
// enforcement, idempotency, and audit logging. The wallet row is mutated
// exclusively through this service.
type LedgerService interface {
	Deposit(ctx context.Context, req LedgerRequest) (*LedgerResult, error)
	Withdraw(ctx context.Context, req LedgerRequest) (*LedgerResult, error)
	// GetOrCreateWallet lazily creates the owner's wallet with tier-default
	// limits on first access.
	GetOrCreateWallet(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error)
	GetTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Transaction, error)
	GetWalletLimits(ctx context.Context, walletID uuid.UUID) (*domain.TierLimits, error)
	UpdateWalletLimits(ctx context.Context, walletID uuid.UUID, tier domain.WalletTier, actorID *uuid.UUID, clientIP string) (*domain.Wallet, error)
	GetWalletDashboard(ctx context.Context, walletID uuid.UUID) (*WalletDashboard, error)

	// In-transaction escrow primitives, reserved for the escrow manager so
	// that every balance invariant and audit write stays behind one choke
	// point. Each call locks, mutates, and records within the caller's tx.
	HoldInTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64, orderID uuid.UUID, actorID *uuid.UUID, clientIP string) (*domain.Transaction, error)
	ReleaseInTx(ctx context.Context, tx pgx.Tx, buyerWalletID, sellerWalletID uuid.UUID, amount int64, orderID uuid.UUID, clientIP string) (*domain.Transaction, error)
	RefundInTx(ctx context.Context, tx pgx.Tx, buyerWalletID uuid.UUID, amount int64, orderID uuid.UUID, clientIP string) (*domain.Transaction, error)
}

// OrderItemRequest is one requested line of a cart. Any client-supplied
// price field is ignored; pricing is always server-side.
type OrderItemRequest struct {
	ProductID uuid.UUID
	Quantity  int64
}

// CreateOrderRequest holds validated input for order creation.
type CreateOrderRequest struct {
	BuyerID         uuid.UUID
	Items           []OrderItemRequest
	DeliveryAddress string
	PaymentMethod   domain.PaymentMethod
	ClientIP        string
}

// OrderService prices carts, reserves stock, and creates orders atomically.
type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*domain.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, role OrderRole, limit int) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (*domain.Order, error)
}

// OrderRole selects the buyer or seller view of the order list.
type OrderRole string

const (
	OrderRoleBuyer  OrderRole = "buyer"
	OrderRoleSeller OrderRole = "seller"
)

// EscrowService holds, releases, and refunds order funds. It never mutates a
// wallet row directly; all movement goes through the ledger primitives.
type EscrowService interface {
	CreateEscrow(ctx context.Context, orderID, buyerWalletID, sellerWalletID uuid.UUID, amount int64, actorID *uuid.UUID, clientIP string) (*domain.Escrow, error)
	Release(ctx context.Context, escrowID uuid.UUID, clientIP string) (*domain.Escrow, error)
	Refund(ctx context.Context, escrowID uuid.UUID, clientIP string) (*domain.Escrow, error)
	GetEscrowByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error)
	GetWalletEscrows(ctx context.Context, walletID uuid.UUID) ([]domain.Escrow, error)
}

// TokenService validates identity tokens issued by the external auth
// service.
type TokenService interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the verified identity attached to a request.
type TokenClaims struct {
	UserID uuid.UUID
	Roles  []string
}

// HasRole reports whether the identity carries the given role.
func (c *TokenClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agri-market-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EscrowRepo implements ports.EscrowRepository.
type EscrowRepo struct {
	pool Pool
}

// NewEscrowRepo creates a new EscrowRepo.
func NewEscrowRepo(pool Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

const escrowColumns = `id, order_id, buyer_wallet_id, seller_wallet_id, amount, status, created_at, settled_at`

func scanEscrow(row pgx.Row) (*domain.Escrow, error) {
	e := &domain.Escrow{}
	err := row.Scan(
		&e.ID, &e.OrderID, &e.BuyerWalletID, &e.SellerWalletID,
		&e.Amount, &e.Status, &e.CreatedAt, &e.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Create inserts an escrow record within the caller's transaction.
func (r *EscrowRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.Escrow) error {
	query := `INSERT INTO escrows (` + escrowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.OrderID, e.BuyerWalletID, e.SellerWalletID,
		e.Amount, e.Status, e.CreatedAt, e.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert escrow: %w", err)
	}
	return nil
}

// GetByID fetches an escrow by its UUID (without locking).
func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows WHERE id = $1`

	e, err := scanEscrow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get escrow by id: %w", err)
	}
	return e, nil
}

// GetByIDForUpdate fetches an escrow by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *EscrowRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows WHERE id = $1 FOR UPDATE`

	e, err := scanEscrow(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get escrow for update: %w", err)
	}
	return e, nil
}

// GetByOrderID fetches the escrow attached to an order. One escrow per order.
func (r *EscrowRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows WHERE order_id = $1`

	e, err := scanEscrow(r.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get escrow by order id: %w", err)
	}
	return e, nil
}

// ListByWallet returns all escrows where the wallet is the buyer or seller
// side, newest first.
func (r *EscrowRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows
		WHERE buyer_wallet_id = $1 OR seller_wallet_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}
	defer rows.Close()

	var escrows []domain.Escrow
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan escrow: %w", err)
		}
		escrows = append(escrows, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}
	return escrows, nil
}

// MarkSettled moves a HELD escrow to a terminal status, with the HELD guard
// in the WHERE clause. Returns false when the escrow was no longer HELD.
func (r *EscrowRepo) MarkSettled(ctx context.Context, tx pgx.Tx, escrowID uuid.UUID, status domain.EscrowStatus, settledAt time.Time) (bool, error) {
	query := `UPDATE escrows SET status = $1, settled_at = $2
		WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, status, settledAt, escrowID, domain.EscrowStatusHeld)
	if err != nil {
		return false, fmt.Errorf("mark escrow settled: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SumHeldByBuyerWallet totals HELD amounts where the wallet is the buyer.
func (r *EscrowRepo) SumHeldByBuyerWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM escrows
		WHERE buyer_wallet_id = $1 AND status = $2`

	var total int64
	if err := r.pool.QueryRow(ctx, query, walletID, domain.EscrowStatusHeld).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum held by buyer wallet: %w", err)
	}
	return total, nil
}

// SumHeldBySellerWallet totals HELD amounts where the wallet is the seller.
func (r *EscrowRepo) SumHeldBySellerWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM escrows
		WHERE seller_wallet_id = $1 AND status = $2`

	var total int64
	if err := r.pool.QueryRow(ctx, query, walletID, domain.EscrowStatusHeld).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum held by seller wallet: %w", err)
	}
	return total, nil
}

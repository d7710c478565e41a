package postgres

import (
	"context"
	"errors"
	"fmt"

	"agri-market-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, owner_id, owner_type, balance, escrow_balance, version, tier,
		daily_withdraw_limit, single_transaction_limit, daily_withdrawn_today,
		last_withdraw_reset, created_at, updated_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.OwnerID, &w.OwnerType, &w.Balance, &w.EscrowBalance,
		&w.Version, &w.Tier, &w.DailyWithdrawLimit, &w.SingleTransactionLimit,
		&w.DailyWithdrawnToday, &w.LastWithdrawReset, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.OwnerID, w.OwnerType, w.Balance, w.EscrowBalance,
		w.Version, w.Tier, w.DailyWithdrawLimit, w.SingleTransactionLimit,
		w.DailyWithdrawnToday, w.LastWithdrawReset, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by id: %w", err)
	}
	return w, nil
}

// GetByOwner fetches a wallet by owner identity (non-locking read).
func (r *WalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 AND owner_type = $2`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, ownerID, ownerType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by owner: %w", err)
	}
	return w, nil
}

// GetByIDForUpdate fetches a wallet by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// UpdateLocked persists wallet mutations with an optimistic version check on
// top of the row lock. The UPDATE carries the version observed at the locked
// read; zero rows affected means a concurrent writer got there first.
func (r *WalletRepo) UpdateLocked(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expectedVersion int64) (bool, error) {
	query := `UPDATE wallets
		SET balance = $1, escrow_balance = $2, version = version + 1, tier = $3,
			daily_withdraw_limit = $4, single_transaction_limit = $5,
			daily_withdrawn_today = $6, last_withdraw_reset = $7, updated_at = NOW()
		WHERE id = $8 AND version = $9`

	tag, err := tx.Exec(ctx, query,
		w.Balance, w.EscrowBalance, w.Tier,
		w.DailyWithdrawLimit, w.SingleTransactionLimit,
		w.DailyWithdrawnToday, w.LastWithdrawReset,
		w.ID, expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	w.Version = expectedVersion + 1
	return true, nil
}

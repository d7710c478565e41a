package postgres

import (
	"context"
	"errors"
	"fmt"

	"agri-market-engine/internal/core/domain"
	"agri-market-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository. Ledger entries are
// insert-only; there is no update path.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, wallet_id, type, amount, balance_before, balance_after,
		reason, idempotency_key, order_id, status, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.BalanceBefore, &t.BalanceAfter,
		&t.Reason, &t.IdempotencyKey, &t.OrderID, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a ledger entry within the caller's transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.WalletID, t.Type, t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.Reason, t.IdempotencyKey, t.OrderID, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a ledger entry by its UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// GetByIdempotencyKey fetches the ledger entry recorded for a key, or nil
// when the key has never been used.
func (r *TransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE idempotency_key = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction by idempotency key: %w", err)
	}
	return t, nil
}

// ListByWallet returns the wallet's most recent entries, newest first.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var entries []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		entries = append(entries, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return entries, nil
}

// MonthlyTotals aggregates credits and debits per calendar month for the
// dashboard chart, oldest month first.
func (r *TransactionRepo) MonthlyTotals(ctx context.Context, walletID uuid.UUID, months int) ([]ports.MonthlyTotal, error) {
	query := `SELECT date_trunc('month', created_at) AS month,
			COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0) AS credits,
			COALESCE(SUM(-amount) FILTER (WHERE amount < 0), 0) AS debits,
			COUNT(*) AS entry_count
		FROM transactions
		WHERE wallet_id = $1
			AND created_at >= date_trunc('month', NOW()) - ($2 || ' months')::interval
		GROUP BY month
		ORDER BY month`

	rows, err := r.pool.Query(ctx, query, walletID, months)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var totals []ports.MonthlyTotal
	for rows.Next() {
		var m ports.MonthlyTotal
		if err := rows.Scan(&m.Month, &m.Credits, &m.Debits, &m.EntryCount); err != nil {
			return nil, fmt.Errorf("scan monthly total: %w", err)
		}
		totals = append(totals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	return totals, nil
}

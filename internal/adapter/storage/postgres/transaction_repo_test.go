package postgres

import (
	"context"
	"testing"
	"time"

	"agri-market-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(walletID uuid.UUID) *domain.Transaction {
	key := "dep-key-1"
	return &domain.Transaction{
		ID:             uuid.New(),
		WalletID:       walletID,
		Type:           domain.TransactionTypeDeposit,
		Amount:         5_000,
		BalanceBefore:  0,
		BalanceAfter:   5_000,
		IdempotencyKey: &key,
		Status:         domain.TransactionStatusCompleted,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func transactionTestColumns() []string {
	return []string{
		"id", "wallet_id", "type", "amount", "balance_before", "balance_after",
		"reason", "idempotency_key", "order_id", "status", "created_at",
	}
}

func transactionRow(tr *domain.Transaction) *pgxmock.Rows {
	return pgxmock.NewRows(transactionTestColumns()).AddRow(
		tr.ID, tr.WalletID, tr.Type, tr.Amount, tr.BalanceBefore, tr.BalanceAfter,
		tr.Reason, tr.IdempotencyKey, tr.OrderID, tr.Status, tr.CreatedAt,
	)
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	tr := newTestTransaction(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(tr.ID, tr.WalletID, tr.Type, tr.Amount, tr.BalanceBefore, tr.BalanceAfter,
			tr.Reason, tr.IdempotencyKey, tr.OrderID, tr.Status, tr.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, tr)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByIdempotencyKey(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	tr := newTestTransaction(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE idempotency_key").
		WithArgs(*tr.IdempotencyKey).
		WillReturnRows(transactionRow(tr))

	result, err := repo.GetByIdempotencyKey(context.Background(), *tr.IdempotencyKey)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, tr.ID, result.ID)
	assert.Equal(t, tr.Amount, result.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetByIdempotencyKey_Miss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM transactions WHERE idempotency_key").
		WithArgs("never-used").
		WillReturnRows(pgxmock.NewRows(transactionTestColumns()))

	result, err := repo.GetByIdempotencyKey(context.Background(), "never-used")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	first := newTestTransaction(walletID)
	second := newTestTransaction(walletID)
	second.IdempotencyKey = nil
	second.Amount = -2_000

	rows := transactionRow(first).AddRow(
		second.ID, second.WalletID, second.Type, second.Amount,
		second.BalanceBefore, second.BalanceAfter, second.Reason,
		second.IdempotencyKey, second.OrderID, second.Status, second.CreatedAt,
	)

	mock.ExpectQuery("SELECT .+ FROM transactions").
		WithArgs(walletID, 20).
		WillReturnRows(rows)

	result, err := repo.ListByWallet(context.Background(), walletID, 20)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, first.ID, result[0].ID)
	assert.Equal(t, int64(-2_000), result[1].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_MonthlyTotals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	walletID := uuid.New()
	month := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"month", "credits", "debits", "entry_count"}).
		AddRow(month, int64(10_000), int64(4_000), int64(7))

	mock.ExpectQuery("SELECT date_trunc").
		WithArgs(walletID, 6).
		WillReturnRows(rows)

	result, err := repo.MonthlyTotals(context.Background(), walletID, 6)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, month, result[0].Month)
	assert.Equal(t, int64(10_000), result[0].Credits)
	assert.Equal(t, int64(4_000), result[0].Debits)
	assert.Equal(t, int64(7), result[0].EntryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

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

func newTestEscrow() *domain.Escrow {
	return &domain.Escrow{
		ID:             uuid.New(),
		OrderID:        uuid.New(),
		BuyerWalletID:  uuid.New(),
		SellerWalletID: uuid.New(),
		Amount:         10_700,
		Status:         domain.EscrowStatusHeld,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func escrowTestColumns() []string {
	return []string{"id", "order_id", "buyer_wallet_id", "seller_wallet_id", "amount", "status", "created_at", "settled_at"}
}

func escrowRow(e *domain.Escrow) *pgxmock.Rows {
	return pgxmock.NewRows(escrowTestColumns()).AddRow(
		e.ID, e.OrderID, e.BuyerWalletID, e.SellerWalletID,
		e.Amount, e.Status, e.CreatedAt, e.SettledAt,
	)
}

func TestEscrowRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	e := newTestEscrow()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO escrows").
		WithArgs(e.ID, e.OrderID, e.BuyerWalletID, e.SellerWalletID,
			e.Amount, e.Status, e.CreatedAt, e.SettledAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepo_GetByOrderID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	e := newTestEscrow()

	mock.ExpectQuery("SELECT .+ FROM escrows WHERE order_id").
		WithArgs(e.OrderID).
		WillReturnRows(escrowRow(e))

	result, err := repo.GetByOrderID(context.Background(), e.OrderID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, e.ID, result.ID)
	assert.Equal(t, domain.EscrowStatusHeld, result.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepo_GetByIDForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	e := newTestEscrow()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM escrows WHERE id .+ FOR UPDATE").
		WithArgs(e.ID).
		WillReturnRows(escrowRow(e))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDForUpdate(context.Background(), tx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, e.Amount, result.Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepo_MarkSettled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	e := newTestEscrow()
	settledAt := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE escrows SET status").
		WithArgs(domain.EscrowStatusReleased, settledAt, e.ID, domain.EscrowStatusHeld).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkSettled(context.Background(), tx, e.ID, domain.EscrowStatusReleased, settledAt)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepo_MarkSettled_AlreadySettled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	e := newTestEscrow()
	settledAt := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE escrows SET status").
		WithArgs(domain.EscrowStatusRefunded, settledAt, e.ID, domain.EscrowStatusHeld).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.MarkSettled(context.Background(), tx, e.ID, domain.EscrowStatusRefunded, settledAt)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscrowRepo_SumHeldByBuyerWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	walletID := uuid.New()

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(walletID, domain.EscrowStatusHeld).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(21_400)))

	total, err := repo.SumHeldByBuyerWallet(context.Background(), walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(21_400), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package service

import (
	"context"
	"testing"
	"time"

	"agri-market-engine/internal/core/domain"
	"agri-market-engine/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type escrowTestDeps struct {
	svc        *EscrowServiceImpl
	escrowRepo *mocks.MockEscrowRepository
	ledger     *mocks.MockLedgerService
	transactor *mocks.MockDBTransactor
	clock      *fixedClock
	ctrl       *gomock.Controller
}

func setupEscrowService(t *testing.T) *escrowTestDeps {
	ctrl := gomock.NewController(t)
	d := &escrowTestDeps{
		escrowRepo: mocks.NewMockEscrowRepository(ctrl),
		ledger:     mocks.NewMockLedgerService(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		clock:      &fixedClock{now: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)},
		ctrl:       ctrl,
	}
	d.svc = NewEscrowService(
		d.escrowRepo, d.ledger, d.transactor, d.clock, 0, zerolog.Nop(),
	)
	return d
}

func heldEscrow() *domain.Escrow {
	return &domain.Escrow{
		ID:             uuid.New(),
		OrderID:        uuid.New(),
		BuyerWalletID:  uuid.New(),
		SellerWalletID: uuid.New(),
		Amount:         10_700,
		Status:         domain.EscrowStatusHeld,
		CreatedAt:      time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
	}
}

func TestEscrowService_CreateEscrow(t *testing.T) {
	d := setupEscrowService(t)
	defer d.ctrl.Finish()

	orderID := uuid.New()
	buyerWalletID := uuid.New()
	sellerWalletID := uuid.New()
	tx := &mockTx{}

	d.escrowRepo.EXPECT().GetByOrderID(gomock.Any(), orderID).Return(nil, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.ledger.EXPECT().HoldInTx(gomock.Any(), tx, buyerWalletID, int64(10_700), orderID, gomock.Any(), "").
		Return(&domain.Transaction{}, nil)
	d.escrowRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, escrow *domain.Escrow) error {
			assert.Equal(t, domain.EscrowStatusHeld, escrow.Status)
			assert.Equal(t, int64(10_700), escrow.Amount)
			return nil
		})

	escrow, err := d.svc.CreateEscrow(context.Background(), orderID, buyerWalletID, sellerWalletID, 10_700, nil, "")
	require.NoError(t, err)
	assert.Equal(t, orderID, escrow.OrderID)
	assert.Equal(t, domain.EscrowStatusHeld, escrow.Status)
}

func TestEscrowService_CreateEscrow_InvalidAmount(t *testing.T) {
	d := setupEscrowService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.CreateEscrow(context.Background(), uuid.New(), uuid.New(), uuid.New(), 0, nil, "")
	assertAppError(t, err, "VAL_001")
}

func TestEscrowService_CreateEscrow_ExistingReturnedUnchanged(t *testing.T) {
	d := setupEscrowService(t)
	defer d.ctrl.Finish()

	existing := heldEscrow()
	d.escrowRepo.EXPECT().GetByOrderID(gomock.Any(), existing.OrderID).Return(existing, nil)

	escrow, err := d.svc.CreateEscrow(context.Background(), existing.OrderID, uuid.New(), uuid.New(), 5_000, nil, "")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, escrow.ID)
	assert.Equal(t, int64(10_700), escrow.Amount)
}

func TestEscrowService_Release(t *testing.T) {
	d := setupEscrowService(t)
	defer d.ctrl.Finish()

	escrow := heldEscrow()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.escrowRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, escrow.ID).Return(escrow, nil)
	d.ledger.EXPECT().ReleaseInTx(gomock.Any(), tx, escrow.BuyerWalletID, escrow.SellerWalletID, escrow.Amount, escrow.OrderID, "10.0.0.1").
		Return(&domain.Transaction{}, nil)
	d.escrowRepo.EXPECT().MarkSettled(gomock.Any(), tx, escrow.ID, domain.EscrowStatusReleased, d.clock.now).
		Return(true, nil)

	settled, err := d.svc.Release(context.Background(), escrow.ID, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusReleased, settled.Status)
	require.NotNil(t, settled.SettledAt)
	assert.Equal(t, d.clock.now, *settled.SettledAt)
}

func TestEscrowService_Refund(t *testing.T) {
	d := setupEscrowService(t)
	defer d.ctrl.Finish()

	escrow := heldEscrow()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.escrowRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, escrow.ID).Return(escrow, nil)
	d.ledger.EXPECT().RefundInTx(gomock.Any(), tx, escrow.BuyerWalletID, escrow.Amount, escrow.OrderID, "").
		Return(&domain.Transaction{}, nil)
	d.escrowRepo.EXPECT().MarkSettled(gomock.Any(), tx, escrow.ID, domain.EscrowStatusRefunded, d.clock.now).
		Return(true, nil)

	settled, err := d.svc.Refund(context.Background(), escrow.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusRefunded, settled.Status)
}

func TestEscrowService_Release_NotFound(t *testing.T) {
	d := setupEscrowService(t)
	defer d.ctrl.Finish()

	escrowID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.escrowRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, escrowID).Return(nil, nil)

	_, err := d.svc.Release(context.Background(), escrowID, "")
	assertAppError(t, err, "ESC_001")
}

func TestEscrowService_Release_ReplayedReleaseIsNoOp(t *testing.T) {
	d := setupEscrowService(t)
	defer d.ctrl.Finish()

	escrow := heldEscrow()
	escrow.Status = domain.EscrowStatusReleased
	settledAt := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	escrow.SettledAt = &settledAt
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.escrowRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, escrow.ID).Return(escrow, nil)

	got, err := d.svc.Release(context.Background(), escrow.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusReleased, got.Status)
	assert.Equal(t, settledAt, *got.SettledAt)
}

func TestEscrowService_Refund_AfterReleaseConflicts(t *testing.T) {
	d := setupEscrowService(t)
	defer d.ctrl.Finish()

	escrow := heldEscrow()
	escrow.Status = domain.EscrowStatusReleased
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.escrowRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, escrow.ID).Return(escrow, nil)

	_, err := d.svc.Refund(context.Background(), escrow.ID, "")
	assertAppError(t, err, "ESC_002")
}

func TestEscrowService_Release_GuardConflict(t *testing.T) {
	d := setupEscrowService(t)
	defer d.ctrl.Finish()

	escrow := heldEscrow()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.escrowRepo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, escrow.ID).Return(escrow, nil)
	d.ledger.EXPECT().ReleaseInTx(gomock.Any(), tx, escrow.BuyerWalletID, escrow.SellerWalletID, escrow.Amount, escrow.OrderID, "").
		Return(&domain.Transaction{}, nil)
	d.escrowRepo.EXPECT().MarkSettled(gomock.Any(), tx, escrow.ID, domain.EscrowStatusReleased, gomock.Any()).
		Return(false, nil)

	_, err := d.svc.Release(context.Background(), escrow.ID, "")
	assertAppError(t, err, "ESC_002")
}

func TestEscrowService_GetEscrowByOrder_NotFound(t *testing.T) {
	d := setupEscrowService(t)
	defer d.ctrl.Finish()

	orderID := uuid.New()
	d.escrowRepo.EXPECT().GetByOrderID(gomock.Any(), orderID).Return(nil, nil)

	_, err := d.svc.GetEscrowByOrder(context.Background(), orderID)
	assertAppError(t, err, "ESC_001")
}

func TestEscrowService_GetWalletEscrows(t *testing.T) {
	d := setupEscrowService(t)
	defer d.ctrl.Finish()

	walletID := uuid.New()
	d.escrowRepo.EXPECT().ListByWallet(gomock.Any(), walletID).
		Return([]domain.Escrow{*heldEscrow(), *heldEscrow()}, nil)

	escrows, err := d.svc.GetWalletEscrows(context.Background(), walletID)
	require.NoError(t, err)
	assert.Len(t, escrows, 2)
}

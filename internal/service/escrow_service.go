package service

import (
	"context"
	"fmt"
	"time"

	"agri-market-engine/internal/core/domain"
	"agri-market-engine/internal/core/ports"
	"agri-market-engine/pkg/apperror"
	"agri-market-engine/pkg/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EscrowServiceImpl implements ports.EscrowService. It owns the escrow
// lifecycle but never touches a wallet row itself; all money movement goes
// through the ledger's in-transaction primitives.
type EscrowServiceImpl struct {
	escrowRepo ports.EscrowRepository
	ledger     ports.LedgerService
	transactor ports.DBTransactor
	clock      ports.Clock
	txTimeout  time.Duration
	log        zerolog.Logger
}

// NewEscrowService creates a new EscrowServiceImpl.
func NewEscrowService(
	escrowRepo ports.EscrowRepository,
	ledger ports.LedgerService,
	transactor ports.DBTransactor,
	clock ports.Clock,
	txTimeout time.Duration,
	log zerolog.Logger,
) *EscrowServiceImpl {
	return &EscrowServiceImpl{
		escrowRepo: escrowRepo,
		ledger:     ledger,
		transactor: transactor,
		clock:      clock,
		txTimeout:  txTimeout,
		log:        log,
	}
}

// CreateEscrow holds amount from the buyer wallet and records the escrow in
// one commit. One escrow per order: a second call for the same order returns
// the existing record unchanged.
func (s *EscrowServiceImpl) CreateEscrow(ctx context.Context, orderID, buyerWalletID, sellerWalletID uuid.UUID, amount int64, actorID *uuid.UUID, clientIP string) (*domain.Escrow, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	existing, err := s.escrowRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get escrow by order: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	ctx, cancel := s.withTxTimeout(ctx)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := s.ledger.HoldInTx(ctx, dbTx, buyerWalletID, amount, orderID, actorID, clientIP); err != nil {
		return nil, err
	}

	escrow := &domain.Escrow{
		ID:             uuid.New(),
		OrderID:        orderID,
		BuyerWalletID:  buyerWalletID,
		SellerWalletID: sellerWalletID,
		Amount:         amount,
		Status:         domain.EscrowStatusHeld,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.escrowRepo.Create(ctx, dbTx, escrow); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("create escrow: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("escrow_id", escrow.ID.String()).
		Str("order_id", orderID.String()).
		Int64("amount", amount).
		Msg("escrow created")

	return escrow, nil
}

// Release settles held funds to the seller. Calling Release on an escrow that
// was already released is an idempotent no-op; on a refunded escrow it is a
// hard conflict.
func (s *EscrowServiceImpl) Release(ctx context.Context, escrowID uuid.UUID, clientIP string) (*domain.Escrow, error) {
	return s.settle(ctx, escrowID, domain.EscrowStatusReleased, clientIP)
}

// Refund returns held funds to the buyer. Calling Refund on an escrow that
// was already refunded is an idempotent no-op; on a released escrow it is a
// hard conflict.
func (s *EscrowServiceImpl) Refund(ctx context.Context, escrowID uuid.UUID, clientIP string) (*domain.Escrow, error) {
	return s.settle(ctx, escrowID, domain.EscrowStatusRefunded, clientIP)
}

// GetEscrowByOrder returns the escrow attached to an order.
func (s *EscrowServiceImpl) GetEscrowByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error) {
	escrow, err := s.escrowRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get escrow by order: %w", err))
	}
	if escrow == nil {
		return nil, apperror.ErrEscrowNotFound()
	}
	return escrow, nil
}

// GetWalletEscrows lists all escrows the wallet participates in, either side.
func (s *EscrowServiceImpl) GetWalletEscrows(ctx context.Context, walletID uuid.UUID) ([]domain.Escrow, error) {
	escrows, err := s.escrowRepo.ListByWallet(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("list escrows: %w", err))
	}
	return escrows, nil
}

// settle performs the terminal transition. The escrow row is locked for the
// whole unit so concurrent release/refund attempts serialize; the loser sees
// a terminal status and resolves to a no-op or a conflict.
func (s *EscrowServiceImpl) settle(ctx context.Context, escrowID uuid.UUID, target domain.EscrowStatus, clientIP string) (*domain.Escrow, error) {
	ctx, cancel := s.withTxTimeout(ctx)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	escrow, err := s.escrowRepo.GetByIDForUpdate(ctx, dbTx, escrowID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("lock escrow: %w", err))
	}
	if escrow == nil {
		return nil, apperror.ErrEscrowNotFound()
	}
	if escrow.IsTerminal() {
		if escrow.Status == target {
			// Replayed settlement with the same outcome: nothing to do.
			return escrow, nil
		}
		return nil, apperror.ErrEscrowAlreadySettled()
	}

	if target == domain.EscrowStatusReleased {
		_, err = s.ledger.ReleaseInTx(ctx, dbTx, escrow.BuyerWalletID, escrow.SellerWalletID, escrow.Amount, escrow.OrderID, clientIP)
	} else {
		_, err = s.ledger.RefundInTx(ctx, dbTx, escrow.BuyerWalletID, escrow.Amount, escrow.OrderID, clientIP)
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ok, err := s.escrowRepo.MarkSettled(ctx, dbTx, escrow.ID, target, now)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("mark escrow settled: %w", err))
	}
	if !ok {
		return nil, apperror.ErrEscrowAlreadySettled()
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("commit tx: %w", err))
	}

	escrow.Status = target
	escrow.SettledAt = &now
	metrics.EscrowSettlementsTotal.WithLabelValues(settlementOutcome(target)).Inc()

	s.log.Info().
		Str("escrow_id", escrow.ID.String()).
		Str("order_id", escrow.OrderID.String()).
		Str("status", string(target)).
		Int64("amount", escrow.Amount).
		Msg("escrow settled")

	return escrow, nil
}

func (s *EscrowServiceImpl) withTxTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.txTimeout > 0 {
		return context.WithTimeout(ctx, s.txTimeout)
	}
	return ctx, func() {}
}

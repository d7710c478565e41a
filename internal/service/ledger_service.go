package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agri-market-engine/internal/core/domain"
	"agri-market-engine/internal/core/ports"
	"agri-market-engine/pkg/apperror"
	"agri-market-engine/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	idempotencyTTL   = 24 * time.Hour
	dashboardTxLimit = 10
	dashboardMonths  = 6
)

// LedgerServiceImpl implements ports.LedgerService. Every balance mutation in
// the system flows through this type: deposits and withdrawals via the public
// methods, escrow movement via the InTx primitives. The wallet row is locked
// with FOR UPDATE and re-checked with a version guard on write.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	auditRepo  ports.AuditRepository
	escrowRepo ports.EscrowRepository
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	clock      ports.Clock
	txTimeout  time.Duration
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	auditRepo ports.AuditRepository,
	escrowRepo ports.EscrowRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	clock ports.Clock,
	txTimeout time.Duration,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		auditRepo:  auditRepo,
		escrowRepo: escrowRepo,
		idempCache: idempCache,
		transactor: transactor,
		clock:      clock,
		txTimeout:  txTimeout,
		log:        log,
	}
}

// Deposit credits a wallet. Idempotent when req.IdempotencyKey is set: a
// replay returns the originally recorded transaction without mutating again.
func (s *LedgerServiceImpl) Deposit(ctx context.Context, req ports.LedgerRequest) (*ports.LedgerResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	if dup, err := s.checkIdempotency(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if dup != nil {
		return dup, nil
	}

	ctx, cancel := s.withTxTimeout(ctx)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	expectedVersion := wallet.Version
	balanceBefore := wallet.Balance
	wallet.Balance += req.Amount

	ok, err := s.walletRepo.UpdateLocked(ctx, dbTx, wallet, expectedVersion)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("update wallet: %w", err))
	}
	if !ok {
		metrics.LedgerOpsTotal.WithLabelValues(string(domain.TransactionTypeDeposit), "conflict").Inc()
		return nil, apperror.ErrConcurrencyConflict()
	}

	now := s.clock.Now()
	txn := &domain.Transaction{
		ID:             uuid.New(),
		WalletID:       wallet.ID,
		Type:           domain.TransactionTypeDeposit,
		Amount:         req.Amount,
		BalanceBefore:  balanceBefore,
		BalanceAfter:   wallet.Balance,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
		Status:         domain.TransactionStatusCompleted,
		CreatedAt:      now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("create transaction: %w", err))
	}

	if err := s.writeAudit(ctx, dbTx, wallet, domain.AuditOpDeposit, req.Amount,
		balanceBefore, expectedVersion, req.ActorID, req.ClientIP, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("commit tx: %w", err))
	}

	result := &ports.LedgerResult{Wallet: wallet, Transaction: txn}
	s.cacheResult(ctx, req.IdempotencyKey, result)
	metrics.LedgerOpsTotal.WithLabelValues(string(domain.TransactionTypeDeposit), "success").Inc()

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Int64("amount", req.Amount).
		Msg("deposit completed")

	return result, nil
}

// Withdraw debits a wallet, enforcing per-transaction and per-day limits on
// top of the balance check. The daily counter resets on the first withdrawal
// of each UTC day.
func (s *LedgerServiceImpl) Withdraw(ctx context.Context, req ports.LedgerRequest) (*ports.LedgerResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	if dup, err := s.checkIdempotency(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if dup != nil {
		return dup, nil
	}

	ctx, cancel := s.withTxTimeout(ctx)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, req.WalletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	now := s.clock.Now()
	if wallet.NeedsDailyReset(now) {
		wallet.ApplyDailyReset(now)
	}

	// Business rules, checked against the locked row
	if req.Amount > wallet.SingleTransactionLimit {
		return nil, apperror.ErrSingleTransactionLimitExceeded()
	}
	if wallet.DailyWithdrawnToday+req.Amount > wallet.DailyWithdrawLimit {
		return nil, apperror.ErrDailyLimitExceeded()
	}
	if wallet.Balance < req.Amount {
		return nil, apperror.ErrInsufficientBalance()
	}

	expectedVersion := wallet.Version
	balanceBefore := wallet.Balance
	wallet.Balance -= req.Amount
	wallet.DailyWithdrawnToday += req.Amount

	ok, err := s.walletRepo.UpdateLocked(ctx, dbTx, wallet, expectedVersion)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("update wallet: %w", err))
	}
	if !ok {
		metrics.LedgerOpsTotal.WithLabelValues(string(domain.TransactionTypeWithdrawal), "conflict").Inc()
		return nil, apperror.ErrConcurrencyConflict()
	}

	txn := &domain.Transaction{
		ID:             uuid.New(),
		WalletID:       wallet.ID,
		Type:           domain.TransactionTypeWithdrawal,
		Amount:         -req.Amount,
		BalanceBefore:  balanceBefore,
		BalanceAfter:   wallet.Balance,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
		Status:         domain.TransactionStatusCompleted,
		CreatedAt:      now,
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("create transaction: %w", err))
	}

	if err := s.writeAudit(ctx, dbTx, wallet, domain.AuditOpWithdraw, -req.Amount,
		balanceBefore, expectedVersion, req.ActorID, req.ClientIP, now); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("commit tx: %w", err))
	}

	result := &ports.LedgerResult{Wallet: wallet, Transaction: txn}
	s.cacheResult(ctx, req.IdempotencyKey, result)
	metrics.LedgerOpsTotal.WithLabelValues(string(domain.TransactionTypeWithdrawal), "success").Inc()

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("wallet_id", wallet.ID.String()).
		Int64("amount", req.Amount).
		Int64("daily_withdrawn", wallet.DailyWithdrawnToday).
		Msg("withdrawal completed")

	return result, nil
}

// GetOrCreateWallet lazily creates the owner's wallet with BRONZE defaults on
// first access.
func (s *LedgerServiceImpl) GetOrCreateWallet(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwner(ctx, ownerID, ownerType)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get wallet by owner: %w", err))
	}
	if wallet != nil {
		return wallet, nil
	}

	wallet = domain.NewWallet(ownerID, ownerType, s.clock.Now())
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		// A concurrent first access may have created it; re-read once.
		existing, getErr := s.walletRepo.GetByOwner(ctx, ownerID, ownerType)
		if getErr == nil && existing != nil {
			return existing, nil
		}
		return nil, apperror.ErrStorage(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("owner_id", ownerID.String()).
		Str("owner_type", string(ownerType)).
		Msg("wallet created")

	return wallet, nil
}

// GetWallet returns a wallet by ID.
func (s *LedgerServiceImpl) GetWallet(ctx context.Context, walletID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

// GetTransactions returns a wallet's recent ledger entries.
func (s *LedgerServiceImpl) GetTransactions(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Transaction, error) {
	entries, err := s.txRepo.ListByWallet(ctx, walletID, limit)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("list transactions: %w", err))
	}
	return entries, nil
}

// GetWalletLimits returns the limits currently applied to a wallet.
func (s *LedgerServiceImpl) GetWalletLimits(ctx context.Context, walletID uuid.UUID) (*domain.TierLimits, error) {
	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	limits := domain.LimitsForTier(wallet.Tier)
	return &limits, nil
}

// UpdateWalletLimits moves a wallet to a new tier and its default limits. The
// change is recorded in the audit trail like any balance operation.
func (s *LedgerServiceImpl) UpdateWalletLimits(ctx context.Context, walletID uuid.UUID, tier domain.WalletTier, actorID *uuid.UUID, clientIP string) (*domain.Wallet, error) {
	ctx, cancel := s.withTxTimeout(ctx)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, walletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	expectedVersion := wallet.Version
	wallet.ApplyTier(tier)

	ok, err := s.walletRepo.UpdateLocked(ctx, dbTx, wallet, expectedVersion)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("update wallet: %w", err))
	}
	if !ok {
		return nil, apperror.ErrConcurrencyConflict()
	}

	if err := s.writeAudit(ctx, dbTx, wallet, domain.AuditOpLimitChange, 0,
		wallet.Balance, expectedVersion, actorID, clientIP, s.clock.Now()); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("tier", string(tier)).
		Msg("wallet limits updated")

	return wallet, nil
}

// GetWalletDashboard aggregates the wallet overview. Each sub-read is an
// individually consistent snapshot; the composite is not transactional.
func (s *LedgerServiceImpl) GetWalletDashboard(ctx context.Context, walletID uuid.UUID) (*ports.WalletDashboard, error) {
	wallet, err := s.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	buyerHeld, err := s.escrowRepo.SumHeldByBuyerWallet(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("sum buyer escrow: %w", err))
	}
	sellerHeld, err := s.escrowRepo.SumHeldBySellerWallet(ctx, walletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("sum seller escrow: %w", err))
	}

	recent, err := s.txRepo.ListByWallet(ctx, walletID, dashboardTxLimit)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("list transactions: %w", err))
	}
	chart, err := s.txRepo.MonthlyTotals(ctx, walletID, dashboardMonths)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("monthly totals: %w", err))
	}

	return &ports.WalletDashboard{
		Wallet:             wallet,
		EscrowAsBuyer:      buyerHeld,
		EscrowAsSeller:     sellerHeld,
		Limits:             domain.LimitsForTier(wallet.Tier),
		RecentTransactions: recent,
		MonthlyChart:       chart,
	}, nil
}

// HoldInTx moves amount from the buyer's spendable balance into escrow
// balance inside the caller's transaction. Reserved for the escrow manager.
func (s *LedgerServiceImpl) HoldInTx(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, amount int64, orderID uuid.UUID, actorID *uuid.UUID, clientIP string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, tx, walletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	if wallet.Balance < amount {
		return nil, apperror.ErrInsufficientBalance()
	}

	expectedVersion := wallet.Version
	balanceBefore := wallet.Balance
	wallet.Balance -= amount
	wallet.EscrowBalance += amount

	ok, err := s.walletRepo.UpdateLocked(ctx, tx, wallet, expectedVersion)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("update wallet: %w", err))
	}
	if !ok {
		return nil, apperror.ErrConcurrencyConflict()
	}

	now := s.clock.Now()
	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Type:          domain.TransactionTypeEscrowHold,
		Amount:        -amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  wallet.Balance,
		OrderID:       &orderID,
		Status:        domain.TransactionStatusCompleted,
		CreatedAt:     now,
	}
	if err := s.txRepo.Create(ctx, tx, txn); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("create transaction: %w", err))
	}

	if err := s.writeAudit(ctx, tx, wallet, domain.AuditOpEscrowHold, -amount,
		balanceBefore, expectedVersion, actorID, clientIP, now); err != nil {
		return nil, err
	}

	return txn, nil
}

// ReleaseInTx settles held buyer funds to the seller inside the caller's
// transaction. Wallets are locked in ascending ID order so two settlements
// touching the same pair never deadlock.
func (s *LedgerServiceImpl) ReleaseInTx(ctx context.Context, tx pgx.Tx, buyerWalletID, sellerWalletID uuid.UUID, amount int64, orderID uuid.UUID, clientIP string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	buyer, seller, err := s.lockWalletPair(ctx, tx, buyerWalletID, sellerWalletID)
	if err != nil {
		return nil, err
	}
	if buyer.EscrowBalance < amount {
		return nil, apperror.InternalError(fmt.Errorf(
			"escrow balance underflow: wallet %s holds %d, release %d",
			buyer.ID, buyer.EscrowBalance, amount))
	}

	now := s.clock.Now()

	buyerVersion := buyer.Version
	buyer.EscrowBalance -= amount
	ok, err := s.walletRepo.UpdateLocked(ctx, tx, buyer, buyerVersion)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("update buyer wallet: %w", err))
	}
	if !ok {
		return nil, apperror.ErrConcurrencyConflict()
	}
	if err := s.writeAudit(ctx, tx, buyer, domain.AuditOpEscrowRelease, -amount,
		buyer.Balance, buyerVersion, nil, clientIP, now); err != nil {
		return nil, err
	}

	sellerVersion := seller.Version
	sellerBalanceBefore := seller.Balance
	seller.Balance += amount
	ok, err = s.walletRepo.UpdateLocked(ctx, tx, seller, sellerVersion)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("update seller wallet: %w", err))
	}
	if !ok {
		return nil, apperror.ErrConcurrencyConflict()
	}

	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      seller.ID,
		Type:          domain.TransactionTypeEscrowRelease,
		Amount:        amount,
		BalanceBefore: sellerBalanceBefore,
		BalanceAfter:  seller.Balance,
		OrderID:       &orderID,
		Status:        domain.TransactionStatusCompleted,
		CreatedAt:     now,
	}
	if err := s.txRepo.Create(ctx, tx, txn); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("create transaction: %w", err))
	}

	if err := s.writeAudit(ctx, tx, seller, domain.AuditOpEscrowRelease, amount,
		sellerBalanceBefore, sellerVersion, nil, clientIP, now); err != nil {
		return nil, err
	}

	return txn, nil
}

// RefundInTx returns held funds to the buyer's spendable balance inside the
// caller's transaction.
func (s *LedgerServiceImpl) RefundInTx(ctx context.Context, tx pgx.Tx, buyerWalletID uuid.UUID, amount int64, orderID uuid.UUID, clientIP string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetByIDForUpdate(ctx, tx, buyerWalletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	if wallet.EscrowBalance < amount {
		return nil, apperror.InternalError(fmt.Errorf(
			"escrow balance underflow: wallet %s holds %d, refund %d",
			wallet.ID, wallet.EscrowBalance, amount))
	}

	expectedVersion := wallet.Version
	balanceBefore := wallet.Balance
	wallet.EscrowBalance -= amount
	wallet.Balance += amount

	ok, err := s.walletRepo.UpdateLocked(ctx, tx, wallet, expectedVersion)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("update wallet: %w", err))
	}
	if !ok {
		return nil, apperror.ErrConcurrencyConflict()
	}

	now := s.clock.Now()
	txn := &domain.Transaction{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		Type:          domain.TransactionTypeRefund,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  wallet.Balance,
		OrderID:       &orderID,
		Status:        domain.TransactionStatusCompleted,
		CreatedAt:     now,
	}
	if err := s.txRepo.Create(ctx, tx, txn); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("create transaction: %w", err))
	}

	if err := s.writeAudit(ctx, tx, wallet, domain.AuditOpEscrowRefund, amount,
		balanceBefore, expectedVersion, nil, clientIP, now); err != nil {
		return nil, err
	}

	return txn, nil
}

// checkIdempotency runs the two-layer replay check: Redis first (best
// effort), then the transactions table (authoritative). A non-nil result
// means the key was already used.
func (s *LedgerServiceImpl) checkIdempotency(ctx context.Context, key *string) (*ports.LedgerResult, error) {
	if key == nil || *key == "" {
		return nil, nil
	}

	cached, err := s.idempCache.Get(ctx, *key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", *key).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		result := &ports.LedgerResult{}
		if err := json.Unmarshal(cached, result); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("unmarshal cached result: %w", err))
		}
		result.Duplicate = true
		return result, nil
	}

	txn, err := s.txRepo.GetByIdempotencyKey(ctx, *key)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("db idempotency check: %w", err))
	}
	if txn == nil {
		return nil, nil
	}

	wallet, err := s.walletRepo.GetByID(ctx, txn.WalletID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get wallet for replay: %w", err))
	}
	return &ports.LedgerResult{Wallet: wallet, Transaction: txn, Duplicate: true}, nil
}

// cacheResult stores a completed result for the fast-path replay check.
// Best-effort only.
func (s *LedgerServiceImpl) cacheResult(ctx context.Context, key *string, result *ports.LedgerResult) {
	if key == nil || *key == "" {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		s.log.Warn().Err(err).Msg("marshal ledger result for cache")
		return
	}
	if err := s.idempCache.Set(ctx, *key, data, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", *key).Msg("failed to cache idempotency in redis")
	}
}

// writeAudit appends the audit row for a completed mutation. The wallet has
// already been bumped to expectedVersion+1.
func (s *LedgerServiceImpl) writeAudit(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet, op domain.AuditOperation, amount, balanceBefore, versionBefore int64, actorID *uuid.UUID, clientIP string, now time.Time) error {
	entry := &domain.WalletAuditLog{
		ID:            uuid.New(),
		WalletID:      wallet.ID,
		UserID:        actorID,
		Operation:     op,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  wallet.Balance,
		VersionBefore: versionBefore,
		VersionAfter:  wallet.Version,
		IPAddress:     clientIP,
		CreatedAt:     now,
	}
	if err := s.auditRepo.Create(ctx, tx, entry); err != nil {
		return apperror.ErrStorage(fmt.Errorf("create audit log: %w", err))
	}
	return nil
}

// lockWalletPair locks two wallets in ascending ID order.
func (s *LedgerServiceImpl) lockWalletPair(ctx context.Context, tx pgx.Tx, buyerID, sellerID uuid.UUID) (buyer, seller *domain.Wallet, err error) {
	first, second := buyerID, sellerID
	if second.String() < first.String() {
		first, second = second, first
	}

	w1, err := s.walletRepo.GetByIDForUpdate(ctx, tx, first)
	if err != nil {
		return nil, nil, apperror.ErrStorage(fmt.Errorf("lock wallet: %w", err))
	}
	w2, err := s.walletRepo.GetByIDForUpdate(ctx, tx, second)
	if err != nil {
		return nil, nil, apperror.ErrStorage(fmt.Errorf("lock wallet: %w", err))
	}
	if w1 == nil || w2 == nil {
		return nil, nil, apperror.ErrWalletNotFound()
	}

	if w1.ID == buyerID {
		return w1, w2, nil
	}
	return w2, w1, nil
}

func (s *LedgerServiceImpl) withTxTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.txTimeout > 0 {
		return context.WithTimeout(ctx, s.txTimeout)
	}
	return ctx, func() {}
}

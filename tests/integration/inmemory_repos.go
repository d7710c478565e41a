package integration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"agri-market-engine/internal/core/domain"
	"agri-market-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Wallet Repo ---

// inMemoryWalletRepo mirrors the postgres repo's concurrency contract: reads
// hand out copies, and UpdateLocked applies the version CAS under the mutex.
type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.wallets {
		if existing.OwnerID == w.OwnerID && existing.OwnerType == w.OwnerType {
			return fmt.Errorf("wallet already exists for owner")
		}
	}
	cp := *w
	r.wallets[w.ID] = &cp
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID, ownerType domain.OwnerType) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.OwnerID == ownerID && w.OwnerType == ownerType {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWalletRepo) UpdateLocked(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.wallets[w.ID]
	if !ok || stored.Version != expectedVersion {
		return false, nil
	}
	w.Version = expectedVersion + 1
	w.UpdatedAt = time.Now().UTC()
	cp := *w
	r.wallets[w.ID] = &cp
	return true, nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.Transaction
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{transactions: make(map[uuid.UUID]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.IdempotencyKey != nil && *t.IdempotencyKey != "" {
		for _, existing := range r.transactions {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *t.IdempotencyKey {
				return fmt.Errorf("duplicate idempotency key")
			}
		}
	}
	cp := *t
	r.transactions[t.ID] = &cp
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.transactions {
		if t.IdempotencyKey != nil && *t.IdempotencyKey == key {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.transactions {
		if t.WalletID == walletID {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *inMemoryTransactionRepo) MonthlyTotals(ctx context.Context, walletID uuid.UUID, months int) ([]ports.MonthlyTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byMonth := make(map[time.Time]*ports.MonthlyTotal)
	cutoff := time.Now().UTC().AddDate(0, -months, 0)
	for _, t := range r.transactions {
		if t.WalletID != walletID || t.CreatedAt.Before(cutoff) {
			continue
		}
		month := time.Date(t.CreatedAt.Year(), t.CreatedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
		mt, ok := byMonth[month]
		if !ok {
			mt = &ports.MonthlyTotal{Month: month}
			byMonth[month] = mt
		}
		if t.Amount > 0 {
			mt.Credits += t.Amount
		} else {
			mt.Debits += -t.Amount
		}
		mt.EntryCount++
	}
	var result []ports.MonthlyTotal
	for _, mt := range byMonth {
		result = append(result, *mt)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month.Before(result[j].Month) })
	return result, nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu   sync.RWMutex
	logs []domain.WalletAuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, tx pgx.Tx, l *domain.WalletAuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *l)
	return nil
}

func (r *inMemoryAuditRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int) ([]domain.WalletAuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.WalletAuditLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].WalletID == walletID {
			result = append(result, r.logs[i])
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

// --- In-Memory Product Repo ---

type inMemoryProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
}

func newInMemoryProductRepo() *inMemoryProductRepo {
	return &inMemoryProductRepo{products: make(map[uuid.UUID]*domain.Product)}
}

func (r *inMemoryProductRepo) Create(ctx context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *inMemoryProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryProductRepo) GetByIDsForUpdate(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.Compare(result[i].ID.String(), result[j].ID.String()) < 0
	})
	return result, nil
}

func (r *inMemoryProductRepo) DecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*domain.Order
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = copyOrder(o)
	return nil
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (r *inMemoryOrderRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Order
	for _, o := range r.orders {
		if o.BuyerID == buyerID {
			result = append(result, *copyOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *inMemoryOrderRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Order
	for _, o := range r.orders {
		for _, it := range o.Items {
			if it.SellerID == sellerID {
				result = append(result, *copyOrder(o))
				break
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *inMemoryOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

// --- In-Memory Escrow Repo ---

type inMemoryEscrowRepo struct {
	mu      sync.RWMutex
	escrows map[uuid.UUID]*domain.Escrow
}

func newInMemoryEscrowRepo() *inMemoryEscrowRepo {
	return &inMemoryEscrowRepo{escrows: make(map[uuid.UUID]*domain.Escrow)}
}

func (r *inMemoryEscrowRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.Escrow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.escrows {
		if existing.OrderID == e.OrderID {
			return fmt.Errorf("escrow already exists for order")
		}
	}
	cp := *e
	r.escrows[e.ID] = &cp
	return nil
}

func (r *inMemoryEscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Escrow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.escrows[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *inMemoryEscrowRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Escrow, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryEscrowRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.escrows {
		if e.OrderID == orderID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryEscrowRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.Escrow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Escrow
	for _, e := range r.escrows {
		if e.BuyerWalletID == walletID || e.SellerWalletID == walletID {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *inMemoryEscrowRepo) MarkSettled(ctx context.Context, tx pgx.Tx, escrowID uuid.UUID, status domain.EscrowStatus, settledAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.escrows[escrowID]
	if !ok || e.Status != domain.EscrowStatusHeld {
		return false, nil
	}
	e.Status = status
	at := settledAt
	e.SettledAt = &at
	return true, nil
}

func (r *inMemoryEscrowRepo) SumHeldByBuyerWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, e := range r.escrows {
		if e.BuyerWalletID == walletID && e.Status == domain.EscrowStatusHeld {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (r *inMemoryEscrowRepo) SumHeldBySellerWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sum int64
	for _, e := range r.escrows {
		if e.SellerWalletID == walletID && e.Status == domain.EscrowStatusHeld {
			sum += e.Amount
		}
	}
	return sum, nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

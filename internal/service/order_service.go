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
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// eventPublishTimeout bounds the post-commit fire-and-forget publish.
const eventPublishTimeout = 3 * time.Second

// OrderServiceImpl implements ports.OrderService. Order creation is one
// atomic unit: price the cart from locked product rows, reserve stock, write
// the order, and (for wallet payment) hold the buyer's funds in escrow, all
// under a single commit.
type OrderServiceImpl struct {
	orderRepo   ports.OrderRepository
	productRepo ports.ProductRepository
	escrowRepo  ports.EscrowRepository
	ledger      ports.LedgerService
	transactor  ports.DBTransactor
	publisher   ports.EventPublisher
	clock       ports.Clock
	txTimeout   time.Duration
	log         zerolog.Logger
}

// NewOrderService creates a new OrderServiceImpl.
func NewOrderService(
	orderRepo ports.OrderRepository,
	productRepo ports.ProductRepository,
	escrowRepo ports.EscrowRepository,
	ledger ports.LedgerService,
	transactor ports.DBTransactor,
	publisher ports.EventPublisher,
	clock ports.Clock,
	txTimeout time.Duration,
	log zerolog.Logger,
) *OrderServiceImpl {
	return &OrderServiceImpl{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		escrowRepo:  escrowRepo,
		ledger:      ledger,
		transactor:  transactor,
		publisher:   publisher,
		clock:       clock,
		txTimeout:   txTimeout,
		log:         log,
	}
}

// CreateOrder prices the cart server-side, reserves stock, and creates the
// order. Client-supplied prices are never read. An empty cart produces a
// fully zero-value order with no delivery fee.
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, req ports.CreateOrderRequest) (*domain.Order, error) {
	items, err := normalizeItems(req.Items)
	if err != nil {
		return nil, err
	}
	if req.PaymentMethod != domain.PaymentMethodWallet && req.PaymentMethod != domain.PaymentMethodCashOnDelivery {
		return nil, apperror.Validation("Unknown payment method")
	}

	// Wallet resolution happens before the transaction; lazy creation is its
	// own atomic operation.
	var buyerWallet *domain.Wallet
	if req.PaymentMethod == domain.PaymentMethodWallet && len(items) > 0 {
		buyerWallet, err = s.ledger.GetOrCreateWallet(ctx, req.BuyerID, domain.OwnerTypeBuyer)
		if err != nil {
			return nil, err
		}
	}

	ctx, cancel := s.withTxTimeout(ctx)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := s.clock.Now()
	order := &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     domain.NewOrderNumber(),
		BuyerID:         req.BuyerID,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var lowStock []domain.LowStockEvent
	if len(items) > 0 {
		lowStock, err = s.priceAndReserve(ctx, dbTx, order, items)
		if err != nil {
			return nil, err
		}
	}

	order.ServiceFee = domain.ComputeServiceFee(order.Subtotal)
	if len(items) > 0 {
		order.DeliveryFee = domain.DeliveryFee
	}
	order.TotalAmount = order.Subtotal + order.ServiceFee + order.DeliveryFee

	if err := s.orderRepo.Create(ctx, dbTx, order); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("create order: %w", err))
	}

	if req.PaymentMethod == domain.PaymentMethodWallet && order.TotalAmount > 0 {
		if err := s.holdOrderFunds(ctx, dbTx, order, buyerWallet, now); err != nil {
			if appErr, ok := err.(*apperror.AppError); ok && appErr.Code == "WAL_001" {
				metrics.OrdersRejectedTotal.WithLabelValues("insufficient_balance").Inc()
			}
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("commit tx: %w", err))
	}

	metrics.OrdersCreatedTotal.Inc()
	s.publishOrderEvents(order, lowStock)

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("buyer_id", order.BuyerID.String()).
		Int64("total", order.TotalAmount).
		Str("payment_method", string(order.PaymentMethod)).
		Msg("order created")

	return order, nil
}

// GetOrder returns an order after an ownership check: only the buyer, a
// seller with an item on the order, or an admin may view it.
func (s *OrderServiceImpl) GetOrder(ctx context.Context, orderID, requesterID uuid.UUID, isAdmin bool) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}

	if !isAdmin && order.BuyerID != requesterID && !isSellerOn(order, requesterID) {
		return nil, apperror.ErrForbidden()
	}
	return order, nil
}

// ListOrders returns the user's orders from the buyer or seller perspective.
func (s *OrderServiceImpl) ListOrders(ctx context.Context, userID uuid.UUID, role ports.OrderRole, limit int) ([]domain.Order, error) {
	var orders []domain.Order
	var err error
	switch role {
	case ports.OrderRoleSeller:
		orders, err = s.orderRepo.ListBySeller(ctx, userID, limit)
	default:
		orders, err = s.orderRepo.ListByBuyer(ctx, userID, limit)
	}
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("list orders: %w", err))
	}
	return orders, nil
}

// UpdateOrderStatus transitions the order through its state machine. Reaching
// COMPLETED releases the order's escrow to the seller; CANCELLED refunds it
// to the buyer. Settlement and the status change commit together.
func (s *OrderServiceImpl) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get order: %w", err))
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound()
	}
	if !domain.CanTransition(order.Status, to) {
		return nil, apperror.ErrInvalidStatusTransition(string(order.Status), string(to))
	}

	ctx, cancel := s.withTxTimeout(ctx)
	defer cancel()

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	ok, err := s.orderRepo.UpdateStatus(ctx, dbTx, order.ID, order.Status, to)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("update order status: %w", err))
	}
	if !ok {
		// Someone moved the order between our read and the guard.
		return nil, apperror.ErrConcurrencyConflict()
	}

	if to == domain.OrderStatusCompleted || to == domain.OrderStatusCancelled {
		if err := s.settleOrderEscrow(ctx, dbTx, order, to); err != nil {
			return nil, err
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("commit tx: %w", err))
	}

	order.Status = to
	order.UpdatedAt = s.clock.Now()

	s.log.Info().
		Str("order_id", order.ID.String()).
		Str("status", string(to)).
		Msg("order status updated")

	return order, nil
}

// priceAndReserve locks the cart's product rows, prices each line from the
// locked read, and decrements stock under the guard. Returns the low-stock
// events to emit after commit.
func (s *OrderServiceImpl) priceAndReserve(ctx context.Context, dbTx pgx.Tx, order *domain.Order, items []ports.OrderItemRequest) ([]domain.LowStockEvent, error) {
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}

	products, err := s.productRepo.GetByIDsForUpdate(ctx, dbTx, ids)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("lock products: %w", err))
	}
	byID := make(map[uuid.UUID]*domain.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	var lowStock []domain.LowStockEvent
	for _, it := range items {
		product, found := byID[it.ProductID]
		if !found {
			metrics.OrdersRejectedTotal.WithLabelValues("product_not_found").Inc()
			return nil, apperror.ErrProductNotFound()
		}

		ok, err := s.productRepo.DecrementStock(ctx, dbTx, product.ID, it.Quantity)
		if err != nil {
			return nil, apperror.ErrStorage(fmt.Errorf("decrement stock: %w", err))
		}
		if !ok {
			metrics.OrdersRejectedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, apperror.ErrInsufficientStock()
		}

		line := domain.OrderItem{
			ID:         uuid.New(),
			OrderID:    order.ID,
			ProductID:  product.ID,
			SellerID:   product.SellerID,
			Quantity:   it.Quantity,
			UnitPrice:  product.Price,
			TotalPrice: product.Price * it.Quantity,
		}
		order.Items = append(order.Items, line)
		order.Subtotal += line.TotalPrice

		if remaining := product.Stock - it.Quantity; remaining <= domain.LowStockThreshold {
			lowStock = append(lowStock, domain.LowStockEvent{
				ProductID:      product.ID,
				SellerID:       product.SellerID,
				RemainingStock: remaining,
			})
		}
	}
	return lowStock, nil
}

// holdOrderFunds captures the buyer's total into escrow inside the order
// transaction. One escrow per order; the seller side is the wallet of the
// order's single seller, so wallet carts spanning several sellers are
// rejected and must be split into one order per seller.
func (s *OrderServiceImpl) holdOrderFunds(ctx context.Context, dbTx pgx.Tx, order *domain.Order, buyerWallet *domain.Wallet, now time.Time) error {
	sellers := order.SellerIDs()
	if len(sellers) != 1 {
		return apperror.Validation("Wallet payment requires a single-seller cart; split the order per seller")
	}

	sellerWallet, err := s.ledger.GetOrCreateWallet(ctx, sellers[0], domain.OwnerTypeFarmer)
	if err != nil {
		return err
	}

	if _, err := s.ledger.HoldInTx(ctx, dbTx, buyerWallet.ID, order.TotalAmount, order.ID, &order.BuyerID, ""); err != nil {
		return err
	}

	escrow := &domain.Escrow{
		ID:             uuid.New(),
		OrderID:        order.ID,
		BuyerWalletID:  buyerWallet.ID,
		SellerWalletID: sellerWallet.ID,
		Amount:         order.TotalAmount,
		Status:         domain.EscrowStatusHeld,
		CreatedAt:      now,
	}
	if err := s.escrowRepo.Create(ctx, dbTx, escrow); err != nil {
		return apperror.ErrStorage(fmt.Errorf("create escrow: %w", err))
	}
	return nil
}

// settleOrderEscrow releases or refunds the order's held funds, if any,
// within the caller's transaction. Orders without escrow (cash on delivery,
// zero-value) settle trivially.
func (s *OrderServiceImpl) settleOrderEscrow(ctx context.Context, dbTx pgx.Tx, order *domain.Order, to domain.OrderStatus) error {
	escrow, err := s.escrowRepo.GetByOrderID(ctx, order.ID)
	if err != nil {
		return apperror.ErrStorage(fmt.Errorf("get escrow: %w", err))
	}
	if escrow == nil || escrow.IsTerminal() {
		return nil
	}

	if to == domain.OrderStatusCompleted {
		if _, err := s.ledger.ReleaseInTx(ctx, dbTx, escrow.BuyerWalletID, escrow.SellerWalletID, escrow.Amount, order.ID, ""); err != nil {
			return err
		}
		return s.markSettled(ctx, dbTx, escrow.ID, domain.EscrowStatusReleased)
	}

	if _, err := s.ledger.RefundInTx(ctx, dbTx, escrow.BuyerWalletID, escrow.Amount, order.ID, ""); err != nil {
		return err
	}
	return s.markSettled(ctx, dbTx, escrow.ID, domain.EscrowStatusRefunded)
}

func (s *OrderServiceImpl) markSettled(ctx context.Context, dbTx pgx.Tx, escrowID uuid.UUID, status domain.EscrowStatus) error {
	ok, err := s.escrowRepo.MarkSettled(ctx, dbTx, escrowID, status, s.clock.Now())
	if err != nil {
		return apperror.ErrStorage(fmt.Errorf("mark escrow settled: %w", err))
	}
	if !ok {
		return apperror.ErrEscrowAlreadySettled()
	}
	metrics.EscrowSettlementsTotal.WithLabelValues(settlementOutcome(status)).Inc()
	return nil
}

// publishOrderEvents emits post-commit events. Fire-and-forget: a failure is
// logged and counted, never surfaced to the caller.
func (s *OrderServiceImpl) publishOrderEvents(order *domain.Order, lowStock []domain.LowStockEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()

		placed := domain.OrderPlacedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			BuyerID:     order.BuyerID,
			TotalAmount: order.TotalAmount,
			PlacedAt:    order.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, domain.EventOrderPlaced, placed); err != nil {
			metrics.EventPublishFailuresTotal.WithLabelValues(domain.EventOrderPlaced).Inc()
			s.log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to publish order.placed")
		}

		for _, ev := range lowStock {
			if err := s.publisher.Publish(ctx, domain.EventLowStock, ev); err != nil {
				metrics.EventPublishFailuresTotal.WithLabelValues(domain.EventLowStock).Inc()
				s.log.Warn().Err(err).Str("product_id", ev.ProductID.String()).Msg("failed to publish inventory.low_stock")
			}
		}
	}()
}

func (s *OrderServiceImpl) withTxTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.txTimeout > 0 {
		return context.WithTimeout(ctx, s.txTimeout)
	}
	return ctx, func() {}
}

// normalizeItems validates quantities and merges duplicate product lines.
func normalizeItems(items []ports.OrderItemRequest) ([]ports.OrderItemRequest, error) {
	merged := make([]ports.OrderItemRequest, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, apperror.Validation("Item quantity must be positive")
		}
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged, nil
}

func isSellerOn(order *domain.Order, userID uuid.UUID) bool {
	for _, id := range order.SellerIDs() {
		if id == userID {
			return true
		}
	}
	return false
}

func settlementOutcome(status domain.EscrowStatus) string {
	if status == domain.EscrowStatusReleased {
		return "released"
	}
	return "refunded"
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"agri-market-engine/internal/core/domain"
	"agri-market-engine/internal/core/ports"
	"agri-market-engine/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// recordingPublisher collects published events. Publishing happens on a
// post-commit goroutine, so access is guarded and tests wait on the channel.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	done   chan struct{}
	expect int
}

func newRecordingPublisher(expect int) *recordingPublisher {
	return &recordingPublisher{done: make(chan struct{}), expect: expect}
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	if len(p.topics) == p.expect {
		close(p.done)
	}
	return nil
}

func (p *recordingPublisher) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published events")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

type orderTestDeps struct {
	svc         *OrderServiceImpl
	orderRepo   *mocks.MockOrderRepository
	productRepo *mocks.MockProductRepository
	escrowRepo  *mocks.MockEscrowRepository
	ledger      *mocks.MockLedgerService
	transactor  *mocks.MockDBTransactor
	publisher   *recordingPublisher
	clock       *fixedClock
	ctrl        *gomock.Controller
}

func setupOrderService(t *testing.T, expectedEvents int) *orderTestDeps {
	ctrl := gomock.NewController(t)
	d := &orderTestDeps{
		orderRepo:   mocks.NewMockOrderRepository(ctrl),
		productRepo: mocks.NewMockProductRepository(ctrl),
		escrowRepo:  mocks.NewMockEscrowRepository(ctrl),
		ledger:      mocks.NewMockLedgerService(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		publisher:   newRecordingPublisher(expectedEvents),
		clock:       &fixedClock{now: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)},
		ctrl:        ctrl,
	}
	d.svc = NewOrderService(
		d.orderRepo, d.productRepo, d.escrowRepo, d.ledger,
		d.transactor, d.publisher, d.clock, 0, zerolog.Nop(),
	)
	return d
}

func orderTestProduct(price, stock int64) domain.Product {
	return domain.Product{
		ID:       uuid.New(),
		Name:     "Gạo ST25",
		Price:    price,
		Stock:    stock,
		SellerID: uuid.New(),
		Unit:     "kg",
	}
}

func TestOrderService_CreateOrder_WalletPayment(t *testing.T) {
	d := setupOrderService(t, 1)
	defer d.ctrl.Finish()

	buyerID := uuid.New()
	product := orderTestProduct(1_000, 100)
	buyerWallet := &domain.Wallet{ID: uuid.New(), OwnerID: buyerID, Balance: 50_000, Version: 1}
	sellerWallet := &domain.Wallet{ID: uuid.New(), OwnerID: product.SellerID, Version: 1}
	tx := &mockTx{}

	d.ledger.EXPECT().GetOrCreateWallet(gomock.Any(), buyerID, domain.OwnerTypeBuyer).Return(buyerWallet, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().GetByIDsForUpdate(gomock.Any(), tx, []uuid.UUID{product.ID}).
		Return([]domain.Product{product}, nil)
	d.productRepo.EXPECT().DecrementStock(gomock.Any(), tx, product.ID, int64(10)).Return(true, nil)
	d.orderRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	d.ledger.EXPECT().GetOrCreateWallet(gomock.Any(), product.SellerID, domain.OwnerTypeFarmer).Return(sellerWallet, nil)
	d.ledger.EXPECT().HoldInTx(gomock.Any(), tx, buyerWallet.ID, int64(10_700), gomock.Any(), gomock.Any(), "").
		Return(&domain.Transaction{}, nil)
	d.escrowRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, escrow *domain.Escrow) error {
			assert.Equal(t, buyerWallet.ID, escrow.BuyerWalletID)
			assert.Equal(t, sellerWallet.ID, escrow.SellerWalletID)
			assert.Equal(t, int64(10_700), escrow.Amount)
			assert.Equal(t, domain.EscrowStatusHeld, escrow.Status)
			return nil
		})

	order, err := d.svc.CreateOrder(context.Background(), ports.CreateOrderRequest{
		BuyerID:         buyerID,
		Items:           []ports.OrderItemRequest{{ProductID: product.ID, Quantity: 10}},
		DeliveryAddress: "12 Lê Lợi, Đà Lạt",
		PaymentMethod:   domain.PaymentMethodWallet,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10_000), order.Subtotal)
	assert.Equal(t, int64(200), order.ServiceFee)
	assert.Equal(t, int64(500), order.DeliveryFee)
	assert.Equal(t, int64(10_700), order.TotalAmount)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(1_000), order.Items[0].UnitPrice)
	assert.Equal(t, int64(10_000), order.Items[0].TotalPrice)

	topics := d.publisher.wait(t)
	assert.Equal(t, []string{domain.EventOrderPlaced}, topics)
}

func TestOrderService_CreateOrder_EmptyCart(t *testing.T) {
	d := setupOrderService(t, 1)
	defer d.ctrl.Finish()

	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.orderRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)

	order, err := d.svc.CreateOrder(context.Background(), ports.CreateOrderRequest{
		BuyerID:       uuid.New(),
		PaymentMethod: domain.PaymentMethodWallet,
	})
	require.NoError(t, err)

	assert.Zero(t, order.Subtotal)
	assert.Zero(t, order.ServiceFee)
	assert.Zero(t, order.DeliveryFee)
	assert.Zero(t, order.TotalAmount)
	assert.Empty(t, order.Items)
	d.publisher.wait(t)
}

func TestOrderService_CreateOrder_InsufficientStock(t *testing.T) {
	d := setupOrderService(t, 0)
	defer d.ctrl.Finish()

	product := orderTestProduct(2_000, 5)
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().GetByIDsForUpdate(gomock.Any(), tx, gomock.Any()).
		Return([]domain.Product{product}, nil)
	d.productRepo.EXPECT().DecrementStock(gomock.Any(), tx, product.ID, int64(60)).Return(false, nil)

	_, err := d.svc.CreateOrder(context.Background(), ports.CreateOrderRequest{
		BuyerID:       uuid.New(),
		Items:         []ports.OrderItemRequest{{ProductID: product.ID, Quantity: 60}},
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
	})
	assertAppError(t, err, "ORD_002")
}

func TestOrderService_CreateOrder_ProductNotFound(t *testing.T) {
	d := setupOrderService(t, 0)
	defer d.ctrl.Finish()

	tx := &mockTx{}
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().GetByIDsForUpdate(gomock.Any(), tx, gomock.Any()).
		Return(nil, nil)

	_, err := d.svc.CreateOrder(context.Background(), ports.CreateOrderRequest{
		BuyerID:       uuid.New(),
		Items:         []ports.OrderItemRequest{{ProductID: uuid.New(), Quantity: 1}},
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
	})
	assertAppError(t, err, "ORD_001")
}

func TestOrderService_CreateOrder_InvalidQuantity(t *testing.T) {
	d := setupOrderService(t, 0)
	defer d.ctrl.Finish()

	_, err := d.svc.CreateOrder(context.Background(), ports.CreateOrderRequest{
		BuyerID:       uuid.New(),
		Items:         []ports.OrderItemRequest{{ProductID: uuid.New(), Quantity: 0}},
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
	})
	assertAppError(t, err, "VAL_001")
}

func TestOrderService_CreateOrder_UnknownPaymentMethod(t *testing.T) {
	d := setupOrderService(t, 0)
	defer d.ctrl.Finish()

	_, err := d.svc.CreateOrder(context.Background(), ports.CreateOrderRequest{
		BuyerID:       uuid.New(),
		Items:         []ports.OrderItemRequest{{ProductID: uuid.New(), Quantity: 1}},
		PaymentMethod: "BARTER",
	})
	assertAppError(t, err, "VAL_001")
}

func TestOrderService_CreateOrder_MergesDuplicateLines(t *testing.T) {
	d := setupOrderService(t, 1)
	defer d.ctrl.Finish()

	product := orderTestProduct(1_000, 100)
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().GetByIDsForUpdate(gomock.Any(), tx, []uuid.UUID{product.ID}).
		Return([]domain.Product{product}, nil)
	d.productRepo.EXPECT().DecrementStock(gomock.Any(), tx, product.ID, int64(7)).Return(true, nil)
	d.orderRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)

	order, err := d.svc.CreateOrder(context.Background(), ports.CreateOrderRequest{
		BuyerID: uuid.New(),
		Items: []ports.OrderItemRequest{
			{ProductID: product.ID, Quantity: 3},
			{ProductID: product.ID, Quantity: 4},
		},
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(7), order.Items[0].Quantity)
	d.publisher.wait(t)
}

func TestOrderService_CreateOrder_MultiSellerWalletCartRejected(t *testing.T) {
	d := setupOrderService(t, 0)
	defer d.ctrl.Finish()

	buyerID := uuid.New()
	p1 := orderTestProduct(1_000, 50)
	p2 := orderTestProduct(2_000, 50)
	buyerWallet := &domain.Wallet{ID: uuid.New(), OwnerID: buyerID, Balance: 100_000, Version: 1}
	tx := &mockTx{}

	d.ledger.EXPECT().GetOrCreateWallet(gomock.Any(), buyerID, domain.OwnerTypeBuyer).Return(buyerWallet, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().GetByIDsForUpdate(gomock.Any(), tx, gomock.Any()).
		Return([]domain.Product{p1, p2}, nil)
	d.productRepo.EXPECT().DecrementStock(gomock.Any(), tx, gomock.Any(), gomock.Any()).Return(true, nil).Times(2)
	d.orderRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)

	_, err := d.svc.CreateOrder(context.Background(), ports.CreateOrderRequest{
		BuyerID: buyerID,
		Items: []ports.OrderItemRequest{
			{ProductID: p1.ID, Quantity: 1},
			{ProductID: p2.ID, Quantity: 1},
		},
		PaymentMethod: domain.PaymentMethodWallet,
	})
	assertAppError(t, err, "VAL_001")
}

func TestOrderService_CreateOrder_EmitsLowStockEvent(t *testing.T) {
	d := setupOrderService(t, 2)
	defer d.ctrl.Finish()

	// 12 in stock, buying 4 leaves 8, at or under the threshold of 10.
	product := orderTestProduct(1_000, 12)
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.productRepo.EXPECT().GetByIDsForUpdate(gomock.Any(), tx, gomock.Any()).
		Return([]domain.Product{product}, nil)
	d.productRepo.EXPECT().DecrementStock(gomock.Any(), tx, product.ID, int64(4)).Return(true, nil)
	d.orderRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)

	_, err := d.svc.CreateOrder(context.Background(), ports.CreateOrderRequest{
		BuyerID:       uuid.New(),
		Items:         []ports.OrderItemRequest{{ProductID: product.ID, Quantity: 4}},
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
	})
	require.NoError(t, err)

	topics := d.publisher.wait(t)
	assert.Equal(t, []string{domain.EventOrderPlaced, domain.EventLowStock}, topics)
}

func TestOrderService_GetOrder_Ownership(t *testing.T) {
	buyerID := uuid.New()
	sellerID := uuid.New()
	order := &domain.Order{
		ID:      uuid.New(),
		BuyerID: buyerID,
		Items:   []domain.OrderItem{{SellerID: sellerID}},
	}

	cases := []struct {
		name        string
		requesterID uuid.UUID
		isAdmin     bool
		wantErr     string
	}{
		{name: "buyer", requesterID: buyerID},
		{name: "seller", requesterID: sellerID},
		{name: "admin", requesterID: uuid.New(), isAdmin: true},
		{name: "stranger", requesterID: uuid.New(), wantErr: "SEC_002"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := setupOrderService(t, 0)
			defer d.ctrl.Finish()

			d.orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)

			got, err := d.svc.GetOrder(context.Background(), order.ID, tc.requesterID, tc.isAdmin)
			if tc.wantErr != "" {
				assertAppError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, order.ID, got.ID)
		})
	}
}

func TestOrderService_GetOrder_NotFound(t *testing.T) {
	d := setupOrderService(t, 0)
	defer d.ctrl.Finish()

	orderID := uuid.New()
	d.orderRepo.EXPECT().GetByID(gomock.Any(), orderID).Return(nil, nil)

	_, err := d.svc.GetOrder(context.Background(), orderID, uuid.New(), false)
	assertAppError(t, err, "ORD_004")
}

func TestOrderService_UpdateOrderStatus_InvalidTransition(t *testing.T) {
	d := setupOrderService(t, 0)
	defer d.ctrl.Finish()

	order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending}
	d.orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)

	_, err := d.svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusCompleted)
	assertAppError(t, err, "ORD_003")
}

func TestOrderService_UpdateOrderStatus_CompletedReleasesEscrow(t *testing.T) {
	d := setupOrderService(t, 0)
	defer d.ctrl.Finish()

	order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusDelivered}
	escrow := &domain.Escrow{
		ID:             uuid.New(),
		OrderID:        order.ID,
		BuyerWalletID:  uuid.New(),
		SellerWalletID: uuid.New(),
		Amount:         10_700,
		Status:         domain.EscrowStatusHeld,
	}
	tx := &mockTx{}

	d.orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.orderRepo.EXPECT().UpdateStatus(gomock.Any(), tx, order.ID, domain.OrderStatusDelivered, domain.OrderStatusCompleted).
		Return(true, nil)
	d.escrowRepo.EXPECT().GetByOrderID(gomock.Any(), order.ID).Return(escrow, nil)
	d.ledger.EXPECT().ReleaseInTx(gomock.Any(), tx, escrow.BuyerWalletID, escrow.SellerWalletID, escrow.Amount, order.ID, "").
		Return(&domain.Transaction{}, nil)
	d.escrowRepo.EXPECT().MarkSettled(gomock.Any(), tx, escrow.ID, domain.EscrowStatusReleased, gomock.Any()).
		Return(true, nil)

	updated, err := d.svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, updated.Status)
}

func TestOrderService_UpdateOrderStatus_CancelledRefundsEscrow(t *testing.T) {
	d := setupOrderService(t, 0)
	defer d.ctrl.Finish()

	order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending}
	escrow := &domain.Escrow{
		ID:            uuid.New(),
		OrderID:       order.ID,
		BuyerWalletID: uuid.New(),
		Amount:        10_700,
		Status:        domain.EscrowStatusHeld,
	}
	tx := &mockTx{}

	d.orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.orderRepo.EXPECT().UpdateStatus(gomock.Any(), tx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled).
		Return(true, nil)
	d.escrowRepo.EXPECT().GetByOrderID(gomock.Any(), order.ID).Return(escrow, nil)
	d.ledger.EXPECT().RefundInTx(gomock.Any(), tx, escrow.BuyerWalletID, escrow.Amount, order.ID, "").
		Return(&domain.Transaction{}, nil)
	d.escrowRepo.EXPECT().MarkSettled(gomock.Any(), tx, escrow.ID, domain.EscrowStatusRefunded, gomock.Any()).
		Return(true, nil)

	updated, err := d.svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, updated.Status)
}

func TestOrderService_UpdateOrderStatus_CancelledWithoutEscrow(t *testing.T) {
	d := setupOrderService(t, 0)
	defer d.ctrl.Finish()

	order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending, PaymentMethod: domain.PaymentMethodCashOnDelivery}
	tx := &mockTx{}

	d.orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.orderRepo.EXPECT().UpdateStatus(gomock.Any(), tx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled).
		Return(true, nil)
	d.escrowRepo.EXPECT().GetByOrderID(gomock.Any(), order.ID).Return(nil, nil)

	updated, err := d.svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, updated.Status)
}

func TestOrderService_UpdateOrderStatus_GuardConflict(t *testing.T) {
	d := setupOrderService(t, 0)
	defer d.ctrl.Finish()

	order := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending}
	tx := &mockTx{}

	d.orderRepo.EXPECT().GetByID(gomock.Any(), order.ID).Return(order, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.orderRepo.EXPECT().UpdateStatus(gomock.Any(), tx, order.ID, domain.OrderStatusPending, domain.OrderStatusProcessing).
		Return(false, nil)

	_, err := d.svc.UpdateOrderStatus(context.Background(), order.ID, domain.OrderStatusProcessing)
	assertAppError(t, err, "WAL_005")
}

func TestComputeServiceFee_HalfUpRounding(t *testing.T) {
	assert.Equal(t, int64(200), domain.ComputeServiceFee(10_000))
	assert.Equal(t, int64(0), domain.ComputeServiceFee(0))
	assert.Equal(t, int64(1), domain.ComputeServiceFee(25))  // 0.5 rounds up
	assert.Equal(t, int64(0), domain.ComputeServiceFee(24))  // 0.48 rounds down
	assert.Equal(t, int64(3), domain.ComputeServiceFee(130)) // 2.6 rounds up
}

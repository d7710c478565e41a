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

func newTestOrder(buyerID uuid.UUID) *domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	o := &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     domain.NewOrderNumber(),
		BuyerID:         buyerID,
		DeliveryAddress: "12 Farm Road",
		PaymentMethod:   domain.PaymentMethodWallet,
		Subtotal:        10_000,
		ServiceFee:      200,
		DeliveryFee:     domain.DeliveryFee,
		TotalAmount:     10_700,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Items = []domain.OrderItem{{
		ID:         uuid.New(),
		OrderID:    o.ID,
		ProductID:  uuid.New(),
		SellerID:   uuid.New(),
		Quantity:   10,
		UnitPrice:  1_000,
		TotalPrice: 10_000,
	}}
	return o
}

func orderTestColumns() []string {
	return []string{
		"id", "order_number", "buyer_id", "delivery_address", "payment_method",
		"subtotal", "service_fee", "delivery_fee", "total_amount", "status",
		"created_at", "updated_at",
	}
}

func orderItemTestColumns() []string {
	return []string{"id", "order_id", "product_id", "seller_id", "quantity", "unit_price", "total_price"}
}

func orderRow(o *domain.Order) *pgxmock.Rows {
	return pgxmock.NewRows(orderTestColumns()).AddRow(
		o.ID, o.OrderNumber, o.BuyerID, o.DeliveryAddress, o.PaymentMethod,
		o.Subtotal, o.ServiceFee, o.DeliveryFee, o.TotalAmount, o.Status,
		o.CreatedAt, o.UpdatedAt,
	)
}

func orderItemRows(o *domain.Order) *pgxmock.Rows {
	rows := pgxmock.NewRows(orderItemTestColumns())
	for _, it := range o.Items {
		rows.AddRow(it.ID, it.OrderID, it.ProductID, it.SellerID, it.Quantity, it.UnitPrice, it.TotalPrice)
	}
	return rows
}

func TestOrderRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder(uuid.New())
	it := o.Items[0]

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(o.ID, o.OrderNumber, o.BuyerID, o.DeliveryAddress, o.PaymentMethod,
			o.Subtotal, o.ServiceFee, o.DeliveryFee, o.TotalAmount, o.Status,
			o.CreatedAt, o.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(it.ID, it.OrderID, it.ProductID, it.SellerID,
			it.Quantity, it.UnitPrice, it.TotalPrice).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, o)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	o := newTestOrder(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id").
		WithArgs(o.ID).
		WillReturnRows(orderRow(o))
	mock.ExpectQuery("SELECT .+ FROM order_items").
		WithArgs([]uuid.UUID{o.ID}).
		WillReturnRows(orderItemRows(o))

	result, err := repo.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, o.OrderNumber, result.OrderNumber)
	require.Len(t, result.Items, 1)
	assert.Equal(t, o.Items[0].ProductID, result.Items[0].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(orderTestColumns()))

	result, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_ListByBuyer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	buyerID := uuid.New()
	o := newTestOrder(buyerID)

	mock.ExpectQuery("SELECT .+ FROM orders").
		WithArgs(buyerID, 10).
		WillReturnRows(orderRow(o))
	mock.ExpectQuery("SELECT .+ FROM order_items").
		WithArgs([]uuid.UUID{o.ID}).
		WillReturnRows(orderItemRows(o))

	result, err := repo.ListByBuyer(context.Background(), buyerID, 10)
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Len(t, result[0].Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_UpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	orderID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(domain.OrderStatusProcessing, orderID, domain.OrderStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.UpdateStatus(context.Background(), tx, orderID, domain.OrderStatusPending, domain.OrderStatusProcessing)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_UpdateStatus_Guarded(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOrderRepo(mock)
	orderID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(domain.OrderStatusCancelled, orderID, domain.OrderStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.UpdateStatus(context.Background(), tx, orderID, domain.OrderStatusPending, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

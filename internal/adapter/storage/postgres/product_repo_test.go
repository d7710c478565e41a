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

func newTestProduct(sellerID uuid.UUID) *domain.Product {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Product{
		ID:        uuid.New(),
		Name:      "Organic Rice 5kg",
		Price:     1_000,
		Stock:     100,
		SellerID:  sellerID,
		Unit:      "bag",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func productTestColumns() []string {
	return []string{"id", "name", "price", "stock", "seller_id", "unit", "created_at", "updated_at"}
}

func productRow(p *domain.Product) *pgxmock.Rows {
	return pgxmock.NewRows(productTestColumns()).AddRow(
		p.ID, p.Name, p.Price, p.Stock, p.SellerID, p.Unit, p.CreatedAt, p.UpdatedAt,
	)
}

func TestProductRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepo(mock)
	p := newTestProduct(uuid.New())

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(p.ID).
		WillReturnRows(productRow(p))

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.Name, result.Name)
	assert.Equal(t, int64(100), result.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_GetByIDsForUpdate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepo(mock)
	seller := uuid.New()
	p1 := newTestProduct(seller)
	p2 := newTestProduct(seller)
	ids := []uuid.UUID{p1.ID, p2.ID}

	rows := productRow(p1).AddRow(
		p2.ID, p2.Name, p2.Price, p2.Stock, p2.SellerID, p2.Unit, p2.CreatedAt, p2.UpdatedAt,
	)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FROM products .+ FOR UPDATE").
		WithArgs(ids).
		WillReturnRows(rows)

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	result, err := repo.GetByIDsForUpdate(context.Background(), tx, ids)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, p1.ID, result[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_DecrementStock(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepo(mock)
	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products SET stock").
		WithArgs(int64(3), productID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.DecrementStock(context.Background(), tx, productID, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_DecrementStock_Insufficient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewProductRepo(mock)
	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products SET stock").
		WithArgs(int64(999), productID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.DecrementStock(context.Background(), tx, productID, 999)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

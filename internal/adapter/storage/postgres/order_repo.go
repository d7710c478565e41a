package postgres

import (
	"context"
	"errors"
	"fmt"

	"agri-market-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepo implements ports.OrderRepository. An order and its items are
// always written together inside the caller's transaction.
type OrderRepo struct {
	pool Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(pool Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `id, order_number, buyer_id, delivery_address, payment_method,
		subtotal, service_fee, delivery_fee, total_amount, status, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, seller_id, quantity, unit_price, total_price`

// Create inserts an order and all of its items within the caller's
// transaction.
func (r *OrderRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.Order) error {
	orderQuery := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := tx.Exec(ctx, orderQuery,
		o.ID, o.OrderNumber, o.BuyerID, o.DeliveryAddress, o.PaymentMethod,
		o.Subtotal, o.ServiceFee, o.DeliveryFee, o.TotalAmount, o.Status,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (` + orderItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, it := range o.Items {
		_, err := tx.Exec(ctx, itemQuery,
			it.ID, it.OrderID, it.ProductID, it.SellerID,
			it.Quantity, it.UnitPrice, it.TotalPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// GetByID fetches an order and its items.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o := &domain.Order{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.OrderNumber, &o.BuyerID, &o.DeliveryAddress, &o.PaymentMethod,
		&o.Subtotal, &o.ServiceFee, &o.DeliveryFee, &o.TotalAmount, &o.Status,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}

	items, err := r.itemsForOrders(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

// ListByBuyer returns the buyer's most recent orders with items, newest
// first.
func (r *OrderRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2`

	return r.listOrders(ctx, query, buyerID, limit)
}

// ListBySeller returns orders containing at least one of the seller's items,
// newest first.
func (r *OrderRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE id IN (SELECT DISTINCT order_id FROM order_items WHERE seller_id = $1)
		ORDER BY created_at DESC LIMIT $2`

	return r.listOrders(ctx, query, sellerID, limit)
}

// UpdateStatus transitions an order from -> to, with the expected current
// status as a guard in the WHERE clause. Returns false when zero rows were
// affected.
func (r *OrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	query := `UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	tag, err := tx.Exec(ctx, query, to, orderID, from)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *OrderRepo) listOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []uuid.UUID
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.BuyerID, &o.DeliveryAddress, &o.PaymentMethod,
			&o.Subtotal, &o.ServiceFee, &o.DeliveryFee, &o.TotalAmount, &o.Status,
			&o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsForOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *OrderRepo) itemsForOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.SellerID,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	return items, nil
}

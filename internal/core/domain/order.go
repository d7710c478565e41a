package domain

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// PaymentMethod is how the buyer settles the order total.
type PaymentMethod string

const (
	PaymentMethodWallet         PaymentMethod = "WALLET"
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

const (
	// ServiceFeePercent is applied to the subtotal, rounded half-up.
	ServiceFeePercent = 2
	// DeliveryFee is a fixed charge in minor currency units.
	DeliveryFee = 500

	orderNumberPrefix = "AGR-"
	orderNumberLength = 10
)

// orderTransitions is the allowed status transition table.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusCompleted},
	// COMPLETED and CANCELLED are terminal.
}

// CanTransition reports whether the status change from -> to is allowed.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalOrderStatus reports whether no further transitions are accepted.
func IsTerminalOrderStatus(s OrderStatus) bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// OrderItem is a priced line of an order. UnitPrice and TotalPrice are always
// computed server-side from the product row read inside the order transaction.
type OrderItem struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	ProductID  uuid.UUID `json:"product_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	Quantity   int64     `json:"quantity"`
	UnitPrice  int64     `json:"unit_price"`
	TotalPrice int64     `json:"total_price"`
}

// Order is a priced, stock-reserving purchase created atomically with its
// items. Client-supplied price or total fields are never trusted.
type Order struct {
	ID              uuid.UUID     `json:"id"`
	OrderNumber     string        `json:"order_number"`
	BuyerID         uuid.UUID     `json:"buyer_id"`
	Items           []OrderItem   `json:"items"`
	DeliveryAddress string        `json:"delivery_address"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	Subtotal        int64         `json:"subtotal"`
	ServiceFee      int64         `json:"service_fee"`
	DeliveryFee     int64         `json:"delivery_fee"`
	TotalAmount     int64         `json:"total_amount"`
	Status          OrderStatus   `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ComputeServiceFee returns round(subtotal * 2%) with half-up rounding on
// integer minor units.
func ComputeServiceFee(subtotal int64) int64 {
	return (subtotal*ServiceFeePercent + 50) / 100
}

// SellerIDs returns the distinct sellers referenced by the order's items.
func (o *Order) SellerIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	var ids []uuid.UUID
	for _, it := range o.Items {
		if _, ok := seen[it.SellerID]; !ok {
			seen[it.SellerID] = struct{}{}
			ids = append(ids, it.SellerID)
		}
	}
	return ids
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderNumber generates a human-shareable order number: fixed prefix plus
// a random alphanumeric suffix. No global counter; collision probability is
// negligible at 32^10.
func NewOrderNumber() string {
	buf := make([]byte, orderNumberLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return orderNumberPrefix + string(buf)
}

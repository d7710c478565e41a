package dto

// DepositRequest is the request body for a wallet deposit.
type DepositRequest struct {
	Amount         int64   `json:"amount" binding:"required,gt=0"`
	Reason         *string `json:"reason,omitempty"`
	IdempotencyKey *string `json:"idempotency_key,omitempty" binding:"omitempty,max=100"`
}

// WithdrawRequest is the request body for a wallet withdrawal.
type WithdrawRequest struct {
	Amount         int64   `json:"amount" binding:"required,gt=0"`
	Reason         *string `json:"reason,omitempty"`
	IdempotencyKey *string `json:"idempotency_key,omitempty" binding:"omitempty,max=100"`
}

// UpdateLimitsRequest moves a wallet to a new tier.
type UpdateLimitsRequest struct {
	Tier string `json:"tier" binding:"required,oneof=BRONZE SILVER GOLD PLATINUM"`
}

// OrderItemRequest is one cart line. Price fields are intentionally absent;
// pricing is always server-side.
type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest is the request body for order creation.
type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" binding:"dive"`
	DeliveryAddress string             `json:"delivery_address" binding:"max=500"`
	PaymentMethod   string             `json:"payment_method" binding:"required,oneof=WALLET CASH_ON_DELIVERY"`
}

// UpdateOrderStatusRequest is the request body for a status transition.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PROCESSING SHIPPED DELIVERED COMPLETED CANCELLED"`
}

// WalletResponse is the wallet view returned to its owner.
type WalletResponse struct {
	ID                     string `json:"id"`
	OwnerType              string `json:"owner_type"`
	Balance                int64  `json:"balance"`
	EscrowBalance          int64  `json:"escrow_balance"`
	Tier                   string `json:"tier"`
	DailyWithdrawLimit     int64  `json:"daily_withdraw_limit"`
	SingleTransactionLimit int64  `json:"single_transaction_limit"`
	DailyWithdrawnToday    int64  `json:"daily_withdrawn_today"`
	Version                int64  `json:"version"`
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Amount        int64   `json:"amount"`
	BalanceBefore int64   `json:"balance_before"`
	BalanceAfter  int64   `json:"balance_after"`
	OrderID       *string `json:"order_id,omitempty"`
	Reason        *string `json:"reason,omitempty"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
}

// LedgerResultResponse wraps a deposit/withdraw outcome. Duplicate marks an
// idempotent replay; no new mutation happened.
type LedgerResultResponse struct {
	Wallet      WalletResponse      `json:"wallet"`
	Transaction TransactionResponse `json:"transaction"`
	Duplicate   bool                `json:"duplicate"`
}

// MonthlyTotalResponse is one bar of the dashboard chart.
type MonthlyTotalResponse struct {
	Month      string `json:"month"`
	Credits    int64  `json:"credits"`
	Debits     int64  `json:"debits"`
	EntryCount int64  `json:"entry_count"`
}

// WalletDashboardResponse aggregates the wallet overview.
type WalletDashboardResponse struct {
	Wallet             WalletResponse         `json:"wallet"`
	EscrowAsBuyer      int64                  `json:"escrow_as_buyer"`
	EscrowAsSeller     int64                  `json:"escrow_as_seller"`
	Limits             TierLimitsResponse     `json:"limits"`
	RecentTransactions []TransactionResponse  `json:"recent_transactions"`
	MonthlyChart       []MonthlyTotalResponse `json:"monthly_chart"`
}

// TierLimitsResponse is the limit table applied to a wallet.
type TierLimitsResponse struct {
	DailyWithdrawLimit     int64 `json:"daily_withdraw_limit"`
	SingleTransactionLimit int64 `json:"single_transaction_limit"`
	PINThreshold           int64 `json:"pin_threshold"`
}

// OrderItemResponse is one priced order line.
type OrderItemResponse struct {
	ProductID  string `json:"product_id"`
	SellerID   string `json:"seller_id"`
	Quantity   int64  `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	TotalPrice int64  `json:"total_price"`
}

// OrderResponse is the order view.
type OrderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"order_number"`
	BuyerID         string              `json:"buyer_id"`
	Items           []OrderItemResponse `json:"items"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	PaymentMethod   string              `json:"payment_method"`
	Subtotal        int64               `json:"subtotal"`
	ServiceFee      int64               `json:"service_fee"`
	DeliveryFee     int64               `json:"delivery_fee"`
	TotalAmount     int64               `json:"total_amount"`
	Status          string              `json:"status"`
	CreatedAt       string              `json:"created_at"`
}

// EscrowResponse is the escrow view.
type EscrowResponse struct {
	ID             string  `json:"id"`
	OrderID        string  `json:"order_id"`
	BuyerWalletID  string  `json:"buyer_wallet_id"`
	SellerWalletID string  `json:"seller_wallet_id"`
	Amount         int64   `json:"amount"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	SettledAt      *string `json:"settled_at,omitempty"`
}

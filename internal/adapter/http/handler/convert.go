package handler

import (
	"time"

	"agri-market-engine/internal/adapter/http/dto"
	"agri-market-engine/internal/core/domain"
	"agri-market-engine/internal/core/ports"
)

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		ID:                     w.ID.String(),
		OwnerType:              string(w.OwnerType),
		Balance:                w.Balance,
		EscrowBalance:          w.EscrowBalance,
		Tier:                   string(w.Tier),
		DailyWithdrawLimit:     w.DailyWithdrawLimit,
		SingleTransactionLimit: w.SingleTransactionLimit,
		DailyWithdrawnToday:    w.DailyWithdrawnToday,
		Version:                w.Version,
	}
}

func toTransactionResponse(t *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:            t.ID.String(),
		Type:          string(t.Type),
		Amount:        t.Amount,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		Reason:        t.Reason,
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.OrderID != nil {
		s := t.OrderID.String()
		resp.OrderID = &s
	}
	return resp
}

func toLedgerResultResponse(r *ports.LedgerResult) dto.LedgerResultResponse {
	return dto.LedgerResultResponse{
		Wallet:      toWalletResponse(r.Wallet),
		Transaction: toTransactionResponse(r.Transaction),
		Duplicate:   r.Duplicate,
	}
}

func toTierLimitsResponse(l domain.TierLimits) dto.TierLimitsResponse {
	return dto.TierLimitsResponse{
		DailyWithdrawLimit:     l.DailyWithdrawLimit,
		SingleTransactionLimit: l.SingleTransactionLimit,
		PINThreshold:           l.PINThreshold,
	}
}

func toDashboardResponse(d *ports.WalletDashboard) dto.WalletDashboardResponse {
	resp := dto.WalletDashboardResponse{
		Wallet:             toWalletResponse(d.Wallet),
		EscrowAsBuyer:      d.EscrowAsBuyer,
		EscrowAsSeller:     d.EscrowAsSeller,
		Limits:             toTierLimitsResponse(d.Limits),
		RecentTransactions: make([]dto.TransactionResponse, 0, len(d.RecentTransactions)),
		MonthlyChart:       make([]dto.MonthlyTotalResponse, 0, len(d.MonthlyChart)),
	}
	for i := range d.RecentTransactions {
		resp.RecentTransactions = append(resp.RecentTransactions, toTransactionResponse(&d.RecentTransactions[i]))
	}
	for _, m := range d.MonthlyChart {
		resp.MonthlyChart = append(resp.MonthlyChart, dto.MonthlyTotalResponse{
			Month:      m.Month.UTC().Format("2006-01"),
			Credits:    m.Credits,
			Debits:     m.Debits,
			EntryCount: m.EntryCount,
		})
	}
	return resp
}

func toOrderResponse(o *domain.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.OrderItemResponse{
			ProductID:  it.ProductID.String(),
			SellerID:   it.SellerID.String(),
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		})
	}
	return dto.OrderResponse{
		ID:              o.ID.String(),
		OrderNumber:     o.OrderNumber,
		BuyerID:         o.BuyerID.String(),
		Items:           items,
		DeliveryAddress: o.DeliveryAddress,
		PaymentMethod:   string(o.PaymentMethod),
		Subtotal:        o.Subtotal,
		ServiceFee:      o.ServiceFee,
		DeliveryFee:     o.DeliveryFee,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toEscrowResponse(e *domain.Escrow) dto.EscrowResponse {
	resp := dto.EscrowResponse{
		ID:             e.ID.String(),
		OrderID:        e.OrderID.String(),
		BuyerWalletID:  e.BuyerWalletID.String(),
		SellerWalletID: e.SellerWalletID.String(),
		Amount:         e.Amount,
		Status:         string(e.Status),
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.SettledAt != nil {
		s := e.SettledAt.UTC().Format(time.RFC3339)
		resp.SettledAt = &s
	}
	return resp
}

package handler

import (
	"strconv"

	"agri-market-engine/internal/adapter/http/dto"
	"agri-market-engine/internal/adapter/http/middleware"
	"agri-market-engine/internal/core/domain"
	"agri-market-engine/internal/core/ports"
	"agri-market-engine/pkg/apperror"
	"agri-market-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultTxListLimit = 20

// WalletHandler handles wallet and ledger endpoints.
type WalletHandler struct {
	ledger ports.LedgerService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger ports.LedgerService) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// ownerTypeFor maps the identity's roles onto a wallet owner type. A user
// holding the FARMER role operates the farmer wallet; everyone else is a
// buyer. COMPANY accounts come from the auth service with a COMPANY role.
func ownerTypeFor(c *gin.Context) domain.OwnerType {
	switch {
	case middleware.HasRole(c, middleware.RoleFarmer):
		return domain.OwnerTypeFarmer
	case middleware.HasRole(c, "COMPANY"):
		return domain.OwnerTypeCompany
	default:
		return domain.OwnerTypeBuyer
	}
}

// resolveOwnWallet returns the caller's wallet, creating it lazily.
func (h *WalletHandler) resolveOwnWallet(c *gin.Context) (*domain.Wallet, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return nil, false
	}
	wallet, err := h.ledger.GetOrCreateWallet(c.Request.Context(), userID, ownerTypeFor(c))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return wallet, true
}

// GetMyWallet handles GET /api/v1/wallets/me.
func (h *WalletHandler) GetMyWallet(c *gin.Context) {
	wallet, ok := h.resolveOwnWallet(c)
	if !ok {
		return
	}
	response.OK(c, toWalletResponse(wallet))
}

// Deposit handles POST /api/v1/wallets/me/deposit.
func (h *WalletHandler) Deposit(c *gin.Context) {
	wallet, ok := h.resolveOwnWallet(c)
	if !ok {
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	userID, _ := middleware.UserID(c)
	result, err := h.ledger.Deposit(c.Request.Context(), ports.LedgerRequest{
		WalletID:       wallet.ID,
		Amount:         req.Amount,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
		ActorID:        &userID,
		ClientIP:       c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Duplicate {
		response.OK(c, toLedgerResultResponse(result))
		return
	}
	response.Created(c, toLedgerResultResponse(result))
}

// Withdraw handles POST /api/v1/wallets/me/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	wallet, ok := h.resolveOwnWallet(c)
	if !ok {
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	userID, _ := middleware.UserID(c)
	result, err := h.ledger.Withdraw(c.Request.Context(), ports.LedgerRequest{
		WalletID:       wallet.ID,
		Amount:         req.Amount,
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
		ActorID:        &userID,
		ClientIP:       c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Duplicate {
		response.OK(c, toLedgerResultResponse(result))
		return
	}
	response.Created(c, toLedgerResultResponse(result))
}

// ListTransactions handles GET /api/v1/wallets/me/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	wallet, ok := h.resolveOwnWallet(c)
	if !ok {
		return
	}

	limit := defaultTxListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			response.Error(c, apperror.Validation("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	entries, err := h.ledger.GetTransactions(c.Request.Context(), wallet.ID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toTransactionResponse(&entries[i]))
	}
	response.OK(c, items)
}

// GetDashboard handles GET /api/v1/wallets/me/dashboard.
func (h *WalletHandler) GetDashboard(c *gin.Context) {
	wallet, ok := h.resolveOwnWallet(c)
	if !ok {
		return
	}

	dashboard, err := h.ledger.GetWalletDashboard(c.Request.Context(), wallet.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toDashboardResponse(dashboard))
}

// GetLimits handles GET /api/v1/wallets/me/limits.
func (h *WalletHandler) GetLimits(c *gin.Context) {
	wallet, ok := h.resolveOwnWallet(c)
	if !ok {
		return
	}

	limits, err := h.ledger.GetWalletLimits(c.Request.Context(), wallet.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toTierLimitsResponse(*limits))
}

// UpdateLimits handles PUT /api/v1/wallets/:id/limits. Admin only.
func (h *WalletHandler) UpdateLimits(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid wallet ID"))
		return
	}

	var req dto.UpdateLimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	userID, _ := middleware.UserID(c)
	wallet, err := h.ledger.UpdateWalletLimits(c.Request.Context(), walletID, domain.WalletTier(req.Tier), &userID, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWalletResponse(wallet))
}

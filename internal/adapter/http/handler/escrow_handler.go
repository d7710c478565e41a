package handler

import (
	"agri-market-engine/internal/adapter/http/dto"
	"agri-market-engine/internal/adapter/http/middleware"
	"agri-market-engine/internal/core/ports"
	"agri-market-engine/pkg/apperror"
	"agri-market-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EscrowHandler handles escrow endpoints. Settlement routes are admin-only;
// the normal path is the order state machine.
type EscrowHandler struct {
	escrowSvc ports.EscrowService
	ledger    ports.LedgerService
}

// NewEscrowHandler creates a new EscrowHandler.
func NewEscrowHandler(escrowSvc ports.EscrowService, ledger ports.LedgerService) *EscrowHandler {
	return &EscrowHandler{escrowSvc: escrowSvc, ledger: ledger}
}

// GetOrderEscrow handles GET /api/v1/orders/:id/escrow.
func (h *EscrowHandler) GetOrderEscrow(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order ID"))
		return
	}

	escrow, err := h.escrowSvc.GetEscrowByOrder(c.Request.Context(), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEscrowResponse(escrow))
}

// ListMyEscrows handles GET /api/v1/wallets/me/escrows, both sides.
func (h *EscrowHandler) ListMyEscrows(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.ledger.GetOrCreateWallet(c.Request.Context(), userID, ownerTypeFor(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	escrows, err := h.escrowSvc.GetWalletEscrows(c.Request.Context(), wallet.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.EscrowResponse, 0, len(escrows))
	for i := range escrows {
		items = append(items, toEscrowResponse(&escrows[i]))
	}
	response.OK(c, items)
}

// Release handles POST /api/v1/escrows/:id/release. Admin only.
func (h *EscrowHandler) Release(c *gin.Context) {
	escrowID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid escrow ID"))
		return
	}

	escrow, err := h.escrowSvc.Release(c.Request.Context(), escrowID, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEscrowResponse(escrow))
}

// Refund handles POST /api/v1/escrows/:id/refund. Admin only.
func (h *EscrowHandler) Refund(c *gin.Context) {
	escrowID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid escrow ID"))
		return
	}

	escrow, err := h.escrowSvc.Refund(c.Request.Context(), escrowID, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toEscrowResponse(escrow))
}

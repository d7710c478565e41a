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

const defaultOrderListLimit = 20

// OrderHandler handles order endpoints.
type OrderHandler struct {
	orderSvc ports.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc ports.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// CreateOrder handles POST /api/v1/orders.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	items := make([]ports.OrderItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			response.Error(c, apperror.Validation("invalid product ID"))
			return
		}
		items = append(items, ports.OrderItemRequest{ProductID: productID, Quantity: it.Quantity})
	}

	order, err := h.orderSvc.CreateOrder(c.Request.Context(), ports.CreateOrderRequest{
		BuyerID:         userID,
		Items:           items,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		ClientIP:        c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toOrderResponse(order))
}

// GetOrder handles GET /api/v1/orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order ID"))
		return
	}

	order, err := h.orderSvc.GetOrder(c.Request.Context(), orderID, userID, middleware.HasRole(c, middleware.RoleAdmin))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toOrderResponse(order))
}

// ListOrders handles GET /api/v1/orders. The role query parameter selects
// the buyer (default) or seller view.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	role := ports.OrderRoleBuyer
	if c.Query("role") == string(ports.OrderRoleSeller) {
		role = ports.OrderRoleSeller
	}

	limit := defaultOrderListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			response.Error(c, apperror.Validation("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	orders, err := h.orderSvc.ListOrders(c.Request.Context(), userID, role, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}
	response.OK(c, items)
}

// UpdateStatus handles PATCH /api/v1/orders/:id/status. Admins may apply any
// legal transition; a buyer may only cancel their own order.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid order ID"))
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	target := domain.OrderStatus(req.Status)

	isAdmin := middleware.HasRole(c, middleware.RoleAdmin)
	if !isAdmin && target != domain.OrderStatusCancelled {
		response.Error(c, apperror.ErrForbidden())
		return
	}
	if !isAdmin {
		// Ownership check before allowing the cancel.
		if _, err := h.orderSvc.GetOrder(c.Request.Context(), orderID, userID, false); err != nil {
			response.Error(c, err)
			return
		}
	}

	order, err := h.orderSvc.UpdateOrderStatus(c.Request.Context(), orderID, target)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toOrderResponse(order))
}

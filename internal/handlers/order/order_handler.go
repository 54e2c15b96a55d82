// internal/handlers/order/order_handler.go
package order

import (
	"net/http"

	"rayslaund-service/internal/domain/order"
	"rayslaund-service/internal/middleware"
	xerrors "rayslaund-service/internal/pkg/errors"
	"rayslaund-service/internal/pkg/response"
	orderUsecase "rayslaund-service/internal/service/order"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService *orderUsecase.Service
	logger       *zap.Logger
}

func NewOrderHandler(orderService *orderUsecase.Service, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// Create places a new order (customer)
func (h *OrderHandler) Create(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	o, err := h.orderService.CreateOrder(c.Request.Context(), middleware.Requester(c), &req)
	if err != nil {
		h.logger.Error("failed to create order", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "failed to create order", err)
		return
	}

	response.Success(c, http.StatusCreated, "order created", o)
}

// Get retrieves a single order
func (h *OrderHandler) Get(c *gin.Context) {
	orderID := c.Param("order_id")

	o, err := h.orderService.GetOrder(c.Request.Context(), orderID, middleware.Requester(c))
	if err != nil {
		writeOrderError(c, err, "failed to get order")
		return
	}

	response.Success(c, http.StatusOK, "order retrieved", o)
}

// ListMine retrieves the requesting customer's orders
func (h *OrderHandler) ListMine(c *gin.Context) {
	orders, err := h.orderService.ListMyOrders(c.Request.Context(), middleware.MustGetIdentityID(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list orders", err)
		return
	}

	response.Success(c, http.StatusOK, "orders retrieved", orders)
}

// ListActive retrieves all non-terminal orders (staff/admin)
func (h *OrderHandler) ListActive(c *gin.Context) {
	orders, err := h.orderService.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list active orders", err)
		return
	}

	response.Success(c, http.StatusOK, "active orders retrieved", orders)
}

// List retrieves orders with filters and pagination (admin)
func (h *OrderHandler) List(c *gin.Context) {
	var filters order.OrderListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid filters", err)
		return
	}

	resp, err := h.orderService.ListOrders(c.Request.Context(), &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list orders", err)
		return
	}

	response.Success(c, http.StatusOK, "orders retrieved", resp)
}

// Advance moves an order one step forward (staff/admin)
func (h *OrderHandler) Advance(c *gin.Context) {
	orderID := c.Param("order_id")

	o, err := h.orderService.Advance(c.Request.Context(), orderID, middleware.Requester(c))
	if err != nil {
		writeOrderError(c, err, "failed to advance order")
		return
	}

	response.Success(c, http.StatusOK, "order advanced", o)
}

// ConfirmDelivery records the customer's delivery confirmation
func (h *OrderHandler) ConfirmDelivery(c *gin.Context) {
	orderID := c.Param("order_id")

	o, err := h.orderService.ConfirmDelivery(c.Request.Context(), orderID, middleware.Requester(c))
	if err != nil {
		writeOrderError(c, err, "failed to confirm delivery")
		return
	}

	response.Success(c, http.StatusOK, "delivery confirmed", o)
}

// Revenue returns the revenue summary (admin)
func (h *OrderHandler) Revenue(c *gin.Context) {
	summary, err := h.orderService.RevenueSummary(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to get revenue summary", err)
		return
	}

	response.Success(c, http.StatusOK, "revenue summary retrieved", summary)
}

func writeOrderError(c *gin.Context, err error, message string) {
	switch {
	case xerrors.Is(err, xerrors.ErrNotFound):
		response.NotFound(c, "order not found")
	case xerrors.Is(err, xerrors.ErrForbidden):
		response.Forbidden(c, "not allowed")
	default:
		response.Error(c, http.StatusInternalServerError, message, err)
	}
}

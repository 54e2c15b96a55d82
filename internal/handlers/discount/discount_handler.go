// internal/handlers/discount/discount_handler.go
package discount

import (
	"net/http"

	"rayslaund-service/internal/domain/discount"
	"rayslaund-service/internal/middleware"
	xerrors "rayslaund-service/internal/pkg/errors"
	"rayslaund-service/internal/pkg/response"
	discountUsecase "rayslaund-service/internal/service/discount"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DiscountHandler struct {
	discountService *discountUsecase.Service
	logger          *zap.Logger
}

func NewDiscountHandler(discountService *discountUsecase.Service, logger *zap.Logger) *DiscountHandler {
	return &DiscountHandler{
		discountService: discountService,
		logger:          logger,
	}
}

// Grant issues a discount offer to a customer (admin only)
func (h *DiscountHandler) Grant(c *gin.Context) {
	var req discount.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	offer, err := h.discountService.Grant(c.Request.Context(), middleware.Requester(c), &req)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrForbidden) {
			response.Forbidden(c, "not allowed")
			return
		}
		h.logger.Error("failed to grant discount", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to grant discount", err)
		return
	}

	response.Success(c, http.StatusCreated, "discount granted", offer)
}

// ListMine retrieves the requesting customer's offers
func (h *DiscountHandler) ListMine(c *gin.Context) {
	offers, err := h.discountService.ListMine(c.Request.Context(), middleware.MustGetIdentityID(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list discounts", err)
		return
	}

	response.Success(c, http.StatusOK, "discounts retrieved", offers)
}

// ListAll retrieves every offer (admin only)
func (h *DiscountHandler) ListAll(c *gin.Context) {
	offers, err := h.discountService.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list discounts", err)
		return
	}

	response.Success(c, http.StatusOK, "discounts retrieved", offers)
}

// StatusByUser returns each customer's discount status (admin only)
func (h *DiscountHandler) StatusByUser(c *gin.Context) {
	statuses, err := h.discountService.StatusByUser(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to summarise discounts", err)
		return
	}

	response.Success(c, http.StatusOK, "discount statuses retrieved", statuses)
}

// Claim marks one of the caller's offers as used
func (h *DiscountHandler) Claim(c *gin.Context) {
	offerID := c.Param("offer_id")

	if err := h.discountService.Claim(c.Request.Context(), middleware.MustGetIdentityID(c), offerID); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "offer not found or already claimed")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to claim discount", err)
		return
	}

	response.Success(c, http.StatusOK, "discount claimed", nil)
}

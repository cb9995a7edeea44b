package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gemvault/internal/api/middleware"
	"gemvault/internal/api/response"
	"gemvault/internal/model"
	"gemvault/internal/service"
)

type PurchaseHandler struct {
	purchases *service.PurchaseService
}

func NewPurchaseHandler(purchases *service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases}
}

func RegisterPurchaseRoutes(group *gin.RouterGroup, purchases *service.PurchaseService) {
	if purchases == nil {
		return
	}

	handler := NewPurchaseHandler(purchases)
	routes := group.Group("/purchases")
	routes.GET("/pending", handler.Pending)
	routes.POST("/:id/approve", handler.Approve)
	routes.POST("/:id/reject", handler.Reject)
}

func (h *PurchaseHandler) Pending(c *gin.Context) {
	pending, err := h.purchases.Pending(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, pending)
}

func (h *PurchaseHandler) Approve(c *gin.Context) {
	h.review(c, h.purchases.Approve)
}

func (h *PurchaseHandler) Reject(c *gin.Context) {
	h.review(c, h.purchases.Reject)
}

func (h *PurchaseHandler) review(c *gin.Context, op func(ctx context.Context, id string, adminID int64) (*model.Purchase, error)) {
	adminID := int64(0)
	if claims, ok := middleware.GetClaims(c); ok {
		adminID = parseClaimsUserID(claims.UserID)
	}

	purchase, err := op(c.Request.Context(), c.Param("id"), adminID)
	switch {
	case errors.Is(err, service.ErrPurchaseNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrPurchaseNotFound, "purchase not found")
		return
	case errors.Is(err, service.ErrPurchaseWrongState):
		response.Fail(c, http.StatusConflict, response.ErrPurchaseWrongState, "purchase already reviewed")
		return
	case err != nil:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, purchase)
}

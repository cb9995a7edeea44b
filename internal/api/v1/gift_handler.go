package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gemvault/internal/api/middleware"
	"gemvault/internal/api/response"
	"gemvault/internal/service"
)

type GiftHandler struct {
	gifts *service.GiftService
}

type createGiftRequest struct {
	Code    string `json:"code" binding:"required"`
	Amount  int64  `json:"amount" binding:"required,gt=0"`
	MaxUses int    `json:"max_uses"`
}

type disableGiftRequest struct {
	Disabled bool `json:"disabled"`
}

func NewGiftHandler(gifts *service.GiftService) *GiftHandler {
	return &GiftHandler{gifts: gifts}
}

func RegisterGiftRoutes(group *gin.RouterGroup, gifts *service.GiftService) {
	if gifts == nil {
		return
	}

	handler := NewGiftHandler(gifts)
	routes := group.Group("/gifts")
	routes.GET("", handler.List)
	routes.POST("", handler.Create)
	routes.POST("/:code/disable", handler.Disable)
}

func (h *GiftHandler) List(c *gin.Context) {
	gifts, err := h.gifts.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, gifts)
}

func (h *GiftHandler) Create(c *gin.Context) {
	var req createGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	adminID := int64(0)
	if claims, ok := middleware.GetClaims(c); ok {
		adminID = parseClaimsUserID(claims.UserID)
	}

	gift, err := h.gifts.Create(c.Request.Context(), req.Code, req.Amount, req.MaxUses, adminID)
	switch {
	case errors.Is(err, service.ErrGiftCodeExists):
		response.Fail(c, http.StatusConflict, response.ErrGiftExists, "gift code already exists")
		return
	case errors.Is(err, service.ErrGiftCodeBadInput):
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid gift code")
		return
	case err != nil:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, gift)
}

func (h *GiftHandler) Disable(c *gin.Context) {
	var req disableGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	err := h.gifts.SetDisabled(c.Request.Context(), c.Param("code"), req.Disabled)
	if errors.Is(err, service.ErrGiftCodeNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrGiftNotFound, "gift code not found")
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, gin.H{"disabled": req.Disabled})
}

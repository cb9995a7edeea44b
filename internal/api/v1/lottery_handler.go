package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gemvault/internal/api/response"
	"gemvault/internal/model"
	"gemvault/internal/service"
)

type LotteryHandler struct {
	lottery *service.LotteryService
}

func NewLotteryHandler(lottery *service.LotteryService) *LotteryHandler {
	return &LotteryHandler{lottery: lottery}
}

func RegisterLotteryRoutes(group *gin.RouterGroup, lottery *service.LotteryService) {
	if lottery == nil {
		return
	}

	handler := NewLotteryHandler(lottery)
	routes := group.Group("/lottery")
	routes.GET("/config", handler.GetConfig)
	routes.PUT("/config", handler.UpdateConfig)
	routes.GET("/history", handler.History)
	routes.POST("/draw", handler.Draw)
}

func (h *LotteryHandler) GetConfig(c *gin.Context) {
	cfg, err := h.lottery.Config(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, cfg)
}

func (h *LotteryHandler) UpdateConfig(c *gin.Context) {
	var cfg model.LotteryConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	if err := h.lottery.UpdateConfig(c.Request.Context(), &cfg); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, cfg)
}

func (h *LotteryHandler) History(c *gin.Context) {
	history, err := h.lottery.History(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, history)
}

// Draw triggers today's draw manually. A day already drawn is reported
// as a conflict, not run twice.
func (h *LotteryHandler) Draw(c *gin.Context) {
	winners, err := h.lottery.DrawToday(c.Request.Context())
	switch {
	case errors.Is(err, service.ErrLotteryDrawnAlready):
		response.Fail(c, http.StatusConflict, response.ErrInternal, "already drawn today")
		return
	case errors.Is(err, service.ErrLotteryDisabled):
		response.Fail(c, http.StatusConflict, response.ErrInternal, "lottery disabled")
		return
	case err != nil:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, gin.H{"winners": winners})
}

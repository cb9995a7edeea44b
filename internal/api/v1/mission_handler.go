package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gemvault/internal/api/response"
	"gemvault/internal/model"
	"gemvault/internal/service"
)

type MissionHandler struct {
	missions *service.MissionService
}

type createMissionRequest struct {
	Title   string              `json:"title" binding:"required"`
	Reward  int64               `json:"reward" binding:"required,gt=0"`
	Period  model.MissionPeriod `json:"period"`
	Type    model.MissionType   `json:"type"`
	Config  model.MissionConfig `json:"config"`
	Enabled *bool               `json:"enabled"`
}

func NewMissionHandler(missions *service.MissionService) *MissionHandler {
	return &MissionHandler{missions: missions}
}

func RegisterMissionRoutes(group *gin.RouterGroup, missions *service.MissionService) {
	if missions == nil {
		return
	}

	handler := NewMissionHandler(missions)
	routes := group.Group("/missions")
	routes.GET("", handler.List)
	routes.POST("", handler.Create)
	routes.DELETE("/:id", handler.Delete)
	routes.GET("/leaderboard", handler.Leaderboard)
}

func (h *MissionHandler) List(c *gin.Context) {
	missions, err := h.missions.List(c.Request.Context(), false)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, missions)
}

func (h *MissionHandler) Create(c *gin.Context) {
	var req createMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	mission := &model.Mission{
		Title:   req.Title,
		Reward:  req.Reward,
		Period:  req.Period,
		Type:    req.Type,
		Config:  req.Config,
		Enabled: enabled,
	}
	if err := h.missions.Create(c.Request.Context(), mission); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, mission)
}

func (h *MissionHandler) Delete(c *gin.Context) {
	if err := h.missions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrMissionNotFound, "mission not found")
		return
	}
	response.Success(c, nil)
}

func (h *MissionHandler) Leaderboard(c *gin.Context) {
	scores, err := h.missions.Leaderboard(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, scores)
}

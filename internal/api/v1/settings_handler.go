package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gemvault/internal/api/response"
	"gemvault/internal/model"
	"gemvault/internal/service"
)

type SettingsHandler struct {
	settings *service.SettingsCache
}

func NewSettingsHandler(settings *service.SettingsCache) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func RegisterSettingsRoutes(group *gin.RouterGroup, settings *service.SettingsCache) {
	if settings == nil {
		return
	}

	handler := NewSettingsHandler(settings)
	routes := group.Group("/settings")
	routes.GET("", handler.Get)
	routes.PUT("", handler.Update)
}

func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, settings)
}

// Update replaces the whole settings record. Writes go through the cache
// so the bot sees the change within its TTL.
func (h *SettingsHandler) Update(c *gin.Context) {
	var settings model.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	if err := h.settings.Update(c.Request.Context(), &settings); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, settings)
}

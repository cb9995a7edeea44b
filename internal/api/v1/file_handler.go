package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gemvault/internal/api/response"
	"gemvault/internal/repository"
	"gemvault/internal/service"
)

type FileHandler struct {
	files *service.FileService
}

type toggleRequest struct {
	Disabled bool `json:"disabled"`
}

func NewFileHandler(files *service.FileService) *FileHandler {
	return &FileHandler{files: files}
}

func RegisterFileRoutes(group *gin.RouterGroup, files *service.FileService) {
	if files == nil {
		return
	}

	handler := NewFileHandler(files)
	routes := group.Group("/files")
	routes.GET("", handler.List)
	routes.GET("/:token", handler.Get)
	routes.POST("/:token/toggle", handler.Toggle)
	routes.DELETE("/:token", handler.Delete)
}

func (h *FileHandler) List(c *gin.Context) {
	items, err := h.files.ListAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, items)
}

func (h *FileHandler) Get(c *gin.Context) {
	item, err := h.files.Get(c.Request.Context(), c.Param("token"))
	if errors.Is(err, repository.ErrNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrFileNotFound, "file not found")
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, item)
}

func (h *FileHandler) Toggle(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	err := h.files.SetDisabled(c.Request.Context(), c.Param("token"), req.Disabled)
	if errors.Is(err, repository.ErrNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrFileNotFound, "file not found")
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, gin.H{"disabled": req.Disabled})
}

func (h *FileHandler) Delete(c *gin.Context) {
	// Console deletes act with admin authority; ownership is not checked.
	err := h.files.Delete(c.Request.Context(), c.Param("token"), 0, true)
	if errors.Is(err, repository.ErrNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrFileNotFound, "file not found")
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, nil)
}

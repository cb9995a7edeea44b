package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gemvault/internal/api/response"
	"gemvault/internal/service"
	loggerpkg "gemvault/pkg/logger"
)

type SystemHandler struct {
	logs   *loggerpkg.SystemLogStore
	backup *service.BackupService
}

func NewSystemHandler(logs *loggerpkg.SystemLogStore, backup *service.BackupService) *SystemHandler {
	return &SystemHandler{logs: logs, backup: backup}
}

func RegisterSystemRoutes(group *gin.RouterGroup, logs *loggerpkg.SystemLogStore, backup *service.BackupService) {
	handler := NewSystemHandler(logs, backup)
	group.GET("/logs", handler.Logs)
	group.GET("/backup", handler.Backup)
}

func (h *SystemHandler) Logs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	var from, to time.Time
	if v := c.Query("from"); v != "" {
		from, _ = time.Parse(time.RFC3339, v)
	}
	if v := c.Query("to"); v != "" {
		to, _ = time.Parse(time.RFC3339, v)
	}

	entries, total := h.logs.QueryLogs(c.Query("level"), from, to, c.Query("keyword"), page, pageSize)
	response.Paginated(c, entries, page, pageSize, total)
}

func (h *SystemHandler) Backup(c *gin.Context) {
	if h.backup == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal, "backup unavailable")
		return
	}

	payload, err := h.backup.Export(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	name := "backup-" + time.Now().UTC().Format("2006-01-02") + ".json"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/json", payload)
}

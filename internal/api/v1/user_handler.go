package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gemvault/internal/api/response"
	"gemvault/internal/repository"
	"gemvault/internal/service"
)

type UserHandler struct {
	users  repository.UserRepository
	ledger *service.LedgerService
}

type creditRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

type blockRequest struct {
	Blocked bool `json:"blocked"`
}

func NewUserHandler(users repository.UserRepository, ledger *service.LedgerService) *UserHandler {
	return &UserHandler{users: users, ledger: ledger}
}

func RegisterUserRoutes(group *gin.RouterGroup, users repository.UserRepository, ledger *service.LedgerService) {
	if users == nil || ledger == nil {
		return
	}

	handler := NewUserHandler(users, ledger)
	routes := group.Group("/users")
	routes.GET("", handler.List)
	routes.GET("/:id", handler.Get)
	routes.POST("/:id/credit", handler.Credit)
	routes.POST("/:id/block", handler.Block)
}

func (h *UserHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	ids, err := h.users.ListIDs(ctx)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	page, pageSize := paginationParams(c)
	total := int64(len(ids))
	start := (page - 1) * pageSize
	if start > len(ids) {
		start = len(ids)
	}
	end := start + pageSize
	if end > len(ids) {
		end = len(ids)
	}

	out := make([]gin.H, 0, end-start)
	for _, id := range ids[start:end] {
		user, err := h.users.Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
			return
		}
		blocked, _ := h.users.IsBlocked(ctx, id)
		out = append(out, gin.H{"user": user, "blocked": blocked})
	}
	response.Paginated(c, out, page, pageSize, total)
}

func (h *UserHandler) Get(c *gin.Context) {
	id := pathID(c)
	if id == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid user id")
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrUserNotFound, "user not found")
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	blocked, _ := h.users.IsBlocked(c.Request.Context(), id)
	response.Success(c, gin.H{"user": user, "blocked": blocked})
}

func (h *UserHandler) Credit(c *gin.Context) {
	id := pathID(c)
	if id == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid user id")
		return
	}

	var req creditRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidAmount, "invalid amount")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.ledger.GetOrCreate(ctx, id, ""); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	var (
		balance int64
		err     error
	)
	if req.Amount > 0 {
		balance, err = h.ledger.Credit(ctx, id, req.Amount)
	} else {
		balance, err = h.ledger.Debit(ctx, id, -req.Amount)
	}
	if errors.Is(err, service.ErrInsufficientBalance) {
		response.Fail(c, http.StatusConflict, response.ErrInsufficientBalance, "insufficient balance")
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

func (h *UserHandler) Block(c *gin.Context) {
	id := pathID(c)
	if id == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid user id")
		return
	}

	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	if err := h.users.SetBlocked(c.Request.Context(), id, req.Blocked); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}
	response.Success(c, gin.H{"blocked": req.Blocked})
}

func pathID(c *gin.Context) int64 {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// parseClaimsUserID maps a numeric claims subject to a chat user id;
// console accounts that aren't chat users come back as 0.
func parseClaimsUserID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func paginationParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	return page, pageSize
}

package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gemvault/internal/api/middleware"
	"gemvault/internal/api/response"
	"gemvault/internal/service"
)

const accessTokenCookieName = "access_token"

type AuthHandler struct {
	auth *service.AuthService
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func RegisterAuthRoutes(group *gin.RouterGroup, auth *service.AuthService) {
	if auth == nil {
		return
	}

	handler := NewAuthHandler(auth)
	routes := group.Group("/auth")
	routes.POST(
		"/login",
		middleware.RateLimitByIP(5, time.Minute),
		middleware.RateLimitByJSONField("username", 10, time.Minute),
		handler.Login,
	)
	routes.POST("/logout", handler.Logout)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrBadCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrPasswordWrong, "wrong username or password")
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	setSecureCookie(c, accessTokenCookieName, token, int(h.auth.AccessTTL().Seconds()))
	response.Success(c, gin.H{"access_token": token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	setSecureCookie(c, accessTokenCookieName, "", -1)
	response.Success(c, nil)
}

func setSecureCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", c.Request.TLS != nil, true)
}

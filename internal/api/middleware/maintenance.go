package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"gemvault/internal/api/response"
	"gemvault/internal/service"
	jwtutil "gemvault/pkg/jwt"
)

// Maintenance blocks non-admin API traffic while maintenance mode is on.
// The flag is read through the settings cache, so a console toggle takes
// effect within the cache TTL without restarting anything.
func Maintenance(settings *service.SettingsCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := settings.Get(c.Request.Context())
		if err != nil {
			// Store trouble must not lock admins out of the console.
			c.Next()
			return
		}
		if !cfg.MaintenanceMode {
			c.Next()
			return
		}

		if claims, ok := GetClaims(c); ok && strings.EqualFold(claims.Role, "admin") {
			c.Next()
			return
		}
		if claims, ok := resolveClaimsFromRequest(c); ok && strings.EqualFold(claims.Role, "admin") {
			c.Set(claimsContextKey, claims)
			c.Next()
			return
		}

		response.Fail(c, 503, response.ErrSystemMaintenance, "system maintenance")
		c.Abort()
	}
}

func resolveClaimsFromRequest(c *gin.Context) (*Claims, bool) {
	if c == nil {
		return nil, false
	}

	tokenString := tokenFromRequest(c)
	if tokenString == "" {
		return nil, false
	}

	publicKey, err := loadRSAPublicKey()
	if err != nil {
		return nil, false
	}

	claims, err := jwtutil.ParseAccessToken(tokenString, publicKey)
	if err != nil || claims == nil {
		return nil, false
	}

	return claims, true
}

package api

import (
	"github.com/gin-gonic/gin"

	"gemvault/internal/api/middleware"
	v1 "gemvault/internal/api/v1"
	"gemvault/internal/repository"
	"gemvault/internal/service"
	loggerpkg "gemvault/pkg/logger"
)

// Services bundles everything the console API exposes.
type Services struct {
	Auth      *service.AuthService
	Users     repository.UserRepository
	Ledger    *service.LedgerService
	Files     *service.FileService
	Missions  *service.MissionService
	Gifts     *service.GiftService
	Purchases *service.PurchaseService
	Lottery   *service.LotteryService
	Settings  *service.SettingsCache
	Backup    *service.BackupService
	Logs      *loggerpkg.SystemLogStore
}

// RegisterRoutes mounts the console API under /api/v1. Login is open
// (rate-limited); everything else requires an admin token and passes the
// maintenance gate, which admins bypass.
func RegisterRoutes(router gin.IRouter, services Services) {
	group := router.Group("/api/v1")
	v1.RegisterAuthRoutes(group, services.Auth)

	secured := group.Group("")
	secured.Use(
		middleware.Maintenance(services.Settings),
		middleware.JWTAuth(),
		middleware.RequireRole("admin"),
	)
	v1.RegisterUserRoutes(secured, services.Users, services.Ledger)
	v1.RegisterFileRoutes(secured, services.Files)
	v1.RegisterMissionRoutes(secured, services.Missions)
	v1.RegisterGiftRoutes(secured, services.Gifts)
	v1.RegisterPurchaseRoutes(secured, services.Purchases)
	v1.RegisterLotteryRoutes(secured, services.Lottery)
	v1.RegisterSettingsRoutes(secured, services.Settings)
	v1.RegisterSystemRoutes(secured, services.Logs, services.Backup)
}

package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"gemvault/internal/api"
	"gemvault/internal/api/middleware"
	"gemvault/internal/bot"
	"gemvault/internal/event"
	"gemvault/internal/kvstore"
	"gemvault/internal/metrics"
	"gemvault/internal/period"
	"gemvault/internal/repository/kv"
	"gemvault/internal/scheduler"
	schedulerjobs "gemvault/internal/scheduler/jobs"
	"gemvault/internal/service"
	systemlog "gemvault/pkg/logger"
	"gemvault/pkg/telegram"
)

type Config struct {
	App struct {
		Env string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Log struct {
		Level    string `mapstructure:"level"`
		Encoding string `mapstructure:"encoding"`
	} `mapstructure:"log"`
	Telegram struct {
		Token       string `mapstructure:"token"`
		UpdateMode  string `mapstructure:"update_mode"`
		WebhookURL  string `mapstructure:"webhook_url"`
		WebhookPath string `mapstructure:"webhook_path"`
	} `mapstructure:"telegram"`
	Admin struct {
		Username     string        `mapstructure:"username"`
		PasswordHash string        `mapstructure:"password_hash"`
		AccessTTL    time.Duration `mapstructure:"access_ttl"`
	} `mapstructure:"admin"`
	Security struct {
		InternalToken     string `mapstructure:"internal_token"`
		InternalTokenFile string `mapstructure:"internal_token_file"`
	} `mapstructure:"security"`
	RateLimit struct {
		Actions int           `mapstructure:"actions"`
		Window  time.Duration `mapstructure:"window"`
	} `mapstructure:"rate_limit"`
	CORS struct {
		AllowOrigins []string `mapstructure:"allow_origins"`
	} `mapstructure:"cors"`
}

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	logger, systemLogStore, err := newLogger(cfg)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer logger.Sync() //nolint:errcheck

	isDebugMode := strings.EqualFold(cfg.App.Env, "development")
	if !isDebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	redisClient, err := kvstore.ConnectRedis(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("connect redis failed", zap.Error(err))
	}
	defer redisClient.Close() //nolint:errcheck
	store := kvstore.NewRedis(redisClient)

	userRepo := kv.NewUserRepository(store)
	sessionRepo := kv.NewSessionRepository(store)
	fileRepo := kv.NewFileRepository(store)
	missionRepo := kv.NewMissionRepository(store)
	giftRepo := kv.NewGiftRepository(store)
	purchaseRepo := kv.NewPurchaseRepository(store)
	ticketRepo := kv.NewTicketRepository(store)
	lotteryRepo := kv.NewLotteryRepository(store)
	settingsRepo := kv.NewSettingsRepository(store)
	usageRepo := kv.NewUsageRepository(store)

	clock := period.UTCNow
	eventBus := event.NewBus()

	tgBot, err := telegram.New(telegram.Config{
		Token:      cfg.Telegram.Token,
		UpdateMode: cfg.Telegram.UpdateMode,
		WebhookURL: cfg.Telegram.WebhookURL,
	}, logger)
	if err != nil {
		logger.Fatal("create telegram bot failed", zap.Error(err))
	}

	settingsCache := service.NewSettingsCache(settingsRepo, clock)
	ledgerSvc := service.NewLedgerService(userRepo, clock, logger)
	referralSvc := service.NewReferralService(userRepo, ledgerSvc, clock, logger)
	fileSvc := service.NewFileService(fileRepo, clock, logger)
	deliverySvc := service.NewDeliveryService(
		fileRepo,
		userRepo,
		usageRepo,
		ledgerSvc,
		referralSvc,
		settingsCache,
		tgBot,
		eventBus,
		clock,
		logger,
	)
	giftSvc := service.NewGiftService(giftRepo, ledgerSvc, eventBus, clock, logger)
	missionSvc := service.NewMissionService(missionRepo, userRepo, ledgerSvc, referralSvc, clock, logger)
	lotterySvc := service.NewLotteryService(lotteryRepo, ledgerSvc, eventBus, clock, logger)
	purchaseSvc := service.NewPurchaseService(purchaseRepo, ledgerSvc, eventBus, clock, logger)
	ticketSvc := service.NewTicketService(ticketRepo, clock, logger)
	backupSvc := service.NewBackupService(userRepo, fileRepo, missionRepo, giftRepo, settingsRepo, clock, logger)
	limiter := service.NewRateLimiter(usageRepo, clock, cfg.RateLimit.Actions, cfg.RateLimit.Window)

	jwtPrivateKey, err := loadRSAPrivateKey()
	if err != nil {
		logger.Fatal("load jwt private key failed", zap.Error(err))
	}
	authSvc := service.NewAuthService(cfg.Admin.Username, cfg.Admin.PasswordHash, jwtPrivateKey, cfg.Admin.AccessTTL, logger)

	metrics.Subscribe(eventBus)
	registerAdminNotifier(eventBus, settingsCache, tgBot, logger)

	botRouter := bot.NewRouter(bot.Deps{
		Sessions:  sessionRepo,
		Users:     userRepo,
		Ledger:    ledgerSvc,
		Delivery:  deliverySvc,
		Files:     fileSvc,
		Gifts:     giftSvc,
		Missions:  missionSvc,
		Lottery:   lotterySvc,
		Purchases: purchaseSvc,
		Tickets:   ticketSvc,
		Referrals: referralSvc,
		Settings:  settingsCache,
		Limiter:   limiter,
		Backup:    backupSvc,
	}, tgBot, clock, logger)
	tgBot.AttachRouter(botRouter)

	cronRunner := scheduler.NewScheduler(scheduler.Deps{
		LotteryJob: schedulerjobs.NewLotteryJob(lotterySvc, tgBot, logger),
		BackupJob:  schedulerjobs.NewBackupJob(backupSvc, settingsCache, tgBot, logger),
	}, logger)
	cronRunner.Start()
	defer func() {
		stopCtx := cronRunner.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(2 * time.Second):
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(buildCORSMiddleware(cfg))
	router.Use(middleware.RequestLogger(logger))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	readyHandler := func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"error":  "store unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}

	router.GET("/health", healthHandler)
	router.GET("/health/ready", readyHandler)

	internalMetrics := router.Group("/internal")
	internalMetrics.Use(middleware.InternalTokenAuth(cfg.Security.InternalToken))
	internalMetrics.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if webhookHandler := tgBot.WebhookHandler(); webhookHandler != nil {
		router.POST(cfg.Telegram.WebhookPath, gin.WrapH(webhookHandler))
	}

	api.RegisterRoutes(router, api.Services{
		Auth:      authSvc,
		Users:     userRepo,
		Ledger:    ledgerSvc,
		Files:     fileSvc,
		Missions:  missionSvc,
		Gifts:     giftSvc,
		Purchases: purchaseSvc,
		Lottery:   lotterySvc,
		Settings:  settingsCache,
		Backup:    backupSvc,
		Logs:      systemLogStore,
	})

	go tgBot.Start()
	defer tgBot.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	logger.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("version", Version),
		zap.String("commit", Commit),
		zap.String("build_time", BuildTime),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			logger.Fatal("server exited unexpectedly", zap.Error(err))
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown server failed", zap.Error(err))
	}
}

func loadConfig() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GEMVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("telegram.token", "GEMVAULT_TELEGRAM_TOKEN", "BOT_TOKEN")

	v.SetDefault("app.env", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("telegram.update_mode", "auto")
	v.SetDefault("telegram.webhook_path", "/telegram/webhook")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.access_ttl", "2h")
	v.SetDefault("rate_limit.actions", 10)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("cors.allow_origins", []string{"http://localhost:5173"})

	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return Config{}, fmt.Errorf("read config file failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config failed: %w", err)
	}

	if strings.TrimSpace(cfg.Security.InternalToken) == "" && strings.TrimSpace(cfg.Security.InternalTokenFile) != "" {
		// #nosec G304 -- path is provided by operator config.
		raw, err := os.ReadFile(strings.TrimSpace(cfg.Security.InternalTokenFile))
		if err != nil {
			return Config{}, fmt.Errorf("read security.internal_token_file failed: %w", err)
		}
		cfg.Security.InternalToken = strings.TrimSpace(string(raw))
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return Config{}, errors.New("telegram.token is required")
	}
	if strings.TrimSpace(cfg.Admin.PasswordHash) == "" {
		return Config{}, errors.New("admin.password_hash is required")
	}
	if len(cfg.CORS.AllowOrigins) == 0 {
		return Config{}, errors.New("cors.allow_origins must not be empty")
	}
	for _, origin := range cfg.CORS.AllowOrigins {
		if strings.TrimSpace(origin) == "*" {
			return Config{}, errors.New("cors.allow_origins must not contain wildcard *")
		}
	}

	return cfg, nil
}

func newLogger(cfg Config) (*zap.Logger, *systemlog.SystemLogStore, error) {
	var zapCfg zap.Config
	if strings.EqualFold(cfg.App.Env, "development") {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log.level: %w", err)
		}
	}

	if cfg.Log.Encoding != "" {
		zapCfg.Encoding = cfg.Log.Encoding
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger failed: %w", err)
	}

	logStore := systemlog.NewSystemLogStore(1000)
	logger = systemlog.WrapZapLogger(logger, logStore)
	return logger, logStore, nil
}

func buildCORSMiddleware(cfg Config) gin.HandlerFunc {
	origins := make([]string, 0, len(cfg.CORS.AllowOrigins))
	for _, origin := range cfg.CORS.AllowOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		origins = append(origins, trimmed)
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func loadRSAPrivateKey() (*rsa.PrivateKey, error) {
	pem := strings.TrimSpace(os.Getenv("GEMVAULT_JWT_PRIVATE_KEY"))
	if pem == "" {
		path := strings.TrimSpace(os.Getenv("GEMVAULT_JWT_PRIVATE_KEY_FILE"))
		if path != "" {
			// #nosec G304 -- path is provided by operator environment variable.
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			pem = string(raw)
		}
	}
	if pem == "" {
		return nil, errors.New("jwt private key not configured")
	}
	return jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
}

// registerAdminNotifier forwards notable events to the admin chat. A
// missing admin chat id silently disables the notifier.
func registerAdminNotifier(
	bus *event.Bus,
	settings *service.SettingsCache,
	transport bot.Transport,
	logger *zap.Logger,
) {
	if bus == nil || settings == nil || transport == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	notify := func(text string) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		current, err := settings.Get(ctx)
		if err != nil {
			logger.Warn("load settings for admin notify failed", zap.Error(err))
			return
		}
		if current.AdminChatID == 0 {
			return
		}
		if err := transport.SendText(ctx, current.AdminChatID, text); err != nil {
			logger.Warn("admin notify failed", zap.Error(err))
		}
	}

	bus.Subscribe(event.EventFileDelivered, func(payload any) {
		p, ok := payload.(event.DeliveryPayload)
		if !ok || p.Cost == 0 {
			return
		}
		notify(fmt.Sprintf("💎 Paid delivery: user %d fetched %s for %d 💎.", p.UserID, p.Token, p.Cost))
	})
	bus.Subscribe(event.EventPurchaseApproved, func(payload any) {
		p, ok := payload.(event.PurchasePayload)
		if !ok {
			return
		}
		notify(fmt.Sprintf("✅ Purchase %s approved: %d 💎 credited to user %d.", p.PurchaseID, p.Diamonds, p.UserID))
	})
	bus.Subscribe(event.EventLotteryDrawn, func(payload any) {
		p, ok := payload.(event.LotteryDrawnPayload)
		if !ok {
			return
		}
		notify(fmt.Sprintf("🎲 Lottery %s drawn: %d winners out of %d, %d 💎 each.", p.DayKey, len(p.Winners), p.PoolSize, p.Reward))
	})
}

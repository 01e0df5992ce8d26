package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photoquest/internal/bot"
	"photoquest/internal/config"
	"photoquest/internal/db"
	"photoquest/internal/events"
	httpServer "photoquest/internal/http"
	"photoquest/internal/http/handlers"
	"photoquest/internal/http/middleware"
	"photoquest/internal/logger"
	"photoquest/internal/repository"
	"photoquest/internal/service"
	"photoquest/internal/storage"
	"photoquest/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.MigrateOnStart {
		if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
			logger.Fatal("migrations failed", "error", err)
		}
	}

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	blobs, err := storage.NewDiskStore(cfg.UploadDir, "/uploads", cfg.MaxUploadBytes)
	if err != nil {
		logger.Fatal("upload dir unavailable", "dir", cfg.UploadDir, "error", err)
	}

	auth, err := service.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Fatal("jwt setup failed", "error", err)
	}

	redisClient, err := middleware.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, rate limiting is per process", "addr", cfg.RedisAddr, "error", err)
	}
	var readiness []handlers.Dependency
	if redisClient != nil {
		defer redisClient.Close()
		readiness = append(readiness, handlers.Dependency{
			Name:     "redis",
			Optional: true,
			Check: func(ctx context.Context) (string, error) {
				return "up", redisClient.Ping(ctx).Err()
			},
		})
	}

	// Event sinks: the admin WebSocket feed always, NATS when configured.
	hub := ws.NewHub()
	publishers := events.Fanout{hub}
	if cfg.NatsURL != "" {
		nc, err := events.ConnectNATS(cfg.NatsURL)
		if err != nil {
			logger.Warn("nats unavailable, events stay local", "error", err)
		} else {
			defer nc.Close()
			publishers = append(publishers, nc)
			readiness = append(readiness, handlers.PingDependency("nats", nc, true))
		}
	}

	users := repository.NewUserRepository(dbPool)
	packages := repository.NewPackageRepository(dbPool)
	transactions := repository.NewTransactionRepository(dbPool)
	quests := repository.NewQuestRepository(dbPool)
	photos := repository.NewPhotoRepository(dbPool)

	audit := service.NewAuditService(repository.NewAuditRepository(dbPool))
	ledger := service.NewLedgerService(dbPool, users, repository.NewAdminWalletRepository(dbPool))
	admin := service.NewAdminService(dbPool, ledger)
	readiness = append(readiness, handlers.LedgerDependency(ledger))
	approvals := service.NewApprovalService(dbPool, transactions, packages, ledger, audit, publishers)

	// The bot only listens to submissions.
	topupPublishers := publishers
	if cfg.AdminBotToken != "" {
		topups := service.NewTopupService(transactions, packages, blobs, audit, publishers)
		adminBot, err := bot.NewAdminBot(cfg.AdminBotToken, cfg.AdminChatIDs, cfg.AdminBotActorID, approvals, topups, admin)
		if err != nil {
			logger.Error("admin bot failed to start", "error", err)
		} else {
			adminBot.Start()
			defer adminBot.Stop()
			topupPublishers = append(events.Fanout{adminBot}, publishers...)
		}
	}

	h := &handlers.Handler{
		Auth:           service.NewAuthService(users, auth, audit),
		Admin:          admin,
		Approvals:      approvals,
		Topups:         service.NewTopupService(transactions, packages, blobs, audit, topupPublishers),
		Packages:       service.NewPackageService(dbPool, packages, blobs, audit),
		Quests:         service.NewQuestService(dbPool, quests, ledger, audit, publishers),
		Photos:         service.NewPhotoService(photos, quests, blobs, audit),
		Audit:          audit,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	httpServer.RegisterRoutes(r, cfg, httpServer.Deps{
		Handler:     h,
		Health:      handlers.NewHealthHandler(dbPool, cfg.AppVersion, readiness...),
		Auth:        auth,
		Hub:         hub,
		RateLimiter: middleware.NewRateLimiter(redisClient),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           middleware.CORS(cfg.AllowedOrigins)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", cfg.AppVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

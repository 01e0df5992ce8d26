package http

import (
	"photoquest/internal/config"
	"photoquest/internal/http/handlers"
	"photoquest/internal/http/middleware"
	"photoquest/internal/service"
	"photoquest/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the router needs beyond configuration.
type Deps struct {
	Handler     *handlers.Handler
	Health      *handlers.HealthHandler
	Auth        service.Authenticator
	Hub         *ws.Hub
	RateLimiter *middleware.RateLimiter
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, d Deps) {
	h := d.Handler
	jwt := middleware.JWT(d.Auth)
	admin := middleware.AdminOnly()
	apiRL := d.RateLimiter.Limit("api", cfg.APIRateLimit, cfg.APIRateWindow)
	authRL := d.RateLimiter.Limit("auth", cfg.AuthRateLimit, cfg.AuthRateWindow)

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Static("/uploads", cfg.UploadDir)

	auth := r.Group("/auth", authRL)
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	dashboard := r.Group("/dashboard", apiRL, jwt)
	{
		dashboard.GET("/admin", admin, h.AdminDashboard)
		dashboard.GET("/user", h.UserDashboard)
	}

	api := r.Group("/api", apiRL)

	packages := api.Group("/packages", jwt)
	{
		packages.GET("", h.ListPackages)
		packages.GET("/all", admin, h.ListAllPackages)
		packages.POST("", admin, h.CreatePackage)
		packages.PUT("/:id", admin, h.UpdatePackage)
		packages.DELETE("/:id", admin, h.DeletePackage)
		packages.PATCH("/:id/status", admin, h.TogglePackageStatus)
	}

	transactions := api.Group("/transactions", jwt)
	{
		transactions.POST("/topup", h.SubmitTopup)
		transactions.GET("/user", h.UserTransactions)
		transactions.GET("/pending", admin, h.ListPendingTopups)
		transactions.PATCH("/:id/approve", admin, h.ApproveTopup)
		transactions.PATCH("/:id/reject", admin, h.RejectTopup)
	}

	quests := api.Group("/quests", jwt)
	{
		quests.GET("", h.ListQuests)
		quests.GET("/active", h.ListActiveQuests)
		quests.GET("/joined", h.ListJoinedQuests)
		quests.GET("/:id", h.GetQuest)
		quests.POST("/:id/join", h.JoinQuest)
		quests.POST("", admin, h.CreateQuest)
		quests.PUT("/:id", admin, h.UpdateQuest)
		quests.DELETE("/:id", admin, h.DeleteQuest)
		quests.PATCH("/:id/status", admin, h.SetQuestStatus)
	}

	photos := api.Group("/photos")
	{
		photos.GET("", h.ListPhotos)
		photos.GET("/user", jwt, h.MyPhotos)
		photos.GET("/:id", h.GetPhoto)
		photos.GET("/:id/likes", h.LikeCount)
		photos.GET("/:id/comments", h.ListComments)
		photos.POST("", jwt, h.UploadPhoto)
		photos.DELETE("/:id", jwt, h.DeletePhoto)
		photos.POST("/:id/like", jwt, h.ToggleLike)
		photos.POST("/:id/comment", jwt, h.AddComment)
	}

	api.GET("/admin/audit", jwt, admin, h.AuditLog)

	r.GET("/ws/admin", ws.HandleAdminFeed(d.Hub, d.Auth, cfg.AllowedOrigins))
}

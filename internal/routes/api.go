package routes

import (
	"context"

	"civicconnect/internal/config"
	"civicconnect/internal/handlers"
	"civicconnect/internal/middleware"
	"civicconnect/internal/models"
	"civicconnect/internal/services"
	"civicconnect/internal/utils"
	"civicconnect/internal/websocket"

	"github.com/gin-gonic/gin"
)

// Dependencies is everything the HTTP layer needs from main.
type Dependencies struct {
	Config *config.Config
	Hub    *websocket.Hub
	JWT    *utils.JWTManager

	Auth          *services.AuthService
	Users         *services.UserService
	Complaints    *services.ComplaintService
	Notifications *services.NotificationService
	Community     *services.CommunityService
	Notes         *services.NoteService
	Assistant     handlers.Assistant

	// APILimiter and AuthLimiter are nil when rate limiting is disabled
	APILimiter  middleware.Limiter
	AuthLimiter middleware.Limiter

	// CheckDB is nil for the in-memory store
	CheckDB func(ctx context.Context) map[string]interface{}
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config
	maxUpload := cfg.Storage.MaxUploadSize

	complaintHandler := handlers.NewComplaintHandler(deps.Complaints, maxUpload)
	userHandler := handlers.NewUserHandler(deps.Users, deps.Notifications)
	authHandler := handlers.NewAuthHandler(deps.Auth, cfg.Security.JWT)
	communityHandler := handlers.NewCommunityHandler(deps.Community, maxUpload)
	noteHandler := handlers.NewNoteHandler(deps.Notes)
	assistantHandler := handlers.NewAssistantHandler(deps.Assistant)
	healthHandler := handlers.NewHealthHandler(deps.Hub, cfg.App.Version, deps.CheckDB)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.JWT, cfg.Security.JWT.CookieName, cfg.Server.WebSocket, cfg.Server.CORS)

	// Global middleware
	router.Use(middleware.RequestLogger())
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.Server.CORS))

	router.GET("/health", healthHandler.Health)

	// Uploaded complaint media and post images
	router.Static(cfg.Storage.PublicPrefix, cfg.Storage.UploadDir)

	SetupAuthRoutes(router, authHandler, deps.AuthLimiter, cfg.Security.RateLimit.AuthPerMinute)
	SetupWebSocketRoutes(router, wsHandler)

	// The API limiter runs after JWTAuth so buckets are per user rather than per IP
	protected := []gin.HandlerFunc{middleware.JWTAuth(deps.JWT, cfg.Security.JWT.CookieName)}
	if deps.APILimiter != nil {
		protected = append(protected, middleware.RateLimit(deps.APILimiter, cfg.Security.RateLimit.RequestsPerMinute))
	}
	authorityOnly := middleware.RequireRole(models.RoleAuthority)

	user := router.Group("/user", protected...)
	{
		user.GET("/me", userHandler.Profile)
		user.GET("/leaderboard", userHandler.Leaderboard)
		user.GET("/stats", userHandler.Stats)
		user.GET("/notifications", userHandler.Notifications)
		user.PUT("/notifications/:id/read", userHandler.MarkRead)
	}

	complaint := router.Group("/complaint", protected...)
	{
		complaint.POST("/create", complaintHandler.Create)
		complaint.PUT("/edit/:id", complaintHandler.Edit)
		complaint.POST("/feedback/:id", complaintHandler.Feedback)
		complaint.GET("/my-contributions", complaintHandler.MyContributions)
		complaint.GET("/resolved", complaintHandler.Resolved)

		// Classifier passthroughs
		complaint.POST("/predict", complaintHandler.Predict)
		complaint.POST("/caption", complaintHandler.Caption)
		complaint.POST("/analyze-video", complaintHandler.AnalyzeVideo)

		// Authority workflow
		complaint.GET("/authority-complaints", authorityOnly, complaintHandler.AuthorityComplaints)
		complaint.GET("/authority-stats", authorityOnly, complaintHandler.AuthorityStats)
		complaint.PUT("/update-status/:id", authorityOnly, complaintHandler.UpdateStatus)

		complaint.GET("/:id", complaintHandler.Get)
	}

	community := router.Group("/community-post", protected...)
	{
		community.GET("", communityHandler.List)
		community.POST("/create", authorityOnly, communityHandler.Create)
	}

	note := router.Group("/note", protected...)
	{
		note.GET("", noteHandler.List)
		note.POST("/add", noteHandler.Add)
		note.DELETE("/:id", noteHandler.Delete)
	}

	ai := router.Group("/ai", protected...)
	{
		ai.POST("/chat", assistantHandler.Chat)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"civicconnect/internal/assistant"
	"civicconnect/internal/classifier"
	"civicconnect/internal/config"
	"civicconnect/internal/media"
	"civicconnect/internal/middleware"
	"civicconnect/internal/routes"
	"civicconnect/internal/services"
	"civicconnect/internal/store"
	"civicconnect/internal/utils"
	"civicconnect/internal/websocket"
	"civicconnect/pkg/database"
	"civicconnect/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger.Init()
	defer logger.Close()

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	st, checkDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if checkDB == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
		defer cancel()
		if err := database.Disconnect(shutdownCtx); err != nil {
			logger.WithError(err).Warn("MongoDB disconnect failed")
		}
	}()

	rdb, err := database.NewRedis(ctx, cfg.Database.Redis)
	if err != nil {
		// Shared rate limiting is optional; fall back to per-instance buckets
		logger.WithError(err).Warn("Redis unavailable, using in-process rate limiting")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	hub := websocket.NewHub()
	jwtManager := utils.NewJWTManager(cfg.Security.JWT)
	mediaStore := media.NewStore(cfg.Storage)
	gateway := classifier.New(cfg.Classifier)

	notifications := services.NewNotificationService(st.Notifications, hub, cfg.Complaints.NotificationLimit)
	complaints := services.NewComplaintService(st.Complaints, gateway, mediaStore, notifications, hub, services.ComplaintOptions{
		RejectDuplicateMedia: cfg.Complaints.RejectDuplicateMedia,
		FakeThreshold:        cfg.Classifier.FakeThreshold,
	})

	apiLimiter, authLimiter := newLimiters(cfg.Security.RateLimit, rdb)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	routes.SetupRoutes(router, routes.Dependencies{
		Config:        cfg,
		Hub:           hub,
		JWT:           jwtManager,
		Auth:          services.NewAuthService(st.Users, jwtManager),
		Users:         services.NewUserService(st.Complaints, st.Users, cfg.Complaints.LeaderboardSize),
		Complaints:    complaints,
		Notifications: notifications,
		Community:     services.NewCommunityService(st.Posts, mediaStore, notifications, hub),
		Notes:         services.NewNoteService(st.Notes),
		Assistant:     assistant.NewClient(cfg.Assistant),
		APILimiter:    apiLimiter,
		AuthLimiter:   authLimiter,
		CheckDB:       checkDB,
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.HTTP.Host, cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.App.Environment,
			"store":       cfg.Storage.Driver,
			"classifier":  cfg.Classifier.URL != "",
			"assistant":   cfg.Assistant.APIKey != "",
		}).Info("Server starting")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore connects the configured persistence backend. checkDB is nil for the
// in-memory store.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, func(context.Context) map[string]interface{}, error) {
	if cfg.Storage.Driver == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		return store.NewMemory(), nil, nil
	}

	if err := database.InitMongoDB(cfg.Database.MongoDB); err != nil {
		return nil, nil, err
	}
	db := database.GetDatabase()
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return store.NewMongo(db), database.HealthCheck, nil
}

// newLimiters prefers Redis so limits hold across instances.
func newLimiters(cfg config.RateLimitConfig, rdb *redis.Client) (middleware.Limiter, middleware.Limiter) {
	if !cfg.Enabled {
		return nil, nil
	}
	if rdb != nil {
		return middleware.NewRedisLimiter(rdb, cfg.RequestsPerMinute, "api"),
			middleware.NewRedisLimiter(rdb, cfg.AuthPerMinute, "auth")
	}
	return middleware.NewRateLimiter(cfg.RequestsPerMinute, cfg.Burst),
		middleware.NewRateLimiter(cfg.AuthPerMinute, cfg.AuthPerMinute)
}

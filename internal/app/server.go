package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bontroc_backend/internal/auth"
	"bontroc_backend/internal/badge"
	"bontroc_backend/internal/category"
	"bontroc_backend/internal/chat"
	"bontroc_backend/internal/common"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/contract"
	"bontroc_backend/internal/dispute"
	"bontroc_backend/internal/exchange"
	"bontroc_backend/internal/jobs"
	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/middleware"
	"bontroc_backend/internal/moderation"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/platform/database"
	"bontroc_backend/internal/proposal"
	"bontroc_backend/internal/report"
	"bontroc_backend/internal/review"
	"bontroc_backend/internal/shared"
	"bontroc_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Category     *category.Handler
	Listing      *listing.Handler
	Proposal     *proposal.Handler
	Contract     *contract.Handler
	Exchange     *exchange.Handler
	Dispute      *dispute.Handler
	Review       *review.Handler
	Notification *notification.Handler
	Badge        *badge.Handler
	Chat         *chat.Handler
	Report       *report.Handler
	Moderation   *moderation.Handler
}

// Security carries what the auth middleware needs to resolve a session.
type Security struct {
	Tokens    shared.TokenService
	Accounts  shared.AccountLookup
	Blocklist shared.TokenBlocklist
}

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer  *http.Server
	router      *gin.Engine
	cfg         *config.Config
	logger      *zap.Logger
	scheduler   *jobs.Scheduler
	rateLimiter *middleware.RateLimiter
	stopSweep   chan struct{}
}

// NewServer builds the router and mounts every route group.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	tp trace.TracerProvider,
	caps *database.Capabilities,
	security Security,
	handlers Handlers,
	scheduler *jobs.Scheduler,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.Tracing(tp, propagation.TraceContext{}))
	router.Use(rateLimiter.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	if cfg.StorageDriver == "local" {
		router.Static("/media", cfg.StorageLocalPath)
	}

	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = database.HealthCheck(c.Request.Context(), sqlDB)
		}
		if err != nil {
			logger.Warn("Health check failed", zap.Error(err))
			common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails("Database unreachable."))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP", "capabilities": caps.Snapshot()})
	})

	authMW := middleware.AuthMiddleware(security.Tokens, security.Accounts, security.Blocklist, logger.Named("AuthMiddleware"))
	staffMW := middleware.RoleAuthMiddleware(common.RoleModerator, common.RoleAdmin)
	adminMW := middleware.RoleAuthMiddleware(common.RoleAdmin)

	v1 := router.Group("/api/v1")
	handlers.Auth.RegisterRoutes(v1, authMW)
	handlers.Category.RegisterRoutes(v1)

	authed := v1.Group("", authMW)
	handlers.User.RegisterRoutes(authed)
	handlers.Listing.RegisterRoutes(authed)
	handlers.Proposal.RegisterRoutes(authed)
	handlers.Contract.RegisterRoutes(authed)
	handlers.Exchange.RegisterRoutes(authed)
	handlers.Review.RegisterRoutes(authed)
	handlers.Notification.RegisterRoutes(authed.Group("/notifications"))
	handlers.Badge.RegisterRoutes(authed)
	handlers.Dispute.RegisterRoutes(authed.Group("", middleware.RequireCapability(caps, database.CapabilityDisputes)))
	handlers.Chat.RegisterRoutes(authed.Group("", middleware.RequireCapability(caps, database.CapabilityChat)))
	handlers.Report.RegisterRoutes(authed.Group("", middleware.RequireCapability(caps, database.CapabilityReports)))

	staff := v1.Group("/moderation", authMW, staffMW)
	handlers.Listing.RegisterModerationRoutes(staff)
	handlers.Dispute.RegisterModerationRoutes(staff.Group("", middleware.RequireCapability(caps, database.CapabilityDisputes)))
	handlers.Report.RegisterModerationRoutes(staff.Group("", middleware.RequireCapability(caps, database.CapabilityReports)))

	admin := v1.Group("/admin", authMW, adminMW)
	handlers.User.RegisterAdminRoutes(admin)
	handlers.Category.RegisterAdminRoutes(admin)
	handlers.Moderation.RegisterAdminRoutes(admin.Group("", middleware.RequireCapability(caps, database.CapabilityModeration)))

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: the badge stream holds its response open.
		IdleTimeout: 120 * time.Second,
	}

	return &Server{
		httpServer:  httpServer,
		router:      router,
		cfg:         cfg,
		logger:      logger,
		scheduler:   scheduler,
		rateLimiter: rateLimiter,
		stopSweep:   make(chan struct{}),
	}, nil
}

// Router exposes the engine for in-process tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) sweepVisitors() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			s.rateLimiter.Sweep(now)
		case <-s.stopSweep:
			return
		}
	}
}

func (s *Server) Start() error {
	if s.scheduler != nil {
		if err := s.scheduler.Start(); err != nil {
			s.logger.Error("Failed to start job scheduler", zap.Error(err))
		}
	}
	go s.sweepVisitors()

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	close(s.stopSweep)
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

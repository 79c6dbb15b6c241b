package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/OldStager01/forecast-autoscaler/api/docs"
	"github.com/OldStager01/forecast-autoscaler/api/handlers"
	"github.com/OldStager01/forecast-autoscaler/api/middleware"
	"github.com/OldStager01/forecast-autoscaler/api/websocket"
	"github.com/OldStager01/forecast-autoscaler/internal/auth"
	"github.com/OldStager01/forecast-autoscaler/internal/logger"
	"github.com/OldStager01/forecast-autoscaler/internal/metrics"
	"github.com/OldStager01/forecast-autoscaler/pkg/config"
	"github.com/OldStager01/forecast-autoscaler/pkg/database"
	"github.com/OldStager01/forecast-autoscaler/pkg/database/queries"
)

const maxRequestBody = 64 << 10

// Options carries the optional collaborators of the API server.
type Options struct {
	// DB enables the history endpoints and the database health check.
	DB        *database.DB
	Metrics   *metrics.Metrics
	WebSocket *config.WebSocketConfig
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      config.APIConfig
	opts        Options
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
	hubCancel   context.CancelFunc
	manager     handlers.CycleManager
}

func NewServer(cfg config.APIConfig, manager handlers.CycleManager, opts Options) *Server {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.JWTDuration <= 0 {
		cfg.JWTDuration = 24 * time.Hour
	}
	authService := auth.NewService(cfg.JWTSecret, cfg.JWTDuration, cfg.JWTIssuer)
	wsHub := websocket.NewHub(opts.WebSocket)

	s := &Server{
		router:      gin.New(),
		config:      cfg,
		opts:        opts,
		authService: authService,
		wsHub:       wsHub,
		manager:     manager,
	}

	s.setupMiddleware()
	s.setupRoutes()

	hubCtx, cancel := context.WithCancel(context.Background())
	s.hubCancel = cancel
	go wsHub.Run(hubCtx)

	// Forward orchestrator events to websocket clients
	if manager != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, manager.SubscribeAllEvents())
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	// Panics are reported through the structured logger
	s.router.Use(gin.RecoveryWithWriter(logger.Logger().WriterLevel(logrus.ErrorLevel)))
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(middleware.CORSFromConfig(s.config.CORS)))
	s.router.Use(middleware.RequestSizeLimit(maxRequestBody))
	s.router.Use(middleware.RateLimit(middleware.NewRateLimiter(s.config.RateLimit, time.Minute)))
}

func (s *Server) setupRoutes() {
	var history handlers.CycleHistory
	if s.opts.DB != nil {
		history = queries.NewCycleRepository(s.opts.DB.DB)
	}

	healthHandler := handlers.NewHealthHandler(s.opts.DB, s.manager)
	authHandler := handlers.NewAuthHandler(s.config.OperatorUsername, s.config.OperatorPasswordHash, s.authService)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	if s.opts.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}

	if s.config.SwaggerEnabled {
		s.router.GET("/swagger/*any", middleware.SwaggerHeaders(), ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub, s.config.CORS.AllowedOrigins))

	if s.manager == nil {
		return
	}
	cycleHandler := handlers.NewCycleHandler(s.manager, history, s.config.DefaultLimit, s.config.MaxLimit)

	// Protected routes
	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(s.authService))
	{
		v1.GET("/status", cycleHandler.Status)
		v1.GET("/cycles", cycleHandler.List)
		v1.GET("/cycles/:id", cycleHandler.Get)
		v1.POST("/cycles", middleware.TriggerRateLimiter(6, time.Minute), cycleHandler.Trigger)
	}
}

func (s *Server) Start() error {
	idle := s.config.IdleTimeout
	if idle <= 0 {
		idle = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  idle,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}
	s.hubCancel()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) AuthService() *auth.Service {
	return s.authService
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}

// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"rayslaund-service/internal/config"
	"rayslaund-service/internal/db"
	"rayslaund-service/internal/events"
	authHandler "rayslaund-service/internal/handlers/auth"
	catalogHandler "rayslaund-service/internal/handlers/catalog"
	chatHandler "rayslaund-service/internal/handlers/chat"
	discountHandler "rayslaund-service/internal/handlers/discount"
	orderHandler "rayslaund-service/internal/handlers/order"
	wsHandler "rayslaund-service/internal/handlers/websocket"
	"rayslaund-service/internal/middleware"
	"rayslaund-service/internal/pkg/jwt"
	"rayslaund-service/internal/pkg/session"
	"rayslaund-service/internal/repository/postgres"
	"rayslaund-service/internal/service/assistant"
	authUsecase "rayslaund-service/internal/service/auth"
	chatUsecase "rayslaund-service/internal/service/chat"
	discountUsecase "rayslaund-service/internal/service/discount"
	orderUsecase "rayslaund-service/internal/service/order"
	"rayslaund-service/internal/websocket"
	wsHandlers "rayslaund-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg         config.AppConfig
	engine      *gin.Engine
	logger      *zap.Logger
	authService *authUsecase.AuthService

	httpSrv     *http.Server
	pool        *pgxpool.Pool
	redisClient *redis.Client
	stopHub     context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool

	// ----- Redis -----
	redisCfg := db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	}

	redisClient, err := db.NewRedisClient(redisCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.redisClient = redisClient
	log.Println("[REDIS] ✅ Connected successfully")

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Session Manager & Rate Limiter -----
	sessionManager := session.NewManager(redisClient)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Event Bus -----
	bus := events.NewBus()

	// ----- Repositories -----
	userRepo := postgres.NewUserRepository(pool, bus)
	orderRepo := postgres.NewOrderRepository(pool, bus)
	chatRepo := postgres.NewChatRepository(pool, bus)
	discountRepo := postgres.NewDiscountRepository(pool, bus)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(jwtManager.Verifier, sessionManager, bus)

	presence := websocket.NewPresenceTracker()
	hub.RegisterHandler(wsHandlers.NewPresenceHandler(presence))
	hub.RegisterDisconnectHook(presence.DropOperator)

	hubCtx, stopHub := context.WithCancel(context.Background())
	s.stopHub = stopHub
	go hub.Run(hubCtx)

	// ----- Services (Usecases) -----
	authService := authUsecase.NewAuthService(
		userRepo,
		jwtManager,
		sessionManager,
		rateLimiter,
		hub,
		logger,
	)
	s.authService = authService

	responder := assistant.NewService(assistant.Config{
		APIKey:       s.cfg.AssistantAPIKey,
		Model:        s.cfg.AssistantModel,
		Endpoint:     s.cfg.AssistantEndpoint,
		Timeout:      s.cfg.AssistantTimeout,
		ContactPhone: s.cfg.ContactPhone,
	}, logger)

	chatService := chatUsecase.NewService(chatRepo, responder, presence, hub, logger)
	orderService := orderUsecase.NewService(orderRepo, chatService, hub, logger)
	discountService := discountUsecase.NewService(discountRepo, chatService, logger)

	// ----- Seed Operator Accounts -----
	if err := s.seedOperators(); err != nil {
		logger.Error("failed to seed operator accounts", zap.Error(err))
		// Don't fail startup, just log the error
	}

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(authService, logger)
	orderHandlerInst := orderHandler.NewOrderHandler(orderService, logger)
	chatHandlerInst := chatHandler.NewChatHandler(chatService, rateLimiter, logger)
	discountHandlerInst := discountHandler.NewDiscountHandler(discountService, logger)
	catalogHandlerInst := catalogHandler.NewCatalogHandler()
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(authService)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:     authHandlerInst,
		OrderHandler:    orderHandlerInst,
		ChatHandler:     chatHandlerInst,
		DiscountHandler: discountHandlerInst,
		CatalogHandler:  catalogHandlerInst,
		WSHandler:       wsHandlerInst,
		AuthMiddleware:  authMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	s.httpSrv = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	log.Printf("🚀 Server running on %s", s.cfg.HTTPAddr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight HTTP requests, stops the websocket hub and
// closes the backing stores.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	if s.stopHub != nil {
		s.stopHub()
	}
	if s.redisClient != nil {
		if cerr := s.redisClient.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// seedOperators creates the staff and admin accounts if they don't exist
func (s *Server) seedOperators() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	staffPassword := os.Getenv("STAFF_PASSWORD")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	// Use defaults if not provided (for development only)
	if staffPassword == "" {
		staffPassword = "staff123"
		s.logger.Warn("STAFF_PASSWORD not set, using default password")
	}
	if adminPassword == "" {
		adminPassword = "admin123"
		s.logger.Warn("ADMIN_PASSWORD not set, using default password")
	}

	return s.authService.EnsureBaseOperators(ctx,
		s.cfg.StaffEmail, staffPassword,
		s.cfg.AdminEmail, adminPassword,
	)
}

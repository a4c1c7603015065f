// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tahseel-service/internal/config"
	"tahseel-service/internal/db"
	authHandler "tahseel-service/internal/handlers/auth"
	campaignHandler "tahseel-service/internal/handlers/campaign"
	followupHandler "tahseel-service/internal/handlers/followup"
	invoiceHandler "tahseel-service/internal/handlers/invoice"
	workhoursHandler "tahseel-service/internal/handlers/workhours"
	"tahseel-service/internal/middleware"
	"tahseel-service/internal/pkg/jwt"
	"tahseel-service/internal/pkg/session"
	"tahseel-service/internal/repository/postgres"
	authUsecase "tahseel-service/internal/service/auth"
	campaignUsecase "tahseel-service/internal/service/campaign"
	"tahseel-service/internal/service/compliance"
	"tahseel-service/internal/service/detection"
	"tahseel-service/internal/service/email"
	followupUsecase "tahseel-service/internal/service/followup"
	invoiceUsecase "tahseel-service/internal/service/invoice"
	"tahseel-service/internal/service/storage"
	"tahseel-service/internal/service/template"
	workhoursUsecase "tahseel-service/internal/service/workhours"
	"tahseel-service/internal/websocket"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	http   *http.Server
	pool   interface{ Close() }
	redis  *redis.Client
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.NewPostgresPool(ctx, db.PostgresConfig{DSN: s.cfg.PostgresDSN})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool
	logger.Info("connected to PostgreSQL")

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       s.cfg.RedisDB,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.redis = redisClient
	logger.Info("connected to Redis")

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Session Manager -----
	sessionManager := session.NewManager(redisClient)

	// ----- Email -----
	emailSender := email.NewSMTPSender(
		s.cfg.SMTPHost,
		s.cfg.SMTPPort,
		s.cfg.SMTPUser,
		s.cfg.SMTPPass,
		s.cfg.SMTPFromName,
		s.cfg.SMTPSecure,
	)

	// ----- Repositories -----
	userRepo := postgres.NewUserRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	sequenceRepo := postgres.NewSequenceRepository(pool)
	followupLogRepo := postgres.NewFollowUpLogRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	campaignRepo := postgres.NewCampaignRepository(pool)
	workHoursRepo := postgres.NewWorkHoursRepository(pool)

	// ----- Services -----
	authService := authUsecase.NewAuthService(userRepo, jwtManager, sessionManager, logger)

	calendar := workhoursUsecase.NewApproximateCalendar()
	resolver := workhoursUsecase.NewResolver(calendar)
	configCache := workhoursUsecase.NewConfigCache(redisClient, s.cfg.WorkHoursCacheTTL)
	workHoursService := workhoursUsecase.NewConfigService(workHoursRepo, configCache, logger)

	gate := compliance.NewGate(paymentRepo, auditRepo, calendar, logger)
	templateResolver := template.NewResolver()

	scanner := detection.NewScanner(
		invoiceRepo,
		customerRepo,
		sequenceRepo,
		followupLogRepo,
		auditRepo,
		gate,
		workHoursService,
		resolver,
		templateResolver,
		logger,
	)

	followupService := followupUsecase.NewService(followupLogRepo, emailSender, logger)
	invoiceService := invoiceUsecase.NewInvoiceService(invoiceRepo, logger)

	objectStore := storage.NewRedisObjectStore(redisClient)
	campaignService := campaignUsecase.NewCampaignService(
		campaignRepo,
		invoiceRepo,
		emailSender,
		objectStore,
		templateResolver,
		logger,
	)

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(authService, logger)
	followupHandlerInst := followupHandler.NewFollowUpHandler(scanner, followupService, auditRepo, logger)
	campaignHandlerInst := campaignHandler.NewCampaignHandler(campaignService, logger)
	invoiceHandlerInst := invoiceHandler.NewInvoiceHandler(invoiceService)
	workHoursHandlerInst := workhoursHandler.NewWorkHoursHandler(workHoursService, resolver)
	progressHandlerInst := websocket.NewProgressHandler(campaignService, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(authService)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:      authHandlerInst,
		FollowUpHandler:  followupHandlerInst,
		CampaignHandler:  campaignHandlerInst,
		InvoiceHandler:   invoiceHandlerInst,
		WorkHoursHandler: workHoursHandlerInst,
		ProgressHandler:  progressHandlerInst,
		AuthMiddleware:   authMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	s.http = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}
	logger.Info("server starting", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return err
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.logger != nil {
		s.logger.Info("server stopped")
		s.logger.Sync()
	}
	return nil
}

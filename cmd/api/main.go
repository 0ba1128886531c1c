package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"vaquita/config"
	_ "vaquita/docs"
	"vaquita/internal/adapters/audit"
	"vaquita/internal/adapters/auth"
	"vaquita/internal/adapters/awsclient"
	"vaquita/internal/adapters/email"
	"vaquita/internal/adapters/push"
	"vaquita/internal/adapters/storage"
	httpdelivery "vaquita/internal/delivery/http"
	"vaquita/internal/delivery/http/controllers"
	"vaquita/internal/repository/postgres"
	"vaquita/internal/services"
)

const shutdownTimeout = 15 * time.Second

// @title Vaquita API
// @version 1.0
// @description Shared expenses between friends: events, invitations and balances.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.NewLogger()
	slog.SetDefault(logger)

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("connected to database")

	awsCfg := awsclient.Config{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	}

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	balanceRepo := postgres.NewBalanceRepository(db)
	invitationRepo := postgres.NewInvitationRepository(db)
	userRepo := postgres.NewUserRepository(db)
	pushTokenRepo := postgres.NewPushTokenRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditWorker := audit.NewWorker(auditRepo, cfg.AuditBufferSize, logger)
	auditWorker.Start()
	defer auditWorker.Shutdown()

	// Adapters
	mailer := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		AWS:         awsCfg,
	}, logger)
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		log.Fatalf("Failed to parse email templates: %v", err)
	}
	pushSender := push.NewSender(push.SenderConfig{Provider: cfg.PushProvider, AWS: awsCfg}, logger)
	fileStorage := storage.NewFileStorage(storage.Config{
		Provider: cfg.StorageProvider,
		Bucket:   cfg.StorageBucket,
		AWS:      awsCfg,
	}, logger)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	// Services
	emailService := services.NewEmailService(mailer, renderer, logger)
	notifications := services.NewNotificationService(pushTokenRepo, pushSender, userRepo, emailService, logger, cfg.ContextTimeout)
	balanceService := services.NewBalanceService(balanceRepo, cfg.ContextTimeout)
	eventService := services.NewEventService(eventRepo, invitationRepo, userRepo, balanceService, notifications,
		auditWorker, services.NewTokenGenerator(), cfg.Policy.Invitations, logger, cfg.ContextTimeout)
	invitationService := services.NewInvitationService(invitationRepo, eventRepo, userRepo, notifications, auditWorker, logger, cfg.ContextTimeout)
	attachmentValidator := services.NewAttachmentValidator(eventRepo, fileStorage, auditWorker, cfg.Policy.Attachments, logger, cfg.ContextTimeout)

	router := httpdelivery.NewRouter(httpdelivery.RouterConfig{
		Events:         controllers.NewEventController(logger, eventService),
		Invitations:    controllers.NewInvitationController(logger, invitationService),
		Balances:       controllers.NewBalanceController(logger, balanceService),
		PushTokens:     controllers.NewPushTokenController(logger, notifications),
		StorageHook:    controllers.NewStorageHookController(logger, attachmentValidator),
		Verifier:       verifier,
		HookSecret:     cfg.HookSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/itbasis/go-clock"
	_ "github.com/lib/pq"

	"github.com/Dosada05/pyramid-ladder/config"
	"github.com/Dosada05/pyramid-ladder/db"
	"github.com/Dosada05/pyramid-ladder/handlers"
	"github.com/Dosada05/pyramid-ladder/notify"
	"github.com/Dosada05/pyramid-ladder/realtime"
	"github.com/Dosada05/pyramid-ladder/repositories"
	api "github.com/Dosada05/pyramid-ladder/routes"
	"github.com/Dosada05/pyramid-ladder/services"
	"github.com/Dosada05/pyramid-ladder/storage"
)

// @title Pyramid Ladder API
// @version 1.0
// @description Pirámide de retos por parejas: posiciones, retos, resultados y notificaciones.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("timezone", cfg.Location.String()))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	// Хранилище доказательств (Cloudflare R2), необязательно
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 is not configured, evidence uploads are disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	tx := repositories.NewTransactor(dbConn, logger)
	pyramidRepo := repositories.NewPostgresPyramidRepository(dbConn)
	positionRepo := repositories.NewPostgresPositionRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	historyRepo := repositories.NewPostgresHistoryRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	logger.Info("Repositories initialized")

	// Уведомления: входящие, WebSocket и почта
	sinks := []notify.Notifier{notify.NewInboxSink(notificationRepo), notify.NewLiveSink(wsHub)}
	if cfg.SMTPEnabled() {
		sinks = append(sinks, notify.NewEmailSink(notify.NewSMTPMailer(cfg, logger), cfg.PublicURL))
		logger.Info("SMTP mailer initialized", slog.String("host", cfg.SMTPHost))
	} else {
		logger.Warn("SMTP is not configured, email notifications are disabled")
	}
	fanout := notify.NewFanout(sinks...)
	asyncNotifier := notify.NewAsync(fanout, cfg.NotifyWorkers, 256, logger)

	// Инициализация сервисов
	clk := clock.New()
	pyramidService := services.NewPyramidService(tx, pyramidRepo, positionRepo, teamRepo, matchRepo, historyRepo, logger)
	eligibilityService := services.NewEligibilityService(teamRepo, logger)
	positionService := services.NewPositionService(tx, pyramidRepo, positionRepo, teamRepo, matchRepo, historyRepo,
		asyncNotifier, clk, logger)
	matchService := services.NewMatchService(tx, pyramidRepo, positionRepo, teamRepo, matchRepo, historyRepo,
		uploader, asyncNotifier, clk, cfg.Location, logger)
	// Sweep delivers synchronously so its report can tally sent and failed emails.
	sweepService := services.NewSweepService(tx, pyramidRepo, positionRepo, teamRepo, matchRepo,
		fanout, clk, cfg.Location, logger)
	teamService := services.NewTeamService(tx, teamRepo, positionRepo, historyRepo, clk, logger)
	notificationService := services.NewNotificationService(notificationRepo, clk)
	logger.Info("Services initialized")

	// Планировщик проверки неактивных команд
	if cfg.RiskySweepInterval > 0 {
		go runSweepScheduler(ctx, sweepService, cfg.RiskySweepInterval, logger)
	} else {
		logger.Info("Risky sweep scheduler disabled")
	}

	// Инициализация обработчиков HTTP
	pyramidHandler := handlers.NewPyramidHandler(pyramidService, eligibilityService, sweepService)
	matchHandler := handlers.NewMatchHandler(matchService)
	positionHandler := handlers.NewPositionHandler(positionService)
	teamHandler := handlers.NewTeamHandler(teamService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, pyramidService, cfg.CORSOrigins, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		cfg.CORSOrigins,
		dbConn.PingContext,
		pyramidHandler,
		matchHandler,
		positionHandler,
		teamHandler,
		notificationHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
			asyncNotifier.Close()
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}

	// Останавливаем планировщик и хаб, затем дожидаемся отправки уведомлений
	stop()
	asyncNotifier.Close()
	logger.Info("application exited")
}

func runSweepScheduler(ctx context.Context, sweepService services.SweepService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("Risky sweep scheduler started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Risky sweep scheduler stopped")
			return
		case <-ticker.C:
			reports, err := sweepService.SweepActivePyramids(ctx)
			if err != nil {
				logger.Error("Scheduler: risky sweep failed", slog.Any("error", err))
				continue
			}
			marked := 0
			for _, r := range reports {
				marked += r.TeamsMarked
			}
			logger.Info("Scheduler: risky sweep finished", slog.Int("pyramids", len(reports)), slog.Int("teams_marked", marked))
		}
	}
}

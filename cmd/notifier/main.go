package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course_expiry_notifier/internal/app"
	"course_expiry_notifier/internal/infra/config"
	idb "course_expiry_notifier/internal/infra/database"
	"course_expiry_notifier/internal/infra/email"
	"course_expiry_notifier/internal/infra/httpapi"
	"course_expiry_notifier/internal/infra/lock"
	"course_expiry_notifier/internal/infra/logger"
	"course_expiry_notifier/internal/infra/scheduler"
	"course_expiry_notifier/internal/infra/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Course Expiration Notifier starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"timezone":    cfg.Location.String(),
		"cron_spec":   cfg.CronSpecExpiryCheck,
		"dry_run":     cfg.EmailDryRun,
	}).Info("Configuration loaded.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.Connect(ctx, cfg.DatabaseURL, idb.DefaultPool)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	if err := idb.EnsureSchema(ctx, db); err != nil {
		mainLogger.WithError(err).Fatal("Could not apply database schema")
	}
	mainLogger.Info("Database connection established successfully.")

	// Initialize Repositories
	courseDir := idb.NewPostgresCourseDirectory(db)
	notificationRepo := idb.NewPostgresNotificationRepository(db)
	settingsRepo := idb.NewPostgresSettingsRepository(db)

	channels := app.ChannelFactory(email.Factory(logger.Component("email")))
	if cfg.EmailDryRun {
		channels = email.NoopFactory(logger.Component("email"))
		mainLogger.Warn("EMAIL_DRY_RUN is set, notifications are logged instead of sent.")
	}

	// Initialize services
	scanner := app.NewExpirationScanner(courseDir, logger.Component("scanner"))
	dispatcher := app.NewDispatcher(notificationRepo, cfg.DispatchConcurrency, cfg.DispatchRatePerSecond, logger.Component("dispatcher"))
	expirationService := app.NewExpirationService(settingsRepo, scanner, dispatcher, channels, logger.Component("expiration"))
	settingsService := app.NewSettingsService(settingsRepo, notificationRepo, channels, logger.Component("settings"))
	logService := app.NewLogService(notificationRepo)

	// Initialize NotificationScheduler
	notifScheduler := scheduler.NewNotificationScheduler(
		expirationService,
		logger.Component("scheduler"),
		cfg.CronSpecExpiryCheck,
		cfg.Location,
		cfg.RunTimeout,
	)

	if cfg.RedisURL != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to Redis")
		}
		defer rdb.Close()
		notifScheduler.WithLocker(lock.NewRedisLocker(rdb, cfg.RunLockTTL))
		mainLogger.Info("Redis run lock enabled.")
	}

	// Initialize Telegram Bot
	var bot *telebot.Bot
	if cfg.TelegramEnabled() {
		botLogger := logger.Component("telegram")
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) { // Global error handler
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil && c.Chat() != nil {
					entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
				}
				entry.Error("telebot error")
			},
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		notifScheduler.WithAlerter(telegram.NewRunAlerter(telegram.NewBotNotifier(bot), cfg.AdminTelegramID, botLogger))
		telegram.RegisterAdminHandlers(ctx, bot, logService, notifScheduler, cfg.AdminTelegramID, botLogger)
		mainLogger.Info("Admin command handlers registered.")
	}

	if err := notifScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start scheduler")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := httpapi.NewHandler(logService, settingsService, notifScheduler, db, logger.Component("http"))
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, cfg.AdminAPIToken, logger.Component("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("Admin API listening.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Error("Admin API stopped unexpectedly")
			stop()
		}
	}()

	if bot != nil {
		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
	}

	mainLogger.Info("Application setup complete.")
	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("Admin API shutdown incomplete")
	}
	if bot != nil {
		bot.Stop()
	}
	notifScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
}

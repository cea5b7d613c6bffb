package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/delordemm1/account-guard/internal/cache"
	"github.com/delordemm1/account-guard/internal/config"
	"github.com/delordemm1/account-guard/internal/credential"
	"github.com/delordemm1/account-guard/internal/database"
	"github.com/delordemm1/account-guard/internal/modules/user"
	"github.com/delordemm1/account-guard/internal/notification"
	"github.com/delordemm1/account-guard/internal/notification/templates"
	"github.com/delordemm1/account-guard/internal/security"
	"github.com/delordemm1/account-guard/internal/server"
	"github.com/delordemm1/account-guard/internal/session"
)

// Options for the CLI.
type Options struct {
	Port int `help:"Port to listen on (overrides SERVER_PORT)" short:"p"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		cfg := config.Load()

		// Use a structured logger
		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.Server.LogLevel)); err != nil {
			level = slog.LevelInfo
		}
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		logger.Info("configuration loaded successfully", "env", cfg.Server.Env)

		// --- Database & Cache ---
		dbPool := database.NewPostgresPool(cfg.Database.URL)
		logger.Info("successfully connected to postgres database")

		redisClient, err := cache.NewRedisClient(context.Background(), cfg.Redis.URL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		logger.Info("successfully connected to redis")
		locker := cache.NewRedisLocker(redisClient, "account-guard:lease")

		// --- Notifications ---
		engine := templates.NewEngine(templates.Config{Dir: cfg.Templates.Dir, Reload: cfg.Templates.Reload}, logger)
		if err := engine.Preload(templates.All...); err != nil {
			logger.Error("failed to load notification templates", "error", err)
			os.Exit(1)
		}
		emailSender, err := newEmailSender(cfg, logger)
		if err != nil {
			logger.Error("failed to configure email delivery", "error", err)
			os.Exit(1)
		}
		smsSender := notification.NewLogSMSSender(logger, cfg.Server.Env != "production")
		notifier := notification.NewService(logger, engine, emailSender, smsSender)

		// --- Credentials ---
		issuer, err := newIssuer(cfg, dbPool)
		if err != nil {
			logger.Error("failed to configure credentials", "error", err)
			os.Exit(1)
		}

		// --- Module Initialization (Bottom-Up) ---

		// User Module
		policy := user.PolicyFromConfig(cfg.Security)
		userRepo := user.NewRepository(dbPool)
		userService := user.NewService(&user.Config{
			Repo:     userRepo,
			Logger:   logger,
			Config:   cfg,
			Policy:   policy,
			Notifier: notifier,
			Locker:   locker,
			Issuer:   issuer,
			Hasher:   security.NewBcryptHasher(cfg.Security.Login.BcryptCost),
		})

		jobCtx, stopJobs := context.WithCancel(context.Background())
		cleanup := user.NewCleanupJob(userRepo, logger, security.SystemClock{}, policy)

		port := options.Port
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           server.New(cfg, logger, userService, issuer),
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			go cleanup.Run(jobCtx)

			logger.Info("starting server", "port", port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server failed to start", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("server shutdown failed", "error", err)
			}
			stopJobs()
			if err := userService.Drain(ctx); err != nil {
				logger.Warn("otp dispatches still running at shutdown", "error", err)
			}
			if err := notifier.Drain(ctx); err != nil {
				logger.Warn("notifications still running at shutdown", "error", err)
			}
			_ = redisClient.Close()
			dbPool.Close()
			logger.Info("server stopped")
		})
	})
	cli.Run()
}

func newEmailSender(cfg *config.Config, logger *slog.Logger) (notification.EmailSender, error) {
	switch cfg.Mail.Provider {
	case "ses":
		return notification.NewSESEmailSender(context.Background(), cfg.SES.Region, cfg.Mail.From, logger)
	case "", "smtp":
		return notification.NewSMTPEmailSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.Mail.From, logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Mail.Provider)
	}
}

func newIssuer(cfg *config.Config, db database.DBTX) (credential.Issuer, error) {
	switch cfg.Auth.CredentialMode {
	case "session":
		return session.NewPostgresProvider(db, session.Config{
			SlidingTTL:  cfg.Auth.SessionSlidingTTL,
			AbsoluteTTL: cfg.Auth.SessionAbsoluteTTL,
		}), nil
	case "", "jwt":
		return credential.NewJWTIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	default:
		return nil, fmt.Errorf("unknown credential mode %q", cfg.Auth.CredentialMode)
	}
}

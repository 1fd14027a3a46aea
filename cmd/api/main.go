package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/shoplite/shoplite-api/internal/http/handlers"
	httpmw "github.com/shoplite/shoplite-api/internal/http/middleware"
	"github.com/shoplite/shoplite-api/internal/notify"
	"github.com/shoplite/shoplite-api/internal/platform/mailer"
	"github.com/shoplite/shoplite-api/internal/repo/postgres"
	"github.com/shoplite/shoplite-api/internal/service"
	"github.com/shoplite/shoplite-api/pkg/config"
	"github.com/shoplite/shoplite-api/pkg/database"
	"github.com/shoplite/shoplite-api/pkg/events"
	"github.com/shoplite/shoplite-api/pkg/logger"
	"github.com/shoplite/shoplite-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("invalid redis url", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	bus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	mailSvc := selectMailer(cfg)

	usersRepo := postgres.NewUsersRepo(pool)
	otpRepo := postgres.NewOTPRepo(pool)
	productsRepo := postgres.NewProductsRepo(pool)
	ordersRepo := postgres.NewOrdersRepo(pool)

	authSvc := service.NewAuthService(usersRepo, otpRepo, bus, cfg)
	orderSvc := service.NewOrderService(ordersRepo, usersRepo, bus, cfg)
	productSvc := service.NewProductService(productsRepo)

	h := handlers.New(authSvc, orderSvc, productSvc, cfg)
	otpLimiter := httpmw.RateLimit(rdb, cfg.RateLimit)

	router := middleware.RequestID(
		middleware.Logging(
			middleware.CORS(
				middleware.Health(h.Routes(otpLimiter)))))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	worker := notify.NewWorker(bus, mailSvc, cfg.Notify, cfg.Auth.OTPTTL)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return purgeExpiredOTPs(gctx, otpRepo)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func selectMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass)
	}
}

func purgeExpiredOTPs(ctx context.Context, otps postgres.OTPRepo) error {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := otps.DeleteExpired(ctx)
			if err != nil {
				logger.Error("failed to purge expired OTPs", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired OTPs", "count", n)
			}
		}
	}
}

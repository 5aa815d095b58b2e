package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/example/transfer-booking/internal/auth"
	"github.com/example/transfer-booking/internal/booking"
	"github.com/example/transfer-booking/internal/cache"
	"github.com/example/transfer-booking/internal/config"
	"github.com/example/transfer-booking/internal/dispatch"
	"github.com/example/transfer-booking/internal/eta"
	"github.com/example/transfer-booking/internal/events"
	httpapi "github.com/example/transfer-booking/internal/http"
	"github.com/example/transfer-booking/internal/logging"
	"github.com/example/transfer-booking/internal/loyalty"
	"github.com/example/transfer-booking/internal/matcher"
	"github.com/example/transfer-booking/internal/payments"
	"github.com/example/transfer-booking/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger("transfer-api", cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.ServerConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("store ready", "driver", cfg.StoreDriver)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("JWT_SECRET not set; using an ephemeral secret, sessions end on restart")
	}
	authSvc := &auth.Service{Users: store, Tokens: auth.NewTokens(secret, cfg.JWTTTL), Logger: logger}
	if cfg.BootstrapEmail != "" {
		u, err := authSvc.Bootstrap(ctx, cfg.BootstrapEmail, cfg.BootstrapPassword)
		if err != nil {
			return err
		}
		logger.Info("superadmin ready", "user_id", u.ID, "email", u.Email)
	}

	hub := dispatch.NewHub(logger)

	var (
		notifier matcher.Notifier = hub
		emitter  booking.EventEmitter
	)
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		emitter = kp
		// Notices only round-trip through Kafka when the Redis relay can
		// bring them back to the sockets.
		if cfg.RedisAddr != "" {
			notifier = kp
		}
		logger.Info("kafka events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var respCache *cache.Cache
	if cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rc.Close()
		respCache = &cache.Cache{
			Backend: cache.NewRedisBackend(rc),
			TTL:     cfg.CacheTTL,
			Related: map[string][]string{"/api/locations": {"/api/featured-destinations"}},
			Logger:  logger,
		}
		relay := dispatch.NewRedisRelay(rc, hub, logger)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("redis relay stopped", "err", err)
			}
		}()
		logger.Info("redis cache and relay enabled", "addr", cfg.RedisAddr)
	}

	var gateway payments.Gateway
	if cfg.StripeAPIKey != "" {
		gateway = payments.NewStripeGateway(cfg.StripeAPIKey, cfg.PaymentCurrency)
	} else {
		logger.Warn("STRIPE_API_KEY not set; using the fake payment gateway")
		gateway = &payments.FakeGateway{}
	}

	estimator := &eta.Estimator{Cache: eta.NewCache(cfg.CacheTTL), SpeedKmh: cfg.DefaultSpeedKmh}
	if cfg.OSRMEndpoint != "" {
		estimator.Client = eta.NewOSRMClient(cfg.OSRMEndpoint)
	}

	writer := booking.NewWriter(store)
	srv := httpapi.NewServer(httpapi.Deps{
		Store:   store,
		Matcher: &matcher.Service{Catalog: store, Notifier: notifier, Logger: logger},
		Writer:  writer,
		Checkout: &booking.Checkout{
			Writer:   writer,
			Gateway:  gateway,
			Currency: cfg.PaymentCurrency,
			Notifier: notifier,
			Events:   emitter,
			Logger:   logger,
		},
		Auth:        authSvc,
		Loyalty:     &loyalty.Service{Users: store},
		Estimator:   estimator,
		Hub:         hub,
		Cache:       respCache,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("transfer api listening", "addr", cfg.HTTPAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

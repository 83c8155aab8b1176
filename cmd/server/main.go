package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"user-auth-service/internal/auth/service"
	"user-auth-service/internal/config"
	"user-auth-service/internal/db"
	"user-auth-service/internal/notification/producer"
	otprepo "user-auth-service/internal/otp/repository"
	"user-auth-service/internal/security"
	"user-auth-service/internal/server"
	"user-auth-service/internal/server/handler"
	"user-auth-service/internal/server/middleware"
	"user-auth-service/internal/session/janitor"
	sessionrepo "user-auth-service/internal/session/repository"
	"user-auth-service/internal/session/validator"
	"user-auth-service/internal/telemetry/otel"
	userrepo "user-auth-service/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		log.Fatal("JWT_SECRET and JWT_REFRESH_SECRET are required")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "user-auth-service", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	users := userrepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	otps := otprepo.NewPostgresRepository(database)

	codec := security.NewTokenCodec(
		[]byte(cfg.JWTSecret),
		[]byte(cfg.JWTRefreshSecret),
		cfg.JWTIssuer,
		cfg.AccessTTL(),
		cfg.RefreshTTL(),
	)
	hasher := security.NewHasher(cfg.BcryptCost)

	// In cache mode the Redis whitelist answers the per-request liveness
	// check, with the sessions table as fallback and source of truth.
	var sessionValidator validator.Validator = validator.NewStoreValidator(sessions)
	var whitelist validator.Whitelist
	if cfg.SessionValidationMode == config.ValidationModeCache {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		whitelist = validator.NewRedisWhitelist(redisClient)
		sessionValidator = validator.NewCacheValidator(whitelist, sessions)
		log.Printf("session validation: cache (redis %s)", cfg.RedisAddr)
	} else {
		log.Print("session validation: store")
	}

	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.NotificationKafkaTopic)
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		log.Printf("notifications: kafka topic %s", cfg.NotificationKafkaTopic)
	} else {
		log.Print("notifications: disabled (KAFKA_BROKERS not set)")
	}

	authService := service.NewAuthService(users, sessions, otps, hasher, codec, kafkaProducer, whitelist)

	go janitor.New(sessions, cfg.SweepInterval()).Run(ctx)

	authHandler := handler.NewAuthHandler(authService)
	authMiddleware := &middleware.Auth{Codec: codec, Validator: sessionValidator}
	router := server.NewRouter(authHandler, authMiddleware)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

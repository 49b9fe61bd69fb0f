package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ylayali/personalisedcolpage/internal/config"
	"github.com/ylayali/personalisedcolpage/internal/domain/account"
	"github.com/ylayali/personalisedcolpage/internal/domain/billing"
	"github.com/ylayali/personalisedcolpage/internal/domain/credit"
	"github.com/ylayali/personalisedcolpage/internal/domain/generation"
	"github.com/ylayali/personalisedcolpage/internal/middleware"
	"github.com/ylayali/personalisedcolpage/internal/pkg/database"
	"github.com/ylayali/personalisedcolpage/internal/pkg/imagegen"
	"github.com/ylayali/personalisedcolpage/internal/pkg/imaging"
	"github.com/ylayali/personalisedcolpage/internal/pkg/jwt"
	pkgresponse "github.com/ylayali/personalisedcolpage/internal/pkg/response"
	"github.com/ylayali/personalisedcolpage/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting coloring page API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	store, err := storage.New(storage.Config{
		Backend:      cfg.StorageBackend,
		LocalPath:    cfg.LocalStoragePath,
		LocalBaseURL: cfg.LocalStorageURL,
		S3Bucket:     cfg.S3Bucket,
		S3Region:     cfg.S3Region,
		S3AccessKey:  cfg.S3AccessKey,
		S3SecretKey:  cfg.S3SecretKey,
		S3Endpoint:   cfg.S3Endpoint,
		S3PublicURL:  cfg.S3PublicURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage backend")
	}

	// ---------- Repositories ----------
	accountRepo := account.NewRepository(db)
	transactionRepo := billing.NewRepository(db)
	generationRepo := generation.NewRepository(db)

	// ---------- Services ----------
	creditService := credit.NewService(db)
	reconciler := billing.NewReconciler(billing.NewStores(db), billing.Config{
		CreditsPerPurchase: cfg.CreditsPerPurchase,
	})
	imageProvider := imagegen.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIImageModel)
	processor := imaging.NewProcessor(imaging.DefaultConfig())
	generationService := generation.NewService(
		creditService,
		accountRepo,
		generationRepo,
		imageProvider,
		processor,
		store,
		cfg.SignupCredits,
	)

	// ---------- Handlers ----------
	accountHandler := account.NewHandler(accountRepo, cfg.SignupCredits)
	creditHandler := credit.NewHandler(creditService)
	billingHandler := billing.NewHandler(reconciler, transactionRepo, cfg.CheckoutWebhookSecret)
	generationHandler := generation.NewHandler(generationService)

	authMiddleware := middleware.Auth(jwtService)
	generationRateLimit := middleware.RateLimit(redis, cfg.GenerationRateLimit, cfg.GenerationRateWindow)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/account", accountHandler.Routes(authMiddleware))
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.Mount("/billing", billingHandler.Routes(authMiddleware))
		r.Mount("/generations", generationHandler.Routes(authMiddleware, generationRateLimit))
	})

	r.Mount("/webhooks", billingHandler.WebhookRoutes())

	if cfg.StorageBackend == "local" {
		fileServer := http.StripPrefix("/files/", http.FileServer(http.Dir(cfg.LocalStoragePath)))
		r.Get("/files/*", fileServer.ServeHTTP)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // generation calls wait on the provider
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}

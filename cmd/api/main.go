package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"al-kul/internal/config"
	"al-kul/internal/db"
	"al-kul/internal/domain"
	apihttp "al-kul/internal/http"
	"al-kul/internal/llm"
	"al-kul/internal/repository"
	"al-kul/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		if errors.Is(err, config.ErrMissingCredential) {
			logger.Fatal("refusing to start without completion credential", zap.Error(err))
		}
		logger.Fatal("load config", zap.Error(err))
	}

	var personaSource repository.PersonaRepository = repository.NewMemoryPersonaRepository(domain.SeedPersonas())
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()

		ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := db.Ping(ctxPing, pool); err != nil {
			cancel()
			logger.Fatal("db ping", zap.Error(err))
		}
		cancel()
		personaSource = repository.NewPgPersonaRepository(pool)
	}
	personaRepo, err := repository.LoadCatalog(ctx, personaSource, domain.SeedPersonas(), cfg.PersonaModel)
	if err != nil {
		logger.Fatal("load persona catalog", zap.Error(err))
	}
	if _, err := personaRepo.GetByID(ctx, cfg.Persona); err != nil {
		logger.Fatal("default persona not in catalog", zap.String("persona", cfg.Persona), zap.Error(err))
	}

	tokenStore := service.NewMemorySessionTokenStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory session tokens", zap.Error(err))
		} else {
			tokenStore = service.NewRedisSessionTokenStore(redisClient)
		}
		cancel()
	}
	tokenSvc := service.NewSessionTokenService(cfg.SessionSecret, cfg.SessionTTL(), tokenStore)
	if cfg.SessionSecret == "" {
		logger.Warn("session secret not configured, tokens will not survive a restart")
	}

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout, logger)
	chatSvc := service.NewChatService(logger, llmClient, personaRepo,
		service.WithDefaultPersona(cfg.Persona),
		service.WithCallTimeout(cfg.LLMTimeout),
		service.WithSessionTTL(cfg.SessionTTL()),
	)

	personaHandler := apihttp.NewPersonaHandler(logger, personaRepo)
	chatHandler := apihttp.NewChatHandler(logger, chatSvc, tokenSvc)
	router := apihttp.NewRouter(logger, tokenSvc, personaHandler, chatHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("persona", cfg.Persona),
		zap.Duration("llm_timeout", cfg.LLMTimeout),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

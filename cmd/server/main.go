package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"scanbrief/internal/app"
	"scanbrief/internal/config"
	"scanbrief/internal/ratelimit"
	"scanbrief/internal/server"
	"scanbrief/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxy cidrs: %v", err)
	}

	var authLimiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		authLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "scanbrief:ratelimit",
			cfg.AuthRateLimitPerMinute, time.Minute,
		)
	} else {
		authLimiter, err = ratelimit.NewMemoryFixedWindowLimiter(cfg.AuthRateLimitPerMinute, time.Minute)
	}
	if err != nil {
		log.Fatalf("failed to init rate limiter: %v", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:     cfg.DatabaseURL,
		RedisAddr:       cfg.RedisAddr,
		RedisPassword:   cfg.RedisPassword,
		SessionStrategy: cfg.SessionStrategy,
		SessionTTL:      time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		JWTSecret:       cfg.JWTSecret,
		OCREndpoint:     cfg.OCREndpoint,
		OCRAPIKey:       cfg.OCRAPIKey,
		LLMBaseURL:      cfg.LLMBaseURL,
		LLMAPIKey:       cfg.LLMAPIKey,
		LLMModel:        cfg.LLMModel,
		Workers:         cfg.Workers,
		CallTimeout:     time.Duration(cfg.CallTimeoutSeconds) * time.Second,
		HistoryLimit:    cfg.HistoryLimit,
		SMTPHost:        cfg.SMTPHost,
		SMTPPort:        cfg.SMTPPort,
		SMTPUsername:    cfg.SMTPUsername,
		SMTPPassword:    cfg.SMTPPassword,
		SMTPFrom:        cfg.SMTPFrom,
		MinioEndpoint:   cfg.MinioEndpoint,
		MinioAccessKey:  cfg.MinioAccessKey,
		MinioSecretKey:  cfg.MinioSecretKey,
		MinioBucket:     cfg.MinioBucket,
		MinioUseSSL:     cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer := server.New(server.Config{
		App:            appCore,
		AuthLimiter:    authLimiter,
		TrustedProxies: trustedProxies,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("scanbrief server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"readnest/internal/app"
	"readnest/internal/config"
	"readnest/internal/server"
	"readnest/internal/util"
	"readnest/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	sessions, err := newSessionStore(cfg, sessionTTL)
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL: cfg.DatabaseURL,
		Sessions:    sessions,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                        appCore,
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		SignupRateLimitPerMinute:   cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:    cfg.LoginRateLimitPerMinute,
		FeedbackRateLimitPerMinute: cfg.FeedbackRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server listening", "addr", addr, "session_backend", cfg.SessionBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newSessionStore(cfg config.FileConfig, ttl time.Duration) (store.SessionStore, error) {
	switch cfg.SessionBackend {
	case "jwt":
		leeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
		if err != nil {
			return nil, err
		}
		var revoker store.TokenRevoker = store.NewMemoryTokenRevoker()
		if cfg.RedisAddr != "" {
			revoker = store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
		}
		return store.NewJWTSessionStore(cfg.JWTSecret, ttl, revoker, store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   leeway,
		})
	default:
		return store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, ttl), nil
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	api "github.com/mind-engage/interviewbook/internal/api/http"
	"github.com/mind-engage/interviewbook/internal/app"
	auth "github.com/mind-engage/interviewbook/internal/auth/middleware"
	"github.com/mind-engage/interviewbook/internal/config"
	"github.com/mind-engage/interviewbook/internal/logging"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings() {
		logger.Warn("INSECURE CONFIGURATION: "+w, "mode", cfg.Mode, "addr", cfg.HTTPAddr)
	}

	// --- Storage + services ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	a, err := app.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.AuthCookieName)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.MetricsEnabled {
		r.Use(api.Metrics)
		r.Handle("/metrics", promhttp.Handler())
	}

	// Local login: admin via bcrypt hash, plain users by name in offline mode
	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, auth.LoginConfig{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
			DevUsers:      cfg.DevLogin(),
		}))
		r.Post("/auth/logout", auth.LogoutHandler(authSvc))
	}

	api.MountAPI(r, api.Deps{Auth: authSvc, Structure: a.Structure, Answers: a.Answers})

	ready := map[string]api.Pinger{"db": a.DB}
	if a.Redis != nil {
		ready["redis"] = api.PingerFunc(a.Redis.Ping)
	}
	r.Get("/healthz", api.HealthzHandler())
	r.Get("/readyz", api.ReadyzHandler(ready))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "mode", cfg.Mode, "db", a.Driver, "lock", cfg.LockDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

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

	"blogpost/config"
	"blogpost/guard"
	"blogpost/handler"
	"blogpost/logging"
	"blogpost/store"
	"blogpost/userdb"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Running credential database migrations...", zap.String("driver", cfg.Database.Driver))
	users, err := userdb.Open(ctx, cfg.Database.Driver, cfg.Database.URL, log)
	if err != nil {
		log.Fatal("opening credential database", zap.Error(err))
	}
	defer users.Close()
	if err := users.Seed(ctx, cfg.Admin); err != nil {
		log.Fatal("seeding admin users", zap.Error(err))
	}

	e, err := newServer(cfg, log, store.New(), users)
	if err != nil {
		log.Fatal("building server", zap.Error(err))
	}

	errc := make(chan error, 1)
	if cfg.Server.Address != "" {
		log.Info("listening", zap.String("address", cfg.Server.Address))
		go func() { errc <- e.Start(cfg.Server.Address) }()
	} else {
		// Cache certificates to avoid issues with rate limits (https://letsencrypt.org/docs/rate-limits)
		e.AutoTLSManager.Cache = autocert.DirCache(cfg.Server.CertCacheDir)
		if cfg.Server.WhitelistHost != "" {
			e.AutoTLSManager.HostPolicy = autocert.HostWhitelist(cfg.Server.WhitelistHost)
		}
		e.Pre(middleware.HTTPSRedirect())
		log.Info("listening with AutoTLS", zap.String("address", ":443"))
		go func() { errc <- e.StartAutoTLS(":443") }()
	}

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}
}

// newServer wires middleware, the access guard and the routing table.
func newServer(cfg config.Config, log *zap.Logger, posts handler.PostStore, users guard.Authenticator) (*echo.Echo, error) {
	renderer, err := handler.NewTemplateRegistry()
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	h := &handler.Handler{
		Posts:     posts,
		Users:     users,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = h.HTTPErrorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(logging.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))
	if cfg.CSRFEnabled {
		e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
			TokenLookup:    "header:X-XSRF-TOKEN,form:_csrf",
			CookieName:     "XSRF-TOKEN",
			CookiePath:     "/",
			CookieHTTPOnly: false,
		}))
	}
	e.Use(guard.TokenMiddleware(cfg.JWTSecret))
	e.Use(guard.New(guard.DefaultRules()...).Middleware(users, log))

	e.StaticFS("/static", handler.Assets())
	handler.Register(e, h.Routes())
	return e, nil
}

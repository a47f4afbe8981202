package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/app"
	"github.com/rpattn/movementcontrol/internal/auth"
	"github.com/rpattn/movementcontrol/internal/config"
	"github.com/rpattn/movementcontrol/internal/httpapi"
	"github.com/rpattn/movementcontrol/internal/metrics"
	"github.com/rpattn/movementcontrol/internal/movement"
	"github.com/rpattn/movementcontrol/internal/permission"
	"github.com/rpattn/movementcontrol/internal/report"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml and .env")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Source != "" {
		logger.Info("loaded config", zap.String("file", cfg.Source))
	} else {
		logger.Info("no config.yaml found, using defaults and environment")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("server exited")
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions, closeSessions, err := app.OpenSessions(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	grants, err := app.Grants(cfg)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}

	m := metrics.New()
	svc := movement.NewService(store, permission.NewGate(grants),
		movement.WithLogger(logger),
		movement.WithRecorder(m),
		movement.WithPageSize(cfg.App.PageSize),
	)
	authenticator := auth.NewAuthenticator(store.Users(), sessions, tokens, cfg.Auth.SessionTTL, logger)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.Deps{
		Service:       svc,
		Authenticator: authenticator,
		Users:         store.Users(),
		Renderer:      report.NewRenderer(cfg.Export.PDFFont),
		Metrics:       m,
		Health:        func(c *gin.Context) error { return store.Ping(c.Request.Context()) },
		Logger:        logger,
	}, httpapi.Options{
		CookieName:      cfg.Auth.CookieName,
		SecureCookie:    cfg.Auth.SecureCookie,
		Location:        cfg.App.Location,
		DefaultFacility: cfg.App.DefaultFacility,
		LoaderWait:      cfg.App.LoaderWait,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("database", cfg.Database.Driver),
			zap.String("sessions", cfg.Sessions.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

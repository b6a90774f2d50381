package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/wedplan/internal/auth"
	"github.com/mmynk/wedplan/internal/calculator"
	"github.com/mmynk/wedplan/internal/config"
	"github.com/mmynk/wedplan/internal/export"
	"github.com/mmynk/wedplan/internal/metrics"
	"github.com/mmynk/wedplan/internal/middleware"
	"github.com/mmynk/wedplan/internal/service"
	"github.com/mmynk/wedplan/internal/storage"
	"github.com/mmynk/wedplan/internal/storage/sqlite"
)

const readHeaderTimeout = 5 * time.Second

type ServeCmd struct{}

func (s *ServeCmd) Run(ctx *Context) error {
	conf := ctx.Config

	table, err := conf.PricingTable()
	if err != nil {
		slog.Error("Failed to load pricing table", "error", err)
		return err
	}

	store, err := sqlite.New(conf.DB.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", conf.DB.Path)

	var jwtManager *auth.JWTManager
	if conf.Auth.SecretKey != "" {
		jwtManager = auth.NewJWTManager(conf.Auth.SecretKey, conf.Auth.Audience, time.Hour)
	} else {
		slog.Warn("No auth secret configured, exports are anonymous")
	}

	handler := newHandler(conf, table, store, jwtManager, metrics.New())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Server.Port),
		ReadHeaderTimeout: readHeaderTimeout,
		Handler:           handler,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		slog.Info("Connect server starting", "address", server.Addr, "calculator", conf.ShareBaseURL())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server failed", "error", err)
		return err
	}
	return nil
}

// newHandler wires every route of the server.
func newHandler(conf *config.Config, table *calculator.Table, store storage.Store, jwtManager *auth.JWTManager, m *metrics.Metrics) http.Handler {
	renderer := export.NewRenderer(conf.Pricing.Currency)
	exporter := export.NewStoreExporter(store, renderer, conf.DownloadURL())
	svc := service.NewDrinksService(table, exporter, conf.ShareBaseURL(), m)

	mux := http.NewServeMux()

	path, rpc := service.NewDrinksServiceHandler(svc, jwtManager,
		connect.WithInterceptors(middleware.LoggingInterceptor()))
	mux.Handle(path, rpc)

	checker := grpchealth.NewStaticChecker(service.DrinksServiceName)
	mux.Handle(grpchealth.NewHandler(checker))

	mux.Handle("GET "+conf.Server.CalculatorPath, svc.PageHandler(renderer))
	mux.Handle("GET /exports/{id}", exporter.DownloadHandler())
	mux.Handle("GET /metrics", m.Handler())

	return h2c.NewHandler(configureCORS(conf.Server.AllowedOrigins, mux), &http2.Server{})
}

func configureCORS(origins []string, mux *http.ServeMux) http.Handler {
	corsOpts := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"accept",
			"accept-encoding",
			"authorization",
			"connect-accept-encoding",
			"connect-content-encoding",
			"connect-protocol-version",
			"connect-timeout-ms",
			"content-encoding",
			"content-type",
			"grpc-timeout",
			"origin",
			"user-agent",
			"x-grpc-web",
			"x-user-agent",
		},
		ExposedHeaders: []string{
			"connect-protocol-version",
			"content-disposition",
			"grpc-message",
			"grpc-status",
			"grpc-status-details-bin",
		},
		MaxAge: 86400, // 24 hours
	})

	return corsOpts.Handler(mux)
}

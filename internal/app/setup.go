// Package app wires the product service: store, event publisher, HTTP handler and server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/productstore/internal/config"
	"github.com/abgdnv/productstore/internal/service"
	"github.com/abgdnv/productstore/internal/store"
	"github.com/abgdnv/productstore/internal/transport/rest"
	"github.com/abgdnv/productstore/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/productstore/pkg/config"
	"github.com/abgdnv/productstore/pkg/messaging"
	"github.com/abgdnv/productstore/pkg/nats"
	"github.com/abgdnv/productstore/pkg/server"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "product-service"

type Dependencies struct {
	ProductService service.ProductService
	Logger         *slog.Logger
}

// CloseFunc releases a resource acquired during setup.
type CloseFunc func()

func SetupDependencies(productStore store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Dependencies {
	pService := service.NewService(productStore, publisher, logger)

	return &Dependencies{
		ProductService: pService,
		Logger:         logger,
	}
}

// SetupStore builds the product store selected by cfg.Storage.Driver.
// For postgres it applies migrations when enabled and returns a CloseFunc releasing the pool.
func SetupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.ProductStore, CloseFunc, error) {
	switch cfg.Storage.Driver {
	case pkgconfig.StorageDriverPostgres:
		if cfg.Database.Migrate {
			if err := store.Migrate(cfg.Database.URL); err != nil {
				return nil, nil, err
			}
			logger.Info("Database migrations applied")
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Successfully connected to the database!")
		return store.NewPgStore(dbPool), dbPool.Close, nil
	default:
		fileStore, err := store.NewFileStore(cfg.Storage.File.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open product file store: %w", err)
		}
		logger.Info("Using JSON file store", slog.String("path", cfg.Storage.File.Path))
		return fileStore, func() {}, nil
	}
}

// SetupPublisher connects to NATS JetStream when enabled, otherwise events are dropped.
func SetupPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (messaging.Publisher, CloseFunc, error) {
	if !cfg.NATS.Enabled {
		logger.Info("NATS disabled, product events will not be published")
		return messaging.NoopPublisher{}, func() {}, nil
	}
	nc, err := nats.NewClient(cfg.NATS.Url, cfg.NATS.Timeout)
	if err != nil {
		return nil, nil, err
	}
	js, err := nats.NewJetStreamContext(nc)
	if err != nil {
		return nil, nil, err
	}
	subjects := []string{messaging.ProductsCreatedSubject, messaging.ProductsUpdatedSubject, messaging.ProductsDeletedSubject}
	if err := nats.EnsureStream(ctx, js, cfg.NATS.Stream, subjects); err != nil {
		nc.Close()
		return nil, nil, err
	}
	logger.Info("Connected to NATS", slog.String("url", cfg.NATS.Url), slog.String("stream", cfg.NATS.Stream))
	return nats.NewNatsPublisher(js), func() { _ = nc.Drain() }, nil
}

// SetupHttpHandler initializes the router and routes for the product service.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the product service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger)
	productHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the product service.
// The handler is traced with otelhttp when telemetry is enabled.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	handler := SetupHttpHandler(deps)
	if cfg.Telemetry.Enabled {
		handler = otelhttp.NewHandler(handler, serviceName)
	}

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, handler)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/diwise/document-gateway/internal/pkg/application/gateway"
	"github.com/diwise/document-gateway/internal/pkg/infrastructure/database"
	"github.com/diwise/document-gateway/internal/pkg/infrastructure/metrics"
	"github.com/diwise/document-gateway/internal/pkg/infrastructure/router"
	"github.com/diwise/document-gateway/internal/pkg/presentation/api/rest"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const serviceName string = "document-gateway"

func main() {
	serviceVersion := buildinfo.SourceVersion()

	flags, err := parseExternalConfig(DefaultFlags(context.Background()), os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, logger, cleanup := o11y.Init(context.Background(), serviceName, serviceVersion, flags[logFormat])
	defer cleanup()

	cfg, err := newAppConfig(ctx, flags)
	if err != nil {
		logger.Error("failed to load configuration", "err", err.Error())
		os.Exit(1)
	}

	db, err := database.New(ctx, cfg.store, logger)
	if err != nil {
		logger.Error("failed to connect to document store", "err", err.Error())
		os.Exit(1)
	}

	srv, err := initialize(ctx, flags, cfg, db)
	if err != nil {
		logger.Error("failed to initialize service", "err", err.Error())
		db.Close(ctx)
		os.Exit(1)
	}

	err = run(ctx, srv, db)
	if err != nil {
		logger.Error("service terminated", "err", err.Error())
		os.Exit(1)
	}
}

func newAppConfig(ctx context.Context, flags FlagMap) (*AppConfig, error) {
	cfg := &AppConfig{
		store:          newStoreConfig(ctx, flags),
		allowedOrigins: splitOrigins(flags[allowedOrigins]),
	}

	cfg.normalizeErrors, _ = strconv.ParseBool(flags[normalizeErrors])

	if path := flags[resourcesConfigPath]; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open resources config: %w", err)
		}
		cfg.resourcesConfig = f
	}

	return cfg, nil
}

// initialize binds the configured resources to the store and returns a server
// that is ready to be started
func initialize(ctx context.Context, flags FlagMap, cfg *AppConfig, db database.Database) (*http.Server, error) {
	logger := logging.GetFromContext(ctx)

	gwConfig := gateway.DefaultConfiguration()

	if cfg.resourcesConfig != nil {
		defer cfg.resourcesConfig.Close()

		var err error
		gwConfig, err = gateway.LoadConfiguration(cfg.resourcesConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load resources config: %w", err)
		}
	}

	if cfg.normalizeErrors {
		gwConfig.NormalizeErrors = true
	}

	app, err := gateway.New(ctx, db, gwConfig)
	if err != nil {
		return nil, err
	}

	r := router.New(serviceName, cfg.allowedOrigins)
	rest.RegisterHandlers(ctx, r, app, metrics.NewServerMetrics())

	for _, res := range app.Resources() {
		logger.Debug("serving resource", "resource", res.Name())
	}

	return &http.Server{
		Addr:              net.JoinHostPort(flags[listenAddress], flags[servicePort]),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}, nil
}

// run serves requests until the process is signalled to stop, then drains
// in flight requests before the store connection is closed
func run(ctx context.Context, srv *http.Server, db database.Database) error {
	logger := logging.GetFromContext(ctx)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)

	go func() {
		logger.Info("starting to listen for connections", "addr", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	var err error

	select {
	case err = <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err = srv.Shutdown(shutdownCtx)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cerr := db.Close(closeCtx); cerr != nil {
		logger.Warn("failed to close document store", "err", cerr.Error())
	}

	return err
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crashgate/internal/config"
	"crashgate/internal/handlers"
	"crashgate/internal/logger"
	"crashgate/internal/repository"
	"crashgate/internal/repository/db"
	"crashgate/internal/sentry"
	"crashgate/internal/server"
	"crashgate/internal/service"
	"crashgate/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// load config: defaults < configs/config.yml < CRASHGATE_* env < flags
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.New(logger.InfoLevel, logger.ConsoleFormat).Fatalw("error reading config", "err", err)
	}

	// init logger
	base := logger.New(cfg.Log.Level, cfg.Log.Format)
	log := base

	// open DB
	sqlDB, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// capture pipeline; the application logger feeds it, its own diagnostics do not
	deps := service.Deps{Auth: service.AuthConfig{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL}}
	fwd := newForwarder(cfg.Telemetry, base, reg)
	if fwd != nil {
		deps.Forwarder = fwd
		deps.Sink = fwd.Classifier()
		log = base.Tee(telemetry.NewCore(fwd, logger.ToZapLevel(cfg.Telemetry.BreadcrumbLevel)))
	}

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, deps)
	apiHandler := handlers.NewHandler(services, log.Named("api"), reg)

	bootstrap(services, cfg.Auth, log.Named("bootstrap"))

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Server.Port, apiHandler, log.Named("http"))

	// graceful shutdown
	waitForShutdown(srv, fwd, log)
}

// openDB initializes the SQLite database at path.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "crashgate.db")
		path = "crashgate.db"
	}
	return db.InitDB(path)
}

// newForwarder returns nil when telemetry is disabled or no DSN is configured.
func newForwarder(tc config.TelemetryConfig, base *logger.Logger, reg prometheus.Registerer) *telemetry.Forwarder {
	if !tc.Enabled || tc.DSN == "" {
		base.Infow("telemetry_disabled", "enabled", tc.Enabled, "dsn_set", tc.DSN != "")
		return nil
	}

	client, err := sentry.New(sentry.Options{
		DSN:            tc.DSN,
		Timeout:        tc.Timeout,
		Compress:       tc.Compress,
		MaxBreadcrumbs: tc.MaxBreadcrumbs,
	})
	if err != nil {
		base.Errorw("telemetry_dsn_invalid", "err", err)
		return nil
	}

	return telemetry.New(telemetry.Config{
		Classifier: telemetry.ClassifierConfig{
			SuppressNoise:      tc.SuppressNoise,
			DeniedStorageCodes: tc.DeniedStorageCodes,
			DeniedTypes:        tc.DeniedTypes,
			DeniedMessages:     tc.DeniedMessages,
		},
		Gate: telemetry.GateConfig{
			Window:     tc.DebounceWindow,
			MaxEntries: tc.MaxDebounceEntries,
		},
		Enricher: telemetry.EnricherConfig{
			Branch:            tc.Branch,
			Version:           tc.Version,
			Culture:           tc.Culture,
			OSNameEnv:         tc.OSNameEnv,
			OSVersionEnv:      tc.OSVersionEnv,
			RuntimeVersionEnv: tc.RuntimeVersionEnv,
		},
		Release:     tc.Release,
		Environment: tc.Environment,
	}, client,
		telemetry.WithLogger(base.Named(telemetry.DiagnosticLogger)),
		telemetry.WithRegisterer(reg),
	)
}

// bootstrap creates the configured operator and pushes stored exclusions into the classifier.
func bootstrap(services *service.Service, ac config.AuthConfig, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if _, err := services.Authorization.EnsureOperator(ctx, ac.Username, ac.Password); err != nil {
		if errors.Is(err, service.ErrEmptyPassword) {
			log.Warnw("operator_not_created", "username", ac.Username, "reason", "auth.password is empty")
		} else {
			log.Fatalw("failed to bootstrap operator", "username", ac.Username, "err", err)
		}
	}

	if err := services.Exclusions.Load(ctx); err != nil {
		log.Fatalw("failed to load exclusions", "err", err)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		log.Infow("http_server_starting", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, fwd *telemetry.Forwarder, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	if fwd != nil {
		_ = fwd.Shutdown()
	}
	_ = log.Sync()
}

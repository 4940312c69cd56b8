package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"civicdesk/internal/api"
	"civicdesk/internal/audit"
	"civicdesk/internal/blob"
	"civicdesk/internal/browser"
	"civicdesk/internal/config"
	"civicdesk/internal/entities"
	"civicdesk/internal/export"
	"civicdesk/internal/logging"
	"civicdesk/internal/observability"
	"civicdesk/internal/query"
	"civicdesk/pkg/session"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath  string
	verbose     bool
	apiURL      string
	user        string
	metricsAddr string
}

// app holds the components one command invocation works with.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	recorder observability.Recorder
	client   *api.Client
	pool     *query.Pool
	store    blob.Store
	trail    audit.Logger
	worker   *export.Worker
	metrics  *http.Server
}

// loadConfig reads the configuration and lets explicit flags win over file and
// environment.
func loadConfig(g globalFlags) (*config.Config, error) {
	path := g.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if g.apiURL != "" {
		cfg.API.URL = g.apiURL
	}
	if g.user != "" {
		cfg.User = g.user
	}
	if g.metricsAddr != "" {
		cfg.Metrics.Addr = g.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp wires the components described by cfg. confirm gates exports.
func newApp(ctx context.Context, g globalFlags, confirm export.Confirmer) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON, Verbose: g.verbose})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{cfg: cfg, log: log, recorder: observability.Nop{}}

	if cfg.Metrics.Addr != "" {
		if err := a.serveMetrics(cfg.Metrics.Addr); err != nil {
			return nil, err
		}
	}

	a.client, err = api.New(cfg.API.URL,
		api.WithTimeout(cfg.APITimeout()),
		api.WithLogger(log.Named("api")),
		api.WithRecorder(a.recorder),
	)
	if err != nil {
		return nil, err
	}
	a.pool = query.NewPool(
		query.WithInterval(cfg.RefreshInterval()),
		query.WithLogger(log.Named("query")),
		query.WithRecorder(a.recorder),
	)

	a.store, err = blob.Open(ctx, cfg.Export)
	if err != nil {
		return nil, fmt.Errorf("open export destination: %w", err)
	}
	a.trail, err = audit.Open(ctx, cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("open audit trail: %w", err)
	}
	a.worker = export.NewWorker(a.store,
		export.WithConfirmer(confirm),
		export.WithAudit(a.trail),
		export.WithLogger(log.Named("export")),
		export.WithRecorder(a.recorder),
	)
	a.worker.Start()
	log.Debug("client ready",
		zap.String("api", cfg.API.URL),
		zap.String("export_driver", string(cfg.Export.Driver)),
		zap.String("audit_driver", cfg.Audit.Driver))
	return a, nil
}

func (a *app) serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec, err := observability.NewPrometheus(reg)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	a.recorder = rec
	go func() {
		if err := a.metrics.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	a.log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return nil
}

// userContext attaches the configured operator to ctx.
func (a *app) userContext(ctx context.Context) context.Context {
	return session.WithUser(ctx, session.User{Name: a.cfg.User})
}

// open returns the view for the entity named name.
func (a *app) open(name string) (browser.View, error) {
	entry, ok := entities.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown entity %q (known: %s)", name, strings.Join(entities.Names(), ", "))
	}
	return entry.Open(a.deps(), entities.WithLocale(a.cfg.Language()))
}

func (a *app) deps() browser.Deps {
	return browser.Deps{
		Client:   a.client,
		Pool:     a.pool,
		Exporter: a.worker,
		Audit:    a.trail,
		Log:      a.log,
	}
}

// Close stops background work and releases the stores.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.worker != nil {
		errs = append(errs, a.worker.Stop(ctx))
	}
	if a.pool != nil {
		errs = append(errs, a.pool.Close(ctx))
	}
	if a.trail != nil {
		errs = append(errs, a.trail.Close())
	}
	if a.metrics != nil {
		errs = append(errs, a.metrics.Shutdown(ctx))
	}
	_ = a.log.Sync()
	return errors.Join(errs...)
}

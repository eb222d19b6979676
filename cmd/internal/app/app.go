// Package app wires the courier runtime: config, logging, stores, the
// session lifecycle manager, and the HTTP surface.
//
// It is intentionally small and deterministic: construction either yields a
// fully wired App or an error, never a half-working process.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"courier/cmd/internal/api"
	"courier/cmd/internal/credentials"
	"courier/cmd/internal/eventfeed"
	"courier/cmd/internal/session"
	"courier/cmd/internal/transport"
	"courier/cmd/internal/webhook"
)

// Store is a small app-level lifecycle abstraction.
// It exists to allow DB-backed resources to be closed gracefully.
type Store interface {
	Close(ctx context.Context) error
}

// nopStore is used for in-memory store mode.
type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

// App is the courier runtime: it owns HTTP server wiring and the session
// manager's dependencies.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	mgr     *session.Manager
	ws      *eventfeed.WSGateway
	apiH    *api.Handler
	promReg *prometheus.Registry
}

// New constructs a fully wired App instance from config and logger.
// A nil dialer selects the simulated dev transport.
func New(cfg Config, log Logger, dialer transport.Dialer) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	if dialer == nil {
		log.Info("transport.dev_mode")
		dialer = transport.DevDialer{}
	}

	st, dbPool, dbEnabled, credStore, err := newCredentialStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	feed := eventfeed.NewFeed(log)
	ws := eventfeed.NewWSGateway(log, feed)

	dispatcher := webhook.NewDispatcher(log, &http.Client{Timeout: cfg.WebhookTimeout})

	mgr, err := session.NewManager(session.Options{
		Log:            log,
		Credentials:    credStore,
		Dialer:         dialer,
		Dispatcher:     dispatcher,
		Metrics:        session.NewMetrics(promReg),
		Sinks:          []session.StatusSink{feed},
		ReconnectDelay: cfg.ReconnectDelay,
		DialTimeout:    cfg.DialTimeout,
	})
	if err != nil {
		return nil, err
	}

	apiH, err := api.NewHandler(log, mgr, api.LoadConfigFromEnv())
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		mgr:       mgr,
		ws:        ws,
		apiH:      apiH,
		promReg:   promReg,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.ws, a.apiH, a.promReg)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Log out live connections before the listener goes away, so the
	// network sees clean disconnects rather than dropped sockets.
	a.mgr.Shutdown(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newCredentialStore decides between Postgres-backed credential persistence
// and the in-memory dev store.
func newCredentialStore(ctx context.Context, cfg Config, log Logger) (Store, *pgxpool.Pool, bool, credentials.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_credentials")
		return nopStore{}, nil, false, credentials.NewInMemoryStore(), nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, nil, err
	}

	opts := []credentials.PostgresOption{credentials.WithSchema(cfg.DBSchema)}
	if cfg.CredentialsKey != "" {
		cipher, err := credentials.NewBlobCipher(cfg.CredentialsKey)
		if err != nil {
			pool.Close()
			return nil, nil, false, nil, err
		}
		opts = append(opts, credentials.WithCipher(cipher))
		log.Info("db.enabled.postgres_credentials", "encrypted", true)
	} else {
		log.Info("db.enabled.postgres_credentials", "encrypted", false)
	}

	// Ownership model:
	// - app owns pool lifecycle
	// - PostgresStore.Close() is a no-op
	credStore, err := credentials.NewPostgresStore(pool, opts...)
	if err != nil {
		pool.Close()
		return nil, nil, false, nil, err
	}

	return dbStore{pool: pool, creds: credStore}, pool, true, credStore, nil
}

type dbStore struct {
	pool  *pgxpool.Pool
	creds credentials.Store
}

func (s dbStore) Close(_ context.Context) error {
	// PostgresStore.Close() is a no-op by design (pool is owned here).
	if s.creds != nil {
		_ = s.creds.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

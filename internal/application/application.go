package application

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/gearsolver/internal/api"
	"github.com/eugenenazirov/gearsolver/internal/config"
	"github.com/eugenenazirov/gearsolver/internal/gears"
	"github.com/eugenenazirov/gearsolver/internal/storage"
)

// App is the gear solver service: a settings store behind the solver API.
type App struct {
	storage storage.Storage
	logger  *zap.Logger
	server  *http.Server
}

// New seeds the settings store from cfg.Solver and mounts the solver API.
// Invalid solver settings are rejected before any server is built.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	store := storage.NewMemoryStorage()
	if err := store.SetSettings(cfg.Solver); err != nil {
		return nil, fmt.Errorf("failed to apply solver settings: %w", err)
	}

	handler := api.NewHandler(gears.New, store, api.WithBatchLimit(cfg.BatchLimit))
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		storage: store,
		logger:  logger,
		server:  NewServer(cfg, BuildRootHandler(apiRouter)),
	}, nil
}

// BuildRootHandler sends /api/ traffic to the solver API and answers "/"
// with a plain-text list of its endpoints.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprint(w, indexText)
	}))
	return mux
}

const indexText = `gearsolver: planetary gearset tooth counts

GET  /api/health
GET  /api/settings
PUT  /api/settings      {"planetCount": 3, "tolerance": 0}
POST /api/solve         {"ratio": "1/9", "ringTeeth": 80}
POST /api/solve/batch   {"requests": [{"ratio": "1/9", "ringTeeth": 80}]}
`

// NewServer binds handler to cfg.Port with the configured timeouts. A bare
// port number gets a leading colon.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start serves in the background; a listen failure is fatal.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Settings returns the solver settings currently held by the service.
func (a *App) Settings() (storage.Settings, error) {
	return a.storage.GetSettings()
}

// Server exposes the underlying server for graceful shutdown.
func (a *App) Server() *http.Server {
	return a.server
}

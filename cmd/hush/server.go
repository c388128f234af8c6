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

	"github.com/bluesky-social/chatmod/chatmod/cachestore"
	"github.com/bluesky-social/chatmod/chatmod/configstore"
	"github.com/bluesky-social/chatmod/chatmod/engine"
	"github.com/bluesky-social/chatmod/util/cliutil"

	"github.com/adrg/xdg"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/plugin/opentelemetry/tracing"
)

// request metrics middleware; the collectors register globally, so this is only built once
var promMiddleware = echoprometheus.NewMiddleware("hush")

type Server struct {
	engine *engine.Engine
	echo   *echo.Echo
	httpd  *http.Server
	logger *slog.Logger
}

type Config struct {
	Logger           *slog.Logger
	Bind             string
	DatabaseURL      string
	MaxDBConnections int
	ConfigFileJSON   string
	DBTracing        bool
	RedisURL         string
	MemcachedServers []string
	CacheTTL         time.Duration
	CacheSize        int
	StoreTimeout     time.Duration
	Workers          int

	ViolationLogRate  float64
	ViolationLogBurst int
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	config.Logger = logger

	eng, err := setupEngine(config)
	if err != nil {
		return nil, err
	}
	return newServer(eng, logger, config.Bind), nil
}

func newServer(eng *engine.Engine, logger *slog.Logger, bind string) *Server {
	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	srv := &Server{
		engine: eng,
		echo:   e,
		logger: logger,
	}
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(otelecho.Middleware("hush"))
	e.Use(slogecho.New(logger))
	e.Use(promMiddleware)
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("4M"))
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.HandleHealthCheck)
	e.POST("/v1/check", srv.HandleCheck)
	e.POST("/v1/check/batch", srv.HandleCheckBatch)
	e.POST("/v1/admin/purge", srv.HandlePurge)

	return srv
}

// Builds the moderation engine: configuration store (SQL database, or in-process with an optional JSON file), plus a configuration cache (redis, memcached, or in-process).
func setupEngine(config Config) (*engine.Engine, error) {
	logger := config.Logger

	var store configstore.ConfigStore
	if config.DatabaseURL != "" {
		db, err := cliutil.SetupDatabase(config.DatabaseURL, config.MaxDBConnections)
		if err != nil {
			return nil, fmt.Errorf("opening configuration database: %w", err)
		}
		if config.DBTracing {
			if err := db.Use(tracing.NewPlugin()); err != nil {
				return nil, fmt.Errorf("enabling database tracing: %w", err)
			}
		}
		store = configstore.NewSQLConfigStore(db)
	} else {
		mem := configstore.NewMemConfigStore()
		path := config.ConfigFileJSON
		if path == "" {
			// optional per-user config, eg ~/.config/hush/communities.json
			if p, err := xdg.SearchConfigFile("hush/communities.json"); err == nil {
				path = p
			}
		}
		if path != "" {
			if err := mem.LoadFromFileJSON(path); err != nil {
				return nil, fmt.Errorf("initializing in-process configstore: %w", err)
			}
			logger.Info("loaded community config from JSON", "path", path)
		}
		store = mem
	}

	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = cachestore.DefaultCacheTTL
	}
	size := config.CacheSize
	if size <= 0 {
		size = cachestore.DefaultMemCacheSize
	}

	var cache cachestore.CacheStore
	if config.RedisURL != "" {
		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, size, ttl)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %w", err)
		}
		cache = csh
	} else if len(config.MemcachedServers) > 0 {
		cache = cachestore.NewMemcachedCacheStore(ttl, config.MemcachedServers...)
	} else {
		mem := cachestore.NewMemCacheStore(size, ttl)
		logger.Info("using in-process configuration cache", "size", size, "ttl", mem.TTL())
		cache = mem
	}

	return engine.NewEngine(store, engine.EngineConfig{
		Logger:            logger,
		Cache:             cache,
		StoreTimeout:      config.StoreTimeout,
		Workers:           config.Workers,
		ViolationLogRate:  config.ViolationLogRate,
		ViolationLogBurst: config.ViolationLogBurst,
	}), nil
}

func migrateDatabase(config Config) error {
	if config.DatabaseURL == "" {
		return nil
	}
	db, err := cliutil.SetupDatabase(config.DatabaseURL, config.MaxDBConnections)
	if err != nil {
		return fmt.Errorf("opening configuration database: %w", err)
	}
	if err := configstore.NewSQLConfigStore(db).Migrate(); err != nil {
		return fmt.Errorf("migrating configuration database: %w", err)
	}
	return nil
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

func (srv *Server) RunAPI() error {
	srv.logger.Info("starting server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	// Wait for a signal to exit.
	srv.logger.Info("registering OS exit signal handler")
	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		srv.logger.Info("received OS exit signal", "signal", sig)

		if err := srv.Shutdown(); err != nil {
			srv.logger.Error("HTTP server shutdown error", "err", err)
		}

		close(quit)
	}()
	<-quit
	srv.logger.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", otelhttp.NewHandler(promhttp.Handler(), "metrics"))
	return http.ListenAndServe(listen, nil)
}

func (srv *Server) Shutdown() error {
	srv.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := srv.httpd.Shutdown(ctx)
	// outstanding violation log writes
	srv.engine.Violations.Flush()
	return err
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "hush",
		Usage:   "chat moderation daemon (profanity, spam, and link filtering)",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"HUSH_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "configuration database (sqlite:// or postgres://); if empty, an in-process store is used",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"HUSH_MAX_DB_CONNECTIONS"},
			Value:   40,
		},
		&cli.BoolFlag{
			Name:    "db-tracing",
			Usage:   "emit OpenTelemetry spans for configuration database queries",
			EnvVars: []string{"HUSH_DB_TRACING"},
		},
		&cli.BoolFlag{
			Name:    "migrate",
			Usage:   "create or update configuration database tables on startup",
			EnvVars: []string{"HUSH_MIGRATE"},
		},
		&cli.StringFlag{
			Name:    "config-file",
			Usage:   "JSON file with community configuration, loaded into the in-process store",
			EnvVars: []string{"HUSH_CONFIG_FILE"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis server for the configuration cache",
			EnvVars: []string{"HUSH_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringSliceFlag{
			Name:    "memcached",
			Usage:   "memcached servers for the configuration cache (host:port)",
			EnvVars: []string{"HUSH_MEMCACHED"},
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Usage:   "how long community configuration is cached",
			Value:   time.Minute,
			EnvVars: []string{"HUSH_CACHE_TTL"},
		},
		&cli.IntFlag{
			Name:    "cache-size",
			Usage:   "max entries in the in-process configuration cache",
			Value:   10_000,
			EnvVars: []string{"HUSH_CACHE_SIZE"},
		},
		&cli.DurationFlag{
			Name:    "store-timeout",
			Usage:   "timeout for individual configuration store reads",
			Value:   2 * time.Second,
			EnvVars: []string{"HUSH_STORE_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "batch evaluation worker pool size (0 for GOMAXPROCS)",
			EnvVars: []string{"HUSH_WORKERS"},
		},
		&cli.Float64Flag{
			Name:    "violation-log-rate",
			Usage:   "max violation records written per second (0 for unlimited)",
			Value:   100,
			EnvVars: []string{"HUSH_VIOLATION_LOG_RATE"},
		},
		&cli.IntFlag{
			Name:    "violation-log-burst",
			Value:   200,
			EnvVars: []string{"HUSH_VIOLATION_LOG_BURST"},
		},
	}

	app.Commands = []*cli.Command{
		serveCmd,
		checkCmd,
		migrateCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func engineConfigFromFlags(cctx *cli.Context, logger *slog.Logger) Config {
	return Config{
		Logger:            logger,
		DatabaseURL:       cctx.String("database-url"),
		MaxDBConnections:  cctx.Int("max-db-connections"),
		ConfigFileJSON:    cctx.String("config-file"),
		DBTracing:         cctx.Bool("db-tracing"),
		RedisURL:          cctx.String("redis-url"),
		MemcachedServers:  cctx.StringSlice("memcached"),
		CacheTTL:          cctx.Duration("cache-ttl"),
		CacheSize:         cctx.Int("cache-size"),
		StoreTimeout:      cctx.Duration("store-timeout"),
		Workers:           cctx.Int("workers"),
		ViolationLogRate:  cctx.Float64("violation-log-rate"),
		ViolationLogBurst: cctx.Int("violation-log-burst"),
	}
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP moderation service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3997",
			EnvVars: []string{"HUSH_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3996",
			EnvVars: []string{"HUSH_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx)

		shutdownOTEL := configOTEL("hush")
		defer shutdownOTEL()

		config := engineConfigFromFlags(cctx, logger)
		config.Bind = cctx.String("bind")
		if cctx.Bool("migrate") {
			if err := migrateDatabase(config); err != nil {
				return err
			}
		}

		srv, err := NewServer(config)
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		return srv.RunAPI()
	},
}

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "create or update configuration database tables",
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx)
		config := engineConfigFromFlags(cctx, logger)
		if config.DatabaseURL == "" {
			return fmt.Errorf("database-url is required")
		}
		if err := migrateDatabase(config); err != nil {
			return err
		}
		logger.Info("database migrated")
		return nil
	},
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	_ "go.uber.org/automaxprocs"

	"html2pdf-api/internal/config"
	"html2pdf-api/internal/http/server"
	"html2pdf-api/internal/infra/cache"
	"html2pdf-api/internal/infra/logging"
)

type options struct {
	configPath string
	port       string
	logLevel   string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("html2pdf", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file (default $CONFIG_PATH or config.yaml)")
	fs.StringVarP(&opts.port, "port", "p", "", "listen port, e.g. :3000 (overrides server.port)")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides logger.level)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		logging.Error("html2pdf exited", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	var cfg config.Config
	if opts.configPath != "" {
		cfg = config.LoadFrom(opts.configPath)
	} else {
		cfg = config.Load()
	}
	if opts.port != "" {
		cfg.Server.Port = opts.port
	}

	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	if opts.logLevel != "" {
		logging.SetLogLevel(opts.logLevel)
	}

	store := newCacheStore(cfg)
	if store != nil {
		defer store.Close()
	}

	app := server.New(server.Deps{Config: cfg, Cache: store})

	idleConnsClosed := make(chan struct{})
	if err := startServer(app, cfg, idleConnsClosed); err != nil {
		return err
	}
	<-idleConnsClosed
	return nil
}

// newCacheStore returns the PDF cache backend, or nil when caching is off.
func newCacheStore(cfg config.Config) cache.Store {
	if !cfg.Cache.PDFCacheEnabled {
		return nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.PDFCacheDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logging.Warn("Redis not reachable, cache reads will miss until it is", "addr", cfg.Cache.RedisHost, "error", err)
		}
		logging.Info("Using Redis for PDF cache", "addr", cfg.Cache.RedisHost, "db", cfg.Cache.PDFCacheDB)
		return cache.NewRedisStore(rdb)
	default:
		logging.Info("Using in-memory PDF cache")
		return cache.NewMemoryStore(0)
	}
}

// startServer starts the Fiber app and listens for shutdown signals.
// It returns the listen error when the server cannot start.
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) error {
	// Listen for OS termination signals
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigint)

	listenErr := make(chan error, 1)
	go func() {
		logging.Info("Server starting", "addr", cfg.Server.Host+cfg.Server.Port, "docs", "/api-docs")
		listenErr <- app.Listen(cfg.Server.Host + cfg.Server.Port)
	}()

	select {
	case err := <-listenErr:
		close(idleConnsClosed)
		if err != nil {
			logging.Error("Server error", "error", err)
			return err
		}
		return nil
	case <-sigint:
	}

	logging.Warn("Shutdown signal received, closing server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
	return nil
}

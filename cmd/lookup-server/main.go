package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/kartikbazzad/bunbase/lookup/internal/auth"
	"github.com/kartikbazzad/bunbase/lookup/internal/authz"
	"github.com/kartikbazzad/bunbase/lookup/internal/config"
	"github.com/kartikbazzad/bunbase/lookup/internal/server"
	"github.com/kartikbazzad/bunbase/lookup/internal/snapshot"
	"github.com/kartikbazzad/bunbase/lookup/internal/storage"
	"github.com/kartikbazzad/bunbase/lookup/pkg/logger"
)

func main() {
	// Parse flags
	configFile := flag.String("config", "", "Config file (.env, yaml, toml or json); defaults to .env when present")
	port := flag.String("port", "", "Server port (overrides config)")
	dataPath := flag.String("data", "", "Dataset JSON file (overrides config)")
	usersPath := flag.String("users", "", "Users JSON file (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dataPath != "" {
		cfg.Data.Path = *dataPath
	}
	if *usersPath != "" {
		cfg.Users.Path = *usersPath
	}

	logger.Init(cfg.Log)

	if err := run(cfg); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	log := logger.Get()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Dataset
	source, versioned, err := newSource(cfg)
	if err != nil {
		return err
	}
	store := snapshot.NewStore()
	reloader := snapshot.NewReloader(store, source, log)
	loaded := true
	if _, err := reloader.Reload(ctx); err != nil {
		loaded = false
		logger.Warn("Starting with an empty dataset", "source", source.Name())
	}

	// Users and sessions
	users := auth.NewDirectory(cfg.Users.Path, log)
	if err := users.Reload(ctx); err != nil {
		log.Warn("Starting with no users", "path", cfg.Users.Path, "error", err)
	}
	sessions := auth.NewSessionStore(cfg.Session.TTL)

	enforcer, err := authz.NewEnforcer(cfg.Authz.PolicyPath, log)
	if err != nil {
		return fmt.Errorf("failed to initialize authorization: %w", err)
	}

	// Change detection
	watcher, err := snapshot.NewWatcher(cfg.Data.Debounce, log)
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(cfg.Users.Path, users.ReloadFunc()); err != nil {
		log.Warn("Users file will not be hot-reloaded", "error", err)
	}
	if versioned == nil {
		if err := watcher.Watch(cfg.Data.Path, reloader.ReloadFunc()); err != nil {
			log.Warn("Dataset will not be hot-reloaded", "error", err)
		}
	}

	loginLimits := server.NewLoginLimiter(cfg.RateLimit)

	gin.SetMode(cfg.Server.Mode)
	router := server.NewRouter(server.Deps{
		Config:      cfg,
		Store:       store,
		Reloader:    reloader,
		Users:       users,
		Sessions:    sessions,
		Enforcer:    enforcer,
		LoginLimits: loginLimits,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		watcher.Run(gctx)
		return nil
	})
	if versioned != nil {
		poller := snapshot.NewPoller(versioned, cfg.Data.PollInterval, reloader.Refresh, log)
		// Without a successful first load the first tick must fetch the object.
		if loaded {
			poller.Prime(ctx)
		}
		g.Go(func() error {
			poller.Run(gctx)
			return nil
		})
	}

	// Cleanup for expired sessions and idle limiters
	g.Go(func() error {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				n := sessions.CleanupExpired()
				m := loginLimits.Cleanup()
				logger.Debug("Cleaned up expired state", "sessions", n, "limiters", m)
			}
		}
	})

	g.Go(func() error {
		logger.Info("Lookup server starting", "addr", srv.Addr, "environment", cfg.Environment, "source", source.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}

// newSource picks the dataset source. Object sources are also returned as
// Versioned so the caller can poll them.
func newSource(cfg config.Config) (snapshot.Source, snapshot.Versioned, error) {
	if !cfg.UsesObjectStorage() {
		return snapshot.FileSource{Path: cfg.Data.Path}, nil, nil
	}
	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	src := snapshot.ObjectSource{Store: client, Bucket: cfg.Data.Bucket, Key: cfg.Data.Object}
	return src, src, nil
}

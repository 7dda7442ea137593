// Package main provides the form server entry point. It serves the configured
// data entry forms over HTTP and saves submitted records to the database.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"github.com/gltn/stdm/pkg/audit"
	"github.com/gltn/stdm/pkg/cache"
	"github.com/gltn/stdm/pkg/config"
	"github.com/gltn/stdm/pkg/entities"
	"github.com/gltn/stdm/pkg/formdef"
	"github.com/gltn/stdm/pkg/formserver"
	"github.com/gltn/stdm/pkg/logging"
	"github.com/gltn/stdm/pkg/record"
	"github.com/gltn/stdm/pkg/schema"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", os.Getenv("STDM_CONFIG"), "Path to the server configuration file")
	flag.Parse()

	_ = flag.Set("logtostderr", "true")

	cfg, err := config.Load(configPath)
	if err != nil {
		glog.Fatalf("Failed to load config: %v", err)
	}

	logger, flush, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		glog.Fatalf("Failed to set up logging: %v", err)
	}
	defer flush()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := schema.NewRegistry(nil)
	if err := entities.Register(reg); err != nil {
		glog.Fatalf("Failed to register entities: %v", err)
	}
	if cfg.Forms.SchemaOverrides != "" {
		overrides, err := schema.LoadOverrides(cfg.Forms.SchemaOverrides)
		if err != nil {
			glog.Fatalf("Failed to load schema overrides: %v", err)
		}
		if err := reg.ApplyOverrides(overrides); err != nil {
			glog.Fatalf("Failed to apply schema overrides: %v", err)
		}
	}

	db, err := record.Open(cfg.Database)
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}
	store := record.NewStore(db, logger.With("component", "store"))
	locker, err := record.NewLocker(db)
	if err != nil {
		glog.Fatalf("Failed to create migration lock: %v", err)
	}
	var events *audit.Store
	err = locker.WithLock(ctx, func() error {
		if err := store.AutoMigrate(entities.Models()...); err != nil {
			return err
		}
		if !cfg.Audit.Enabled {
			return nil
		}
		events = audit.NewStore(db)
		return events.Migrate()
	})
	if err != nil {
		glog.Fatalf("Failed to migrate database: %v", err)
	}

	forms, err := formdef.Load(cfg.Forms.Path)
	if err != nil {
		glog.Fatalf("Failed to load form definitions: %v", err)
	}

	serverOpts := []formserver.Option{
		formserver.WithLogger(logger.With("component", "formserver")),
		formserver.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
	}
	if cfg.Server.CacheTTL > 0 {
		serverOpts = append(serverOpts, formserver.WithResponseCache(cache.New(cfg.Server.CacheSize, cfg.Server.CacheTTL)))
	}
	if events != nil {
		serverOpts = append(serverOpts, formserver.WithAudit(events))
		go audit.NewRetentionWorker(events, cfg.Audit.RetentionDays, logger.With("component", "audit")).Run(ctx)
	}

	srv, err := formserver.New(reg, store, forms, serverOpts...)
	if err != nil {
		glog.Fatalf("Failed to create form server: %v", err)
	}

	reloadForms := func(path string) {
		next, err := formdef.Load(path)
		if err != nil {
			logger.Warn("form definitions not reloaded", "path", path, "error", err)
			return
		}
		if err := srv.SetForms(next); err != nil {
			logger.Warn("form definitions not reloaded", "path", path, "error", err)
		}
	}
	formsWatch := config.NewFollower(ctx, logger, reloadForms)
	if err := formsWatch.Follow(cfg.Forms.Path); err != nil {
		logger.Warn("form definitions will not be reloaded", "error", err)
	}
	if configPath != "" {
		// Only the forms section can change without a restart.
		formsPath := cfg.Forms.Path
		err := config.Watch(ctx, configPath, logger, func(next *config.Config) {
			if next.Forms.Path == formsPath {
				return
			}
			logger.Info("form definition path changed", "from", formsPath, "to", next.Forms.Path)
			formsPath = next.Forms.Path
			reloadForms(formsPath)
			if err := formsWatch.Follow(formsPath); err != nil {
				logger.Warn("form definitions will not be reloaded", "path", formsPath, "error", err)
			}
		})
		if err != nil {
			logger.Warn("config will not be reloaded", "error", err)
		}
	}

	httpServer := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     srv.Handler(),
		ReadTimeout: cfg.Server.ReadTimeout,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	logger.Info("form server ready",
		"listen", cfg.Server.Addr,
		"database", cfg.Database.Driver,
		"forms", forms.Names(),
	)

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	logger.Info("form server stopped")
}

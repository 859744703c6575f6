package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/markup/internal/config"
	"github.com/Simplici0/markup/internal/db"
	"github.com/Simplici0/markup/internal/leads"
	"github.com/Simplici0/markup/internal/logger"
	"github.com/Simplici0/markup/internal/migrations"
	"github.com/Simplici0/markup/internal/notify"
	"github.com/Simplici0/markup/internal/seed"
	"github.com/Simplici0/markup/internal/sessionstore"
)

var rootFlags struct {
	configDir string
	webDir    string
}

var rootCmd = &cobra.Command{
	Use:   "markup-server",
	Short: "Markup divisor calculator with lead capture",
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP wizard (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)

	rootCmd.PersistentFlags().StringVar(&rootFlags.configDir, "config-dir", ".", "Directory holding .env and markup.yaml")
	rootCmd.PersistentFlags().StringVar(&rootFlags.webDir, "web-dir", "web", "Directory holding templates/ and static/")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, logger.Logger, func(), error) {
	cfg, err := config.LoadFrom(rootFlags.configDir)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("load config: %w", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("build logger: %w", err)
	}
	log := logger.Wrap(zl)
	for _, warning := range cfg.Warnings {
		log.Warn(warning, nil)
	}

	return cfg, log, func() { _ = zl.Sync() }, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, sync, err := loadConfig()
	if err != nil {
		return err
	}
	defer sync()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(cmd.Context(), database); err != nil {
		return err
	}
	version, err := migrations.Version(cmd.Context(), database)
	if err != nil {
		return err
	}

	log.Info("database migrated", map[string]interface{}{"db_path": cfg.DBPath, "version": version})
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, sync, err := loadConfig()
	if err != nil {
		return err
	}
	defer sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(ctx, database); err != nil {
			return err
		}
	}

	stats, err := seed.Run(database, seed.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("run startup seed: %w", err)
	}
	log.Info("startup seed finished", map[string]interface{}{"inserts": stats.Inserts, "updates": stats.Updates})

	g, gctx := errgroup.WithContext(ctx)

	sessions, err := newSessionStore(gctx, g, cfg, log)
	if err != nil {
		return err
	}

	leadStore := leads.NewStore(database)
	notifier, err := notify.FromConfig(ctx, cfg.Notify, leadStore)
	if err != nil {
		return err
	}
	log.Info("lead notification channels", map[string]interface{}{"channels": notifier.Names()})
	dispatcher := notify.NewDispatcher(notifier, cfg.Notify.Timeout, log.With(map[string]interface{}{"component": "notify"}))

	srv := &server{
		auth:       newAuthService(database, cfg.SessionSecret),
		leads:      leadStore,
		sessions:   sessions,
		dispatcher: dispatcher,
		log:        log,
		webDir:     rootFlags.webDir,
		now:        time.Now,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info("listening", map[string]interface{}{"addr": httpServer.Addr, "env": cfg.Env})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	})

	err = g.Wait()
	dispatcher.Wait()
	log.Info("server stopped", nil)
	return err
}

func newSessionStore(ctx context.Context, g *errgroup.Group, cfg config.Config, log logger.Logger) (sessionstore.Store, error) {
	if cfg.Session.Backend == "redis" {
		client, err := sessionstore.ConnectRedis(ctx, cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			<-ctx.Done()
			return client.Close()
		})
		log.Info("using redis session store", map[string]interface{}{"addr": cfg.Redis.Addr})
		return sessionstore.NewRedis(client, cfg.Session.TTL), nil
	}

	store := sessionstore.NewMemory(cfg.Session.TTL)
	g.Go(func() error {
		store.RunSweeper(ctx, time.Minute)
		return nil
	})
	return store, nil
}

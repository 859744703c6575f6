package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/Simplici0/markup/internal/config"
	"github.com/Simplici0/markup/internal/db"
	"github.com/Simplici0/markup/internal/leads"
	"github.com/Simplici0/markup/internal/logger"
	"github.com/Simplici0/markup/internal/migrations"
	"github.com/Simplici0/markup/internal/notify"
	"github.com/Simplici0/markup/internal/tui"
	"github.com/Simplici0/markup/internal/wizard"
)

func main() {
	configDir := flag.String("config-dir", ".", "Directory holding .env and markup.yaml")
	logFile := flag.String("log", "markup-tui.log", "Log file (the terminal is used by the UI)")
	flag.Parse()

	if err := run(*configDir, *logFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configDir, logFile string) error {
	cfg, err := config.LoadFrom(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat, logFile)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	log := logger.Wrap(zl).With(map[string]interface{}{"component": "tui"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var leadLog notify.LeadWriter
	if cfg.Notify.LeadLog {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer database.Close()

		if err := migrations.Up(ctx, database); err != nil {
			return err
		}
		leadLog = leads.NewStore(database)
	}

	channels, err := notify.FromConfig(ctx, cfg.Notify, leadLog)
	if err != nil {
		return err
	}
	log.Info("lead notification channels", map[string]interface{}{"channels": channels.Names()})

	dispatcher := notify.NewDispatcher(channels, cfg.Notify.Timeout, log)
	defer dispatcher.Wait()

	model := tui.New(uuid.NewString(), func(s wizard.Session) {
		sub, err := notify.NewSubmission(s)
		if err != nil {
			log.WithError(err).Error("build lead submission", nil)
			return
		}
		dispatcher.Dispatch(sub)
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run terminal wizard: %w", err)
	}
	return nil
}

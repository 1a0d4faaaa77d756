package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/cyp0633/libslots/datetime"
	"github.com/cyp0633/libslots/internal/config"
	"github.com/cyp0633/libslots/recurrence"
	"github.com/cyp0633/libslots/server"
	authmemory "github.com/cyp0633/libslots/server/auth/memory"
	"github.com/cyp0633/libslots/slot"
	"github.com/cyp0633/libslots/storage"
	"github.com/cyp0633/libslots/storage/memory"
	"github.com/cyp0633/libslots/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

type flagConfig struct {
	configPath string
	listen     string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", flags.configPath, err)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: conf.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(conf, logger); err != nil {
		logger.Error("slotd failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "slotd.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.Parse()

	return cfg
}

func run(conf *config.Config, logger *slog.Logger) error {
	if err := conf.Validate(); err != nil {
		return err
	}

	logger.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"locale", conf.Locale,
		"storage", conf.Storage.Driver,
		"completion_sweep", conf.CompletionSweep,
		"preview_cache", conf.PreviewCache.Enabled)

	cal, err := datetime.LoadLocal(conf.Timezone)
	if err != nil {
		return err
	}

	store, closeStore, err := openStorage(conf, cal, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	engineOpts := []recurrence.Option{recurrence.WithLogger(logger.With("component", "recurrence"))}
	if conf.PreviewCache.Enabled {
		engineOpts = append(engineOpts, recurrence.WithCache(conf.CacheConfig()))
	}
	engine := recurrence.NewEngine(cal, engineOpts...)
	defer engine.Close()

	if conf.CompletionSweep != "" {
		sweeper, err := storage.NewSweeper(store, conf.CompletionSweep, cal.Location(), logger.With("component", "sweeper"))
		if err != nil {
			return err
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	locale, err := slot.ParseLocale(conf.Locale)
	if err != nil {
		return err
	}
	serverOpts := []server.Option{
		server.WithLocale(locale),
		server.WithSummary(conf.Summary),
		server.WithLogger(logger.With("component", "server")),
	}
	if conf.Auth != nil {
		authenticator, err := newAuthenticator(conf.Auth, logger.With("component", "auth"))
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, server.WithAuthenticator(authenticator, conf.Auth.Realm))
	}
	handler, err := server.New(store, engine, serverOpts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", conf.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("slotd exiting")
	return nil
}

func openStorage(conf *config.Config, cal datetime.Calendar, logger *slog.Logger) (storage.Storage, func(), error) {
	switch conf.Storage.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; slots are lost on exit")
		return memory.New(), func() {}, nil
	default:
		store, err := sqlite.Open(conf.Storage.DSN,
			sqlite.WithLocation(cal.Location()),
			sqlite.WithLogger(logger.With("component", "sqlite")))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", conf.Storage.DSN, err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close storage", "error", err)
			}
		}, nil
	}
}

func newAuthenticator(conf *config.AuthConfig, logger *slog.Logger) (*authmemory.Store, error) {
	store := authmemory.New(authmemory.WithLogger(logger))
	for _, u := range conf.Users {
		if err := store.AddUser(authmemory.User{Username: u.Username, Password: u.Password, ReadOnly: u.ReadOnly}); err != nil {
			return nil, err
		}
	}
	for _, t := range conf.Tokens {
		if err := store.AddToken(authmemory.Token{Value: t.Token, ID: t.ID, ReadOnly: t.ReadOnly}); err != nil {
			return nil, err
		}
	}
	return store, nil
}

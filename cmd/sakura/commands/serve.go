package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Somnusochi/auto-novel/am"
	"github.com/Somnusochi/auto-novel/auth"
	"github.com/Somnusochi/auto-novel/catalog"
	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/logger"
	"github.com/Somnusochi/auto-novel/sakura"
	"github.com/Somnusochi/auto-novel/sakura/remote"
	"github.com/Somnusochi/auto-novel/server"
	"github.com/Somnusochi/auto-novel/sym"
)

// ServeCmd runs the scheduler
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   sym.Sakura + " Run the Sakura scheduler",
	Long: `Run the HTTP API, the status websocket and one dispatcher per active worker.

Workers are not persisted. Jobs still assigned from a previous run are
returned to the queue at startup unless sakura.recover_orphans is false.`,
	RunE: runServe,
}

var (
	serveDBPath string
	servePort   int
	serveWatch  bool
)

func init() {
	ServeCmd.Flags().StringVar(&serveDBPath, "db-path", "", "Database path (overrides config)")
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
	ServeCmd.Flags().BoolVar(&serveWatch, "watch-config", true, "Reload limits and origins when am.toml changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")

	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	database, dbPath, err := openDatabase(serveDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	printStartupBanner(verbosity, dbPath, cfg)

	tokens, err := auth.NewJWTManager(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to create token manager")
	}

	store := sakura.NewJobStore(database)
	registry := sakura.NewWorkerRegistry(store,
		remote.NewClient(cfg.Sakura.DialTimeout(), logger.Logger),
		sakura.DispatcherConfigFrom(cfg.Sakura),
		logger.Logger)
	facade := sakura.NewFacade(store, registry, catalog.NewStore(database), sakura.LimitsFrom(cfg.Sakura), logger.Logger)

	if cfg.Sakura.RecoverOrphans {
		released, err := facade.RecoverOrphans(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "failed to release orphaned jobs")
		}
		if released > 0 {
			pterm.Info.Printf("Returned %d orphaned jobs to the queue\n", released)
		}
	}

	srv := server.New(facade, tokens, cfg, logger.Logger)

	if serveWatch {
		stopWatch := watchConfig(srv)
		defer stopWatch()
	}

	port := servePort
	if port == 0 {
		port = cfg.GetServerPort()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe(port)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		facade.Shutdown(context.Background())
		return errors.Wrap(err, "server stopped unexpectedly")
	case <-sigChan:
		pterm.Info.Println("Shutting down gracefully (press Ctrl+C again to force)...")

		shutdownDone := make(chan error, 1)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Sakura.StopTimeout()+server.ShutdownTimeout)
			defer cancel()
			shutdownDone <- srv.Shutdown(ctx)
		}()

		select {
		case err := <-shutdownDone:
			if err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}
			pterm.Success.Println("Server stopped cleanly")
			return nil
		case <-sigChan:
			pterm.Warning.Println("Force shutdown - exiting immediately")
			os.Exit(1)
			return nil
		}
	}
}

// watchConfig applies am.toml edits to the running server. Port and database
// changes still need a restart.
func watchConfig(srv *server.Server) func() {
	paths := am.ConfigPaths()
	if len(paths) == 0 {
		return func() {}
	}
	path := paths[len(paths)-1]
	if _, err := os.Stat(path); err != nil {
		logger.Debugw("No config file to watch", "path", path)
		return func() {}
	}

	watcher, err := am.NewConfigWatcher(path)
	if err != nil {
		logger.Warnw("Config watching disabled", logger.FieldError, err)
		return func() {}
	}
	watcher.OnReload(func(cfg *am.Config) error {
		srv.ApplyConfig(cfg)
		return nil
	})
	am.SetGlobalWatcher(watcher)
	watcher.Start()

	return func() {
		am.SetGlobalWatcher(nil)
		_ = watcher.Stop()
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskgate/internal/audit"
	"taskgate/internal/config"
	"taskgate/internal/logger"
	"taskgate/internal/notify"
	"taskgate/internal/server/api"
	"taskgate/internal/task"
	"taskgate/internal/types"
	"taskgate/internal/version"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log = log.Named("taskgate")
	defer func() {
		_ = log.Sync()
	}()

	// Initialize audit store
	store, err := audit.New(&cfg.Audit, log)
	if err != nil {
		log.Fatal("Failed to initialize audit store", zap.Error(err))
	}
	defer func() {
		_ = store.Close()
	}()

	// Initialize notifier
	nm, err := notify.NewManager(&cfg.Notify, log)
	if err != nil {
		log.Fatal("Failed to initialize notifier", zap.Error(err))
	}
	defer nm.Stop()

	// Initialize scheduler and dispatcher
	scheduler := task.NewScheduler(log)
	scheduler.SetTransitionHook(func(info types.ScheduledActionInfo) {
		switch info.Status {
		case types.ActionFired:
			nm.ActionFired(info)
		case types.ActionCancelled:
			nm.ActionCancelled(info)
		}
	})

	dispatcher, err := task.NewDispatcher(&cfg.Tasks, scheduler, store, nm, log)
	if err != nil {
		log.Fatal("Failed to initialize dispatcher", zap.Error(err))
	}

	// Initialize router
	router := api.NewRouter(cfg, dispatcher, scheduler, store, log)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in background
	go func() {
		log.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("version", version.GetInfo().Version))

		var err error
		if cfg.Server.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != http.ErrServerClosed {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received signal", zap.String("signal", sig.String()))

	// Graceful shutdown. Pending scheduled actions are dropped; they do
	// not survive a process restart.
	log.Info("Starting graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	scheduler.Stop()

	log.Info("Shutdown complete")
}

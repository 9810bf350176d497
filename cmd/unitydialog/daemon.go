package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/unitydialog/internal/busnotify"
	"github.com/1broseidon/unitydialog/internal/config"
	"github.com/1broseidon/unitydialog/internal/daemon"
	"github.com/1broseidon/unitydialog/internal/ipc"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "Config file path (default: ~/.config/unitydialog/config.yaml)")
	reconcileEvery := fs.Duration("reconcile", 10*time.Second, "Interval between relationship consistency checks")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: unitydialog daemon [--path PATH] [--reconcile DURATION]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the dialog daemon in the foreground. SIGHUP reloads the config.")
	}
	if code := parseNoArgs(fs, args); code >= 0 {
		return code
	}

	cfgPath := *path
	if cfgPath == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			log.Printf("Failed to resolve config path: %v", err)
			return 1
		}
		cfgPath = p
	}
	res, err := config.LoadFromPath(cfgPath)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}
	cfg := res.Config

	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.Info("configuration loaded", "path", cfgPath, "fade_time", cfg.FadeDuration(), "alpha", cfg.Alpha)

	d, err := daemon.NewX11(cfgPath, cfg, level, logger)
	if err != nil {
		logger.Error("failed to start daemon", "err", err)
		return 1
	}

	ipcServer, err := ipc.NewServer(d)
	if err != nil {
		logger.Error("failed to create IPC server", "err", err)
		return 1
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start IPC server", "err", err)
		return 1
	}
	defer ipcServer.Stop()
	logger.Info("IPC server listening", "socket", ipcServer.SocketPath())

	if cfg.DBus {
		notifier, err := busnotify.Connect(d, logger)
		if err != nil {
			// The daemon is still useful without the session bus.
			logger.Warn("D-Bus notifications disabled", "err", err)
		} else {
			d.OnParentChange(notifier.ParentChanged)
			defer notifier.Close()
			logger.Info("D-Bus service registered", "name", busnotify.ServiceName)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
		Interval: *reconcileEvery,
		Logger:   logger,
	}, d)
	go reconciler.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					logger.Info("received SIGHUP, reloading config")
					if err := d.Reload(); err != nil {
						logger.Error("config reload failed", "err", err)
					}
				default:
					logger.Info("shutting down unitydialog daemon", "signal", sig.String())
					cancel()
					return
				}
			}
		}
	}()

	if err := d.Run(ctx); err != nil {
		logger.Error("event loop stopped", "err", err)
		return 1
	}
	return 0
}

// homegate is a local gateway to a smart-home automation subsystem. It owns
// the single privileged subsystem connection and exposes a cached, filtered
// view of the device graph plus a control interface to local clients over a
// Unix socket.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"homegate/config"
	"homegate/gateway"
	"homegate/homekit"
	"homegate/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "homegate:", err)
		os.Exit(1)
	}
}

func run() error {
	args := config.ParseCommandLineArgs()
	cfg, err := config.LoadConfig(args.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyCommandLineArgs(args)

	logFile, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		return err
	}
	socketPath := cfg.Socket.Path
	if socketPath == "" {
		socketPath = filepath.Join(dataDir, "homegate.sock")
	}

	staleness, err := cfg.Staleness()
	if err != nil {
		return err
	}
	warmInterval, err := cfg.WarmInterval()
	if err != nil {
		return err
	}
	requestTimeout, err := cfg.RequestTimeout()
	if err != nil {
		return err
	}

	sub, err := buildSubsystem(cfg)
	if err != nil {
		return err
	}

	cache := gateway.NewCache(filepath.Join(dataDir, "cache.json"), staleness)
	if err := cache.Load(); err != nil {
		slog.Warn("cache unreadable, starting cold", "err", err)
	}
	filter, err := gateway.LoadFilterConfig(filepath.Join(dataDir, "filter.json"))
	if err != nil {
		slog.Warn("filter config unreadable, using defaults", "err", err)
		filter, _ = gateway.LoadFilterConfig("")
	}

	mgr := gateway.NewManager(sub, cache, filter, gateway.Options{WarmInterval: warmInterval})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go mgr.Run(ctx)

	srv, err := server.New(mgr, socketPath, requestTimeout)
	if err != nil {
		return err
	}

	if cfg.WebSocket.Enabled {
		bridge := server.NewWebSocketBridge(srv, cfg.WebSocket.Addr)
		go func() {
			if err := bridge.Start(ctx); err != nil {
				slog.Error("websocket bridge failed", "err", err)
			}
		}()
	}

	slog.Info("homegate starting", "socket", socketPath, "data_dir", dataDir, "driver", cfg.Subsystem.Driver)
	if err := srv.Serve(ctx); err != nil && err != context.Canceled {
		return err
	}
	slog.Info("homegate stopped")
	return nil
}

// buildSubsystem constructs the automation-subsystem driver. Only the
// simulator ships in this repository; the privileged platform driver
// implements homekit.Subsystem out of tree.
func buildSubsystem(cfg *config.Config) (homekit.Subsystem, error) {
	switch cfg.Subsystem.Driver {
	case "simulator":
		if cfg.Subsystem.Fixture == "" {
			return nil, fmt.Errorf("simulator driver requires subsystem.fixture (or -fixture)")
		}
		homes, err := homekit.LoadFixture(cfg.Subsystem.Fixture)
		if err != nil {
			return nil, err
		}
		return homekit.NewSimulator(homes), nil
	default:
		return nil, fmt.Errorf("unknown subsystem driver: %s", cfg.Subsystem.Driver)
	}
}

func resolveDataDir(cfg *config.Config) (string, error) {
	dir := cfg.Data.Dir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolving data dir: %w", err)
		}
		dir = filepath.Join(base, "homegate")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	return dir, nil
}

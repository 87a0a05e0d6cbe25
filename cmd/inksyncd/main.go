package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"inksync/internal/config"
	"inksync/internal/daemon"
	"inksync/internal/ipc"
	"inksync/internal/ledger"
	"inksync/internal/logging"
	"inksync/internal/materializer"
	"inksync/internal/notifications"
	"inksync/internal/scanner"
	"inksync/internal/syncer"
	"inksync/internal/vault"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/inksync/config.toml)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := ledger.OpenStore(cfg.LedgerDBPath())
	if err != nil {
		log.Fatalf("open ledger store: %v", err)
	}
	state, err := store.Load(ctx)
	if err != nil {
		log.Fatalf("load ledger state: %v", err)
	}
	ldg := ledger.NewFromState(state, store)

	api, err := scanner.NewFromConfig(cfg, logger)
	if err != nil {
		log.Fatalf("create scanner client: %v", err)
	}

	v, err := vault.NewDir(cfg.Output.Dir)
	if err != nil {
		log.Fatalf("open vault: %v", err)
	}
	mat, err := materializer.NewFromConfig(cfg, v, logger)
	if err != nil {
		log.Fatalf("create materializer: %v", err)
	}

	notifier := notifications.NewService(cfg, logger)
	scheduler := syncer.New(api, ldg, mat, notifier,
		time.Duration(cfg.Sync.IntervalSeconds)*time.Second, cfg.Sync.AutoSync, logger)

	d, err := daemon.New(cfg, api, ldg, store, scheduler, notifier, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, cancel, logger)
	if err != nil {
		log.Fatalf("start IPC server: %v", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("inksyncd shutting down")
}

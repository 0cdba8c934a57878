package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"scribe/internal/config"
	"scribe/internal/daemon"
	"scribe/internal/logging"
	"scribe/internal/preflight"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "configuration file path")
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

	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "jobs needing this dependency will fail until it is fixed"),
		)
	}

	components, err := buildComponents(cfg, logger)
	if err != nil {
		log.Fatalf("initialize daemon: %v", err)
	}
	defer components.close()

	d, err := daemon.New(daemon.Options{
		Config:   cfg,
		Store:    components.store,
		Workflow: components.manager,
		Jobs:     components.jobs,
		Logger:   logger,
		Version:  version,
	})
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("daemon start: %v", err)
	}

	<-ctx.Done()
	logger.Info("scribed shutting down")
}

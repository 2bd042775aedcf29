package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/host"
	"golang.org/x/sync/errgroup"

	"github.com/lumivpn/discovery/internal/config"
	"github.com/lumivpn/discovery/internal/discovery"
	"github.com/lumivpn/discovery/internal/fetch"
	"github.com/lumivpn/discovery/internal/refresh"
	"github.com/lumivpn/discovery/internal/server"
	"github.com/lumivpn/discovery/internal/sign"
)

// runServe handles the `discod serve` subcommand
func runServe(args []string) error {
	showHelp := false
	configPath := ""
	listen := ""

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help", "-h":
			showHelp = true
		case "--config", "-c":
			if i+1 >= len(args) {
				return fmt.Errorf("--config requires a path")
			}
			i++
			configPath = args[i]
		case "--listen", "-l":
			if i+1 >= len(args) {
				return fmt.Errorf("--listen requires an address")
			}
			i++
			listen = args[i]
		default:
			return fmt.Errorf("unknown option: %s\nRun 'discod serve --help' for usage", args[i])
		}
	}

	if showHelp {
		printServeHelp()
		return nil
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}

	log := newLogger(cfg.Log)
	logStartup(log, cfg)

	ring, err := sign.ParseKeyring(cfg.Authority.PublicKeys)
	if err != nil {
		return fmt.Errorf("parse pinned public keys: %w", err)
	}

	client := fetch.NewClient(cfg.Refresh.FetchTimeout)
	client.SetLogger(log)

	pipeline, err := discovery.New(discovery.Config{
		BaseURL:         cfg.Authority.BaseURL,
		SignatureSuffix: cfg.Authority.SignatureSuffix,
		Keys:            ring,
		GoneStatuses:    fetch.NewStatusSet(cfg.Authority.GoneStatuses...),
		Fetcher:         client,
		Logger:          &log,
	})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	store := discovery.NewStore()

	refresher, err := refresh.New(refresh.Config{
		Pipeline:    pipeline,
		Store:       store,
		Interval:    cfg.Refresh.Interval,
		RetryWindow: cfg.Refresh.RetryWindow,
		Logger:      &log,
	})
	if err != nil {
		return fmt.Errorf("create refresher: %w", err)
	}

	api, err := server.New(server.Config{Store: store, Logger: &log})
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return refresher.Run(ctx)
	})
	g.Go(func() error {
		return api.ListenAndServe(ctx, cfg.Server.Listen)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info().Msg("discod stopped")
	return nil
}

// logStartup emits a one-time startup line with host diagnostics.
// Host detection is best-effort; failures only lose log detail.
func logStartup(log zerolog.Logger, cfg config.Config) {
	event := log.Info().
		Str("version", Version).
		Str("authority", cfg.Authority.BaseURL).
		Int("pinned_keys", len(cfg.Authority.PublicKeys))

	if info, err := host.Info(); err == nil {
		event = event.
			Str("os", info.OS).
			Str("platform", info.Platform).
			Str("kernel", info.KernelVersion)
	}

	event.Msg("discod starting")
}

func printServeHelp() {
	fmt.Println("Usage: discod serve [options]")
	fmt.Println()
	fmt.Println("Run the periodic refresher and the local read-only catalog API.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -c, --config <path>   Lua config file (default: none, built-in defaults)")
	fmt.Println("  -l, --listen <addr>   Override the API listen address")
	fmt.Println("  -h, --help            Show this help")
	fmt.Println()
	fmt.Println("Environment overrides use the DISCOD_ prefix, e.g. DISCOD_BASE_URL.")
}

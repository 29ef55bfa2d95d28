package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"mcexporter/internal/config"
	"mcexporter/internal/dockerctl"
	"mcexporter/internal/logx"
	"mcexporter/internal/matrix"
	"mcexporter/internal/metrics"
	"mcexporter/internal/rcon"
	"mcexporter/internal/server"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		showVersion bool
	)
	flags := pflag.NewFlagSet("mcexporter", pflag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", "", "optional TOML config file; environment variables take precedence")
	flags.BoolVarP(&showVersion, "version", "v", false, "print version and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if showVersion {
		fmt.Printf("mcexporter version=%s commit=%s\n", version, commit)
		return 0
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logx.New(logx.ParseLevel(os.Getenv("LOG_LEVEL"))).Error("invalid configuration", "err", err.Error())
		return 1
	}
	logger := logx.New(logx.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := rcon.New(cfg.RCONHost, cfg.RCONPort, cfg.RCONPass, cfg.RCONTimeout, cfg.RCONQPS)

	var (
		gate      metrics.Gate
		container matrix.Container
	)
	if cfg.DockerEnabled() {
		docker, err := dockerctl.New(cfg.DockerContainerName)
		if err != nil {
			logger.Error("failed creating docker client", "err", err.Error())
			return 1
		}
		defer func() {
			if closeErr := docker.Close(); closeErr != nil {
				logger.Warn("failed closing docker client", "err", closeErr.Error())
			}
		}()
		gate, container = docker, docker
	}

	collector := metrics.NewCollector(client, gate, cfg.ScrapeTimeout, logger)
	registry, err := server.NewRegistry(collector)
	if err != nil {
		logger.Error("failed registering collectors", "err", err.Error())
		return 1
	}
	srv := server.New(cfg.ListenAddr, server.NewRouter(registry, cfg.MetricsPath, logger), logger)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return srv.Run(groupCtx) })

	if cfg.MatrixEnabled() {
		bot, err := matrix.New(ctx, cfg, matrix.NewConsole(client, container, logger), logger)
		if err != nil {
			logger.Error("failed creating matrix bot", "err", err.Error())
			return 1
		}
		group.Go(func() error { return bot.Run(groupCtx) })
	}

	logger.Info("exporter started", "rcon", client.Addr(), "listen", cfg.ListenAddr, "docker", cfg.DockerEnabled(), "matrix", cfg.MatrixEnabled())
	if err := group.Wait(); err != nil {
		logger.Error("exporter stopped with error", "err", err.Error())
		return 1
	}

	logger.Info("exporter shutdown complete")
	return 0
}

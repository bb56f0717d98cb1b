package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"shelly-exporter/internal/config"
	"shelly-exporter/internal/server"
	"shelly-exporter/internal/shelly"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	dotEnvLoaded, err := config.LoadDotEnv(".env")
	if err != nil {
		logger.WithError(err).Fatal("Error reading .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}
	logger.SetLevel(cfg.LogLevel)
	if !dotEnvLoaded {
		logger.Debug("No .env file found, relying on process environment")
	}

	registry := prometheus.NewRegistry()
	client := shelly.NewClient(cfg.DeviceHost, cfg.DeviceChannel, cfg.RequestTimeout, logger.WithField("component", "shelly"))
	exporter, err := shelly.NewExporter(client, registry, registry, logger.WithField("component", "exporter"))
	if err != nil {
		logger.WithError(err).Fatal("Error creating exporter")
	}

	srv := server.New(cfg.ListenAddress(), exporter, cfg.ShutdownTimeout, logger.WithField("component", "server"))
	if err := srv.Listen(); err != nil {
		logger.WithError(err).Fatal("Error starting metrics server")
	}

	logger.WithFields(logrus.Fields{
		"version": version,
		"commit":  commit,
		"date":    date,
	}).Infof("Starting metrics server on %s monitoring Shelly device at %s", srv.Addr(), cfg.StatusURL())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil {
		logger.WithError(err).Error("Metrics server stopped with error")
		stop()
		os.Exit(1)
	}
}

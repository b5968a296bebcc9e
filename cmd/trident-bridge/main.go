// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// trident-bridge is the client observation binary. It accepts sealed
// packets and verdicts republished by the arbiter and fans them out to
// websocket observers; plain HTTP requests get a static observer page
// or a built-in status page.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/trident/bridge"
	"github.com/bureau-foundation/trident/lib/config"
	"github.com/bureau-foundation/trident/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("trident-bridge", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to the YAML config file (default: $TRIDENT_CONFIG)")
	ingestAddress := flagSet.String("ingest", "", "arbiter ingest address, overrides the config file")
	httpAddress := flagSet.String("http", "", "observer HTTP address, overrides the config file")
	staticRoot := flagSet.String("static-root", "", "directory served to plain HTTP requests, overrides the config file")
	maxClients := flagSet.Int("max-clients", 0, "concurrent observer limit, overrides the config file")
	showVersion := flagSet.Bool("version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("trident-bridge %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *ingestAddress != "" {
		cfg.Bridge.IngestAddress = *ingestAddress
	}
	if *httpAddress != "" {
		cfg.Bridge.HTTPAddress = *httpAddress
	}
	if *staticRoot != "" {
		cfg.Bridge.StaticRoot = *staticRoot
	}
	if *maxClients > 0 {
		cfg.Bridge.MaxClients = *maxClients
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bridge.New(bridge.Options{
		IngestAddress: cfg.Bridge.IngestAddress,
		HTTPAddress:   cfg.Bridge.HTTPAddress,
		StaticRoot:    cfg.Bridge.StaticRoot,
		MaxClients:    cfg.Bridge.MaxClients,
		Logger:        logger,
	})
	if err := b.Start(ctx); err != nil {
		return err
	}
	logger.Info("bridge serving",
		"ingest", b.IngestAddress(),
		"http", b.HTTPAddress(),
		"max_clients", cfg.Bridge.MaxClients,
	)

	<-ctx.Done()
	b.Stop()
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("TRIDENT_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

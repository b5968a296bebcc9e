// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// trident-relay is the stage-1 pipeline binary. It accepts packets
// from encoders, re-verifies their content hashes, marks them READ,
// and forwards them to the arbiter stage.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/trident/lib/config"
	"github.com/bureau-foundation/trident/lib/version"
	"github.com/bureau-foundation/trident/relay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := pflag.NewFlagSet("trident-relay", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to the YAML config file (default: $TRIDENT_CONFIG)")
	listenAddress := flagSet.String("listen", "", "listen address, overrides the config file")
	arbiterAddress := flagSet.String("arbiter", "", "arbiter address, overrides the config file")
	showVersion := flagSet.Bool("version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("trident-relay %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *listenAddress != "" {
		cfg.Relay.ListenAddress = *listenAddress
	}
	if *arbiterAddress != "" {
		cfg.Relay.ArbiterAddress = *arbiterAddress
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := relay.New(relay.Options{
		ListenAddress:  cfg.Relay.ListenAddress,
		ArbiterAddress: cfg.Relay.ArbiterAddress,
		Logger:         logger,
	})
	if err := r.Start(ctx); err != nil {
		return err
	}
	logger.Info("relay listening",
		"address", r.Address(),
		"arbiter", cfg.Relay.ArbiterAddress,
	)

	<-ctx.Done()
	r.Stop()
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

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// trident-arbiter is the stage-2 pipeline binary. It accepts packets
// from the relay, scores them through the four-check verification
// sequence, seals accepted packets with the consensus signature, and
// republishes sealed packets and verdicts to the client bridge.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/trident/arbiter"
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
	flagSet := pflag.NewFlagSet("trident-arbiter", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to the YAML config file (default: $TRIDENT_CONFIG)")
	listenAddress := flagSet.String("listen", "", "listen address, overrides the config file")
	bridgeAddress := flagSet.String("bridge", "", "bridge ingest address, overrides the config file")
	keyFile := flagSet.String("key-file", "", "path to the 32-byte consensus key, overrides the config file")
	showVersion := flagSet.Bool("version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("trident-arbiter %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *listenAddress != "" {
		cfg.Arbiter.ListenAddress = *listenAddress
	}
	if *bridgeAddress != "" {
		cfg.Arbiter.BridgeAddress = *bridgeAddress
	}
	if *keyFile != "" {
		cfg.Arbiter.KeyFile = *keyFile
	}

	var key []byte
	if cfg.Arbiter.KeyFile != "" {
		key, err = arbiter.LoadKey(cfg.Arbiter.KeyFile)
		if err != nil {
			return err
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := arbiter.New(arbiter.Options{
		ListenAddress: cfg.Arbiter.ListenAddress,
		BridgeAddress: cfg.Arbiter.BridgeAddress,
		Key:           key,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	logger.Info("arbiter listening",
		"address", a.Address(),
		"bridge", cfg.Arbiter.BridgeAddress,
	)

	<-ctx.Done()
	a.Stop()
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

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// trident runs the full verification pipeline in a single process:
// encoder, relay, arbiter, and client bridge wired together on
// loopback ports. Message content is read from stdin, one message per
// line; sealed packets and verdicts are observable over the bridge's
// websocket endpoint. Intended for local development and demos — the
// per-stage binaries are the deployment form.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/trident/arbiter"
	"github.com/bureau-foundation/trident/bridge"
	"github.com/bureau-foundation/trident/encoder"
	"github.com/bureau-foundation/trident/lib/auditlog"
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
	flagSet := pflag.NewFlagSet("trident", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to the YAML config file (default: $TRIDENT_CONFIG)")
	httpAddress := flagSet.String("http", "", "observer HTTP address, overrides the config file")
	keyFile := flagSet.String("key-file", "", "path to the 32-byte consensus key, overrides the config file")
	auditExport := flagSet.String("audit-export", "", "write the compressed audit trail to this file on exit")
	showVersion := flagSet.Bool("version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("trident %s\n", version.Full())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *httpAddress != "" {
		cfg.Bridge.HTTPAddress = *httpAddress
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
	audit := auditlog.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stages start back to front so each listener is bound, on an
	// ephemeral loopback port, before its upstream dials it.
	b := bridge.New(bridge.Options{
		IngestAddress: "127.0.0.1:0",
		HTTPAddress:   cfg.Bridge.HTTPAddress,
		StaticRoot:    cfg.Bridge.StaticRoot,
		MaxClients:    cfg.Bridge.MaxClients,
		Logger:        logger,
	})
	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Stop()

	a, err := arbiter.New(arbiter.Options{
		ListenAddress: "127.0.0.1:0",
		BridgeAddress: b.IngestAddress(),
		Key:           key,
		Audit:         audit,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Stop()

	r := relay.New(relay.Options{
		ListenAddress:  "127.0.0.1:0",
		ArbiterAddress: a.Address(),
		Audit:          audit,
		Logger:         logger,
	})
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop()

	e := encoder.New(encoder.Options{
		RelayAddress:  r.Address(),
		QueueCapacity: cfg.Encoder.QueueCapacity,
		Polarity:      true,
		Audit:         audit,
		Logger:        logger,
	})

	logger.Info("pipeline running",
		"observers", b.HTTPAddress(),
		"relay", r.Address(),
		"arbiter", a.Address(),
	)

	runDone := make(chan error, 1)
	go func() {
		runDone <- e.Run(ctx)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 16*1024), 16*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := e.Enqueue(line); err != nil {
			logger.Error("enqueue failed", "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("reading stdin", "error", err)
	}

	e.Close()
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if *auditExport != "" {
		data, err := audit.ExportCompressed()
		if err != nil {
			return fmt.Errorf("exporting audit trail: %w", err)
		}
		if err := os.WriteFile(*auditExport, data, 0600); err != nil {
			return fmt.Errorf("writing audit trail: %w", err)
		}
		logger.Info("audit trail written",
			"path", *auditExport,
			"entries", audit.Len(),
		)
	}
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

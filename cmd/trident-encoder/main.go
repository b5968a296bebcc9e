// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// trident-encoder is the stage-0 pipeline binary. It reads message
// content from stdin, one message per line, transforms and stamps each
// into a packet, and transmits the packets to the relay stage.
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

	"github.com/bureau-foundation/trident/encoder"
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
	flagSet := pflag.NewFlagSet("trident-encoder", pflag.ContinueOnError)
	configPath := flagSet.String("config", "", "path to the YAML config file (default: $TRIDENT_CONFIG)")
	relayAddress := flagSet.String("relay", "", "relay address, overrides the config file")
	polarity := flagSet.Bool("polarity", true, "transform polarity")
	showVersion := flagSet.Bool("version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("trident-encoder %s\n", version.Info())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *relayAddress != "" {
		cfg.Encoder.RelayAddress = *relayAddress
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := encoder.New(encoder.Options{
		RelayAddress:  cfg.Encoder.RelayAddress,
		QueueCapacity: cfg.Encoder.QueueCapacity,
		Polarity:      *polarity,
		Logger:        logger,
	})

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

	// Close drains the queue: Run transmits everything already
	// accepted before returning.
	e.Close()
	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
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

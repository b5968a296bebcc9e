// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/bureau-foundation/trident/lib/netutil"
)

// Handler receives inbound messages from a listener. Handlers run on
// the connection's goroutine; a slow handler backpressures that sender
// and no one else.
type Handler func(Message)

// Listener accepts framed messages from upstream stages over TCP and
// dispatches them to a handler.
type Listener struct {
	// ListenAddr is the TCP address to listen on (e.g. "127.0.0.1:8002").
	// Use ":0" for a random available port.
	ListenAddr string

	// Handler receives every well-formed inbound message.
	Handler Handler

	// Logger receives structured log output. If nil, slog.Default() is
	// used. Per-connection events are logged at Debug level; errors and
	// lifecycle events at Info/Error.
	Logger *slog.Logger

	listener    net.Listener
	cancel      context.CancelFunc
	done        chan struct{}
	connections sync.WaitGroup
}

// logger returns the configured logger or the default.
func (l *Listener) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Start binds the listener and begins accepting connections. It
// returns once the listener is bound, or an error if binding fails.
// The listener runs in the background until Stop is called or the
// context is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	if l.ListenAddr == "" {
		return fmt.Errorf("transport: ListenAddr is required")
	}
	if l.Handler == nil {
		return fmt.Errorf("transport: Handler is required")
	}

	listener, err := net.Listen("tcp", l.ListenAddr)
	if err != nil {
		return fmt.Errorf("transport: failed to listen on %s: %w", l.ListenAddr, err)
	}
	l.listener = listener

	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		l.acceptLoop(ctx)
	}()

	l.logger().Info("transport listener started", "listen_addr", l.Address())
	return nil
}

// Address returns the listener's bound address in "host:port" form,
// useful when binding to port 0. Returns "" if not started.
func (l *Listener) Address() string {
	if l.listener == nil {
		return ""
	}
	return l.listener.Addr().String()
}

// Stop shuts down the listener, closing the accept socket and waiting
// for all in-flight connections to drain.
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	if l.listener != nil {
		l.listener.Close()
	}
	if l.done != nil {
		<-l.done
	}
}

// acceptLoop accepts connections and reads framed messages from each.
// It waits for all in-flight connection goroutines to finish before
// returning, so that closing the done channel signals full quiescence.
func (l *Listener) acceptLoop(ctx context.Context) {
	var connectionCount int64

	for {
		connection, err := l.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				l.connections.Wait()
				return
			default:
				if errors.Is(err, net.ErrClosed) {
					l.connections.Wait()
					return
				}
				l.logger().Error("accept failed", "error", err)
				continue
			}
		}

		connectionCount++
		connectionID := connectionCount
		l.connections.Add(1)
		go func() {
			defer l.connections.Done()
			l.handleConnection(connection, connectionID)
		}()
	}
}

func (l *Listener) handleConnection(connection net.Conn, connectionID int64) {
	defer connection.Close()

	logger := l.logger().With("connection_id", connectionID)
	logger.Debug("connection accepted", "remote_addr", connection.RemoteAddr())

	for {
		message, err := ReadMessage(connection)
		if err != nil {
			if !netutil.IsExpectedCloseError(err) {
				logger.Debug("read failed", "error", err)
			}
			logger.Debug("connection closed")
			return
		}
		l.Handler(message)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/trident/lib/clock"
	"github.com/bureau-foundation/trident/transport"
	"github.com/bureau-foundation/trident/wire"
)

// Websocket subprotocols offered to observers.
const (
	// SubprotocolJSON delivers packets and verdicts as JSON envelopes.
	SubprotocolJSON = "trident.json.v1"

	// SubprotocolBinary delivers packets in their binary wire
	// encoding and verdicts as JSON.
	SubprotocolBinary = "trident.binary.v1"
)

// Timing constants for the observer connection lifecycle.
const (
	// pingInterval is how often the bridge pings each observer.
	pingInterval = 30 * time.Second

	// pongWait is how long an observer may go silent before its
	// connection is considered dead.
	pongWait = 60 * time.Second

	// writeWait bounds each outbound websocket write.
	writeWait = 10 * time.Second

	// maxInboundMessageSize bounds messages from observers. Observers
	// only send control traffic; anything larger is abuse.
	maxInboundMessageSize = 512
)

// Options configures a Bridge.
type Options struct {
	// IngestAddress is where republished packets and verdicts arrive
	// from the arbiter.
	IngestAddress string

	// HTTPAddress is where observers connect.
	HTTPAddress string

	// StaticRoot is the directory served to non-upgrade requests. If
	// empty, a built-in status page is served instead.
	StaticRoot string

	// MaxClients bounds concurrent observers. Defaults to 10.
	MaxClients int

	// Clock drives the observer ping cycle. If nil, clock.Real() is
	// used.
	Clock clock.Clock

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Bridge relays the arbiter's output to websocket observers.
type Bridge struct {
	httpAddress string
	staticRoot  string
	maxClients  int
	clock       clock.Clock
	logger      *slog.Logger

	hub      *hub
	ingest   *transport.Listener
	server   *http.Server
	listener net.Listener
	upgrader websocket.Upgrader

	packetsRelayed  atomic.Uint64
	verdictsRelayed atomic.Uint64
}

// envelope is the JSON form delivered to trident.json.v1 observers.
type envelope struct {
	Type    string          `json:"type"`
	Packet  json.RawMessage `json:"packet,omitempty"`
	Verdict json.RawMessage `json:"verdict,omitempty"`
}

// New creates a bridge.
func New(options Options) *Bridge {
	maxClients := options.MaxClients
	if maxClients < 1 {
		maxClients = 10
	}
	c := options.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bridge{
		httpAddress: options.HTTPAddress,
		staticRoot:  options.StaticRoot,
		maxClients:  maxClients,
		clock:       c,
		logger:      logger,
		hub:         newHub(),
		upgrader: websocket.Upgrader{
			Subprotocols: []string{SubprotocolJSON, SubprotocolBinary},
		},
	}
	b.ingest = &transport.Listener{
		ListenAddr: options.IngestAddress,
		Handler:    b.handleIngest,
		Logger:     logger,
	}
	b.server = &http.Server{
		Handler:     b,
		ReadTimeout: 30 * time.Second,
	}
	return b
}

// Start binds both faces of the bridge: the ingest listener and the
// HTTP server. It returns once both are bound; the bridge runs in the
// background until Stop is called or the context is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.ingest.Start(ctx); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", b.httpAddress)
	if err != nil {
		b.ingest.Stop()
		return fmt.Errorf("bridge: failed to listen on %s: %w", b.httpAddress, err)
	}
	b.listener = listener

	go func() {
		if err := b.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			b.logger.Error("http server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		b.Stop()
	}()

	b.logger.Info("bridge started",
		"ingest_addr", b.ingest.Address(),
		"http_addr", listener.Addr().String(),
	)
	return nil
}

// IngestAddress returns the bound ingest address.
func (b *Bridge) IngestAddress() string {
	return b.ingest.Address()
}

// HTTPAddress returns the bound HTTP address.
func (b *Bridge) HTTPAddress() string {
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Stop shuts down both faces and disconnects all observers.
func (b *Bridge) Stop() {
	b.server.Close()
	b.ingest.Stop()
	b.hub.closeAll()
}

// handleIngest fans one republished frame out to observers.
func (b *Bridge) handleIngest(message transport.Message) {
	switch message.Type {
	case transport.MessageTypePacket:
		packet, err := wire.DecodeBinary(message.Payload)
		if err != nil {
			b.logger.Warn("dropping malformed republished packet", "error", err)
			return
		}
		b.PublishPacket(&packet, message.Payload)
	case transport.MessageTypeVerdict:
		verdict, err := wire.UnmarshalVerdict(message.Payload)
		if err != nil {
			b.logger.Warn("dropping malformed verdict", "error", err)
			return
		}
		b.PublishVerdict(verdict)
	default:
		b.logger.Debug("ignoring unknown ingest frame", "type", message.Type)
	}
}

// PublishPacket delivers a sealed packet to all observers: its binary
// encoding to binary observers, a JSON envelope to JSON observers.
func (b *Bridge) PublishPacket(packet *wire.Packet, encoded []byte) {
	b.packetsRelayed.Add(1)

	b.hub.broadcast(SubprotocolBinary, outbound{
		messageType: websocket.BinaryMessage,
		data:        encoded,
	})

	packetJSON, err := json.Marshal(packet)
	if err != nil {
		b.logger.Error("encoding packet for observers", "error", err)
		return
	}
	data, err := json.Marshal(envelope{Type: "packet", Packet: packetJSON})
	if err != nil {
		b.logger.Error("encoding packet envelope", "error", err)
		return
	}
	b.hub.broadcast(SubprotocolJSON, outbound{
		messageType: websocket.TextMessage,
		data:        data,
	})

	b.logger.Debug("packet published",
		"sequence", packet.SequenceToken,
		"observers", b.hub.count(),
	)
}

// PublishVerdict delivers a verdict to all observers as JSON.
func (b *Bridge) PublishVerdict(verdict wire.Verdict) {
	b.verdictsRelayed.Add(1)

	verdictJSON, err := wire.MarshalVerdict(verdict)
	if err != nil {
		b.logger.Error("encoding verdict for observers", "error", err)
		return
	}
	data, err := json.Marshal(envelope{Type: "verdict", Verdict: verdictJSON})
	if err != nil {
		b.logger.Error("encoding verdict envelope", "error", err)
		return
	}

	b.hub.broadcast(SubprotocolJSON, outbound{
		messageType: websocket.TextMessage,
		data:        data,
	})
	b.hub.broadcast(SubprotocolBinary, outbound{
		messageType: websocket.TextMessage,
		data:        data,
	})
}

// ObserverCount returns the number of connected observers.
func (b *Bridge) ObserverCount() int {
	return b.hub.count()
}

// ServeHTTP routes upgrade requests to the observer path and
// everything else to static content.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		b.serveStatic(w, r)
		return
	}

	if b.hub.count() >= b.maxClients {
		http.Error(w, "observer limit reached", http.StatusServiceUnavailable)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		b.logger.Debug("upgrade failed", "error", err)
		return
	}

	subprotocol := conn.Subprotocol()
	if subprotocol == "" {
		subprotocol = SubprotocolJSON
	}
	o := &observer{
		conn:        conn,
		send:        make(chan outbound, sendBuffer),
		subprotocol: subprotocol,
	}
	b.hub.register(o)
	b.logger.Debug("observer connected",
		"remote_addr", conn.RemoteAddr(),
		"subprotocol", subprotocol,
	)

	go b.writePump(o)
	go b.readPump(o)
}

// serveStatic answers non-upgrade requests: the configured static
// root, or a built-in status page.
func (b *Bridge) serveStatic(w http.ResponseWriter, r *http.Request) {
	if b.staticRoot != "" {
		http.FileServer(http.Dir(b.staticRoot)).ServeHTTP(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"service":          "trident-bridge",
		"observers":        b.hub.count(),
		"packets_relayed":  b.packetsRelayed.Load(),
		"verdicts_relayed": b.verdictsRelayed.Load(),
	})
}

// writePump drains an observer's send queue onto its connection and
// keeps the connection alive with periodic pings.
func (b *Bridge) writePump(o *observer) {
	ticker := b.clock.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		o.conn.Close()
	}()

	for {
		select {
		case message, ok := <-o.send:
			if !ok {
				o.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(message.messageType, message.data); err != nil {
				b.hub.unregister(o)
				return
			}
		case <-ticker.C:
			o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.hub.unregister(o)
				return
			}
		}
	}
}

// readPump consumes an observer's inbound traffic. Observers send no
// application data; the pump exists to process pongs and detect
// disconnects.
func (b *Bridge) readPump(o *observer) {
	defer func() {
		b.hub.unregister(o)
		o.conn.Close()
		b.logger.Debug("observer disconnected", "remote_addr", o.conn.RemoteAddr())
	}()

	o.conn.SetReadLimit(maxInboundMessageSize)
	o.conn.SetReadDeadline(time.Now().Add(pongWait))
	o.conn.SetPongHandler(func(string) error {
		o.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			return
		}
	}
}

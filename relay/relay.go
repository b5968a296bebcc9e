// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay implements stage 1 of the pipeline: it re-verifies
// packet integrity, accumulates the READ permission, advances the
// wheel, and forwards packets to the arbiter. The relay never inspects
// or rewrites content — a hash mismatch means the packet was corrupted
// or tampered with in flight, and it is dropped without notice to the
// sender.
package relay

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/trident/lib/auditlog"
	"github.com/bureau-foundation/trident/lib/clock"
	"github.com/bureau-foundation/trident/transport"
	"github.com/bureau-foundation/trident/wire"
)

// Options configures a Relay.
type Options struct {
	// ListenAddress is where packets from encoders arrive.
	ListenAddress string

	// ArbiterAddress is the arbiter stage's "host:port".
	ArbiterAddress string

	// Clock supplies audit timestamps. If nil, clock.Real() is used.
	Clock clock.Clock

	// Audit receives an entry per relayed and dropped packet. If nil,
	// no audit records are kept.
	Audit *auditlog.Log

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Relay re-verifies and forwards packets.
type Relay struct {
	clock  clock.Clock
	audit  *auditlog.Log
	logger *slog.Logger

	listener *transport.Listener
	client   *transport.Client
}

// New creates a relay between the given listen address and arbiter.
func New(options Options) *Relay {
	c := options.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relay{
		clock:  c,
		audit:  options.Audit,
		logger: logger,
		client: &transport.Client{Address: options.ArbiterAddress},
	}
	r.listener = &transport.Listener{
		ListenAddr: options.ListenAddress,
		Handler:    r.handleMessage,
		Logger:     logger,
	}
	return r
}

// Start binds the relay's listener. Inbound packets are verified and
// forwarded until Stop is called or the context is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	return r.listener.Start(ctx)
}

// Address returns the listener's bound address.
func (r *Relay) Address() string {
	return r.listener.Address()
}

// Stop shuts down the relay's listener.
func (r *Relay) Stop() {
	r.listener.Stop()
}

// handleMessage decodes, verifies, processes, and forwards one inbound
// frame. Malformed or tampered packets are dropped and audited.
func (r *Relay) handleMessage(message transport.Message) {
	if message.Type != transport.MessageTypePacket {
		r.logger.Debug("ignoring non-packet frame", "type", message.Type)
		return
	}

	packet, err := r.Decode(message.Payload)
	if err != nil {
		r.logger.Warn("packet dropped", "error", err)
		return
	}

	r.Process(&packet)

	if err := r.Forward(context.Background(), &packet); err != nil {
		r.logger.Error("forward failed",
			"sequence", packet.SequenceToken,
			"error", err,
		)
		return
	}

	if r.audit != nil {
		r.audit.Append(auditlog.Entry{
			Timestamp:     r.clock.NowNanos(),
			EventType:     auditlog.EventRelayed,
			Channel:       uint8(wire.ChannelRelay),
			Sequence:      packet.SequenceToken,
			WheelPosition: packet.WheelPosition,
		})
	}
	r.logger.Debug("packet relayed",
		"sequence", packet.SequenceToken,
		"rwx_flags", packet.RWXFlags,
	)
}

// Decode parses a binary packet and re-verifies its integrity: the
// SHA-256 of the received content must match the stamped hash, and the
// packet must already carry the WRITE permission from the encoder. A
// failure on either count drops the packet.
func (r *Relay) Decode(payload []byte) (wire.Packet, error) {
	packet, err := wire.DecodeBinary(payload)
	if err != nil {
		r.auditDrop(0, fmt.Sprintf("decode: %v", err))
		return wire.Packet{}, fmt.Errorf("relay: decoding packet: %w", err)
	}

	if sha256.Sum256(packet.Content) != packet.MessageHash {
		r.auditDrop(packet.SequenceToken, "hash mismatch")
		return wire.Packet{}, fmt.Errorf("relay: packet %d content does not match its hash", packet.SequenceToken)
	}
	if !packet.HasFlags(wire.RWXWrite) {
		r.auditDrop(packet.SequenceToken, "missing WRITE permission")
		return wire.Packet{}, fmt.Errorf("relay: packet %d arrived without WRITE permission", packet.SequenceToken)
	}
	return packet, nil
}

// Process advances a verified packet to its relay revision: the READ
// bit joins the accumulator, the channel and topology links shift one
// hop down the chain, and the wheel advances to the relay's stamp.
// Content, hash, sequence, timestamp, and tag are untouched.
func (r *Relay) Process(packet *wire.Packet) {
	packet.RWXFlags |= wire.RWXRead
	packet.ChannelID = wire.ChannelRelay
	packet.PrevChannel = wire.ChannelEncoder
	packet.NextChannel = wire.ChannelArbiter
	packet.WheelPosition = wire.WheelRelay
}

// Forward sends a processed packet to the arbiter.
func (r *Relay) Forward(ctx context.Context, packet *wire.Packet) error {
	encoded, err := wire.EncodeBinary(packet)
	if err != nil {
		return fmt.Errorf("relay: encoding packet %d: %w", packet.SequenceToken, err)
	}
	return r.client.Send(ctx, transport.NewPacketMessage(encoded))
}

func (r *Relay) auditDrop(sequence uint32, detail string) {
	if r.audit == nil {
		return
	}
	r.audit.Append(auditlog.Entry{
		Timestamp: r.clock.NowNanos(),
		EventType: auditlog.EventDropped,
		Channel:   uint8(wire.ChannelRelay),
		Sequence:  sequence,
		Detail:    detail,
	})
}

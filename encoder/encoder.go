// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package encoder implements stage 0 of the pipeline: it transforms
// raw content, stamps packet metadata, and transmits packets toward
// the relay. The encoder is the only stage that creates packets; every
// field it stamps except the permission accumulator and topology links
// is immutable downstream.
package encoder

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bureau-foundation/trident/lib/auditlog"
	"github.com/bureau-foundation/trident/lib/clock"
	"github.com/bureau-foundation/trident/lib/queue"
	"github.com/bureau-foundation/trident/transport"
	"github.com/bureau-foundation/trident/wire"
)

// CodecVersion is the transform/verification ruleset this encoder
// stamps into packets. The arbiter increments the packet's copy on
// acceptance to mark final form.
const CodecVersion uint8 = 1

// Options configures an Encoder.
type Options struct {
	// RelayAddress is the relay stage's "host:port".
	RelayAddress string

	// QueueCapacity bounds the transmit buffer. Defaults to 256.
	QueueCapacity int

	// Polarity selects the transform variant. Both polarities produce
	// hashable output; the flag exists so paired encoders can emit
	// distinguishable streams from identical input.
	Polarity bool

	// Clock supplies packet timestamps. If nil, clock.Real() is used.
	Clock clock.Clock

	// Audit receives an entry per encoded and transmitted packet. If
	// nil, no audit records are kept.
	Audit *auditlog.Log

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Encoder builds and transmits packets. Sequence tokens are strictly
// increasing per instance; an Encoder must not be copied.
type Encoder struct {
	clock    clock.Clock
	audit    *auditlog.Log
	logger   *slog.Logger
	polarity bool

	sequence atomic.Uint32
	pending  *queue.Queue[wire.Packet]
	client   *transport.Client
}

// New creates an encoder targeting the given relay.
func New(options Options) *Encoder {
	capacity := options.QueueCapacity
	if capacity < 1 {
		capacity = 256
	}
	c := options.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{
		clock:    c,
		audit:    options.Audit,
		logger:   logger,
		polarity: options.Polarity,
		pending:  queue.New[wire.Packet](capacity),
		client:   &transport.Client{Address: options.RelayAddress},
	}
}

// Encode transforms raw content into a fully-stamped packet. The
// packet carries the transformed bytes, their SHA-256 digest, the next
// sequence token, the WRITE permission bit, the TRANSMIT provenance
// tag, and the origin wheel position. Raw input longer than twice the
// content bound is rejected before transforming.
func (e *Encoder) Encode(raw []byte) (wire.Packet, error) {
	if len(raw) > 2*wire.MaxContentSize {
		return wire.Packet{}, fmt.Errorf("encoder: raw input is %d bytes, maximum is %d", len(raw), 2*wire.MaxContentSize)
	}

	transformed := Transform(raw, e.polarity)

	packet := wire.Packet{
		ChannelID:      wire.ChannelEncoder,
		SequenceToken:  e.sequence.Add(1),
		Timestamp:      e.clock.NowNanos(),
		CodecVersion:   CodecVersion,
		MessageHash:    sha256.Sum256(transformed),
		Content:        transformed,
		RWXFlags:       wire.RWXWrite,
		HumanRightsTag: wire.TagTransmit,
		NextChannel:    wire.ChannelRelay,
		PrevChannel:    wire.ChannelEncoder,
		WheelPosition:  wire.WheelEncode,
	}

	if e.audit != nil {
		e.audit.Append(auditlog.Entry{
			Timestamp:     packet.Timestamp,
			EventType:     auditlog.EventEncoded,
			Channel:       uint8(packet.ChannelID),
			Sequence:      packet.SequenceToken,
			WheelPosition: packet.WheelPosition,
		})
	}
	return packet, nil
}

// Enqueue encodes raw content and buffers the packet for transmission
// by Run. Returns queue.ErrFull when the transmit buffer is at
// capacity; the caller decides whether to drop or retry.
func (e *Encoder) Enqueue(raw []byte) error {
	packet, err := e.Encode(raw)
	if err != nil {
		return err
	}
	return e.pending.Push(packet)
}

// Transmit sends one packet to the relay.
func (e *Encoder) Transmit(ctx context.Context, packet *wire.Packet) error {
	encoded, err := wire.EncodeBinary(packet)
	if err != nil {
		return fmt.Errorf("encoder: encoding packet %d: %w", packet.SequenceToken, err)
	}
	if err := e.client.Send(ctx, transport.NewPacketMessage(encoded)); err != nil {
		return fmt.Errorf("encoder: transmitting packet %d: %w", packet.SequenceToken, err)
	}
	return nil
}

// Run drains the transmit buffer until the context is cancelled.
// Transmission failures are logged and the packet is dropped; the
// pipeline has no retry path before the arbiter.
func (e *Encoder) Run(ctx context.Context) error {
	for {
		packet, err := e.pending.Pop(ctx)
		if err != nil {
			if err == queue.ErrClosed {
				return nil
			}
			return err
		}
		if err := e.Transmit(ctx, &packet); err != nil {
			e.logger.Error("transmit failed",
				"sequence", packet.SequenceToken,
				"error", err,
			)
			continue
		}
		e.logger.Debug("packet transmitted",
			"sequence", packet.SequenceToken,
			"content_length", len(packet.Content),
		)
	}
}

// Close stops accepting new content. Run returns once the buffer is
// drained.
func (e *Encoder) Close() {
	e.pending.Close()
}

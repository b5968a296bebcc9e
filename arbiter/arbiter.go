// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package arbiter implements stage 2 of the pipeline: it scores
// packets for consensus, enforces the arbitration policy checks, seals
// accepted packets with a consensus signature, and republishes sealed
// packets and verdicts to the client bridge.
//
// The package is organized around the arbitration flow:
//
//   - verify.go: the four ordered policy checks and their statuses
//   - consensus.go: bipartite consensus scoring
//   - discriminant.go: order/flash/chaos classification and repair
//   - sign.go: consensus signature sealing
//   - arbiter.go: wiring, finalization, and republication
package arbiter

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/trident/lib/auditlog"
	"github.com/bureau-foundation/trident/lib/clock"
	"github.com/bureau-foundation/trident/transport"
	"github.com/bureau-foundation/trident/wire"
)

// Options configures an Arbiter.
type Options struct {
	// ListenAddress is where packets from the relay arrive.
	ListenAddress string

	// BridgeAddress is the client bridge's "host:port".
	BridgeAddress string

	// Key is the 32-byte consensus signing secret. If nil, an
	// ephemeral secret is generated; signatures then do not survive a
	// restart.
	Key []byte

	// Clock supplies verdict and audit timestamps. If nil,
	// clock.Real() is used.
	Clock clock.Clock

	// Audit receives an entry per verdict, repair, and republication.
	// If nil, no audit records are kept.
	Audit *auditlog.Log

	// Logger receives structured log output. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Arbiter scores, seals, and republishes packets.
type Arbiter struct {
	clock  clock.Clock
	audit  *auditlog.Log
	logger *slog.Logger
	key    [KeySize]byte

	listener *transport.Listener
	client   *transport.Client
}

// New creates an arbiter. Returns an error if a key is supplied with
// the wrong width or ephemeral key generation fails.
func New(options Options) (*Arbiter, error) {
	c := options.Clock
	if c == nil {
		c = clock.Real()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Arbiter{
		clock:  c,
		audit:  options.Audit,
		logger: logger,
		client: &transport.Client{Address: options.BridgeAddress},
	}

	if options.Key != nil {
		if len(options.Key) != KeySize {
			return nil, fmt.Errorf("arbiter: key is %d bytes, want %d", len(options.Key), KeySize)
		}
		copy(a.key[:], options.Key)
	} else {
		if _, err := rand.Read(a.key[:]); err != nil {
			return nil, fmt.Errorf("arbiter: generating ephemeral key: %w", err)
		}
		logger.Warn("using ephemeral consensus key; signatures will not survive a restart")
	}

	a.listener = &transport.Listener{
		ListenAddr: options.ListenAddress,
		Handler:    a.handleMessage,
		Logger:     logger,
	}
	return a, nil
}

// LoadKey reads a consensus signing secret from a file. The file must
// contain exactly 32 raw bytes.
func LoadKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("arbiter: reading key file: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("arbiter: key file %s holds %d bytes, want %d", path, len(key), KeySize)
	}
	return key, nil
}

// Start binds the arbiter's listener. Inbound packets are arbitrated
// until Stop is called or the context is cancelled.
func (a *Arbiter) Start(ctx context.Context) error {
	return a.listener.Start(ctx)
}

// Address returns the listener's bound address.
func (a *Arbiter) Address() string {
	return a.listener.Address()
}

// Stop shuts down the arbiter's listener.
func (a *Arbiter) Stop() {
	a.listener.Stop()
}

// handleMessage arbitrates one inbound frame end to end.
func (a *Arbiter) handleMessage(message transport.Message) {
	if message.Type != transport.MessageTypePacket {
		a.logger.Debug("ignoring non-packet frame", "type", message.Type)
		return
	}

	packet, err := a.Decode(message.Payload)
	if err != nil {
		a.logger.Warn("packet dropped", "error", err)
		return
	}

	verdict, sealed := a.Arbitrate(&packet)

	if err := a.Republish(context.Background(), sealed, verdict); err != nil {
		a.logger.Error("republish failed",
			"sequence", packet.SequenceToken,
			"error", err,
		)
	}
}

// Decode parses a binary packet and re-verifies its content hash, the
// same integrity recheck every stage performs on receipt.
func (a *Arbiter) Decode(payload []byte) (wire.Packet, error) {
	packet, err := wire.DecodeBinary(payload)
	if err != nil {
		return wire.Packet{}, fmt.Errorf("arbiter: decoding packet: %w", err)
	}
	if sha256.Sum256(packet.Content) != packet.MessageHash {
		return wire.Packet{}, fmt.Errorf("arbiter: packet %d content does not match its hash", packet.SequenceToken)
	}
	if packet.Sealed() {
		// Only this arbiter seals packets; a signature on arrival is a
		// replay or a forgery.
		return wire.Packet{}, fmt.Errorf("arbiter: packet %d arrived already sealed", packet.SequenceToken)
	}
	return packet, nil
}

// Arbitrate verifies a packet and, on acceptance, finalizes and seals
// it. The returned verdict always describes the outcome; the returned
// packet is nil unless the verdict is VERIFIED.
func (a *Arbiter) Arbitrate(packet *wire.Packet) (wire.Verdict, *wire.Packet) {
	result := a.Verify(packet)

	if result.Repaired {
		a.auditEvent(auditlog.EventRepaired, packet, fmt.Sprintf("score=%.4f", result.Score))
	}

	if result.Status != StatusVerified {
		a.auditEvent(auditlog.EventRejected, packet, result.Status)
		a.logger.Info("packet rejected",
			"sequence", packet.SequenceToken,
			"status", result.Status,
			"score", result.Score,
		)
		return wire.Verdict{
			Timestamp:     a.clock.NowNanos(),
			Status:        result.Status,
			Score:         result.Score,
			WheelPosition: packet.WheelPosition,
		}, nil
	}

	sealed := packet.Clone()
	a.Finalize(&sealed)

	a.auditEvent(auditlog.EventVerified, &sealed, fmt.Sprintf("score=%.4f", result.Score))
	a.logger.Info("packet verified",
		"sequence", sealed.SequenceToken,
		"score", result.Score,
		"repaired", result.Repaired,
	)

	verdict := wire.Verdict{
		Timestamp:     a.clock.NowNanos(),
		Status:        StatusVerified,
		Score:         result.Score,
		WheelPosition: sealed.WheelPosition,
	}
	if encoded, err := wire.EncodeBinary(&sealed); err == nil {
		digest := sha256.Sum256(encoded)
		verdict.Digest = digest[:]
	}
	return verdict, &sealed
}

// Finalize advances an accepted packet to its sealed form: full
// permissions, the arbiter's channel and topology stamps, the
// full-circle wheel position, the next codec version, and the
// consensus signature. The topology wraps: an accepted packet's next
// channel is the encoder that began the circle.
func (a *Arbiter) Finalize(packet *wire.Packet) {
	packet.RWXFlags = wire.RWXFull
	packet.ChannelID = wire.ChannelArbiter
	packet.PrevChannel = wire.ChannelRelay
	packet.NextChannel = wire.ChannelEncoder
	packet.WheelPosition = wire.WheelFullCircle
	packet.CodecVersion++
	if err := a.Sign(packet); err != nil {
		// Pre-sealed packets are rejected at Decode, so this only
		// fires if the clone was mutated concurrently.
		a.logger.Error("sealing failed", "sequence", packet.SequenceToken, "error", err)
	}
}

// Republish sends the verdict, and the sealed packet when acceptance
// produced one, to the client bridge.
func (a *Arbiter) Republish(ctx context.Context, sealed *wire.Packet, verdict wire.Verdict) error {
	if sealed != nil {
		encoded, err := wire.EncodeBinary(sealed)
		if err != nil {
			return fmt.Errorf("arbiter: encoding sealed packet %d: %w", sealed.SequenceToken, err)
		}
		if err := a.client.Send(ctx, transport.NewPacketMessage(encoded)); err != nil {
			return fmt.Errorf("arbiter: republishing packet %d: %w", sealed.SequenceToken, err)
		}
		a.auditEvent(auditlog.EventRepublished, sealed, "")
	}

	encodedVerdict, err := wire.MarshalVerdict(verdict)
	if err != nil {
		return fmt.Errorf("arbiter: encoding verdict: %w", err)
	}
	if err := a.client.Send(ctx, transport.NewVerdictMessage(encodedVerdict)); err != nil {
		return fmt.Errorf("arbiter: republishing verdict: %w", err)
	}
	return nil
}

func (a *Arbiter) auditEvent(eventType string, packet *wire.Packet, detail string) {
	if a.audit == nil {
		return
	}
	a.audit.Append(auditlog.Entry{
		Timestamp:     a.clock.NowNanos(),
		EventType:     eventType,
		Channel:       uint8(wire.ChannelArbiter),
		Sequence:      packet.SequenceToken,
		WheelPosition: packet.WheelPosition,
		Detail:        detail,
	})
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/trident/arbiter"
	"github.com/bureau-foundation/trident/bridge"
	"github.com/bureau-foundation/trident/encoder"
	"github.com/bureau-foundation/trident/lib/auditlog"
	"github.com/bureau-foundation/trident/relay"
	"github.com/bureau-foundation/trident/wire"
)

// envelope mirrors the JSON form the bridge delivers to observers.
type envelope struct {
	Type    string          `json:"type"`
	Packet  json.RawMessage `json:"packet,omitempty"`
	Verdict json.RawMessage `json:"verdict,omitempty"`
}

// pipeline is a full encoder → relay → arbiter → bridge chain wired
// on loopback ports, plus a connected websocket observer.
type pipeline struct {
	encoder  *encoder.Encoder
	arbiter  *arbiter.Arbiter
	audit    *auditlog.Log
	observer *websocket.Conn
}

var testKey = bytes.Repeat([]byte{0x5A}, 32)

// testContext stands in for testing.T.Context, which needs a newer Go
// toolchain than this build targets: the context is canceled when the
// test's cleanup functions run.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func startPipeline(t *testing.T) *pipeline {
	t.Helper()
	ctx := testContext(t)
	audit := auditlog.New()

	b := bridge.New(bridge.Options{
		IngestAddress: "127.0.0.1:0",
		HTTPAddress:   "127.0.0.1:0",
	})
	if err := b.Start(ctx); err != nil {
		t.Fatalf("starting bridge: %v", err)
	}
	t.Cleanup(b.Stop)

	a, err := arbiter.New(arbiter.Options{
		ListenAddress: "127.0.0.1:0",
		BridgeAddress: b.IngestAddress(),
		Key:           testKey,
		Audit:         audit,
	})
	if err != nil {
		t.Fatalf("creating arbiter: %v", err)
	}
	if err := a.Start(ctx); err != nil {
		t.Fatalf("starting arbiter: %v", err)
	}
	t.Cleanup(a.Stop)

	r := relay.New(relay.Options{
		ListenAddress:  "127.0.0.1:0",
		ArbiterAddress: a.Address(),
		Audit:          audit,
	})
	if err := r.Start(ctx); err != nil {
		t.Fatalf("starting relay: %v", err)
	}
	t.Cleanup(r.Stop)

	e := encoder.New(encoder.Options{
		RelayAddress: r.Address(),
		Polarity:     true,
		Audit:        audit,
	})

	dialer := websocket.Dialer{
		Subprotocols:     []string{bridge.SubprotocolJSON},
		HandshakeTimeout: 2 * time.Second,
	}
	observer, _, err := dialer.Dial("ws://"+b.HTTPAddress()+"/", nil)
	if err != nil {
		t.Fatalf("connecting observer: %v", err)
	}
	t.Cleanup(func() { observer.Close() })

	// The observer must be registered before anything is published.
	deadline := time.Now().Add(2 * time.Second)
	for b.ObserverCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("observer never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	return &pipeline{encoder: e, arbiter: a, audit: audit, observer: observer}
}

// collect reads observer messages until one packet and one verdict
// have arrived, or only a verdict when wantPacket is false.
func (p *pipeline) collect(t *testing.T, wantPacket bool) (*wire.Packet, wire.Verdict) {
	t.Helper()
	var packet *wire.Packet
	var verdict wire.Verdict
	haveVerdict := false

	p.observer.SetReadDeadline(time.Now().Add(5 * time.Second))
	for !haveVerdict || (wantPacket && packet == nil) {
		_, data, err := p.observer.ReadMessage()
		if err != nil {
			t.Fatalf("reading observer message: %v", err)
		}
		var received envelope
		if err := json.Unmarshal(data, &received); err != nil {
			t.Fatalf("decoding envelope: %v", err)
		}
		switch received.Type {
		case "packet":
			decoded := &wire.Packet{}
			if err := json.Unmarshal(received.Packet, decoded); err != nil {
				t.Fatalf("decoding packet: %v", err)
			}
			packet = decoded
		case "verdict":
			verdict, err = wire.UnmarshalVerdict(received.Verdict)
			if err != nil {
				t.Fatalf("decoding verdict: %v", err)
			}
			haveVerdict = true
		default:
			t.Fatalf("unexpected envelope type %q", received.Type)
		}
	}
	return packet, verdict
}

func TestPipelineVerifiesOrderedContent(t *testing.T) {
	t.Parallel()
	p := startPipeline(t)

	// Repeated bytes transform to all-ones output, so the order ratio
	// is 1.0 and the score clears the consensus threshold at the
	// relay's wheel position.
	raw := bytes.Repeat([]byte{0x41}, 16)
	if err := p.encoder.Enqueue(raw); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()
	go p.encoder.Run(ctx)

	packet, verdict := p.collect(t, true)

	if verdict.Status != arbiter.StatusVerified {
		t.Fatalf("verdict status = %q, want %q", verdict.Status, arbiter.StatusVerified)
	}
	if verdict.Score < wire.ConsensusThreshold {
		t.Errorf("score = %v, below threshold", verdict.Score)
	}
	if verdict.WheelPosition != wire.WheelFullCircle {
		t.Errorf("verdict wheel = %d, want %d", verdict.WheelPosition, wire.WheelFullCircle)
	}

	if !packet.HasFlags(wire.RWXFull) {
		t.Errorf("sealed packet flags = %#x, want full permissions", packet.RWXFlags)
	}
	if packet.ChannelID != wire.ChannelArbiter {
		t.Errorf("ChannelID = %d, want arbiter", packet.ChannelID)
	}
	if packet.PrevChannel != wire.ChannelRelay || packet.NextChannel != wire.ChannelEncoder {
		t.Errorf("channel links = %d→%d, want relay→encoder",
			packet.PrevChannel, packet.NextChannel)
	}
	if packet.WheelPosition != wire.WheelFullCircle {
		t.Errorf("wheel = %d, want %d", packet.WheelPosition, wire.WheelFullCircle)
	}
	if packet.CodecVersion != encoder.CodecVersion+1 {
		t.Errorf("CodecVersion = %d, want %d", packet.CodecVersion, encoder.CodecVersion+1)
	}
	if !p.arbiter.VerifySignature(packet) {
		t.Error("sealed packet's consensus signature does not verify")
	}

	// The transform is one-way: the sealed content is not the raw
	// input, and the hash covers the transformed bytes.
	if bytes.Equal(packet.Content, raw) {
		t.Error("sealed content equals raw input; transform was skipped")
	}
}

func TestPipelineRejectsChaoticContent(t *testing.T) {
	t.Parallel()
	p := startPipeline(t)

	// Alternating 0x00/0xFF pairs transform to all-zero output: order
	// ratio 0, score below threshold, and the repair fold cannot lift
	// a zero vector. The verdict is published; no sealed packet is.
	raw := bytes.Repeat([]byte{0x00, 0xFF}, 8)
	if err := p.encoder.Enqueue(raw); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()
	go p.encoder.Run(ctx)

	packet, verdict := p.collect(t, false)

	if verdict.Status != arbiter.StatusConsensusFailed {
		t.Fatalf("verdict status = %q, want %q", verdict.Status, arbiter.StatusConsensusFailed)
	}
	if packet != nil {
		t.Errorf("rejected message produced a sealed packet: %+v", packet)
	}

	// The rejection leaves a repair attempt in the audit trail.
	repaired := false
	for _, entry := range p.audit.Snapshot() {
		if entry.EventType == auditlog.EventRepaired {
			repaired = true
		}
	}
	if !repaired {
		t.Error("audit trail has no repair entry")
	}
}

func TestPipelineAuditTrailCoversEveryStage(t *testing.T) {
	t.Parallel()
	p := startPipeline(t)

	if err := p.encoder.Enqueue(bytes.Repeat([]byte{0x41}, 16)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()
	go p.encoder.Run(ctx)

	p.collect(t, true)

	// Events are appended asynchronously by each stage; wait for the
	// full set rather than asserting a snapshot immediately.
	want := []string{
		auditlog.EventEncoded,
		auditlog.EventRelayed,
		auditlog.EventVerified,
		auditlog.EventRepublished,
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		seen := make(map[string]bool)
		for _, entry := range p.audit.Snapshot() {
			seen[entry.EventType] = true
		}
		missing := []string{}
		for _, event := range want {
			if !seen[event] {
				missing = append(missing, event)
			}
		}
		if len(missing) == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("audit trail missing events: %s", strings.Join(missing, ", "))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

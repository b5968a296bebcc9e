// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// Channel identifies which pipeline stage produced or will next handle
// a packet. The three stages form a fixed chain: encoder → relay →
// arbiter.
type Channel uint8

const (
	// ChannelEncoder is stage 0: builds packets from raw content.
	ChannelEncoder Channel = 0
	// ChannelRelay is stage 1: re-verifies integrity and forwards.
	ChannelRelay Channel = 1
	// ChannelArbiter is stage 2: scores, signs, and republishes.
	ChannelArbiter Channel = 2
)

// String returns the stage name for a channel.
func (c Channel) String() string {
	switch c {
	case ChannelEncoder:
		return "encoder"
	case ChannelRelay:
		return "relay"
	case ChannelArbiter:
		return "arbiter"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// RWX permission bits. A packet accumulates bits as it advances through
// the pipeline: WRITE at the encoder, READ at the relay, EXECUTE at the
// arbiter on acceptance. Bits are never cleared once set. These values
// are protocol constants — changing them breaks wire compatibility.
const (
	RWXRead    uint8 = 0x04
	RWXWrite   uint8 = 0x02
	RWXExecute uint8 = 0x01
	RWXFull    uint8 = RWXRead | RWXWrite | RWXExecute
)

// Size limits for packet fields. Protocol constants shared with the
// binary layout in binary.go.
const (
	// MaxContentSize bounds the transformed payload. Longer input is
	// a hard error at the encoder, and a decode error on receipt.
	MaxContentSize = 4096

	// HashSize is the width of the SHA-256 integrity digest.
	HashSize = 32

	// SignatureSize is the width of the consensus signature field.
	SignatureSize = 64

	// MaxTagLength bounds the provenance tag, including its NUL
	// terminator in the binary layout.
	MaxTagLength = 64
)

// ConsensusThreshold is the minimum consensus score for acceptance at
// the arbiter: a two-thirds majority of order over chaos.
const ConsensusThreshold = 2.0 / 3.0

// Wheel positions in degrees. The wheel advances at each hop and feeds
// the consensus score; every stored value satisfies 0 ≤ position < 360.
const (
	// WheelEncode is the wheel position stamped by the encoder.
	WheelEncode uint16 = 0

	// WheelRelay is the wheel position stamped by the relay.
	WheelRelay uint16 = 120

	// WheelFullCircle is stamped by the arbiter on acceptance. 359 is
	// the largest representable position; 360 would wrap to the
	// encoder's origin and violate the [0, 360) invariant.
	WheelFullCircle uint16 = 359

	// WheelArrivalMin and WheelArrivalMax bound the tolerance band in
	// which a packet's wheel position must fall when it reaches the
	// arbiter. The band brackets the relay's 120° stamp with room for
	// intermediate rotation.
	WheelArrivalMin uint16 = 100
	WheelArrivalMax uint16 = 250
)

// Provenance tag vocabulary. The tag records which stage last touched a
// packet for compliance auditing. The vocabulary is closed: membership
// is checked at the arbiter and never extended at runtime.
const (
	TagTransmit = "TRANSMIT"
	TagReceive  = "RECEIVE"
	TagVerify   = "VERIFY"
	TagVerified = "VERIFIED"
)

// validTags is the closed vocabulary, in declaration order.
var validTags = []string{TagTransmit, TagReceive, TagVerify, TagVerified}

// ValidTag reports whether tag is a member of the closed provenance
// vocabulary.
func ValidTag(tag string) bool {
	for _, valid := range validTags {
		if tag == valid {
			return true
		}
	}
	return false
}

// Tags returns a copy of the closed provenance vocabulary.
func Tags() []string {
	tags := make([]string, len(validTags))
	copy(tags, validTags)
	return tags
}

// WheelInArrivalWindow reports whether a wheel position falls inside
// the arbiter's expected arrival band.
func WheelInArrivalWindow(position uint16) bool {
	return position >= WheelArrivalMin && position <= WheelArrivalMax
}

// Packet is the unit of work flowing through the pipeline. Fields map
// one-to-one onto the binary layout in binary.go and the JSON form in
// json.go.
type Packet struct {
	// ChannelID is the stage that produced this packet revision.
	ChannelID Channel

	// SequenceToken is strictly increasing per encoder instance and
	// never reused within a session.
	SequenceToken uint32

	// Timestamp is the capture-time nanosecond counter. Informational
	// only: no ordering or freshness decision depends on it.
	Timestamp uint64

	// CodecVersion marks which transform/verification ruleset applied.
	// The arbiter increments it on acceptance to mark final form.
	CodecVersion uint8

	// MessageHash is the SHA-256 digest of Content, fixed at encode
	// time and immutable afterward.
	MessageHash [HashSize]byte

	// Content is the transformed payload, at most MaxContentSize bytes.
	Content []byte

	// RWXFlags is the permission accumulator. Bits only ever gain as
	// the packet advances.
	RWXFlags uint8

	// ConsensusSignature is all zero until the arbiter accepts the
	// packet. Once set, the packet is sealed and must not be mutated.
	ConsensusSignature [SignatureSize]byte

	// HumanRightsTag is the provenance label, a member of the closed
	// vocabulary.
	HumanRightsTag string

	// NextChannel and PrevChannel are the topology links forming the
	// expected encoder → relay → arbiter chain.
	NextChannel Channel
	PrevChannel Channel

	// WheelPosition is the angular progress marker in degrees,
	// 0 ≤ WheelPosition < 360.
	WheelPosition uint16
}

// Clone returns a deep copy of the packet. Stages operate on clones so
// that no mutable packet state is ever shared across a hop boundary.
func (p *Packet) Clone() Packet {
	clone := *p
	clone.Content = make([]byte, len(p.Content))
	copy(clone.Content, p.Content)
	return clone
}

// Sealed reports whether the consensus signature has been set. A sealed
// packet has passed arbitration and must not be mutated or re-signed.
func (p *Packet) Sealed() bool {
	for _, b := range p.ConsensusSignature {
		if b != 0 {
			return true
		}
	}
	return false
}

// HasFlags reports whether every bit in flags is set in RWXFlags.
func (p *Packet) HasFlags(flags uint8) bool {
	return p.RWXFlags&flags == flags
}

// Validate checks the packet's structural invariants: content within
// the size bound, tag within the length bound, and wheel position in
// [0, 360). It does not perform arbitration policy checks.
func (p *Packet) Validate() error {
	if len(p.Content) > MaxContentSize {
		return fmt.Errorf("content is %d bytes, maximum is %d", len(p.Content), MaxContentSize)
	}
	if len(p.HumanRightsTag)+1 > MaxTagLength {
		return fmt.Errorf("tag is %d bytes, maximum is %d including terminator", len(p.HumanRightsTag), MaxTagLength-1)
	}
	if p.WheelPosition >= 360 {
		return fmt.Errorf("wheel position %d outside [0, 360)", p.WheelPosition)
	}
	return nil
}

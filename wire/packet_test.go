// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"strings"
	"testing"
)

func TestChannelString(t *testing.T) {
	cases := []struct {
		channel Channel
		want    string
	}{
		{ChannelEncoder, "encoder"},
		{ChannelRelay, "relay"},
		{ChannelArbiter, "arbiter"},
		{Channel(7), "unknown(7)"},
	}
	for _, c := range cases {
		if got := c.channel.String(); got != c.want {
			t.Errorf("Channel(%d).String() = %q, want %q", uint8(c.channel), got, c.want)
		}
	}
}

func TestValidTag(t *testing.T) {
	for _, tag := range Tags() {
		if !ValidTag(tag) {
			t.Errorf("ValidTag(%q) = false for vocabulary member", tag)
		}
	}
	for _, tag := range []string{"", "transmit", "TRANSMITTED", "VERIFY "} {
		if ValidTag(tag) {
			t.Errorf("ValidTag(%q) = true for non-member", tag)
		}
	}
}

func TestTagsReturnsCopy(t *testing.T) {
	tags := Tags()
	tags[0] = "MUTATED"
	if !ValidTag(TagTransmit) {
		t.Error("mutating the Tags() result changed the vocabulary")
	}
}

func TestWheelInArrivalWindow(t *testing.T) {
	cases := []struct {
		position uint16
		want     bool
	}{
		{99, false},
		{100, true},
		{120, true},
		{250, true},
		{251, false},
		{0, false},
		{359, false},
	}
	for _, c := range cases {
		if got := WheelInArrivalWindow(c.position); got != c.want {
			t.Errorf("WheelInArrivalWindow(%d) = %v, want %v", c.position, got, c.want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := samplePacket()
	clone := original.Clone()

	clone.Content[0] ^= 0xFF
	if original.Content[0] == clone.Content[0] {
		t.Error("mutating the clone's content changed the original")
	}

	clone.MessageHash[0] ^= 0xFF
	if original.MessageHash[0] == clone.MessageHash[0] {
		t.Error("mutating the clone's hash changed the original")
	}
}

func TestSealed(t *testing.T) {
	packet := samplePacket()
	if packet.Sealed() {
		t.Error("packet with zero signature reports sealed")
	}
	packet.ConsensusSignature[SignatureSize-1] = 1
	if !packet.Sealed() {
		t.Error("packet with nonzero signature byte reports unsealed")
	}
}

func TestHasFlags(t *testing.T) {
	packet := samplePacket()
	packet.RWXFlags = RWXWrite | RWXRead

	if !packet.HasFlags(RWXWrite) {
		t.Error("HasFlags(WRITE) = false with WRITE set")
	}
	if !packet.HasFlags(RWXWrite | RWXRead) {
		t.Error("HasFlags(WRITE|READ) = false with both set")
	}
	if packet.HasFlags(RWXExecute) {
		t.Error("HasFlags(EXECUTE) = true without EXECUTE")
	}
	if packet.HasFlags(RWXFull) {
		t.Error("HasFlags(FULL) = true without EXECUTE")
	}
}

func TestValidateBounds(t *testing.T) {
	packet := samplePacket()
	if err := packet.Validate(); err != nil {
		t.Fatalf("Validate on well-formed packet: %v", err)
	}

	oversized := samplePacket()
	oversized.Content = make([]byte, MaxContentSize+1)
	if err := oversized.Validate(); err == nil {
		t.Error("Validate accepted oversized content")
	}

	longTag := samplePacket()
	longTag.HumanRightsTag = strings.Repeat("T", MaxTagLength)
	if err := longTag.Validate(); err == nil {
		t.Error("Validate accepted tag with no room for terminator")
	}

	badWheel := samplePacket()
	badWheel.WheelPosition = 360
	if err := badWheel.Validate(); err == nil {
		t.Error("Validate accepted wheel position 360")
	}
}

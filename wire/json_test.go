// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONRoundTrip(t *testing.T) {
	original := samplePacket()
	original.RWXFlags = RWXFull
	for i := range original.ConsensusSignature {
		original.ConsensusSignature[i] = byte(i)
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Packet
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	encodedOriginal, err := EncodeBinary(&original)
	if err != nil {
		t.Fatalf("EncodeBinary(original): %v", err)
	}
	encodedDecoded, err := EncodeBinary(&decoded)
	if err != nil {
		t.Fatalf("EncodeBinary(decoded): %v", err)
	}
	if string(encodedOriginal) != string(encodedDecoded) {
		t.Error("packet changed across JSON round trip")
	}
}

func TestJSONFieldNames(t *testing.T) {
	packet := samplePacket()
	data, err := json.Marshal(packet)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// The bridge contract fixes the attribute names; a rename is a
	// breaking change for every connected observer.
	for _, field := range []string{
		"channel_id", "sequence_token", "timestamp", "codec_version",
		"message_hash", "content_length", "content", "rwx_flags",
		"consensus_signature", "human_rights_tag", "next_channel",
		"prev_channel", "wheel_position",
	} {
		if !strings.Contains(string(data), `"`+field+`"`) {
			t.Errorf("JSON form missing field %q", field)
		}
	}
}

func TestJSONRejectsOversizedContent(t *testing.T) {
	packet := samplePacket()
	packet.Content = make([]byte, MaxContentSize+1)

	// Marshal through the DTO directly: the typed marshaller would
	// not produce this, but a misbehaving client could send it.
	data, err := json.Marshal(packetJSON{
		MessageHash:        packet.MessageHash[:],
		Content:            packet.Content,
		ConsensusSignature: packet.ConsensusSignature[:],
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Packet
	if err := json.Unmarshal(data, &decoded); err == nil {
		t.Error("Unmarshal accepted oversized content")
	}
}

func TestJSONRejectsWrongHashWidth(t *testing.T) {
	data, err := json.Marshal(packetJSON{
		MessageHash:        make([]byte, HashSize-1),
		ConsensusSignature: make([]byte, SignatureSize),
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Packet
	if err := json.Unmarshal(data, &decoded); err == nil {
		t.Error("Unmarshal accepted short hash")
	}
}

func TestVerdictRoundTrip(t *testing.T) {
	original := Verdict{
		Digest:        make([]byte, HashSize),
		Timestamp:     1234567890,
		Status:        "VERIFIED",
		Score:         0.75,
		WheelPosition: WheelFullCircle,
	}
	data, err := MarshalVerdict(original)
	if err != nil {
		t.Fatalf("MarshalVerdict: %v", err)
	}
	decoded, err := UnmarshalVerdict(data)
	if err != nil {
		t.Fatalf("UnmarshalVerdict: %v", err)
	}
	if decoded.Status != original.Status || decoded.Score != original.Score ||
		decoded.WheelPosition != original.WheelPosition || decoded.Timestamp != original.Timestamp {
		t.Errorf("verdict changed across round trip: %+v != %+v", decoded, original)
	}
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"fmt"
)

// packetJSON is the JSON representation of a packet, used only at the
// client bridge boundary. Field names match the data-model attribute
// names; binary blobs (hash, signature, content) are base64-encoded by
// encoding/json's []byte handling.
type packetJSON struct {
	ChannelID          uint8  `json:"channel_id"`
	SequenceToken      uint32 `json:"sequence_token"`
	Timestamp          uint64 `json:"timestamp"`
	CodecVersion       uint8  `json:"codec_version"`
	MessageHash        []byte `json:"message_hash"`
	ContentLength      uint32 `json:"content_length"`
	Content            []byte `json:"content"`
	RWXFlags           uint8  `json:"rwx_flags"`
	ConsensusSignature []byte `json:"consensus_signature"`
	HumanRightsTag     string `json:"human_rights_tag"`
	NextChannel        uint8  `json:"next_channel"`
	PrevChannel        uint8  `json:"prev_channel"`
	WheelPosition      uint16 `json:"wheel_position"`
}

// MarshalJSON encodes the packet in its bridge-boundary JSON form.
func (p Packet) MarshalJSON() ([]byte, error) {
	return json.Marshal(packetJSON{
		ChannelID:          uint8(p.ChannelID),
		SequenceToken:      p.SequenceToken,
		Timestamp:          p.Timestamp,
		CodecVersion:       p.CodecVersion,
		MessageHash:        p.MessageHash[:],
		ContentLength:      uint32(len(p.Content)),
		Content:            p.Content,
		RWXFlags:           p.RWXFlags,
		ConsensusSignature: p.ConsensusSignature[:],
		HumanRightsTag:     p.HumanRightsTag,
		NextChannel:        uint8(p.NextChannel),
		PrevChannel:        uint8(p.PrevChannel),
		WheelPosition:      p.WheelPosition,
	})
}

// UnmarshalJSON decodes the bridge-boundary JSON form, enforcing the
// same bounds as the binary decoder.
func (p *Packet) UnmarshalJSON(data []byte) error {
	var decoded packetJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("decoding packet JSON: %w", err)
	}
	if len(decoded.Content) > MaxContentSize {
		return fmt.Errorf("decoding packet JSON: content is %d bytes, maximum is %d", len(decoded.Content), MaxContentSize)
	}
	if len(decoded.MessageHash) != HashSize {
		return fmt.Errorf("decoding packet JSON: hash is %d bytes, want %d", len(decoded.MessageHash), HashSize)
	}
	if len(decoded.ConsensusSignature) != SignatureSize {
		return fmt.Errorf("decoding packet JSON: signature is %d bytes, want %d", len(decoded.ConsensusSignature), SignatureSize)
	}
	if decoded.WheelPosition >= 360 {
		return fmt.Errorf("decoding packet JSON: wheel position %d outside [0, 360)", decoded.WheelPosition)
	}

	p.ChannelID = Channel(decoded.ChannelID)
	p.SequenceToken = decoded.SequenceToken
	p.Timestamp = decoded.Timestamp
	p.CodecVersion = decoded.CodecVersion
	copy(p.MessageHash[:], decoded.MessageHash)
	p.Content = decoded.Content
	p.RWXFlags = decoded.RWXFlags
	copy(p.ConsensusSignature[:], decoded.ConsensusSignature)
	p.HumanRightsTag = decoded.HumanRightsTag
	p.NextChannel = Channel(decoded.NextChannel)
	p.PrevChannel = Channel(decoded.PrevChannel)
	p.WheelPosition = decoded.WheelPosition
	return nil
}

// Verdict announces the outcome of an arbitration to bridge observers.
// On acceptance, Digest covers the sealed packet's full binary encoding
// so observers can match the announcement to the republished packet.
type Verdict struct {
	// Digest is the SHA-256 of the sealed packet's binary encoding.
	Digest []byte `json:"digest"`

	// Timestamp is when the arbiter reached the verdict, in
	// nanoseconds.
	Timestamp uint64 `json:"timestamp"`

	// Status is the tagged arbitration outcome: VERIFIED on
	// acceptance, or one of the policy failure statuses.
	Status string `json:"status"`

	// Score is the consensus score computed during arbitration.
	Score float64 `json:"score"`

	// WheelPosition is the packet's wheel position at verdict time.
	WheelPosition uint16 `json:"wheel_position"`
}

// MarshalVerdict encodes a verdict as JSON.
func MarshalVerdict(v Verdict) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding verdict: %w", err)
	}
	return data, nil
}

// UnmarshalVerdict decodes a JSON verdict.
func UnmarshalVerdict(data []byte) (Verdict, error) {
	var v Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return Verdict{}, fmt.Errorf("decoding verdict: %w", err)
	}
	return v, nil
}

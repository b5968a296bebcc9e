// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Message type constants for the stage-to-stage wire format. Each
// message is a 5-byte header (1 byte type + 4 byte big-endian payload
// length) followed by the payload.
const (
	// MessageTypePacket carries a binary-encoded packet. Sent by
	// encoders to the relay, the relay to the arbiter, and the
	// arbiter to the bridge on acceptance.
	MessageTypePacket byte = 0x01

	// MessageTypeVerdict carries a JSON-encoded arbitration verdict.
	// Arbiter→bridge only.
	MessageTypeVerdict byte = 0x02
)

// messageHeaderLength is the fixed size of a message header: 1 byte
// type + 4 bytes payload length.
const messageHeaderLength = 5

// maxPayloadLength is the maximum allowed payload size. 16 KB is
// generous: the largest binary packet is under 4.3 KB, and verdicts
// are a few hundred bytes of JSON.
const maxPayloadLength = 16 * 1024

// Message is a single stage-to-stage protocol message.
type Message struct {
	Type    byte
	Payload []byte
}

// WriteMessage writes a framed message to w. The frame format is:
// [1 byte type] [4 bytes payload length, big-endian uint32] [payload].
func WriteMessage(w io.Writer, message Message) error {
	var header [messageHeaderLength]byte
	header[0] = message.Type
	binary.BigEndian.PutUint32(header[1:5], uint32(len(message.Payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write message header: %w", err)
	}
	if len(message.Payload) > 0 {
		if _, err := w.Write(message.Payload); err != nil {
			return fmt.Errorf("write message payload: %w", err)
		}
	}
	return nil
}

// ReadMessage reads a framed message from r. Returns an error if the
// stream is malformed or the payload exceeds maxPayloadLength.
func ReadMessage(r io.Reader) (Message, error) {
	var header [messageHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, fmt.Errorf("read message header: %w", err)
	}
	messageType := header[0]
	payloadLength := binary.BigEndian.Uint32(header[1:5])
	if payloadLength > maxPayloadLength {
		return Message{}, fmt.Errorf("payload length %d exceeds maximum %d", payloadLength, maxPayloadLength)
	}
	payload := make([]byte, payloadLength)
	if payloadLength > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, fmt.Errorf("read message payload: %w", err)
		}
	}
	return Message{Type: messageType, Payload: payload}, nil
}

// NewPacketMessage creates a message carrying a binary-encoded packet.
func NewPacketMessage(encoded []byte) Message {
	return Message{Type: MessageTypePacket, Payload: encoded}
}

// NewVerdictMessage creates a message carrying a JSON-encoded verdict.
func NewVerdictMessage(encoded []byte) Message {
	return Message{Type: MessageTypeVerdict, Payload: encoded}
}

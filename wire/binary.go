// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Binary layout, in field order. All multi-byte integers are
// little-endian. The tag is NUL-terminated and variable length; content
// is length-prefixed and variable length; everything else is fixed
// width.
//
//	offset  width  field
//	     0      1  channel id
//	     1      4  sequence token
//	     5      8  timestamp
//	    13      1  codec version
//	    14     32  message hash
//	    46      4  content length
//	    50      n  content (n ≤ MaxContentSize)
//	  50+n      1  rwx flags
//	  51+n     64  consensus signature
//	 115+n    t+1  tag (NUL-terminated, t+1 ≤ MaxTagLength)
//	 ...        1  next channel
//	 ...        1  prev channel
//	 ...        2  wheel position
const (
	// binaryFixedSize is the encoded size of a packet with empty
	// content and an empty tag: the shortest well-formed packet.
	// Decoders reject anything shorter before reading any field.
	binaryFixedSize = 1 + 4 + 8 + 1 + HashSize + 4 + 1 + SignatureSize + 1 + 1 + 1 + 2

	// contentLengthOffset is where the 4-byte content length sits,
	// immediately after the fixed header and hash.
	contentLengthOffset = 1 + 4 + 8 + 1 + HashSize

	// contentOffset is where content bytes begin.
	contentOffset = contentLengthOffset + 4
)

// MaxBinarySize is the largest possible encoded packet: full content
// and a maximum-length tag.
const MaxBinarySize = binaryFixedSize + MaxContentSize + MaxTagLength - 1

// DecodeError describes why a buffer failed to parse as a packet.
// Decode failures never read out of bounds; the offending condition is
// detected before any payload copy.
type DecodeError struct {
	// Field is the layout field being parsed when the error occurred.
	Field string
	// Reason is a human-readable description of the failure.
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding packet %s: %s", e.Field, e.Reason)
}

// EncodeBinary serializes a packet to the binary layout. Returns an
// error if the packet violates a structural invariant (oversized
// content, oversized tag, or a tag containing a NUL byte, which the
// terminator-based layout cannot represent).
func EncodeBinary(packet *Packet) ([]byte, error) {
	if err := packet.Validate(); err != nil {
		return nil, fmt.Errorf("encoding packet: %w", err)
	}
	if bytes.IndexByte([]byte(packet.HumanRightsTag), 0) >= 0 {
		return nil, fmt.Errorf("encoding packet: tag contains a NUL byte")
	}

	buffer := make([]byte, 0, binaryFixedSize+len(packet.Content)+len(packet.HumanRightsTag))

	buffer = append(buffer, byte(packet.ChannelID))
	buffer = binary.LittleEndian.AppendUint32(buffer, packet.SequenceToken)
	buffer = binary.LittleEndian.AppendUint64(buffer, packet.Timestamp)
	buffer = append(buffer, packet.CodecVersion)
	buffer = append(buffer, packet.MessageHash[:]...)
	buffer = binary.LittleEndian.AppendUint32(buffer, uint32(len(packet.Content)))
	buffer = append(buffer, packet.Content...)
	buffer = append(buffer, packet.RWXFlags)
	buffer = append(buffer, packet.ConsensusSignature[:]...)
	buffer = append(buffer, packet.HumanRightsTag...)
	buffer = append(buffer, 0) // tag terminator
	buffer = append(buffer, byte(packet.NextChannel))
	buffer = append(buffer, byte(packet.PrevChannel))
	buffer = binary.LittleEndian.AppendUint16(buffer, packet.WheelPosition)

	return buffer, nil
}

// DecodeBinary parses a packet from the binary layout. The buffer must
// contain exactly one packet. Every length is validated before the
// corresponding bytes are touched: a short buffer or an oversized
// declared content length yields a *DecodeError, never an out-of-bounds
// read.
func DecodeBinary(buffer []byte) (Packet, error) {
	if len(buffer) < binaryFixedSize {
		return Packet{}, &DecodeError{
			Field:  "header",
			Reason: fmt.Sprintf("buffer is %d bytes, fixed-field minimum is %d", len(buffer), binaryFixedSize),
		}
	}

	contentLength := binary.LittleEndian.Uint32(buffer[contentLengthOffset:])
	if contentLength > MaxContentSize {
		return Packet{}, &DecodeError{
			Field:  "content length",
			Reason: fmt.Sprintf("declared length %d exceeds maximum %d", contentLength, MaxContentSize),
		}
	}
	if len(buffer) < binaryFixedSize+int(contentLength) {
		return Packet{}, &DecodeError{
			Field:  "content",
			Reason: fmt.Sprintf("declared length %d overruns a %d-byte buffer", contentLength, len(buffer)),
		}
	}

	var packet Packet
	packet.ChannelID = Channel(buffer[0])
	packet.SequenceToken = binary.LittleEndian.Uint32(buffer[1:])
	packet.Timestamp = binary.LittleEndian.Uint64(buffer[5:])
	packet.CodecVersion = buffer[13]
	copy(packet.MessageHash[:], buffer[14:14+HashSize])

	packet.Content = make([]byte, contentLength)
	copy(packet.Content, buffer[contentOffset:contentOffset+int(contentLength)])

	offset := contentOffset + int(contentLength)
	packet.RWXFlags = buffer[offset]
	offset++
	copy(packet.ConsensusSignature[:], buffer[offset:offset+SignatureSize])
	offset += SignatureSize

	// Tag: scan for the NUL terminator within the remaining bytes,
	// bounded by MaxTagLength. The trailing topology fields must still
	// fit after the terminator.
	remaining := buffer[offset:]
	terminator := bytes.IndexByte(remaining, 0)
	if terminator < 0 {
		return Packet{}, &DecodeError{
			Field:  "tag",
			Reason: "missing NUL terminator",
		}
	}
	if terminator+1 > MaxTagLength {
		return Packet{}, &DecodeError{
			Field:  "tag",
			Reason: fmt.Sprintf("tag is %d bytes, maximum is %d including terminator", terminator, MaxTagLength-1),
		}
	}
	packet.HumanRightsTag = string(remaining[:terminator])
	offset += terminator + 1

	if len(buffer) < offset+4 {
		return Packet{}, &DecodeError{
			Field:  "topology",
			Reason: "buffer truncated before topology fields",
		}
	}
	packet.NextChannel = Channel(buffer[offset])
	packet.PrevChannel = Channel(buffer[offset+1])
	packet.WheelPosition = binary.LittleEndian.Uint16(buffer[offset+2:])

	if packet.WheelPosition >= 360 {
		return Packet{}, &DecodeError{
			Field:  "wheel position",
			Reason: fmt.Sprintf("position %d outside [0, 360)", packet.WheelPosition),
		}
	}

	return packet, nil
}

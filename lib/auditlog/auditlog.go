// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package auditlog records the verification actions taken by pipeline
// stages: packet creation, integrity re-verification, arbitration
// verdicts, and repair attempts. The log is append-only in memory and
// exports as a deterministic CBOR sequence, optionally zstd-compressed
// for archival.
package auditlog

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Event types recorded by pipeline stages.
const (
	EventEncoded     = "ENCODED"
	EventRelayed     = "RELAYED"
	EventDropped     = "DROPPED"
	EventVerified    = "VERIFIED"
	EventRejected    = "REJECTED"
	EventRepaired    = "REPAIRED"
	EventRepublished = "REPUBLISHED"
)

// Entry is one audit record. Fields use short CBOR keys to keep
// archived exports compact.
type Entry struct {
	// Timestamp is the event time in nanoseconds.
	Timestamp uint64 `cbor:"ts"`

	// EventType is one of the Event constants.
	EventType string `cbor:"ev"`

	// Channel is the stage that recorded the event.
	Channel uint8 `cbor:"ch"`

	// Sequence is the sequence token of the packet involved.
	Sequence uint32 `cbor:"seq"`

	// WheelPosition is the packet's wheel position at event time.
	WheelPosition uint16 `cbor:"whl"`

	// Detail carries an optional human-readable annotation, such as a
	// rejection status or repair outcome.
	Detail string `cbor:"det,omitempty"`
}

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. The same log always exports
// to identical bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR.
// Unknown fields are silently ignored for forward compatibility.
var decMode cbor.DecMode

// zstdEncoder and zstdDecoder are shared, stateless-per-operation
// instances: both are safe for concurrent EncodeAll/DecodeAll use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("auditlog: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("auditlog: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("auditlog: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("auditlog: zstd decoder initialization failed: " + err.Error())
	}
}

// Log is an append-only audit record store. All methods are safe for
// concurrent use.
type Log struct {
	mutex   sync.Mutex
	entries []Entry
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// Append records an entry. Entries are never modified or removed.
func (l *Log) Append(entry Entry) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.entries = append(l.entries, entry)
}

// Len returns the number of recorded entries.
func (l *Log) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.entries)
}

// Snapshot returns a copy of all entries in append order.
func (l *Log) Snapshot() []Entry {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	snapshot := make([]Entry, len(l.entries))
	copy(snapshot, l.entries)
	return snapshot
}

// ExportCBOR writes the log as a CBOR sequence (RFC 8742): one
// deterministically-encoded data item per entry, concatenated. The
// sequence form lets a reader process entries one at a time without
// loading the whole export.
func (l *Log) ExportCBOR(w io.Writer) error {
	for index, entry := range l.Snapshot() {
		data, err := encMode.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encoding audit entry %d: %w", index, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing audit entry %d: %w", index, err)
		}
	}
	return nil
}

// ExportCompressed returns the CBOR sequence export compressed with
// zstd, the archival form for long-running sessions.
func (l *Log) ExportCompressed() ([]byte, error) {
	var buffer bytes.Buffer
	if err := l.ExportCBOR(&buffer); err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(buffer.Bytes(), nil), nil
}

// ReadExport decodes a CBOR sequence export back into entries. If the
// data is a zstd frame (as produced by ExportCompressed), it is
// decompressed first.
func ReadExport(data []byte) ([]Entry, error) {
	if isZstdFrame(data) {
		decompressed, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing audit export: %w", err)
		}
		data = decompressed
	}

	var entries []Entry
	decoder := decMode.NewDecoder(bytes.NewReader(data))
	for {
		var entry Entry
		if err := decoder.Decode(&entry); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return nil, fmt.Errorf("decoding audit entry %d: %w", len(entries), err)
		}
		entries = append(entries, entry)
	}
}

// isZstdFrame reports whether data begins with the zstd frame magic
// number (RFC 8878 §3.1.1).
func isZstdFrame(data []byte) bool {
	return len(data) >= 4 &&
		data[0] == 0x28 && data[1] == 0xB5 && data[2] == 0x2F && data[3] == 0xFD
}

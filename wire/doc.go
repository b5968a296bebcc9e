// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the Trident packet schema and its two
// serializations: the fixed-offset binary layout used between pipeline
// stages, and the JSON form (binary fields base64-encoded) used only at
// the client bridge boundary.
//
// A packet is created once by the encoder stage and value-copied across
// every transport hop — stages never share a mutable packet. The package
// is pure schema and codec: it holds no sockets, no goroutines, and no
// stage behavior.
//
//   - packet.go: the [Packet] type, protocol constants, permission flags,
//     the provenance tag vocabulary, and wheel-position helpers
//   - binary.go: bounds-checked binary encode/decode ([EncodeBinary],
//     [DecodeBinary])
//   - json.go: JSON marshaling with base64 blobs, and the [Verdict]
//     announcement record emitted by the arbiter
//
// This package has no dependencies on other Trident packages.
package wire

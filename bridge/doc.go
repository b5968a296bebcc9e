// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge exposes the pipeline's output to websocket observers.
//
// The bridge has two faces. The ingest side is a framed TCP listener
// receiving sealed packets and verdicts republished by the arbiter.
// The client side is an HTTP server: requests carrying a websocket
// upgrade become observers, everything else is served from the static
// root (or a built-in status page when none is configured).
//
// Observers pick a representation through the websocket subprotocol:
//
//   - trident.json.v1 (the default): packets and verdicts as JSON
//     envelopes, one per text message
//   - trident.binary.v1: sealed packets in their binary wire encoding,
//     one per binary message; verdicts as JSON text messages
//
// Observer capacity is bounded; upgrade requests beyond the limit are
// refused with 503. A slow observer is disconnected rather than
// allowed to backpressure the ingest path.
package bridge

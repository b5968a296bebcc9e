// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries framed Trident messages between pipeline
// stages over TCP.
//
// The package is organized around the inter-stage data flow:
//
//   - frame.go: wire format for the stage-to-stage stream (framed binary messages)
//   - listener.go: accept loop dispatching inbound frames to a handler
//   - client.go: best-effort dial-per-send delivery to the next stage
//
// Each hop is a one-way stream: encoders send to the relay, the relay
// sends to the arbiter, the arbiter sends to the bridge. A stage that
// drops a packet does not signal the sender; loss is observed at the
// arbiter's audit log.
package transport

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Client sends framed messages to a downstream stage. Each Send dials
// a fresh connection: delivery is best-effort, a refused or dropped
// hop is the sender's problem to count, not to retry.
type Client struct {
	// Address is the downstream stage's "host:port".
	Address string

	// DialTimeout is the maximum time to wait for a TCP connection to
	// be established. Zero means only the context deadline applies.
	DialTimeout time.Duration
}

// Send dials the downstream stage, writes one framed message, and
// closes the connection.
func (c *Client) Send(ctx context.Context, message Message) error {
	if c.Address == "" {
		return fmt.Errorf("transport: Address is required")
	}

	connection, err := (&net.Dialer{Timeout: c.DialTimeout}).DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return fmt.Errorf("transport: dialing %s: %w", c.Address, err)
	}
	defer connection.Close()

	if deadline, ok := ctx.Deadline(); ok {
		connection.SetWriteDeadline(deadline)
	}
	if err := WriteMessage(connection, message); err != nil {
		return fmt.Errorf("transport: sending to %s: %w", c.Address, err)
	}
	return nil
}

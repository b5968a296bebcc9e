// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"sync"

	"github.com/gorilla/websocket"
)

// outbound is one message queued for delivery to an observer.
type outbound struct {
	messageType int
	data        []byte
}

// observer is one connected websocket client. Messages flow through
// the buffered send channel so a slow observer never blocks the
// ingest path; an observer that falls sendBuffer messages behind is
// disconnected.
type observer struct {
	conn        *websocket.Conn
	send        chan outbound
	subprotocol string
}

// sendBuffer is the per-observer outbound queue depth.
const sendBuffer = 64

// hub tracks connected observers and fans published messages out to
// them. All methods are safe for concurrent use.
type hub struct {
	mutex     sync.Mutex
	observers map[*observer]struct{}
}

func newHub() *hub {
	return &hub{observers: make(map[*observer]struct{})}
}

// count returns the number of connected observers.
func (h *hub) count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.observers)
}

// register adds an observer.
func (h *hub) register(o *observer) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.observers[o] = struct{}{}
}

// unregister removes an observer and closes its send queue. Safe to
// call twice; only the first call closes the channel.
func (h *hub) unregister(o *observer) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.observers[o]; !ok {
		return
	}
	delete(h.observers, o)
	close(o.send)
}

// broadcast queues a message for every observer whose subprotocol
// matches the selector. Observers with a full queue are dropped: the
// ingest path never waits for a client.
func (h *hub) broadcast(subprotocol string, message outbound) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for o := range h.observers {
		if o.subprotocol != subprotocol {
			continue
		}
		select {
		case o.send <- message:
		default:
			delete(h.observers, o)
			close(o.send)
		}
	}
}

// closeAll disconnects every observer.
func (h *hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for o := range h.observers {
		delete(h.observers, o)
		close(o.send)
	}
}

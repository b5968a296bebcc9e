// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"
)

func TestFrameRoundTrip(t *testing.T) {
	var buffer bytes.Buffer
	original := NewPacketMessage([]byte{1, 2, 3, 4})
	if err := WriteMessage(&buffer, original); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	decoded, err := ReadMessage(&buffer)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if decoded.Type != MessageTypePacket {
		t.Errorf("type = %d, want %d", decoded.Type, MessageTypePacket)
	}
	if !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("payload = %v, want %v", decoded.Payload, original.Payload)
	}
}

func TestFrameEmptyPayload(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteMessage(&buffer, NewVerdictMessage(nil)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	decoded, err := ReadMessage(&buffer)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if decoded.Type != MessageTypeVerdict || len(decoded.Payload) != 0 {
		t.Errorf("decoded = %+v, want empty verdict message", decoded)
	}
}

func TestReadRejectsOversizedPayload(t *testing.T) {
	var buffer bytes.Buffer
	header := [messageHeaderLength]byte{MessageTypePacket}
	binary.BigEndian.PutUint32(header[1:5], maxPayloadLength+1)
	buffer.Write(header[:])

	if _, err := ReadMessage(&buffer); err == nil {
		t.Fatal("ReadMessage accepted payload over the limit")
	}
}

func TestReadRejectsTruncatedStream(t *testing.T) {
	var buffer bytes.Buffer
	header := [messageHeaderLength]byte{MessageTypePacket}
	binary.BigEndian.PutUint32(header[1:5], 100)
	buffer.Write(header[:])
	buffer.Write([]byte{1, 2, 3}) // 97 bytes short

	if _, err := ReadMessage(&buffer); err == nil {
		t.Fatal("ReadMessage accepted truncated stream")
	}
}

func TestListenerReceivesClientSends(t *testing.T) {
	var mutex sync.Mutex
	var received []Message

	listener := &Listener{
		ListenAddr: "127.0.0.1:0",
		Handler: func(message Message) {
			mutex.Lock()
			defer mutex.Unlock()
			received = append(received, message)
		},
	}
	if err := listener.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer listener.Stop()

	client := &Client{Address: listener.Address(), DialTimeout: time.Second}
	for i := byte(0); i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := client.Send(ctx, NewPacketMessage([]byte{i}))
		cancel()
		if err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mutex.Lock()
		count := len(received)
		mutex.Unlock()
		if count == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("received %d messages, want 3", count)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestListenerStopDrains(t *testing.T) {
	listener := &Listener{
		ListenAddr: "127.0.0.1:0",
		Handler:    func(Message) {},
	}
	if err := listener.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	listener.Stop()

	client := &Client{Address: listener.Address(), DialTimeout: 200 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Send(ctx, NewPacketMessage([]byte{1})); err == nil {
		t.Error("Send to stopped listener succeeded")
	}
}

func TestClientRequiresAddress(t *testing.T) {
	client := &Client{}
	if err := client.Send(context.Background(), NewPacketMessage(nil)); err == nil {
		t.Fatal("Send with empty address succeeded")
	}
}

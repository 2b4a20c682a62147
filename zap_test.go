// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsgate/rpc/bootstrap"
	"github.com/newsgate/rpc/fraud"
	"github.com/newsgate/rpc/transport"
)

func TestZAPRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	server := NewZAPServer(listener, ZAPHandlerFunc(func(ctx context.Context, method string, payload []byte) ([]byte, error) {
		if method != "echo" {
			return nil, errors.New("no such method")
		}
		return payload, nil
	}), zerolog.Nop())
	defer server.Close()

	go server.Serve(ctx)

	conn, err := ZAPDial(ctx, server.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	payload := []byte("hello world")
	resp, err := conn.Call(ctx, "echo", payload)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(resp) != string(payload) {
		t.Errorf("got %q, want %q", resp, payload)
	}

	_, err = conn.Call(ctx, "missing", payload)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Message != "no such method" {
		t.Errorf("got %v, want remote error", err)
	}
}

func TestZAPCallCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	release := make(chan struct{})
	defer close(release)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	server := NewZAPServer(listener, ZAPHandlerFunc(func(context.Context, string, []byte) ([]byte, error) {
		<-release
		return nil, nil
	}), zerolog.Nop())
	defer server.Close()
	go server.Serve(ctx)

	conn, err := ZAPDial(ctx, server.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	callCtx, callCancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer callCancel()
	if _, err := conn.Call(callCtx, "slow", nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}

func TestZAPClosedConn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	server := NewZAPServer(listener, ZAPHandlerFunc(func(context.Context, string, []byte) ([]byte, error) {
		return nil, nil
	}), zerolog.Nop())
	defer server.Close()
	go server.Serve(ctx)

	conn, err := ZAPDial(ctx, server.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn.Close()

	if _, err := conn.Call(ctx, "any", nil); !errors.Is(err, ErrZAPClosed) {
		t.Errorf("Call after Close: got %v, want %v", err, ErrZAPClosed)
	}
	if err := conn.Notify(ctx, "any", nil); !errors.Is(err, ErrZAPClosed) {
		t.Errorf("Notify after Close: got %v, want %v", err, ErrZAPClosed)
	}
}

func TestZAPMethodNameTooLong(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	server := NewZAPServer(listener, ZAPHandlerFunc(func(_ context.Context, method string, _ []byte) ([]byte, error) {
		return []byte(method), nil
	}), zerolog.Nop())
	defer server.Close()
	go server.Serve(ctx)

	conn, err := ZAPDial(ctx, server.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	long := strings.Repeat("m", MaxZAPMethod+1)
	if _, err := conn.Call(ctx, long, nil); !errors.Is(err, ErrZAPMethodName) {
		t.Errorf("Call: got %v, want %v", err, ErrZAPMethodName)
	}
	if err := conn.Notify(ctx, long, nil); !errors.Is(err, ErrZAPMethodName) {
		t.Errorf("Notify: got %v, want %v", err, ErrZAPMethodName)
	}

	// The connection is still in step after the rejected calls.
	longest := strings.Repeat("m", MaxZAPMethod)
	resp, err := conn.Call(ctx, longest, nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(resp) != longest {
		t.Errorf("got %d bytes back, want %d", len(resp), len(longest))
	}
}

func TestFrameCodec(t *testing.T) {
	pack := fraud.LimitCheckPack.Of(fraud.EventLimitCheck{EventID: 42, Window: 60})
	frame, err := EncodeFrame(pack)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}

	id, payload, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if id != "pack.fraud.v1" {
		t.Errorf("type id: got %q", id)
	}
	data, _ := pack.MarshalBinary()
	if string(payload) != string(data) {
		t.Errorf("payload differs from the entity encoding")
	}

	registry, err := bootstrap.InitializeTransportRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	entity, err := DecodeEntity(registry, frame)
	if err != nil {
		t.Fatalf("DecodeEntity: %v", err)
	}
	if items, err := fraud.LimitCheckPack.Unwrap(entity); err != nil || len(items) != 1 {
		t.Errorf("Unwrap: %v, %d items", err, len(items))
	}

	if entity, err := DecodeEntity(registry, nil); entity != nil || err != nil {
		t.Errorf("empty frame: got %v, %v", entity, err)
	}
	if err := DecodeInto(frame, fraud.LimitCheckResultPack.New()); !errors.Is(err, transport.ErrTypeMismatch) {
		t.Errorf("DecodeInto: got %v, want type mismatch", err)
	}
	if err := DecodeInto(nil, fraud.LimitCheckResultPack.New()); !errors.Is(err, transport.ErrNoValue) {
		t.Errorf("DecodeInto empty: got %v, want no value", err)
	}
	if _, _, err := DecodeFrame([]byte{0, 0, 0, 9, 'p'}); !errors.Is(err, transport.ErrMalformedPayload) {
		t.Errorf("short frame: got %v", err)
	}
	if _, _, err := DecodeFrame([]byte{0, 0, 0, 0}); !errors.Is(err, transport.ErrMalformedPayload) {
		t.Errorf("empty type id: got %v", err)
	}
	if frame, err := EncodeFrame(nil); frame != nil || err != nil {
		t.Errorf("nil entity: got %v, %v", frame, err)
	}
}

func BenchmarkZAPEntityCall(b *testing.B) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := bootstrap.InitializeTransportRegistry()
	if err != nil {
		b.Fatalf("registry: %v", err)
	}
	server, err := Listen("127.0.0.1:0", registry, WithServerLogger(zerolog.Nop()))
	if err != nil {
		b.Fatalf("Listen: %v", err)
	}
	defer server.Close()

	checker := fraud.NewChecker()
	if err := server.Register("fraud.check", checker.Handle); err != nil {
		b.Fatal(err)
	}
	go server.Serve(ctx)

	client, err := Dial(ctx, server.Addr())
	if err != nil {
		b.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	checks := make([]fraud.EventLimitCheck, 64)
	for i := range checks {
		checks[i] = fraud.EventLimitCheck{EventID: uint64(i), Window: 60, Times: 1000}
	}
	args := fraud.LimitCheckPack.Of(checks...)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		reply := fraud.LimitCheckResultPack.New()
		if err := client.Call(ctx, "fraud.check", args, reply); err != nil {
			b.Fatal(err)
		}
	}
}

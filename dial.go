// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/newsgate/rpc/transport"
)

// Dial connects to an RPC server using the default transport (ZAP).
// WithTransport selects another one.
func Dial(ctx context.Context, addr string, opts ...DialOption) (Client, error) {
	o := &dialOptions{
		transport: DefaultTransport,
	}
	for _, opt := range opts {
		opt(o)
	}

	t, ok := lookupTransport(o.transport)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, o.transport)
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return t.dial(ctx, addr, o)
}

// Listen creates an RPC server. reg is the frozen registry returned by
// bootstrap; requests are decoded through it, so it is required.
func Listen(addr string, reg *transport.Registry, opts ...ServerOption) (Server, error) {
	if reg == nil {
		return nil, ErrNoRegistry
	}

	o := &serverOptions{
		transport: DefaultTransport,
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(o)
	}

	t, ok := lookupTransport(o.transport)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, o.transport)
	}
	return t.listen(addr, reg, o)
}

// dialZAP creates a ZAP client
func dialZAP(ctx context.Context, addr string, _ *dialOptions) (Client, error) {
	conn, err := ZAPDial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &zapClient{conn: conn}, nil
}

// listenZAP creates a ZAP server
func listenZAP(addr string, reg *transport.Registry, o *serverOptions) (Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("zap listen: %w", err)
	}
	d := newDispatcher(reg, o)
	return &zapServer{
		dispatcher: d,
		listener:   listener,
		server:     NewZAPServer(listener, d, d.log),
	}, nil
}

// zapClient implements Client using ZAP transport
type zapClient struct {
	conn *ZAPConn
}

func (c *zapClient) Call(ctx context.Context, method string, args, reply transport.Entity) error {
	return callEntity(ctx, c.conn.Call, method, args, reply)
}

func (c *zapClient) CallRaw(ctx context.Context, method string, frame []byte) ([]byte, error) {
	return c.conn.Call(ctx, method, frame)
}

func (c *zapClient) Notify(ctx context.Context, method string, args transport.Entity) error {
	frame, err := EncodeFrame(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	return c.conn.Notify(ctx, method, frame)
}

func (c *zapClient) Close() error {
	return c.conn.Close()
}

// callEntity frames args, runs call and decodes the answer into reply.
// Every client transport shares it.
func callEntity(
	ctx context.Context,
	call func(ctx context.Context, method string, frame []byte) ([]byte, error),
	method string,
	args, reply transport.Entity,
) error {
	frame, err := EncodeFrame(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}

	resp, err := call(ctx, method, frame)
	if err != nil {
		return err
	}

	if reply == nil {
		return nil
	}
	if err := DecodeInto(resp, reply); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

// zapServer implements Server using ZAP transport
type zapServer struct {
	*dispatcher
	listener net.Listener
	server   *ZAPServer
}

func (s *zapServer) Serve(ctx context.Context) error {
	return s.server.Serve(ctx)
}

func (s *zapServer) Close() error {
	return s.server.Close()
}

func (s *zapServer) Addr() string {
	return s.listener.Addr().String()
}

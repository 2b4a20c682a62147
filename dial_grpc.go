// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/newsgate/rpc/transport"
)

// grpcService prefixes every method on the wire. No service is
// registered under it; the server answers through its unknown-service
// handler.
const grpcService = "/newsgate.Transport/"

func init() {
	registerTransport(TransportGRPC, dialGRPC, listenGRPC)
}

// rawFrame carries an already encoded frame through gRPC.
type rawFrame struct {
	data []byte
}

// rawCodec hands frames to gRPC without a protobuf step.
type rawCodec struct{}

func (rawCodec) Name() string { return "newsgate-frame" }

func (rawCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*rawFrame)
	if !ok {
		return nil, fmt.Errorf("grpc: cannot marshal %T", v)
	}
	return f.data, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*rawFrame)
	if !ok {
		return fmt.Errorf("grpc: cannot unmarshal into %T", v)
	}
	f.data = slices.Clone(data)
	return nil
}

func dialGRPC(_ context.Context, addr string, _ *dialOptions) (Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(rawCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &grpcClient{conn: conn}, nil
}

func listenGRPC(addr string, reg *transport.Registry, o *serverOptions) (Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("grpc listen: %w", err)
	}

	s := &grpcServer{
		dispatcher: newDispatcher(reg, o),
		listener:   listener,
	}
	s.server = grpc.NewServer(
		grpc.ForceServerCodec(rawCodec{}),
		grpc.UnknownServiceHandler(s.handleStream),
	)
	return s, nil
}

type grpcClient struct {
	conn *grpc.ClientConn
}

func (c *grpcClient) Call(ctx context.Context, method string, args, reply transport.Entity) error {
	return callEntity(ctx, c.CallRaw, method, args, reply)
}

func (c *grpcClient) CallRaw(ctx context.Context, method string, frame []byte) ([]byte, error) {
	var resp rawFrame
	if err := c.conn.Invoke(ctx, grpcService+method, &rawFrame{data: frame}, &resp); err != nil {
		return nil, fromStatus(ctx, err)
	}
	return resp.data, nil
}

// Notify is a call whose answer is dropped; gRPC has no one-way unary
// messages.
func (c *grpcClient) Notify(ctx context.Context, method string, args transport.Entity) error {
	return callEntity(ctx, c.CallRaw, method, args, nil)
}

func (c *grpcClient) Close() error {
	return c.conn.Close()
}

type grpcServer struct {
	*dispatcher
	listener net.Listener
	server   *grpc.Server
}

func (s *grpcServer) handleStream(_ any, stream grpc.ServerStream) error {
	full, ok := grpc.MethodFromServerStream(stream)
	if !ok || !strings.HasPrefix(full, grpcService) {
		return status.Errorf(codes.Unimplemented, "unknown service method %q", full)
	}
	method := strings.TrimPrefix(full, grpcService)

	var req rawFrame
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}

	out, err := s.dispatch(stream.Context(), method, req.data)
	if err != nil {
		return toStatus(err)
	}
	return stream.SendMsg(&rawFrame{data: out})
}

func (s *grpcServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.server.Stop)
	defer stop()

	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

func (s *grpcServer) Close() error {
	s.server.Stop()
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (s *grpcServer) Addr() string {
	return s.listener.Addr().String()
}

func toStatus(err error) error {
	code := codes.Unknown
	switch {
	case errors.Is(err, ErrUnknownMethod):
		code = codes.Unimplemented
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		if transport.ErrorKind(err) != "other" {
			code = codes.InvalidArgument
		}
	}
	return status.Error(code, err.Error())
}

// fromStatus turns a server-side failure into a RemoteError and keeps
// local context and connection errors as they are.
func fromStatus(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unknown, codes.Unimplemented, codes.InvalidArgument, codes.Internal:
		return &RemoteError{Message: st.Message()}
	default:
		return fmt.Errorf("grpc: %w", err)
	}
}

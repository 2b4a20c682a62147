// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/newsgate/rpc/transport"
)

// Client is the protocol-agnostic RPC client. Arguments and replies are
// transport entities; the frame carries their wire type identifier.
type Client interface {
	// Call sends args and decodes the answer into reply. A nil reply
	// discards the answer.
	Call(ctx context.Context, method string, args, reply transport.Entity) error

	// CallRaw sends a pre-encoded frame and returns the raw answer frame.
	CallRaw(ctx context.Context, method string, frame []byte) ([]byte, error)

	// Notify sends a one-way message.
	Notify(ctx context.Context, method string, args transport.Entity) error

	Close() error
}

// Server is the protocol-agnostic RPC server. Requests are decoded
// through the registry handed to Listen.
type Server interface {
	// Register routes method to handler.
	Register(method string, handler Handler) error

	// RegisterRaw routes method to a frame-level handler.
	RegisterRaw(method string, handler RawHandler) error

	// Serve accepts calls until ctx is cancelled or Close is called.
	Serve(ctx context.Context) error

	Close() error

	// Addr returns the listen address.
	Addr() string
}

// Handler serves one call. A nil response entity answers with an empty
// frame.
type Handler func(ctx context.Context, req transport.Entity) (transport.Entity, error)

// RawHandler serves one call on encoded frames.
type RawHandler func(ctx context.Context, frame []byte) ([]byte, error)

// DialOption configures client connections
type DialOption func(*dialOptions)

type dialOptions struct {
	transport string // "zap", "grpc", "json"
	timeout   time.Duration
	json      []Option
}

// WithTransport explicitly sets the transport type
func WithTransport(t string) DialOption {
	return func(o *dialOptions) { o.transport = t }
}

// WithDialTimeout bounds connection setup.
func WithDialTimeout(d time.Duration) DialOption {
	return func(o *dialOptions) { o.timeout = d }
}

// WithJSONOptions passes request options to the JSON-RPC transport.
func WithJSONOptions(opts ...Option) DialOption {
	return func(o *dialOptions) { o.json = append(o.json, opts...) }
}

// ServerOption configures servers
type ServerOption func(*serverOptions)

type serverOptions struct {
	transport string
	logger    zerolog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
}

// WithServerTransport explicitly sets the transport type for the server
func WithServerTransport(t string) ServerOption {
	return func(o *serverOptions) { o.transport = t }
}

// WithServerLogger sets the logger used for dispatch diagnostics.
func WithServerLogger(l zerolog.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

// WithServerMetrics records frame and error counts into m.
func WithServerMetrics(m *Metrics) ServerOption {
	return func(o *serverOptions) { o.metrics = m }
}

// WithServerTracer replaces the global tracer for dispatch spans.
func WithServerTracer(t trace.Tracer) ServerOption {
	return func(o *serverOptions) { o.tracer = t }
}

// Option configures a single JSON-RPC request.
type Option func(*Options)

// Options holds per-request HTTP settings for the JSON-RPC client.
type Options struct {
	headers     http.Header
	queryParams url.Values
}

// NewOptions applies opts over empty headers and query parameters.
func NewOptions(opts []Option) *Options {
	o := &Options{
		headers:     http.Header{},
		queryParams: url.Values{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Options) Headers() http.Header { return o.headers }

func (o *Options) QueryParams() url.Values { return o.queryParams }

// WithHeader adds an HTTP header to the request.
func WithHeader(key, value string) Option {
	return func(o *Options) { o.headers.Add(key, value) }
}

// WithQueryParam adds a URL query parameter to the request.
func WithQueryParam(key, value string) Option {
	return func(o *Options) { o.queryParams.Add(key, value) }
}

// RemoteError is a failure reported by the peer. The peer's error chain
// does not cross the wire, only its message.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return "rpc: remote: " + e.Message }

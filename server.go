// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/newsgate/rpc/transport"
)

const tracerName = "github.com/newsgate/rpc"

var (
	ErrNoRegistry       = errors.New("rpc: no transport registry")
	ErrUnknownMethod    = errors.New("rpc: unknown method")
	ErrDuplicateMethod  = errors.New("rpc: method already registered")
	ErrUnknownTransport = errors.New("rpc: unknown transport")
	ErrHandlerPanic     = errors.New("rpc: handler panicked")
)

// dispatcher routes frames to handlers. Every transport's server embeds
// one, so decoding, logging, metrics and tracing behave the same on all
// of them.
type dispatcher struct {
	transport string
	registry  *transport.Registry
	log       zerolog.Logger
	metrics   *Metrics
	tracer    trace.Tracer

	mu       sync.RWMutex
	handlers map[string]RawHandler
}

func newDispatcher(reg *transport.Registry, o *serverOptions) *dispatcher {
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &dispatcher{
		transport: o.transport,
		registry:  reg,
		log:       o.logger.With().Str("transport", o.transport).Logger(),
		metrics:   o.metrics,
		tracer:    tracer,
		handlers:  make(map[string]RawHandler),
	}
}

func (d *dispatcher) Register(method string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("rpc: nil handler for %s", method)
	}
	return d.RegisterRaw(method, d.entityHandler(method, handler))
}

func (d *dispatcher) RegisterRaw(method string, handler RawHandler) error {
	if method == "" {
		return errors.New("rpc: empty method name")
	}
	if handler == nil {
		return fmt.Errorf("rpc: nil handler for %s", method)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.handlers[method]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMethod, method)
	}
	d.handlers[method] = handler
	return nil
}

// entityHandler decodes the request through the registry, runs handler
// and encodes its answer. A decode failure fails only this call. Handlers
// always receive an entity; an empty request frame is rejected.
func (d *dispatcher) entityHandler(method string, handler Handler) RawHandler {
	return func(ctx context.Context, frame []byte) ([]byte, error) {
		req, err := DecodeEntity(d.registry, frame)
		if err == nil && req == nil {
			err = fmt.Errorf("%w: empty request frame", transport.ErrNoValue)
		}
		if err != nil {
			d.log.Warn().Err(err).
				Str("method", method).
				Str("kind", transport.ErrorKind(err)).
				Int("bytes", len(frame)).
				Msg("rejecting request")
			return nil, fmt.Errorf("decode request: %w", err)
		}
		d.metrics.recordFrame(d.transport, req.TypeID(), "in", len(frame))

		resp, err := handler(ctx, req)
		if err != nil {
			return nil, err
		}

		out, err := EncodeFrame(resp)
		if err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
		if resp != nil {
			d.metrics.recordFrame(d.transport, resp.TypeID(), "out", len(out))
		}
		return out, nil
	}
}

// dispatch runs the handler registered for method.
func (d *dispatcher) dispatch(ctx context.Context, method string, frame []byte) ([]byte, error) {
	ctx, span := d.tracer.Start(ctx, "rpc."+method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("rpc.system", "newsgate"),
			attribute.String("rpc.transport", d.transport),
			attribute.String("rpc.method", method),
		),
	)
	defer span.End()

	d.mu.RLock()
	handler, ok := d.handlers[method]
	d.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownMethod, method)
		d.metrics.recordError(d.transport, method, "unknown_method")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	out, err := d.call(ctx, method, handler, frame)
	took := time.Since(start)
	d.metrics.recordCall(d.transport, method, took)

	if err != nil {
		kind := transport.ErrorKind(err)
		d.metrics.recordError(d.transport, method, kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.log.Debug().Err(err).
			Str("method", method).
			Str("kind", kind).
			Dur("took", took).
			Msg("call failed")
		return nil, err
	}

	d.log.Trace().
		Str("method", method).
		Int("in", len(frame)).
		Int("out", len(out)).
		Dur("took", took).
		Msg("call served")
	return out, nil
}

// call runs handler and turns a panic into an error for this call only.
func (d *dispatcher) call(ctx context.Context, method string, handler RawHandler, frame []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Str("method", method).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			out, err = nil, fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return handler(ctx, frame)
}

// HandleZAP lets the ZAP server dispatch directly.
func (d *dispatcher) HandleZAP(ctx context.Context, method string, payload []byte) ([]byte, error) {
	return d.dispatch(ctx, method, payload)
}

// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	gorillarpc "github.com/gorilla/rpc/v2"
	rpc "github.com/gorilla/rpc/v2/json2"
	"github.com/rs/zerolog/log"

	"github.com/newsgate/rpc/transport"
)

const (
	maxRetries    = 3
	retryBaseWait = 500 * time.Millisecond
)

// JSONPath is where the JSON-RPC transport serves.
const JSONPath = "/rpc"

// JSON-RPC method names. Frames travel base64-encoded inside the
// JSON documents.
const (
	jsonServiceName  = "Transport"
	jsonCallMethod   = jsonServiceName + ".Call"
	jsonNotifyMethod = jsonServiceName + ".Notify"
)

func init() {
	registerTransport(TransportJSON, dialJSON, listenJSON)
}

// newHTTPClient creates a fresh HTTP client with disabled connection reuse.
// This avoids EOF errors that can occur with connection pooling across
// short-lived front-end processes.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
}

// CleanlyCloseBody drains and closes an HTTP response body to prevent
// HTTP/2 GOAWAY errors caused by closing bodies with unread data.
// See: https://github.com/golang/go/issues/46071
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// isRetryableError checks if an error is transient and worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// EOF errors are often transient connection issues
	if errors.Is(err, io.EOF) || strings.Contains(errStr, "EOF") {
		return true
	}
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe")
}

// SendJSONRequest posts one JSON-RPC 2.0 request to uri and decodes the
// result into reply. Transient connection failures are retried with
// exponential backoff; error responses are returned as *RemoteError.
func SendJSONRequest(
	ctx context.Context,
	uri *url.URL,
	method string,
	params interface{},
	reply interface{},
	options ...Option,
) error {
	requestBodyBytes, err := rpc.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("failed to encode client params: %w", err)
	}

	ops := NewOptions(options)
	target := *uri
	target.RawQuery = ops.queryParams.Encode()

	logger := log.With().Str("method", method).Str("uri", target.String()).Logger()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 500ms, 1s
			waitTime := retryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitTime):
			}
		}

		// Create fresh request for each attempt (body buffer is consumed)
		request, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			target.String(),
			bytes.NewBuffer(requestBodyBytes),
		)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		request.Header = ops.headers.Clone()
		request.Header.Set("Content-Type", "application/json")

		resp, err := newHTTPClient().Do(request)
		if err != nil {
			lastErr = err
			retryable := isRetryableError(err) && ctx.Err() == nil
			logger.Debug().Err(err).Int("attempt", attempt+1).Bool("retryable", retryable).Msg("request failed")
			if retryable {
				continue
			}
			return fmt.Errorf("failed to issue request: %w", err)
		}
		if attempt > 0 {
			logger.Debug().Int("attempt", attempt+1).Msg("request succeeded after retry")
		}

		err = rpc.DecodeClientResponse(resp.Body, reply)
		CleanlyCloseBody(resp.Body)

		var jsonErr *rpc.Error
		switch {
		case errors.As(err, &jsonErr):
			return &RemoteError{Message: jsonErr.Message}
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return fmt.Errorf("received status code: %d", resp.StatusCode)
		case err != nil:
			return fmt.Errorf("failed to decode client response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("failed to issue request after %d retries: %w", maxRetries, lastErr)
}

// JSONCallArgs is the JSON-RPC request body of Transport.Call and
// Transport.Notify.
type JSONCallArgs struct {
	Method string `json:"method"`
	Frame  []byte `json:"frame"`
}

// JSONCallReply is the JSON-RPC result of Transport.Call.
type JSONCallReply struct {
	Frame []byte `json:"frame"`
}

func dialJSON(_ context.Context, addr string, o *dialOptions) (Client, error) {
	uri, err := url.Parse(addr)
	if err != nil || uri.Host == "" {
		uri = &url.URL{Scheme: "http", Host: addr}
	}
	if uri.Path == "" {
		uri.Path = JSONPath
	}
	return &jsonClient{uri: uri, opts: o.json}, nil
}

type jsonClient struct {
	uri  *url.URL
	opts []Option
}

func (c *jsonClient) Call(ctx context.Context, method string, args, reply transport.Entity) error {
	return callEntity(ctx, c.CallRaw, method, args, reply)
}

func (c *jsonClient) CallRaw(ctx context.Context, method string, frame []byte) ([]byte, error) {
	var reply JSONCallReply
	err := SendJSONRequest(ctx, c.uri, jsonCallMethod, &JSONCallArgs{Method: method, Frame: frame}, &reply, c.opts...)
	if err != nil {
		return nil, err
	}
	return reply.Frame, nil
}

func (c *jsonClient) Notify(ctx context.Context, method string, args transport.Entity) error {
	frame, err := EncodeFrame(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	var reply struct{}
	return SendJSONRequest(ctx, c.uri, jsonNotifyMethod, &JSONCallArgs{Method: method, Frame: frame}, &reply, c.opts...)
}

func (*jsonClient) Close() error { return nil }

func listenJSON(addr string, reg *transport.Registry, o *serverOptions) (Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("json listen: %w", err)
	}

	s := &jsonServer{
		dispatcher: newDispatcher(reg, o),
		listener:   listener,
	}

	rpcServer := gorillarpc.NewServer()
	rpcServer.RegisterCodec(rpc.NewCodec(), "application/json")
	if err := rpcServer.RegisterService(&jsonService{server: s}, jsonServiceName); err != nil {
		listener.Close()
		return nil, fmt.Errorf("json register service: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(JSONPath, rpcServer)
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

type jsonServer struct {
	*dispatcher
	listener net.Listener
	http     *http.Server
}

func (s *jsonServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("json serve: %w", err)
	}
	return nil
}

func (s *jsonServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.http.Shutdown(ctx)
	if cerr := s.listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
		err = cerr
	}
	return err
}

func (s *jsonServer) Addr() string {
	return s.listener.Addr().String()
}

// jsonService is the receiver gorilla/rpc reflects on.
type jsonService struct {
	server *jsonServer
}

func (svc *jsonService) Call(r *http.Request, args *JSONCallArgs, reply *JSONCallReply) error {
	out, err := svc.server.dispatch(r.Context(), args.Method, args.Frame)
	if err != nil {
		return err
	}
	reply.Frame = out
	return nil
}

// Notify answers at once and dispatches in the background.
func (svc *jsonService) Notify(r *http.Request, args *JSONCallArgs, _ *struct{}) error {
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := svc.server.dispatch(ctx, args.Method, args.Frame); err != nil {
			svc.server.log.Warn().Err(err).Str("method", args.Method).Msg("notification failed")
		}
	}()
	return nil
}

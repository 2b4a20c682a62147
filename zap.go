// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrZAPClosed      = errors.New("zap: connection closed")
	ErrZAPTooLarge    = errors.New("zap: message too large")
	ErrZAPInvalidResp = errors.New("zap: invalid response")
	ErrZAPMethodName  = errors.New("zap: method name too long")
)

// MaxZAPMessage bounds one message on the wire, header excluded.
const MaxZAPMessage = 64 * 1024 * 1024

// MaxZAPMethod bounds a method name; its length travels as a uint16.
const MaxZAPMethod = math.MaxUint16

const zapWriteTimeout = 30 * time.Second

// MessageType identifies ZAP message types
type MessageType uint8

const (
	MsgRequest  MessageType = 0x01
	MsgResponse MessageType = 0x02
	MsgError    MessageType = 0x03
	MsgNotify   MessageType = 0x04
)

// ZAPConn is a client connection. Calls are multiplexed by request id,
// so one connection serves any number of goroutines.
type ZAPConn struct {
	conn     net.Conn
	writeMu  sync.Mutex
	pending  sync.Map // requestID -> chan *ZAPResponse
	nextID   atomic.Uint32
	closed   atomic.Bool
	readDone chan struct{}
}

// ZAPResponse holds a response from a ZAP call
type ZAPResponse struct {
	Data []byte
	Err  error
}

// ZAPDial connects to a ZAP server
func ZAPDial(ctx context.Context, addr string) (*ZAPConn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("zap dial: %w", err)
	}

	zc := &ZAPConn{
		conn:     conn,
		readDone: make(chan struct{}),
	}
	go zc.readLoop()
	return zc, nil
}

// Call sends a request and waits for its response, ctx cancellation or
// connection loss.
func (z *ZAPConn) Call(ctx context.Context, method string, payload []byte) ([]byte, error) {
	if z.closed.Load() {
		return nil, ErrZAPClosed
	}
	if err := checkMethod(method); err != nil {
		return nil, err
	}

	requestID := z.nextID.Add(1)
	respCh := make(chan *ZAPResponse, 1)
	z.pending.Store(requestID, respCh)
	defer z.pending.Delete(requestID)

	// [4 len][1 type][4 reqID][2 methodLen][method][payload]
	msgLen := 1 + 4 + 2 + len(method) + len(payload)
	if msgLen > MaxZAPMessage {
		return nil, fmt.Errorf("%w: %d bytes", ErrZAPTooLarge, msgLen)
	}

	buf := make([]byte, 4+msgLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(msgLen))
	buf[4] = byte(MsgRequest)
	binary.BigEndian.PutUint32(buf[5:9], requestID)
	binary.BigEndian.PutUint16(buf[9:11], uint16(len(method)))
	copy(buf[11:], method)
	copy(buf[11+len(method):], payload)

	if err := z.write(ctx, buf); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-respCh:
		if resp.Err != nil {
			return nil, resp.Err
		}
		return resp.Data, nil
	case <-z.readDone:
		return nil, ErrZAPClosed
	}
}

// Notify sends a one-way notification (no response expected)
func (z *ZAPConn) Notify(ctx context.Context, method string, payload []byte) error {
	if z.closed.Load() {
		return ErrZAPClosed
	}
	if err := checkMethod(method); err != nil {
		return err
	}

	// [4 len][1 type][2 methodLen][method][payload]
	msgLen := 1 + 2 + len(method) + len(payload)
	if msgLen > MaxZAPMessage {
		return fmt.Errorf("%w: %d bytes", ErrZAPTooLarge, msgLen)
	}

	buf := make([]byte, 4+msgLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(msgLen))
	buf[4] = byte(MsgNotify)
	binary.BigEndian.PutUint16(buf[5:7], uint16(len(method)))
	copy(buf[7:], method)
	copy(buf[7+len(method):], payload)

	return z.write(ctx, buf)
}

func checkMethod(method string) error {
	if len(method) > MaxZAPMethod {
		return fmt.Errorf("%w: %d bytes", ErrZAPMethodName, len(method))
	}
	return nil
}

func (z *ZAPConn) write(ctx context.Context, buf []byte) error {
	z.writeMu.Lock()
	defer z.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(zapWriteTimeout)
	}
	_ = z.conn.SetWriteDeadline(deadline)
	if _, err := z.conn.Write(buf); err != nil {
		return fmt.Errorf("zap write: %w", err)
	}
	return nil
}

func (z *ZAPConn) readLoop() {
	defer close(z.readDone)

	for {
		msg, err := readZAPMessage(z.conn)
		if err != nil {
			return
		}
		if len(msg) < 5 {
			continue
		}

		msgType := MessageType(msg[0])
		requestID := binary.BigEndian.Uint32(msg[1:5])
		payload := msg[5:]

		ch, ok := z.pending.Load(requestID)
		if !ok {
			continue
		}
		respCh := ch.(chan *ZAPResponse)
		switch msgType {
		case MsgResponse:
			respCh <- &ZAPResponse{Data: payload}
		case MsgError:
			respCh <- &ZAPResponse{Err: &RemoteError{Message: string(payload)}}
		default:
			respCh <- &ZAPResponse{Err: fmt.Errorf("%w: message type %d", ErrZAPInvalidResp, msgType)}
		}
	}
}

// Close closes the connection
func (z *ZAPConn) Close() error {
	if z.closed.Swap(true) {
		return nil
	}
	return z.conn.Close()
}

func readZAPMessage(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	msgLen := binary.BigEndian.Uint32(header[:])
	if msgLen == 0 || msgLen > MaxZAPMessage {
		return nil, fmt.Errorf("%w: %d bytes", ErrZAPTooLarge, msgLen)
	}

	msg := make([]byte, msgLen)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ZAPServer handles incoming ZAP RPC requests
type ZAPServer struct {
	listener net.Listener
	handler  ZAPHandler
	log      zerolog.Logger
	conns    sync.Map
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// ZAPHandler handles ZAP requests
type ZAPHandler interface {
	HandleZAP(ctx context.Context, method string, payload []byte) ([]byte, error)
}

// ZAPHandlerFunc is a function adapter for ZAPHandler
type ZAPHandlerFunc func(ctx context.Context, method string, payload []byte) ([]byte, error)

func (f ZAPHandlerFunc) HandleZAP(ctx context.Context, method string, payload []byte) ([]byte, error) {
	return f(ctx, method, payload)
}

// NewZAPServer creates a new ZAP server
func NewZAPServer(listener net.Listener, handler ZAPHandler, log zerolog.Logger) *ZAPServer {
	return &ZAPServer{
		listener: listener,
		handler:  handler,
		log:      log,
	}
}

// Serve accepts connections until ctx is cancelled or Close is called.
func (s *ZAPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				s.wg.Wait()
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("zap accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *ZAPServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	s.conns.Store(conn, struct{}{})
	defer s.conns.Delete(conn)

	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Logger()
	var writeMu sync.Mutex

	for {
		msg, err := readZAPMessage(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.closed.Load() {
				log.Debug().Err(err).Msg("dropping connection")
			}
			return
		}

		switch MessageType(msg[0]) {
		case MsgRequest:
			if len(msg) < 7 {
				continue
			}
			requestID := binary.BigEndian.Uint32(msg[1:5])
			methodLen := int(binary.BigEndian.Uint16(msg[5:7]))
			if len(msg) < 7+methodLen {
				continue
			}
			method := string(msg[7 : 7+methodLen])
			payload := msg[7+methodLen:]

			go func() {
				respData, err := s.handler.HandleZAP(ctx, method, payload)
				writeMu.Lock()
				defer writeMu.Unlock()
				if err := s.sendResponse(conn, requestID, respData, err); err != nil {
					log.Debug().Err(err).Str("method", method).Msg("sending response")
				}
			}()

		case MsgNotify:
			if len(msg) < 3 {
				continue
			}
			methodLen := int(binary.BigEndian.Uint16(msg[1:3]))
			if len(msg) < 3+methodLen {
				continue
			}
			method := string(msg[3 : 3+methodLen])
			payload := msg[3+methodLen:]

			go func() {
				if _, err := s.handler.HandleZAP(ctx, method, payload); err != nil {
					log.Warn().Err(err).Str("method", method).Msg("notification failed")
				}
			}()

		default:
			log.Debug().Uint8("type", msg[0]).Msg("ignoring message")
		}
	}
}

func (s *ZAPServer) sendResponse(conn net.Conn, requestID uint32, data []byte, err error) error {
	msgType := MsgResponse
	payload := data
	if err != nil {
		msgType = MsgError
		payload = []byte(err.Error())
	}

	msgLen := 1 + 4 + len(payload)
	if msgLen > MaxZAPMessage {
		msgType = MsgError
		payload = []byte(ErrZAPTooLarge.Error())
		msgLen = 1 + 4 + len(payload)
	}

	buf := make([]byte, 4+msgLen)
	binary.BigEndian.PutUint32(buf[0:4], uint32(msgLen))
	buf[4] = byte(msgType)
	binary.BigEndian.PutUint32(buf[5:9], requestID)
	copy(buf[9:], payload)

	_ = conn.SetWriteDeadline(time.Now().Add(zapWriteTimeout))
	_, err = conn.Write(buf)
	return err
}

// Close closes the server and every open connection
func (s *ZAPServer) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.conns.Range(func(key, _ any) bool {
		key.(net.Conn).Close()
		return true
	})
	return s.listener.Close()
}

// Addr returns the listener address
func (s *ZAPServer) Addr() net.Addr {
	return s.listener.Addr()
}

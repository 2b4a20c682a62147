// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"fmt"

	"github.com/newsgate/rpc/binstream"
	"github.com/newsgate/rpc/transport"
)

// A frame is what every transport carries as its payload:
//
//	[4 typeIDLen][typeID][entity bytes]
//
// An empty frame stands for "no entity" and is only valid as a reply.

// EncodeFrame serializes e behind its wire type identifier. A nil entity
// yields an empty frame.
func EncodeFrame(e transport.Entity) ([]byte, error) {
	if e == nil {
		return nil, nil
	}
	data, err := e.MarshalBinary()
	if err != nil {
		return nil, err
	}

	w := binstream.NewWriter()
	w.WriteString(e.TypeID())
	w.WriteRaw(data)
	return w.Bytes(), nil
}

// DecodeFrame splits a frame into its type identifier and entity bytes.
func DecodeFrame(frame []byte) (string, []byte, error) {
	r := binstream.NewReader(frame)
	id := r.ReadString()
	payload := r.ReadRest()
	if err := r.Err(); err != nil {
		return "", nil, fmt.Errorf("rpc: frame: %w", err)
	}
	if id == "" {
		return "", nil, fmt.Errorf("rpc: frame: %w: empty type identifier", transport.ErrMalformedPayload)
	}
	return id, payload, nil
}

// DecodeEntity resolves the frame's type in reg and decodes it. An empty
// frame decodes to a nil entity.
func DecodeEntity(reg *transport.Registry, frame []byte) (transport.Entity, error) {
	if len(frame) == 0 {
		return nil, nil
	}
	id, payload, err := DecodeFrame(frame)
	if err != nil {
		return nil, err
	}
	return reg.Decode(id, payload)
}

// DecodeInto decodes frame into e, which must carry the frame's type.
func DecodeInto(frame []byte, e transport.Entity) error {
	if len(frame) == 0 {
		return fmt.Errorf("rpc: %s: %w", e.TypeID(), transport.ErrNoValue)
	}
	id, payload, err := DecodeFrame(frame)
	if err != nil {
		return err
	}
	if id != e.TypeID() {
		return fmt.Errorf("rpc: %w: got %s, want %s", transport.ErrTypeMismatch, id, e.TypeID())
	}
	return e.UnmarshalBinary(payload)
}

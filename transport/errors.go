// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"errors"

	"github.com/newsgate/rpc/binstream"
	"github.com/newsgate/rpc/compression"
)

var (
	ErrVersionMismatch    = binstream.ErrVersionMismatch
	ErrMalformedPayload   = binstream.ErrMalformedPayload
	ErrCompressionFailure = compression.ErrCompressionFailure

	ErrUnknownType    = errors.New("transport: unknown wire type")
	ErrNoValue        = errors.New("transport: envelope holds no value")
	ErrDuplicateType  = errors.New("transport: wire type already registered")
	ErrRegistryFrozen = errors.New("transport: registry is frozen")
	ErrTypeMismatch   = errors.New("transport: wire type mismatch")
)

// ErrorKind maps an error to a short label for logs and metrics. It
// returns "other" for errors outside the transport taxonomy and "" for
// nil.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrVersionMismatch):
		return "version_mismatch"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrNoValue):
		return "no_value"
	case errors.Is(err, ErrCompressionFailure):
		return "compression_failure"
	case errors.Is(err, ErrTypeMismatch):
		return "type_mismatch"
	default:
		return "other"
	}
}

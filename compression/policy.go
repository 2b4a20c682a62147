// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package compression provides the policies applied to a whole encoded
// block before it crosses the process boundary.
//
// A policy is a zero-size type used as a type argument of
// transport.Envelope and transport.Pack, so the choice is part of the
// wire contract for a type rather than a runtime parameter. Both ends
// must bind the same policy for a given wire type identifier; a
// disagreement surfaces as a decode failure, never as a negotiation.
package compression

import (
	"errors"
	"fmt"

	"github.com/newsgate/rpc/binstream"
)

// ErrCompressionFailure is returned when the compress step itself fails.
// The caller must not retry with a different policy: the peer expects
// the bound one.
var ErrCompressionFailure = errors.New("compression: compress failed")

// Policy transforms an encoded block as one atomic step.
type Policy interface {
	// Name is the stable policy name used in logs and metrics.
	Name() string
	Compress(src []byte) ([]byte, error)
	// Decompress fails with binstream.ErrMalformedPayload on corrupt or
	// truncated input.
	Decompress(src []byte) ([]byte, error)
}

// Identity passes bytes through unchanged.
type Identity struct{}

func (Identity) Name() string { return "identity" }

func (Identity) Compress(src []byte) ([]byte, error) { return src, nil }

func (Identity) Decompress(src []byte) ([]byte, error) { return src, nil }

// ByName returns the policy registered under name. It exists for
// tooling (the CLI, diagnostics); transport types bind policies
// statically.
func ByName(name string) (Policy, error) {
	switch name {
	case Identity{}.Name():
		return Identity{}, nil
	case Gzip{}.Name():
		return Gzip{}, nil
	case Zstd{}.Name():
		return Zstd{}, nil
	case LZ4{}.Name():
		return LZ4{}, nil
	default:
		return nil, fmt.Errorf("compression: unknown policy %q", name)
	}
}

// MaxDecompressedSize bounds the output of every policy's Decompress.
// A block claiming or expanding to more is malformed.
const MaxDecompressedSize = 256 << 20

// decompressLimit is MaxDecompressedSize; tests lower it.
var decompressLimit = MaxDecompressedSize

func compressFailure(policy string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCompressionFailure, policy, err)
}

func malformed(policy string, err error) error {
	return fmt.Errorf("%w: %s: %w", binstream.ErrMalformedPayload, policy, err)
}

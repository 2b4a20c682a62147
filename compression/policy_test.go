// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/newsgate/rpc/binstream"
)

var allPolicies = []Policy{Identity{}, Gzip{}, Zstd{}, LZ4{}}

func sampleBlock() []byte {
	return []byte(strings.Repeat("news search expression ", 200))
}

func TestRoundTrip(t *testing.T) {
	inputs := [][]byte{nil, {0x01}, sampleBlock()}

	for _, policy := range allPolicies {
		for _, in := range inputs {
			packed, err := policy.Compress(in)
			require.NoError(t, err, policy.Name())

			out, err := policy.Decompress(packed)
			require.NoError(t, err, policy.Name())
			assert.True(t, bytes.Equal(in, out), "%s: round trip mismatch", policy.Name())
		}
	}
}

func TestDeterministic(t *testing.T) {
	for _, policy := range allPolicies {
		first, err := policy.Compress(sampleBlock())
		require.NoError(t, err)
		second, err := policy.Compress(sampleBlock())
		require.NoError(t, err)
		assert.Equal(t, first, second, policy.Name())
	}
}

func TestCompressedPoliciesShrinkRepetitiveInput(t *testing.T) {
	for _, policy := range []Policy{Gzip{}, Zstd{}, LZ4{}} {
		packed, err := policy.Compress(sampleBlock())
		require.NoError(t, err)
		assert.Less(t, len(packed), len(sampleBlock()), policy.Name())
	}
}

func TestTruncatedInputIsMalformed(t *testing.T) {
	for _, policy := range []Policy{Gzip{}, Zstd{}, LZ4{}} {
		packed, err := policy.Compress(sampleBlock())
		require.NoError(t, err)

		_, err = policy.Decompress(packed[:len(packed)-1])
		assert.ErrorIs(t, err, binstream.ErrMalformedPayload, policy.Name())
	}
}

func TestGarbageIsMalformed(t *testing.T) {
	garbage := []byte("definitely not compressed")
	for _, policy := range []Policy{Gzip{}, Zstd{}} {
		_, err := policy.Decompress(garbage)
		assert.ErrorIs(t, err, binstream.ErrMalformedPayload, policy.Name())
	}
}

func TestLZ4ForgedSize(t *testing.T) {
	forged := []byte{0xff, 0xff, 0xff, 0xff, lz4ModeBlock, 0x10, 0x41}
	_, err := LZ4{}.Decompress(forged)
	assert.ErrorIs(t, err, binstream.ErrMalformedPayload)

	_, err = LZ4{}.Decompress([]byte{0, 0})
	assert.ErrorIs(t, err, binstream.ErrMalformedPayload)

	_, err = LZ4{}.Decompress([]byte{0, 0, 0, 1, 9, 0})
	assert.ErrorIs(t, err, binstream.ErrMalformedPayload)
}

func TestOversizedOutputIsMalformed(t *testing.T) {
	limit := decompressLimit
	decompressLimit = 1 << 20
	t.Cleanup(func() { decompressLimit = limit })

	for _, policy := range []Policy{Gzip{}, LZ4{}} {
		fits, err := policy.Compress(make([]byte, decompressLimit))
		require.NoError(t, err)
		out, err := policy.Decompress(fits)
		require.NoError(t, err, policy.Name())
		assert.Len(t, out, decompressLimit)

		bomb, err := policy.Compress(make([]byte, decompressLimit+1))
		require.NoError(t, err)
		assert.Less(t, len(bomb), decompressLimit/100, policy.Name())
		_, err = policy.Decompress(bomb)
		assert.ErrorIs(t, err, binstream.ErrMalformedPayload, policy.Name())
	}
}

func TestByName(t *testing.T) {
	for _, policy := range allPolicies {
		got, err := ByName(policy.Name())
		require.NoError(t, err)
		assert.Equal(t, policy, got)
	}
	_, err := ByName("brotli")
	assert.Error(t, err)
}

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.SliceOf(rapid.Byte()).Draw(t, "in")
		policy := rapid.SampledFrom(allPolicies).Draw(t, "policy")

		packed, err := policy.Compress(in)
		if err != nil {
			t.Fatalf("%s compress: %v", policy.Name(), err)
		}
		out, err := policy.Decompress(packed)
		if err != nil {
			t.Fatalf("%s decompress: %v", policy.Name(), err)
		}
		if !bytes.Equal(in, out) {
			t.Fatalf("%s: got %x, want %x", policy.Name(), out, in)
		}
	})
}

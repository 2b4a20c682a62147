// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package compression

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4 block layout: [4 uncompressed size][1 mode][body]. Mode 0 stores
// the body raw (input was incompressible), mode 1 is an LZ4 block.
const (
	lz4HeaderLen = 5
	lz4ModeRaw   = 0
	lz4ModeBlock = 1

	// LZ4 cannot expand more than ~255x; a larger declared size is forged.
	lz4MaxRatio = 255
)

var errLZ4Header = errors.New("short header")

// LZ4 compresses the block with LZ4. Fastest of the policies; use it for
// high-volume batches where latency matters more than ratio.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) Compress(src []byte) ([]byte, error) {
	out := make([]byte, lz4HeaderLen+lz4.CompressBlockBound(len(src)))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(src)))

	written, err := lz4.CompressBlock(src, out[lz4HeaderLen:], nil)
	if err != nil {
		return nil, compressFailure("lz4", err)
	}
	if written == 0 || written >= len(src) {
		out[4] = lz4ModeRaw
		n := copy(out[lz4HeaderLen:], src)
		return out[:lz4HeaderLen+n], nil
	}
	out[4] = lz4ModeBlock
	return out[:lz4HeaderLen+written], nil
}

func (LZ4) Decompress(src []byte) ([]byte, error) {
	if len(src) < lz4HeaderLen {
		return nil, malformed("lz4", errLZ4Header)
	}
	size := int(binary.BigEndian.Uint32(src[0:4]))
	body := src[lz4HeaderLen:]
	if size > decompressLimit {
		return nil, malformed("lz4", fmt.Errorf("declared size %d exceeds %d bytes", size, decompressLimit))
	}

	switch src[4] {
	case lz4ModeRaw:
		if len(body) != size {
			return nil, malformed("lz4", fmt.Errorf("raw body is %d bytes, header says %d", len(body), size))
		}
		out := make([]byte, size)
		copy(out, body)
		return out, nil

	case lz4ModeBlock:
		if size > len(body)*lz4MaxRatio {
			return nil, malformed("lz4", fmt.Errorf("declared size %d too large for %d byte block", size, len(body)))
		}
		out := make([]byte, size)
		read, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, malformed("lz4", err)
		}
		if read != size {
			return nil, malformed("lz4", fmt.Errorf("got %d bytes, expected %d", read, size))
		}
		return out, nil

	default:
		return nil, malformed("lz4", fmt.Errorf("unknown mode %d", src[4]))
	}
}

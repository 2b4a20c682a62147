// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Gzip compresses the block with gzip. The header carries no name and a
// zero modification time, so the same input always yields the same bytes.
type Gzip struct{}

func (Gzip) Name() string { return "gzip" }

func (Gzip) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(src)/2 + 64)

	zw, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, compressFailure("gzip", err)
	}
	if _, err := zw.Write(src); err != nil {
		return nil, compressFailure("gzip", err)
	}
	if err := zw.Close(); err != nil {
		return nil, compressFailure("gzip", err)
	}
	return buf.Bytes(), nil
}

func (Gzip) Decompress(src []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, malformed("gzip", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, int64(decompressLimit)+1))
	if err != nil {
		return nil, malformed("gzip", err)
	}
	if len(out) > decompressLimit {
		return nil, malformed("gzip", fmt.Errorf("output exceeds %d bytes", decompressLimit))
	}
	return out, nil
}

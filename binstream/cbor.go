// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package binstream

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so a map-valued field always
// produces the same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("binstream: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("binstream: CBOR decoder initialization failed: " + err.Error())
	}
}

// WriteCBOR writes v as a length-prefixed CBOR item. It is meant for
// loosely structured fields (counter maps, attribute bags) where a fixed
// field layout would be noise.
func (w *Writer) WriteCBOR(v any) error {
	data, err := encMode.Marshal(v)
	if err != nil {
		return fmt.Errorf("binstream: cbor encode: %w", err)
	}
	w.WriteBytes(data)
	return nil
}

// ReadCBOR reads a length-prefixed CBOR item into v.
func (r *Reader) ReadCBOR(v any) {
	data := r.ReadBytes()
	if r.err != nil {
		return
	}
	if err := decMode.Unmarshal(data, v); err != nil {
		r.Fail(fmt.Errorf("%w: cbor: %w", ErrMalformedPayload, err))
	}
}

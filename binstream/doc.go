// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package binstream is the binary codec contract shared by every
// transportable domain value.
//
// A domain value implements Codec: Encode writes its fields in a fixed
// order through a Writer, Decode reads them back in the same order from a
// Reader. Integers are big-endian. Strings and byte slices carry a uint32
// length prefix; sequences carry a uint32 element count.
//
// Versioned values write their version first:
//
//	func (s *Subscription) Encode(w *binstream.Writer) error {
//	    w.WriteVersion(subscriptionVersion)
//	    w.WriteString(s.Email)
//	    return nil
//	}
//
//	func (s *Subscription) Decode(r *binstream.Reader) error {
//	    if _, err := r.ExpectVersion(subscriptionVersion); err != nil {
//	        return err
//	    }
//	    s.Email = r.ReadString()
//	    return r.Err()
//	}
//
// Reader errors are sticky: once a read fails, every later read returns a
// zero value and Err reports the first failure. Codecs therefore check
// Err once at the end, or right after the version tag.
package binstream

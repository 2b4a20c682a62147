// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package stat

import (
	"context"
	"fmt"
	"sync"

	"github.com/newsgate/rpc/transport"
)

// Recorder accumulates statistics packs in memory until drained.
type Recorder struct {
	mu          sync.Mutex
	requests    []RequestInfo
	impressions []PageImpressionInfo
	clicks      []MessageClickInfo
}

// Handle stores one statistics pack. It never answers, so it is meant to
// be reached through Notify. Its signature matches rpc.Handler.
func (r *Recorder) Handle(ctx context.Context, req transport.Entity) (transport.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, transport.ErrNoValue
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch req.TypeID() {
	case RequestInfoPack.ID():
		items, err := RequestInfoPack.Unwrap(req)
		if err != nil {
			return nil, err
		}
		r.requests = append(r.requests, items...)
	case PageImpressionInfoPack.ID():
		items, err := PageImpressionInfoPack.Unwrap(req)
		if err != nil {
			return nil, err
		}
		r.impressions = append(r.impressions, items...)
	case MessageClickInfoPack.ID():
		items, err := MessageClickInfoPack.Unwrap(req)
		if err != nil {
			return nil, err
		}
		r.clicks = append(r.clicks, items...)
	default:
		return nil, fmt.Errorf("stat: %w: %s", transport.ErrTypeMismatch, req.TypeID())
	}
	return nil, nil
}

// Drain returns and forgets everything recorded so far.
func (r *Recorder) Drain() ([]RequestInfo, []PageImpressionInfo, []MessageClickInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	requests, impressions, clicks := r.requests, r.impressions, r.clicks
	r.requests, r.impressions, r.clicks = nil, nil, nil
	return requests, impressions, clicks
}

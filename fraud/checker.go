// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package fraud

import (
	"context"
	"sync"
	"time"

	"github.com/newsgate/rpc/transport"
)

type freqKey struct {
	event  uint64
	window uint32
	times  uint32
}

// interval counts the occurrences of one key since from. It restarts at
// the first occurrence after the window has passed.
type interval struct {
	from  time.Time
	count uint64
}

// Checker is an in-memory limit check service. Occurrences are counted
// per (event, window, times) triple in fixed windows that open at the
// first occurrence.
type Checker struct {
	mu     sync.Mutex
	events map[freqKey]interval
	now    func() time.Time
}

// NewChecker returns an empty Checker.
func NewChecker() *Checker {
	return &Checker{
		events: make(map[freqKey]interval),
		now:    time.Now,
	}
}

// Check records each check's occurrences and reports, at the same index,
// whether the event now exceeds its limit.
func (c *Checker) Check(ctx context.Context, checks []EventLimitCheck) ([]EventLimitCheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	results := make([]EventLimitCheckResult, len(checks))
	for i, check := range checks {
		key := freqKey{event: check.EventID, window: check.Window, times: check.Times}

		iv, ok := c.events[key]
		if !ok || now.Sub(iv.from) >= windowOf(key) {
			iv = interval{from: now}
		}
		iv.count += uint64(check.Count)

		if iv.count == 0 {
			delete(c.events, key)
		} else {
			c.events[key] = iv
		}
		results[i].LimitExceeded = iv.count > uint64(check.Times)
	}
	return results, nil
}

// Sweep drops every key whose window closed before now and returns how
// many were dropped.
func (c *Checker) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, iv := range c.events {
		if now.Sub(iv.from) > windowOf(key) {
			delete(c.events, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked event keys.
func (c *Checker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func windowOf(key freqKey) time.Duration {
	return time.Duration(key.window) * time.Second
}

// Handle serves one limit check pack and answers with a result pack. Its
// signature matches rpc.Handler.
func (c *Checker) Handle(ctx context.Context, req transport.Entity) (transport.Entity, error) {
	checks, err := LimitCheckPack.Unwrap(req)
	if err != nil {
		return nil, err
	}
	results, err := c.Check(ctx, checks)
	if err != nil {
		return nil, err
	}
	return LimitCheckResultPack.Of(results...), nil
}

// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fraud carries event limit checks between front ends and the
// fraud prevention service.
package fraud

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/newsgate/rpc/binstream"
)

// EventType classifies the user action a limit applies to.
type EventType uint8

const (
	EventClick EventType = iota
	EventAddSearchMail
	EventUpdateSearchMail
)

func (t EventType) String() string {
	switch t {
	case EventClick:
		return "click"
	case EventAddSearchMail:
		return "add-search-mail"
	case EventUpdateSearchMail:
		return "update-search-mail"
	default:
		return "unknown"
	}
}

// EventIDFromString derives a stable event id from a name such as
// "click:user=42:ip=10.0.0.1".
func EventIDFromString(name string) uint64 {
	sum := blake3.Sum256([]byte(name))
	return binary.BigEndian.Uint64(sum[:8])
}

// EventLimitCheck asks whether an event happened more than Times times
// within the last Window seconds, counting Count new occurrences.
type EventLimitCheck struct {
	EventID uint64
	Window  uint32
	Times   uint32
	Count   uint32
}

// NewEventLimitCheck builds a check for the named event.
func NewEventLimitCheck(name string, count, times, window uint32) EventLimitCheck {
	return EventLimitCheck{
		EventID: EventIDFromString(name),
		Window:  window,
		Times:   times,
		Count:   count,
	}
}

func (c *EventLimitCheck) Encode(w *binstream.Writer) error {
	w.WriteUint64(c.EventID)
	w.WriteUint32(c.Window)
	w.WriteUint32(c.Times)
	w.WriteUint32(c.Count)
	return nil
}

func (c *EventLimitCheck) Decode(r *binstream.Reader) error {
	c.EventID = r.ReadUint64()
	c.Window = r.ReadUint32()
	c.Times = r.ReadUint32()
	c.Count = r.ReadUint32()
	return r.Err()
}

// EventLimitCheckResult answers one EventLimitCheck, at the same index.
type EventLimitCheckResult struct {
	LimitExceeded bool
}

func (r *EventLimitCheckResult) Encode(w *binstream.Writer) error {
	w.WriteBool(r.LimitExceeded)
	return nil
}

func (r *EventLimitCheckResult) Decode(rd *binstream.Reader) error {
	r.LimitExceeded = rd.ReadBool()
	return rd.Err()
}

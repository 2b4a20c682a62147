// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stat carries request, impression and click records from the
// front ends to the statistics logger.
package stat

import (
	"time"

	"github.com/newsgate/rpc/binstream"
)

// Referer identifies where a visitor came from.
type Referer struct {
	Site string
	URL  string
}

func (ref *Referer) encode(w *binstream.Writer) {
	w.WriteString(ref.Site)
	w.WriteString(ref.URL)
}

func (ref *Referer) decode(r *binstream.Reader) {
	ref.Site = r.ReadString()
	ref.URL = r.ReadString()
}

// Client identifies the visitor.
type Client struct {
	ID        string
	IP        string
	UserAgent string
	Lang      string
	Country   string
}

func (c *Client) encode(w *binstream.Writer) {
	w.WriteString(c.ID)
	w.WriteString(c.IP)
	w.WriteString(c.UserAgent)
	w.WriteString(c.Lang)
	w.WriteString(c.Country)
}

func (c *Client) decode(r *binstream.Reader) {
	c.ID = r.ReadString()
	c.IP = r.ReadString()
	c.UserAgent = r.ReadString()
	c.Lang = r.ReadString()
	c.Country = r.ReadString()
}

// RequestInfo records one search request.
type RequestInfo struct {
	ID              string
	Time            time.Time
	Host            string
	RequestDuration time.Duration
	SearchDuration  time.Duration
	Query           string
	Start           uint32
	Count           uint32
	MessagesLoaded  bool
	TotalMatched    uint32
	Suppressed      uint32
	OptimizedQuery  string
	Client          Client
	Referer         Referer
}

func (ri *RequestInfo) Encode(w *binstream.Writer) error {
	w.WriteString(ri.ID)
	w.WriteTime(ri.Time)
	w.WriteString(ri.Host)
	w.WriteUint32(uint32(ri.RequestDuration / time.Millisecond))
	w.WriteUint32(uint32(ri.SearchDuration / time.Millisecond))
	w.WriteString(ri.Query)
	w.WriteUint32(ri.Start)
	w.WriteUint32(ri.Count)
	w.WriteBool(ri.MessagesLoaded)
	w.WriteUint32(ri.TotalMatched)
	w.WriteUint32(ri.Suppressed)
	w.WriteString(ri.OptimizedQuery)
	ri.Client.encode(w)
	ri.Referer.encode(w)
	return nil
}

func (ri *RequestInfo) Decode(r *binstream.Reader) error {
	ri.ID = r.ReadString()
	ri.Time = r.ReadTime()
	ri.Host = r.ReadString()
	ri.RequestDuration = time.Duration(r.ReadUint32()) * time.Millisecond
	ri.SearchDuration = time.Duration(r.ReadUint32()) * time.Millisecond
	ri.Query = r.ReadString()
	ri.Start = r.ReadUint32()
	ri.Count = r.ReadUint32()
	ri.MessagesLoaded = r.ReadBool()
	ri.TotalMatched = r.ReadUint32()
	ri.Suppressed = r.ReadUint32()
	ri.OptimizedQuery = r.ReadString()
	ri.Client.decode(r)
	ri.Referer.decode(r)
	return r.Err()
}

// PageImpressionInfo records one page view.
type PageImpressionInfo struct {
	ID       string
	Time     time.Time
	Protocol uint8
	Referer  Referer
}

func (pi *PageImpressionInfo) Encode(w *binstream.Writer) error {
	w.WriteString(pi.ID)
	w.WriteTime(pi.Time)
	w.WriteUint8(pi.Protocol)
	pi.Referer.encode(w)
	return nil
}

func (pi *PageImpressionInfo) Decode(r *binstream.Reader) error {
	pi.ID = r.ReadString()
	pi.Time = r.ReadTime()
	pi.Protocol = r.ReadUint8()
	pi.Referer.decode(r)
	return r.Err()
}

// MessageClickInfo records the messages a visitor clicked through.
type MessageClickInfo struct {
	ID       string
	ClientID string
	IP       string
	Time     time.Time
	Messages []uint64
}

func (mc *MessageClickInfo) Encode(w *binstream.Writer) error {
	w.WriteString(mc.ID)
	w.WriteString(mc.ClientID)
	w.WriteString(mc.IP)
	w.WriteTime(mc.Time)
	w.WriteUint64s(mc.Messages)
	return nil
}

func (mc *MessageClickInfo) Decode(r *binstream.Reader) error {
	mc.ID = r.ReadString()
	mc.ClientID = r.ReadString()
	mc.IP = r.ReadString()
	mc.Time = r.ReadTime()
	mc.Messages = r.ReadUint64s()
	return r.Err()
}

// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ad carries ad selector configuration, selection requests and
// their results between the ad server and the front ends.
package ad

import (
	"fmt"

	"github.com/newsgate/rpc/binstream"
)

// SelectorVersion is the only Selector layout this build reads.
const SelectorVersion = 1

// Injection tells the front end how to embed a creative.
type Injection uint8

const (
	InjectDirect Injection = iota
	InjectFrame
)

// Creative is one ad that may fill a slot.
type Creative struct {
	ID         uint64
	Advertiser uint64
	Width      uint32
	Height     uint32
	Text       string
	Inject     Injection
	Weight     float64
}

func (c *Creative) Encode(w *binstream.Writer) error {
	w.WriteUint64(c.ID)
	w.WriteUint64(c.Advertiser)
	w.WriteUint32(c.Width)
	w.WriteUint32(c.Height)
	w.WriteString(c.Text)
	w.WriteUint8(uint8(c.Inject))
	w.WriteFloat64(c.Weight)
	return nil
}

func (c *Creative) Decode(r *binstream.Reader) error {
	c.ID = r.ReadUint64()
	c.Advertiser = r.ReadUint64()
	c.Width = r.ReadUint32()
	c.Height = r.ReadUint32()
	c.Text = r.ReadString()
	c.Inject = Injection(r.ReadUint8())
	c.Weight = r.ReadFloat64()
	if r.Err() == nil && c.Weight < 0 {
		r.Fail(fmt.Errorf("%w: negative weight for creative %d", binstream.ErrMalformedPayload, c.ID))
	}
	return r.Err()
}

// Slot is a place on a page and the creatives eligible for it.
type Slot struct {
	ID        uint32
	Creatives []Creative
}

func (s *Slot) Encode(w *binstream.Writer) error {
	w.WriteUint32(s.ID)
	return binstream.WriteSeq(w, s.Creatives)
}

func (s *Slot) Decode(r *binstream.Reader) error {
	s.ID = r.ReadUint32()
	s.Creatives = binstream.ReadSeq[Creative](r)
	return r.Err()
}

// Page groups slots and limits how many ads it shows in total.
type Page struct {
	ID       uint32
	MaxAdNum uint32
	Slots    []Slot
}

func (p *Page) Encode(w *binstream.Writer) error {
	w.WriteUint32(p.ID)
	w.WriteUint32(p.MaxAdNum)
	return binstream.WriteSeq(w, p.Slots)
}

func (p *Page) Decode(r *binstream.Reader) error {
	p.ID = r.ReadUint32()
	p.MaxAdNum = r.ReadUint32()
	p.Slots = binstream.ReadSeq[Slot](r)
	return r.Err()
}

// Counter is a tracking snippet shown on a page regardless of ads.
type Counter struct {
	ID   uint32
	Page uint32
	Text string
}

func (c *Counter) Encode(w *binstream.Writer) error {
	w.WriteUint32(c.ID)
	w.WriteUint32(c.Page)
	w.WriteString(c.Text)
	return nil
}

func (c *Counter) Decode(r *binstream.Reader) error {
	c.ID = r.ReadUint32()
	c.Page = r.ReadUint32()
	c.Text = r.ReadString()
	return r.Err()
}

// Selector is the full ad configuration pushed to front ends.
type Selector struct {
	Pages    []Page
	Counters []Counter
}

func (s *Selector) Encode(w *binstream.Writer) error {
	w.WriteVersion(SelectorVersion)
	if err := binstream.WriteSeq(w, s.Pages); err != nil {
		return err
	}
	return binstream.WriteSeq(w, s.Counters)
}

func (s *Selector) Decode(r *binstream.Reader) error {
	if _, err := r.ExpectVersion(SelectorVersion); err != nil {
		return err
	}
	s.Pages = binstream.ReadSeq[Page](r)
	s.Counters = binstream.ReadSeq[Counter](r)
	return r.Err()
}

func (s *Selector) page(id uint32) *Page {
	for i := range s.Pages {
		if s.Pages[i].ID == id {
			return &s.Pages[i]
		}
	}
	return nil
}

// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package ad

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/newsgate/rpc/binstream"
	"github.com/newsgate/rpc/transport"
)

// SelectionContext describes the page view asking for ads.
type SelectionContext struct {
	Page       uint32
	Slots      []uint32
	Rnd        uint32
	Language   string
	Country    string
	IP         uint32
	Tags       []string
	QueryTypes uint64

	// Attributes holds free-form targeting keys such as referer or
	// crawler name.
	Attributes map[string]string
}

func (c *SelectionContext) Encode(w *binstream.Writer) error {
	w.WriteUint32(c.Page)
	w.WriteCount(len(c.Slots))
	for _, slot := range c.Slots {
		w.WriteUint32(slot)
	}
	w.WriteUint32(c.Rnd)
	w.WriteString(c.Language)
	w.WriteString(c.Country)
	w.WriteUint32(c.IP)
	w.WriteStrings(c.Tags)
	w.WriteUint64(c.QueryTypes)
	return w.WriteCBOR(c.Attributes)
}

func (c *SelectionContext) Decode(r *binstream.Reader) error {
	c.Page = r.ReadUint32()
	if n := r.ReadCount(); n > 0 {
		c.Slots = make([]uint32, 0, r.CapHint(n))
		for i := 0; i < n && r.Err() == nil; i++ {
			c.Slots = append(c.Slots, r.ReadUint32())
		}
	}
	c.Rnd = r.ReadUint32()
	c.Language = r.ReadString()
	c.Country = r.ReadString()
	c.IP = r.ReadUint32()
	c.Tags = r.ReadStrings()
	c.QueryTypes = r.ReadUint64()
	r.ReadCBOR(&c.Attributes)
	return r.Err()
}

// Selection is one creative chosen for one slot.
type Selection struct {
	ID     uint64
	Slot   uint32
	Width  uint32
	Height uint32
	Text   string
	Inject Injection
}

func (s *Selection) Encode(w *binstream.Writer) error {
	w.WriteUint64(s.ID)
	w.WriteUint32(s.Slot)
	w.WriteUint32(s.Width)
	w.WriteUint32(s.Height)
	w.WriteString(s.Text)
	w.WriteUint8(uint8(s.Inject))
	return nil
}

func (s *Selection) Decode(r *binstream.Reader) error {
	s.ID = r.ReadUint64()
	s.Slot = r.ReadUint32()
	s.Width = r.ReadUint32()
	s.Height = r.ReadUint32()
	s.Text = r.ReadString()
	s.Inject = Injection(r.ReadUint8())
	return r.Err()
}

// SelectionResult holds the ads and counters chosen for a page view.
type SelectionResult struct {
	Ads      []Selection
	Counters []Counter
}

func (s *SelectionResult) Encode(w *binstream.Writer) error {
	if err := binstream.WriteSeq(w, s.Ads); err != nil {
		return err
	}
	return binstream.WriteSeq(w, s.Counters)
}

func (s *SelectionResult) Decode(r *binstream.Reader) error {
	s.Ads = binstream.ReadSeq[Selection](r)
	s.Counters = binstream.ReadSeq[Counter](r)
	return r.Err()
}

// Select picks at most one creative per requested slot, weighted by
// creative weight and driven by ctx.Rnd, until the page's MaxAdNum is
// reached. The same context always yields the same result.
func (s *Selector) Select(ctx *SelectionContext) *SelectionResult {
	result := &SelectionResult{}
	for _, c := range s.Counters {
		if c.Page == ctx.Page {
			result.Counters = append(result.Counters, c)
		}
	}

	page := s.page(ctx.Page)
	if page == nil {
		return result
	}

	for _, slot := range page.Slots {
		if page.MaxAdNum > 0 && uint32(len(result.Ads)) >= page.MaxAdNum {
			break
		}
		if !slices.Contains(ctx.Slots, slot.ID) {
			continue
		}
		creative := pick(slot.Creatives, ctx.Rnd)
		if creative == nil {
			continue
		}
		result.Ads = append(result.Ads, Selection{
			ID:     creative.ID,
			Slot:   slot.ID,
			Width:  creative.Width,
			Height: creative.Height,
			Text:   creative.Text,
			Inject: creative.Inject,
		})
	}
	return result
}

func pick(creatives []Creative, rnd uint32) *Creative {
	var total float64
	for _, c := range creatives {
		total += c.Weight
	}
	if total <= 0 {
		return nil
	}

	point := float64(rnd) / (float64(^uint32(0)) + 1) * total
	for i := range creatives {
		point -= creatives[i].Weight
		if point < 0 {
			return &creatives[i]
		}
	}
	return &creatives[len(creatives)-1]
}

// Service answers selection requests from the current Selector. The ad
// manager replaces the selector through Update while requests are served.
type Service struct {
	selector atomic.Pointer[Selector]
}

func NewService(selector *Selector) *Service {
	s := &Service{}
	if selector == nil {
		selector = &Selector{}
	}
	s.selector.Store(selector)
	return s
}

// Handle serves one SelectionContext envelope. Its signature matches
// rpc.Handler.
func (s *Service) Handle(ctx context.Context, req transport.Entity) (transport.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc, err := SelectionContextType.Unwrap(req)
	if err != nil {
		return nil, err
	}
	return SelectionResultType.Wrap(s.selector.Load().Select(sc)), nil
}

// Update installs the Selector carried by req for every later request.
func (s *Service) Update(_ context.Context, req transport.Entity) (transport.Entity, error) {
	selector, err := SelectorType.Unwrap(req)
	if err != nil {
		return nil, err
	}
	s.selector.Store(selector)
	return nil, nil
}

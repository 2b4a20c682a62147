// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package search

import (
	"fmt"

	"github.com/newsgate/rpc/binstream"
)

// SortingMode orders matched messages.
type SortingMode uint8

const (
	SortNone SortingMode = iota
	SortByRelevanceDesc
	SortByPubDateDesc
	SortByPubDateAsc
	SortByFetchDateDesc
	SortByFetchDateAsc
	SortByRelevanceAsc
	SortByEventCapacityDesc
	SortByEventCapacityAsc
	SortByPopularityDesc
	SortByPopularityAsc
	sortingModes
)

// Suppression controls how near-duplicate messages are collapsed.
type Suppression uint8

const (
	SuppressNone Suppression = iota
	SuppressDuplicates
	SuppressSimilar
	SuppressCollapseEvents
	suppressions
)

// Result flags select the parts of a Result the engine fills in.
const (
	ResultMessages     uint32 = 0x1
	ResultLangStat     uint32 = 0x2
	ResultCountryStat  uint32 = 0x4
	ResultFeedStat     uint32 = 0x8
	ResultCategoryStat uint32 = 0x10
)

// Filter narrows the matched set.
type Filter struct {
	Lang     string
	Country  string
	Feed     string
	Category string
	Event    uint64
}

func (f *Filter) encode(w *binstream.Writer) {
	w.WriteString(f.Lang)
	w.WriteString(f.Country)
	w.WriteString(f.Feed)
	w.WriteString(f.Category)
	w.WriteUint64(f.Event)
}

func (f *Filter) decode(r *binstream.Reader) {
	f.Lang = r.ReadString()
	f.Country = r.ReadString()
	f.Feed = r.ReadString()
	f.Category = r.ReadString()
	f.Event = r.ReadUint64()
}

// Strategy tells the engine how to evaluate and present an Expression.
type Strategy struct {
	Sorting       SortingMode
	MessageMaxAge uint32
	Suppression   Suppression
	SearchHidden  bool
	Filter        Filter
	ResultFlags   uint32
}

// DefaultStrategy returns the front end's usual strategy: newest first
// within a day, duplicates suppressed, messages with language and country
// statistics.
func DefaultStrategy() Strategy {
	return Strategy{
		Sorting:       SortByPubDateDesc,
		MessageMaxAge: 86400,
		Suppression:   SuppressDuplicates,
		ResultFlags:   ResultMessages | ResultLangStat | ResultCountryStat,
	}
}

func (s *Strategy) Encode(w *binstream.Writer) error {
	w.WriteUint8(uint8(s.Sorting))
	w.WriteUint32(s.MessageMaxAge)
	w.WriteUint8(uint8(s.Suppression))
	w.WriteBool(s.SearchHidden)
	s.Filter.encode(w)
	w.WriteUint32(s.ResultFlags)
	return nil
}

func (s *Strategy) Decode(r *binstream.Reader) error {
	s.Sorting = SortingMode(r.ReadUint8())
	s.MessageMaxAge = r.ReadUint32()
	s.Suppression = Suppression(r.ReadUint8())
	s.SearchHidden = r.ReadBool()
	s.Filter.decode(r)
	s.ResultFlags = r.ReadUint32()

	if r.Err() == nil && s.Sorting >= sortingModes {
		r.Fail(fmt.Errorf("%w: unknown sorting mode %d", binstream.ErrMalformedPayload, s.Sorting))
	}
	if r.Err() == nil && s.Suppression >= suppressions {
		r.Fail(fmt.Errorf("%w: unknown suppression %d", binstream.ErrMalformedPayload, s.Suppression))
	}
	return r.Err()
}

// WeightedID is a matched message and its relevance weight.
type WeightedID struct {
	ID     uint64
	Weight uint32
}

func (m *WeightedID) Encode(w *binstream.Writer) error {
	w.WriteUint64(m.ID)
	w.WriteUint32(m.Weight)
	return nil
}

func (m *WeightedID) Decode(r *binstream.Reader) error {
	m.ID = r.ReadUint64()
	m.Weight = r.ReadUint32()
	return r.Err()
}

// Result is one page of matched messages.
type Result struct {
	TotalMatched uint32
	Suppressed   uint32
	Messages     []WeightedID
}

func (res *Result) Encode(w *binstream.Writer) error {
	w.WriteUint32(res.TotalMatched)
	w.WriteUint32(res.Suppressed)
	return binstream.WriteSeq(w, res.Messages)
}

func (res *Result) Decode(r *binstream.Reader) error {
	res.TotalMatched = r.ReadUint32()
	res.Suppressed = r.ReadUint32()
	res.Messages = binstream.ReadSeq[WeightedID](r)
	return r.Err()
}

// Stat breaks a result down by language, country, feed and category.
// The breakdown travels as a CBOR document so new dimensions can be added
// without a layout version.
type Stat struct {
	Took       uint32            `cbor:"took_ms"`
	Langs      map[string]uint32 `cbor:"langs,omitempty"`
	Countries  map[string]uint32 `cbor:"countries,omitempty"`
	Feeds      map[string]uint32 `cbor:"feeds,omitempty"`
	Categories map[string]uint32 `cbor:"categories,omitempty"`
}

func (s *Stat) Encode(w *binstream.Writer) error {
	return w.WriteCBOR(s)
}

func (s *Stat) Decode(r *binstream.Reader) error {
	var decoded Stat
	r.ReadCBOR(&decoded)
	if err := r.Err(); err != nil {
		return err
	}
	*s = decoded
	return nil
}

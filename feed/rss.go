// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package feed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int64  `xml:"length,attr"`
}

type rssItem struct {
	Title       string         `xml:"title"`
	Link        string         `xml:"link"`
	Description string         `xml:"description"`
	GUID        string         `xml:"guid"`
	PubDate     string         `xml:"pubDate"`
	Categories  []string       `xml:"category"`
	Enclosures  []rssEnclosure `xml:"enclosure"`
}

// RSSParser reads RSS 2.0 documents as a stream, handing each item to
// the interceptor as soon as it is complete.
type RSSParser struct{}

func (RSSParser) Parse(ctx context.Context, src io.Reader, opts Options) (*Channel, error) {
	if opts.MaxSize > 0 {
		src = io.LimitReader(src, opts.MaxSize)
	}

	var base *url.URL
	if opts.FeedURL != "" {
		u, err := url.Parse(opts.FeedURL)
		if err != nil {
			return nil, fmt.Errorf("feed: url %q: %w", opts.FeedURL, err)
		}
		base = u
	}

	if opts.Charset != "" {
		r, err := charset.NewReaderLabel(opts.Charset, src)
		if err != nil {
			return nil, fmt.Errorf("%w: charset %q: %v", ErrEncoding, opts.Charset, err)
		}
		src = r
	}

	dec := xml.NewDecoder(src)
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		if opts.Charset != "" {
			// Already converted to UTF-8 above.
			return input, nil
		}
		return charset.NewReaderLabel(label, input)
	}

	p := &rssParse{
		ctx:  ctx,
		dec:  dec,
		base: base,
		now:  opts.now(),
		hook: opts.Interceptor,
		ch:   &Channel{},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.ch, nil
}

type rssParse struct {
	ctx  context.Context
	dec  *xml.Decoder
	base *url.URL
	now  time.Time
	hook Interceptor
	ch   *Channel

	inChannel bool
	dated     bool
}

func (p *rssParse) run() error {
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return classify(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.start(t); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == "channel" {
				p.inChannel = false
			}
		}
	}

	if p.ch.Type != TypeRSS {
		return fmt.Errorf("%w: no rss element", ErrParse)
	}
	if !p.dated {
		p.ch.SetLastBuildDate(time.Time{}, p.now)
		return p.postLastBuildDate()
	}
	return nil
}

func (p *rssParse) start(t xml.StartElement) error {
	switch {
	case p.ch.Type == TypeUndefined:
		if t.Name.Local != "rss" {
			return fmt.Errorf("%w: unexpected root element %q", ErrParse, t.Name.Local)
		}
		p.ch.Type = TypeRSS
		return nil
	case t.Name.Local == "channel" && !p.inChannel:
		p.inChannel = true
		return nil
	case !p.inChannel:
		return p.skip()
	}

	switch t.Name.Local {
	case "item":
		return p.item(t)
	case "title":
		return p.text(t, &p.ch.Title)
	case "description":
		return p.text(t, &p.ch.Description)
	case "link":
		var link string
		if err := p.text(t, &link); err != nil {
			return err
		}
		p.ch.HTMLLink = p.resolve(link)
		return nil
	case "language":
		var lang string
		if err := p.text(t, &lang); err != nil {
			return err
		}
		p.ch.SetLanguage(lang)
		return nil
	case "ttl":
		var ttl string
		if err := p.text(t, &ttl); err != nil {
			return err
		}
		if minutes, err := strconv.Atoi(strings.TrimSpace(ttl)); err == nil && minutes > 0 {
			p.ch.TTL = time.Duration(minutes) * time.Minute
		}
		return nil
	case "lastBuildDate", "pubDate":
		var date string
		if err := p.text(t, &date); err != nil {
			return err
		}
		if p.dated {
			return nil
		}
		built, ok := parseDate(date)
		if !ok {
			return nil
		}
		p.dated = true
		p.ch.SetLastBuildDate(built, p.now)
		return p.postLastBuildDate()
	default:
		return p.skip()
	}
}

func (p *rssParse) item(t xml.StartElement) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}

	var raw rssItem
	if err := p.dec.DecodeElement(&raw, &t); err != nil {
		return classify(err)
	}

	item := Item{
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		URL:         p.resolve(raw.Link),
		GUID:        strings.TrimSpace(raw.GUID),
		Keywords:    strings.Join(raw.Categories, ","),
	}
	for _, e := range raw.Enclosures {
		item.Enclosures = append(item.Enclosures, Enclosure{
			URL:    p.resolve(e.URL),
			Type:   e.Type,
			Length: e.Length,
		})
	}
	published, ok := parseDate(raw.PubDate)
	if !ok {
		published = p.now
	}
	p.ch.SetPublished(&item, published, p.now)

	p.ch.Items = append(p.ch.Items, item)
	if p.hook != nil {
		return p.hook.PostItem(p.ch)
	}
	return nil
}

func (p *rssParse) postLastBuildDate() error {
	if p.hook != nil {
		return p.hook.PostLastBuildDate(p.ch)
	}
	return nil
}

func (p *rssParse) text(t xml.StartElement, dst *string) error {
	if err := p.dec.DecodeElement(dst, &t); err != nil {
		return classify(err)
	}
	*dst = strings.TrimSpace(*dst)
	return nil
}

func (p *rssParse) skip() error {
	if err := p.dec.Skip(); err != nil {
		return classify(err)
	}
	return nil
}

func (p *rssParse) resolve(link string) string {
	link = strings.TrimSpace(link)
	if p.base == nil || link == "" {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return p.base.ResolveReference(ref).String()
}

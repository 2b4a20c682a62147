// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package feed

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>World news</title>
    <link>/world/</link>
    <description>Latest</description>
    <language>en-us</language>
    <ttl>30</ttl>
    <lastBuildDate>Fri, 01 May 2026 08:00:00 +0000</lastBuildDate>
    <image><url>/logo.png</url></image>
    <item>
      <title> First </title>
      <link>/a/1</link>
      <guid>a-1</guid>
      <pubDate>Fri, 01 May 2026 09:00:00 +0000</pubDate>
      <category>politics</category>
      <category>europe</category>
      <enclosure url="/a/1.jpg" type="image/jpeg" length="1024"/>
    </item>
    <item>
      <title>Second</title>
      <link>https://other.example/b</link>
      <pubDate>Sat, 02 May 2026 09:00:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

func TestRSSParse(t *testing.T) {
	var events []string
	hook := InterceptorFuncs{
		LastBuildDate: func(c *Channel) error {
			events = append(events, "date:"+c.LastBuildDate.Format(time.RFC3339))
			return nil
		},
		Item: func(c *Channel) error {
			events = append(events, "item:"+c.Items[len(c.Items)-1].Title)
			return nil
		},
	}

	ch, err := RSSParser{}.Parse(context.Background(), strings.NewReader(sampleFeed), Options{
		FeedURL:     "https://news.example/rss.xml",
		Interceptor: hook,
		Now:         parseTime,
	})
	require.NoError(t, err)

	assert.Equal(t, TypeRSS, ch.Type)
	assert.Equal(t, "World news", ch.Title)
	assert.Equal(t, "https://news.example/world/", ch.HTMLLink)
	assert.Equal(t, "en", ch.Lang)
	assert.Equal(t, "US", ch.Country)
	assert.Equal(t, 30*time.Minute, ch.TTL)
	require.Len(t, ch.Items, 2)

	first := ch.Items[0]
	assert.Equal(t, "First", first.Title)
	assert.Equal(t, "https://news.example/a/1", first.URL)
	assert.Equal(t, "politics,europe", first.Keywords)
	assert.Equal(t, []Enclosure{{URL: "https://news.example/a/1.jpg", Type: "image/jpeg", Length: 1024}}, first.Enclosures)

	// The second item is dated in the future and gets clamped.
	assert.Equal(t, parseTime, ch.Items[1].Published)
	assert.Equal(t, parseTime, ch.LastBuildDate)

	assert.Equal(t, []string{
		"date:2026-05-01T08:00:00Z",
		"item:First",
		"item:Second",
	}, events)
}

func TestRSSParseWithoutBuildDate(t *testing.T) {
	doc := `<rss><channel><item><title>x</title><pubDate>Fri, 01 May 2026 09:00:00 +0000</pubDate></item></channel></rss>`
	var dates []time.Time
	ch, err := RSSParser{}.Parse(context.Background(), strings.NewReader(doc), Options{
		Now: parseTime,
		Interceptor: InterceptorFuncs{LastBuildDate: func(c *Channel) error {
			dates = append(dates, c.LastBuildDate)
			return nil
		}},
	})
	require.NoError(t, err)
	want := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, want, ch.LastBuildDate)
	assert.Equal(t, []time.Time{want}, dates)
}

func TestInterceptorStopsParse(t *testing.T) {
	stop := errors.New("seen before")
	_, err := RSSParser{}.Parse(context.Background(), strings.NewReader(sampleFeed), Options{
		Now:         parseTime,
		Interceptor: InterceptorFuncs{Item: func(*Channel) error { return stop }},
	})
	assert.ErrorIs(t, err, stop)
}

func TestRSSParseCharset(t *testing.T) {
	// "Привет" in windows-1251.
	title := []byte{0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2}
	var doc bytes.Buffer
	doc.WriteString(`<?xml version="1.0" encoding="windows-1251"?><rss><channel><title>`)
	doc.Write(title)
	doc.WriteString(`</title></channel></rss>`)

	ch, err := RSSParser{}.Parse(context.Background(), bytes.NewReader(doc.Bytes()), Options{Now: parseTime})
	require.NoError(t, err)
	assert.Equal(t, "Привет", ch.Title)

	// Without a declaration the override decides.
	doc.Reset()
	doc.WriteString(`<rss><channel><title>`)
	doc.Write(title)
	doc.WriteString(`</title></channel></rss>`)
	ch, err = RSSParser{}.Parse(context.Background(), bytes.NewReader(doc.Bytes()), Options{Now: parseTime, Charset: "cp1251"})
	require.NoError(t, err)
	assert.Equal(t, "Привет", ch.Title)
}

func TestRSSParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		opts Options
		want error
	}{
		{"not rss", `<feed></feed>`, Options{}, ErrParse},
		{"empty", ``, Options{}, ErrParse},
		{"broken", `<rss><channel><title>x</channel></rss>`, Options{}, ErrParse},
		{"unknown declared charset", `<?xml version="1.0" encoding="x-klingon"?><rss/>`, Options{}, ErrEncoding},
		{"unknown override", `<rss/>`, Options{Charset: "x-klingon"}, ErrEncoding},
		{"bad utf-8", "<rss><channel><title>\xff\xfe</title></channel></rss>", Options{}, ErrEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RSSParser{}.Parse(context.Background(), strings.NewReader(tt.doc), tt.opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRSSParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RSSParser{}.Parse(ctx, strings.NewReader(sampleFeed), Options{Now: parseTime})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetLastBuildDate(t *testing.T) {
	c := &Channel{Items: []Item{{Published: parseTime.Add(-time.Hour)}}}
	c.SetLastBuildDate(parseTime.Add(-2*time.Hour), parseTime)
	assert.Equal(t, parseTime.Add(-time.Hour), c.LastBuildDate)

	c.SetLastBuildDate(parseTime.Add(time.Hour), parseTime)
	assert.Equal(t, parseTime, c.LastBuildDate)
}

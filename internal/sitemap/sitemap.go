// Package sitemap renders the sitemap.xml for the static site: the
// landing page, one page per registry region, and one meetup page per
// state that has meetups.
package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []entry  `xml:"url"`
}

type entry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// Builder renders sitemaps rooted at one site URL.
type Builder struct {
	baseURL string
}

// NewBuilder creates a Builder. baseURL must not end with a slash.
func NewBuilder(baseURL string) *Builder {
	return &Builder{baseURL: strings.TrimRight(baseURL, "/")}
}

// Build renders the sitemap for the given region slugs and meetup
// states. lastMod stamps every entry; pass the latest refresh time.
func (b *Builder) Build(regionSlugs []string, meetupStates []string, lastMod time.Time) []byte {
	mod := lastMod.UTC().Format("2006-01-02")

	set := urlset{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs, entry{
		Loc:        b.baseURL + "/",
		LastMod:    mod,
		ChangeFreq: "daily",
		Priority:   "1.0",
	})
	for _, slug := range regionSlugs {
		set.URLs = append(set.URLs, entry{
			Loc:        fmt.Sprintf("%s/%s/", b.baseURL, slug),
			LastMod:    mod,
			ChangeFreq: "daily",
			Priority:   "0.8",
		})
	}
	for _, state := range meetupStates {
		set.URLs = append(set.URLs, entry{
			Loc:        fmt.Sprintf("%s/meetups/%s/", b.baseURL, strings.ToLower(state)),
			LastMod:    mod,
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	// Encoding a static struct cannot fail.
	_ = enc.Encode(set)
	buf.WriteByte('\n')
	return buf.Bytes()
}

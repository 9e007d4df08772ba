package rss

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// Feed is a subscription entry from an OPML document.
type Feed struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type opmlDocument struct {
	Body struct {
		Outlines []opmlOutline `xml:"outline"`
	} `xml:"body"`
}

type opmlOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	Outlines []opmlOutline `xml:"outline"`
}

// ParseOPML returns every outline carrying an xmlUrl, in document order,
// including outlines nested in folders.
func ParseOPML(r io.Reader) ([]Feed, error) {
	var doc opmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse opml: %w", err)
	}
	var feeds []Feed
	var walk func([]opmlOutline)
	walk = func(outlines []opmlOutline) {
		for _, o := range outlines {
			if o.XMLURL != "" {
				feeds = append(feeds, Feed{Title: outlineTitle(o), URL: o.XMLURL})
			}
			walk(o.Outlines)
		}
	}
	walk(doc.Body.Outlines)
	return feeds, nil
}

// LoadOPML reads and parses the OPML file at path.
func LoadOPML(path string) ([]Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open opml: %w", err)
	}
	defer f.Close()
	return ParseOPML(f)
}

func outlineTitle(o opmlOutline) string {
	switch {
	case o.Title != "":
		return o.Title
	case o.Text != "":
		return o.Text
	default:
		return "Unknown"
	}
}

package feed

import (
	"time"
)

type Metadata struct {
	Title       string
	Link        string
	Description string
	Author      string
	ImageURL    string
	Language    string
}

// Entry is one feed item reduced to the fields ingestion cares about.
type Entry struct {
	Title    string
	Link     string
	Summary  string
	Subtitle string
	Duration string // raw itunes:duration
	Author   string

	Published       string // as written in the feed
	PublishedParsed *time.Time

	Hosts []string // media:credit values with role="host"
}

// Article is the readable part of a web page.
type Article struct {
	Title   string
	Byline  string
	Excerpt string
	Content string
}

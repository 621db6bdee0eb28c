package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
		Author:      p.feedAuthor(feed),
	}

	if feed.Image != nil {
		metadata.ImageURL = feed.Image.URL
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.normalizeItem(item))
	}

	return metadata, entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Entry {
	entry := Entry{
		Title:           item.Title,
		Link:            item.Link,
		Summary:         item.Description,
		Published:       item.Published,
		PublishedParsed: item.PublishedParsed,
		Author:          p.itemAuthor(item),
		Hosts:           p.extractHosts(item),
	}

	if itunes := item.ITunesExt; itunes != nil {
		entry.Duration = strings.TrimSpace(itunes.Duration)
		entry.Subtitle = itunes.Subtitle
		entry.Summary = cmp.Or(entry.Summary, itunes.Summary)
	}

	entry.Summary = cmp.Or(entry.Summary, item.Content)

	return entry
}

func (p *Parser) itemAuthor(item *gofeed.Item) string {
	if item.Author != nil {
		if name := p.formatAuthor(item.Author); name != "" {
			return name
		}
	}
	for _, author := range item.Authors {
		if name := p.formatAuthor(author); name != "" {
			return name
		}
	}
	if item.ITunesExt != nil {
		return strings.TrimSpace(item.ITunesExt.Author)
	}
	return ""
}

func (p *Parser) feedAuthor(feed *gofeed.Feed) string {
	if feed.Author != nil {
		if name := p.formatAuthor(feed.Author); name != "" {
			return name
		}
	}
	if feed.ITunesExt != nil {
		return strings.TrimSpace(feed.ITunesExt.Author)
	}
	return ""
}

func (p *Parser) formatAuthor(person *gofeed.Person) string {
	if person == nil {
		return ""
	}
	return cmp.Or(strings.TrimSpace(person.Name), strings.TrimSpace(person.Email))
}

// extractHosts reads <media:credit role="host"> values in document order.
func (p *Parser) extractHosts(item *gofeed.Item) []string {
	media, ok := item.Extensions["media"]
	if !ok {
		return nil
	}

	var hosts []string
	for _, credit := range media["credit"] {
		hosts = appendHost(hosts, credit)
	}
	// Some feeds nest credits inside media:content.
	for _, content := range media["content"] {
		for _, credit := range content.Children["credit"] {
			hosts = appendHost(hosts, credit)
		}
	}
	return hosts
}

func appendHost(hosts []string, credit ext.Extension) []string {
	if credit.Attrs["role"] != "host" {
		return hosts
	}
	if name := strings.TrimSpace(credit.Value); name != "" {
		return append(hosts, name)
	}
	return hosts
}

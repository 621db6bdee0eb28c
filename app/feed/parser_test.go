package feed

import (
	"testing"
)

const podcastRSS = `<?xml version="1.0"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Security Now (Audio)</title>
    <link>https://twit.tv/shows/security-now</link>
    <description>Security podcast</description>
    <language>en-us</language>
    <itunes:author>TWiT</itunes:author>
    <image>
      <url>https://example.com/icon.png</url>
      <title>Security Now</title>
      <link>https://twit.tv</link>
    </image>
    <item>
      <title>SN 1000: Passkeys Everywhere - The Big One</title>
      <link>https://twit.tv/shows/security-now/episodes/1000</link>
      <description>&lt;p&gt;We discuss &lt;b&gt;passkeys&lt;/b&gt; and MFA.&lt;/p&gt;</description>
      <pubDate>Tue, 05 Nov 2024 20:30:00 PST</pubDate>
      <itunes:duration>1:59:45</itunes:duration>
      <itunes:subtitle>The Big One</itunes:subtitle>
      <media:credit role="host">Steve Gibson</media:credit>
      <media:credit role="host">Leo Laporte</media:credit>
      <media:credit role="guest">Someone Else</media:credit>
    </item>
    <item>
      <title>SN 999: Short One</title>
      <link>https://twit.tv/shows/security-now/episodes/999</link>
      <pubDate>Tue, 29 Oct 2024 20:30:00 PDT</pubDate>
      <author>editor@example.com (Guest Editor)</author>
      <itunes:summary>Summary from iTunes</itunes:summary>
    </item>
  </channel>
</rss>`

func TestParsePodcastRSS(t *testing.T) {
	parser := NewParser()
	metadata, entries, err := parser.Run([]byte(podcastRSS))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Security Now (Audio)" {
		t.Errorf("Expected title 'Security Now (Audio)', got: %s", metadata.Title)
	}
	if metadata.Language != "en-us" {
		t.Errorf("Expected language 'en-us', got: %s", metadata.Language)
	}
	if metadata.ImageURL != "https://example.com/icon.png" {
		t.Errorf("Expected image URL 'https://example.com/icon.png', got: %s", metadata.ImageURL)
	}
	if metadata.Author != "TWiT" {
		t.Errorf("Expected feed author 'TWiT', got: %s", metadata.Author)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got: %d", len(entries))
	}

	first := entries[0]
	if first.Duration != "1:59:45" {
		t.Errorf("Expected duration '1:59:45', got: %s", first.Duration)
	}
	if first.Subtitle != "The Big One" {
		t.Errorf("Expected subtitle 'The Big One', got: %s", first.Subtitle)
	}
	if first.Published != "Tue, 05 Nov 2024 20:30:00 PST" {
		t.Errorf("Expected raw published date, got: %s", first.Published)
	}
	if len(first.Hosts) != 2 || first.Hosts[0] != "Steve Gibson" || first.Hosts[1] != "Leo Laporte" {
		t.Errorf("Expected hosts [Steve Gibson Leo Laporte], got: %v", first.Hosts)
	}

	second := entries[1]
	if second.Author != "Guest Editor" {
		t.Errorf("Expected author 'Guest Editor', got: %s", second.Author)
	}
	if second.Summary != "Summary from iTunes" {
		t.Errorf("Expected iTunes summary fallback, got: %s", second.Summary)
	}
	if len(second.Hosts) != 0 {
		t.Errorf("Expected no hosts, got: %v", second.Hosts)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <author>
    <name>Test Author</name>
  </author>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link href="https://example.com/entry1"/>
    <id>urn:uuid:entry-1</id>
    <published>2023-07-03T10:00:00Z</published>
    <updated>2023-07-03T10:00:00Z</updated>
    <content type="html">Test content</content>
  </entry>
</feed>`

	parser := NewParser()
	metadata, entries, err := parser.Run([]byte(atomData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Test Atom Feed" {
		t.Errorf("Expected title 'Test Atom Feed', got: %s", metadata.Title)
	}
	if metadata.Author != "Test Author" {
		t.Errorf("Expected feed author 'Test Author', got: %s", metadata.Author)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}

	entry := entries[0]
	if entry.Link != "https://example.com/entry1" {
		t.Errorf("Expected link 'https://example.com/entry1', got: %s", entry.Link)
	}
	if entry.Summary != "Test content" {
		t.Errorf("Expected content fallback 'Test content', got: %s", entry.Summary)
	}
	if entry.PublishedParsed == nil {
		t.Errorf("Expected parsed published date")
	}
}

func TestParseInvalidFeed(t *testing.T) {
	parser := NewParser()
	_, _, err := parser.Run([]byte("invalid xml"))

	if err == nil {
		t.Error("Expected error for invalid XML")
	}
}

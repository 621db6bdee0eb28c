package feed

import (
	"testing"
	"time"

	"github.com/lysyi3m/cpe-tracker/app/storage"
)

var normalizerNow = time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	n := NewNormalizer(NewClassifier())
	n.now = func() time.Time { return normalizerNow }
	return n
}

func primarySource() storage.FeedSource {
	return storage.DefaultFeeds()[0]
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		subtitle string
		expected string
	}{
		{"prefix rewritten", "SN 1000: Passkeys", "", "Security Now 1000: Passkeys"},
		{"extra whitespace", "SN   42: Old", "", "Security Now 42: Old"},
		{"subtitle suffix stripped", "SN 1064: Least Privilege - Cybercrime Goes Pro", "Cybercrime Goes Pro", "Security Now 1064: Least Privilege"},
		{"other subtitle kept", "SN 5: A - B", "C", "Security Now 5: A - B"},
		{"code mid-title untouched", "Best of SN 5: A", "", "Best of SN 5: A"},
		{"already normalized", "Security Now 1000: Passkeys", "", "Security Now 1000: Passkeys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := NormalizeTitle(tt.title, tt.subtitle, "SN", "Security Now")
			if once != tt.expected {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.title, once, tt.expected)
			}
			twice := NormalizeTitle(once, tt.subtitle, "SN", "Security Now")
			if twice != once {
				t.Errorf("Expected idempotent rewrite, got %q then %q", once, twice)
			}
		})
	}
}

func TestNormalizer_PrimaryFeed(t *testing.T) {
	normalizer := newTestNormalizer()

	entries := []Entry{
		{
			Title:     "SN 1000: Passkeys Everywhere - The Big One",
			Link:      "https://twit.tv/sn/1000",
			Summary:   "<p>We discuss <b>passkeys</b>, MFA and password managers.</p>",
			Subtitle:  "The Big One",
			Duration:  "1:59:45",
			Published: "Tue, 19 Nov 2024 20:30:00 -0800",
			Hosts:     []string{"Steve Gibson", "Leo Laporte"},
		},
		{
			Title:     "SN 999: No Credits",
			Link:      "https://twit.tv/sn/999",
			Published: "Tue, 12 Nov 2024 20:30:00 -0800",
		},
	}

	records := normalizer.Run(&Metadata{Author: "TWiT"}, entries, primarySource())
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	rec := records[0]
	if rec.Title != "Security Now 1000: Passkeys Everywhere" {
		t.Errorf("Unexpected title: %s", rec.Title)
	}
	if rec.Subtitle != "The Big One" {
		t.Errorf("Unexpected subtitle: %s", rec.Subtitle)
	}
	if rec.Description != "We discuss passkeys, MFA and password managers." {
		t.Errorf("Unexpected description: %s", rec.Description)
	}
	if rec.PublishedDate != "2024-11-20T04:30:00Z" {
		t.Errorf("Expected UTC published date, got %s", rec.PublishedDate)
	}
	if rec.CPEHours != "2.0" || rec.Duration != "1:59:45" {
		t.Errorf("Unexpected hours/duration: %s / %s", rec.CPEHours, rec.Duration)
	}
	if rec.Presenter != "Steve Gibson & Leo Laporte" {
		t.Errorf("Unexpected presenter: %s", rec.Presenter)
	}
	if rec.Domain != "Identity and Access Management" || rec.Domains != "Identity and Access Management" {
		t.Errorf("Unexpected domains: %s / %s", rec.Domain, rec.Domains)
	}
	if rec.Source != "Security Now" || rec.Type != "podcast" {
		t.Errorf("Unexpected source/type: %s / %s", rec.Source, rec.Type)
	}

	if records[1].Presenter != "Steve Gibson" {
		t.Errorf("Expected default presenter, got %s", records[1].Presenter)
	}
	if records[1].CPEHours != "1.0" {
		t.Errorf("Expected fallback hours, got %s", records[1].CPEHours)
	}
}

func TestNormalizer_GenericFeed(t *testing.T) {
	normalizer := newTestNormalizer()
	src := storage.FeedSource{Name: "Other Podcast", URL: "https://example.com/rss", Enabled: true, CutoffDays: 30}

	entries := []Entry{
		{Title: "SN 1: Not Rewritten", Link: "https://example.com/1", Author: "Host A", Published: "Mon, 18 Nov 2024 10:00:00 GMT"},
		{Title: "", Link: "https://example.com/2", Published: "Mon, 18 Nov 2024 10:00:00 GMT"},
	}

	records := normalizer.Run(&Metadata{Author: "Feed Author"}, entries, src)
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	if records[0].Title != "SN 1: Not Rewritten" {
		t.Errorf("Expected title untouched, got %s", records[0].Title)
	}
	if records[0].Presenter != "Host A" {
		t.Errorf("Expected item author, got %s", records[0].Presenter)
	}
	if records[1].Title != DefaultTitle {
		t.Errorf("Expected default title, got %s", records[1].Title)
	}
	if records[1].Presenter != "Feed Author" {
		t.Errorf("Expected feed author fallback, got %s", records[1].Presenter)
	}
	if records[1].Domains != DefaultDomain {
		t.Errorf("Expected default domain, got %s", records[1].Domains)
	}
}

func TestNormalizer_Cutoff(t *testing.T) {
	normalizer := newTestNormalizer()
	src := storage.FeedSource{Name: "Feed", CutoffDays: 10}

	parsed := normalizerNow.AddDate(0, 0, -3)
	entries := []Entry{
		{Title: "old", Link: "https://example.com/old", Published: "Mon, 01 Jan 2024 10:00:00 GMT"},
		{Title: "recent", Link: "https://example.com/recent", Published: "Mon, 18 Nov 2024 10:00:00 GMT"},
		{Title: "undated", Link: "https://example.com/undated", Published: "sometime last week"},
		{Title: "parsed only", Link: "https://example.com/parsed", Published: "2024-11-17T12:00:00Z", PublishedParsed: &parsed},
	}

	records := normalizer.Run(nil, entries, src)
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	if records[0].Title != "recent" {
		t.Errorf("Expected 'recent' first, got %s", records[0].Title)
	}
	if records[1].PublishedDate != "2024-11-20T12:00:00Z" {
		t.Errorf("Expected undated entry stamped with now, got %s", records[1].PublishedDate)
	}
	if records[2].PublishedDate != "2024-11-17T12:00:00Z" {
		t.Errorf("Expected parsed fallback date, got %s", records[2].PublishedDate)
	}
}

func TestNormalizer_CutoffOutOfRange(t *testing.T) {
	normalizer := newTestNormalizer()

	old := normalizerNow.AddDate(0, 0, -500).Format(time.RFC1123Z)
	monthOld := normalizerNow.AddDate(0, 0, -30).Format(time.RFC1123Z)
	entries := []Entry{
		{Title: "ancient", Link: "https://example.com/ancient", Published: old},
		{Title: "month old", Link: "https://example.com/month", Published: monthOld},
	}

	tests := []struct {
		name       string
		cutoffDays int
		expected   int
	}{
		{"capped at max", 1000, 1},
		{"raised to min", -5, 0},
		{"unset uses default", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := storage.FeedSource{Name: "Feed", CutoffDays: tt.cutoffDays}
			records := normalizer.Run(nil, entries, src)
			if len(records) != tt.expected {
				t.Errorf("Expected %d records, got %d", tt.expected, len(records))
			}
		})
	}
}

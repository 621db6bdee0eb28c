package feed

import (
	"cmp"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/lysyi3m/cpe-tracker/app/storage"
)

const (
	DefaultTitle = "Untitled"
	RecordType   = "podcast"
)

// Normalizer turns parsed feed entries into records ready for the store.
type Normalizer struct {
	classifier *Classifier
	now        func() time.Time
}

func NewNormalizer(classifier *Classifier) *Normalizer {
	return &Normalizer{
		classifier: classifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (n *Normalizer) Run(meta *Metadata, entries []Entry, src storage.FeedSource) []storage.Record {
	if meta == nil {
		meta = &Metadata{}
	}

	cutoffDays := src.CutoffDays
	if cutoffDays == 0 {
		cutoffDays = storage.DefaultCutoffDays
	}
	cutoffDays = storage.ClampCutoffDays(cutoffDays)
	now := n.now()
	cutoff := now.AddDate(0, 0, -cutoffDays)

	records := make([]storage.Record, 0, len(entries))
	for _, e := range entries {
		published, known := publishedAt(e)
		if !known {
			published = now
		} else if published.Before(cutoff) {
			continue
		}

		subtitle := CleanText(e.Subtitle, SubtitleMaxLength)
		title := cmp.Or(e.Title, DefaultTitle)
		if src.Primary {
			title = NormalizeTitle(title, subtitle, src.TitleCode, src.TitlePrefix)
		}
		description := CleanText(e.Summary, SummaryMaxLength)
		domains := n.classifier.Run(title, description)

		records = append(records, storage.Record{
			Title:         title,
			Subtitle:      subtitle,
			Description:   description,
			URL:           e.Link,
			PublishedDate: published.UTC().Format(time.RFC3339),
			Source:        src.Name,
			Type:          RecordType,
			CPEHours:      FormatHours(ParseDuration(e.Duration)),
			Duration:      e.Duration,
			Domain:        domains[0],
			Domains:       strings.Join(domains, storage.ListSeparator),
			Presenter:     presenter(e, meta, src),
		})
	}

	return records
}

// publishedAt tries the raw RFC 2822 date first, then whatever the feed
// parser already understood.
func publishedAt(e Entry) (time.Time, bool) {
	if e.Published != "" {
		if t, err := mail.ParseDate(e.Published); err == nil {
			return t, true
		}
	}
	if e.PublishedParsed != nil && !e.PublishedParsed.IsZero() {
		return *e.PublishedParsed, true
	}
	return time.Time{}, false
}

func presenter(e Entry, meta *Metadata, src storage.FeedSource) string {
	if src.Primary {
		if len(e.Hosts) > 0 {
			return strings.Join(e.Hosts, " & ")
		}
		return src.DefaultPresenter
	}
	return cmp.Or(e.Author, meta.Author)
}

// NormalizeTitle rewrites a leading "<code> <n>:" to "<prefix> <n>:" and
// drops a trailing " - <subtitle>". Applying it twice changes nothing.
func NormalizeTitle(title, subtitle, code, prefix string) string {
	if code != "" && prefix != "" {
		re := regexp.MustCompile(`^` + regexp.QuoteMeta(code) + `\s+(\d+):`)
		title = re.ReplaceAllString(title, strings.ReplaceAll(prefix, "$", "$$")+" ${1}:")
	}

	if subtitle != "" {
		title = strings.TrimSuffix(title, " - "+subtitle)
	}
	return title
}

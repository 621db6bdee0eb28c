package feed

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

const (
	SummaryMaxLength  = 500
	SubtitleMaxLength = 200

	ellipsis = "..."
)

// CleanText strips markup, decodes entities, normalizes to NFC and truncates to maxLen runes,
// appending "..." when something was cut.
func CleanText(s string, maxLen int) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	// Plain text goes through the HTML parser too so entities are decoded.
	text := s
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
		text = doc.Text()
	}

	text = strings.TrimSpace(norm.NFC.String(text))

	if utf8.RuneCountInString(text) > maxLen {
		runes := []rune(text)
		text = string(runes[:maxLen]) + ellipsis
	}
	return text
}

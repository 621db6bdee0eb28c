package api

import (
	"context"

	"github.com/lysyi3m/cpe-tracker/app/feed"
	"github.com/lysyi3m/cpe-tracker/app/storage"
)

type SourcePipeline interface {
	FetchAll(ctx context.Context, sources []storage.FeedSource) []storage.Record
	FetchSource(ctx context.Context, src storage.FeedSource) ([]storage.Record, error)
	Validate(ctx context.Context, url string) (*feed.Metadata, error)
}

type PageFetcher interface {
	Run(ctx context.Context, url string) ([]byte, error)
}

type ArticleExtractor interface {
	Run(data []byte, pageURL string) (*feed.Article, error)
}

var (
	_ SourcePipeline   = (*feed.Pipeline)(nil)
	_ PageFetcher      = (*feed.Fetcher)(nil)
	_ ArticleExtractor = (*feed.ContentExtractor)(nil)
)

type Handler struct {
	records       *storage.RecordStore
	feeds         *storage.FeedStore
	pipeline      SourcePipeline
	pages         PageFetcher
	extractor     ArticleExtractor
	maxUploadSize int64
	version       string
}

type createRecordRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	URL            string   `json:"url"`
	PublishedDate  string   `json:"published_date"`
	Source         string   `json:"source"`
	Type           string   `json:"type"`
	CPEHours       *float64 `json:"cpe_hours"`
	Domain         string   `json:"domain"`
	Domains        string   `json:"domains"`
	Presenter      string   `json:"presenter"`
	Summary        string   `json:"cpe_summary"`
	LegacySummary  string   `json:"isc2_summary"`
	Notes          string   `json:"notes"`
	Status         string   `json:"status"`
	Subtitle       string   `json:"subtitle"`
	Certifications string   `json:"certifications"`
}

// updateRecordRequest mirrors the updatable columns; nil fields are left alone.
type updateRecordRequest struct {
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	CPEHours       *float64 `json:"cpe_hours"`
	Domain         *string  `json:"domain"`
	Domains        *string  `json:"domains"`
	Notes          *string  `json:"notes"`
	Status         *string  `json:"status"`
	Presenter      *string  `json:"presenter"`
	Summary        *string  `json:"cpe_summary"`
	LegacySummary  *string  `json:"isc2_summary"`
	Subtitle       *string  `json:"subtitle"`
	SubmittedDate  *string  `json:"submitted_date"`
	Certifications *string  `json:"certifications"`
}

type createFeedRequest struct {
	URL  string `json:"url" binding:"required"`
	Name string `json:"name"`
}

type backfillResponse struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
}

type attachmentInfo struct {
	Filename  string  `json:"filename"`
	EntryID   string  `json:"entry_id"`
	Title     string  `json:"title"`
	SizeBytes int64   `json:"size_bytes"`
	SizeKB    float64 `json:"size_kb"`
}

type storageResponse struct {
	TotalSizeBytes int64            `json:"total_size_bytes"`
	TotalSizeKB    float64          `json:"total_size_kb"`
	TotalSizeMB    float64          `json:"total_size_mb"`
	FileCount      int              `json:"file_count"`
	Files          []attachmentInfo `json:"files"`
}

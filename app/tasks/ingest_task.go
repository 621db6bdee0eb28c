package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/cpe-tracker/app/feed"
	"github.com/lysyi3m/cpe-tracker/app/metrics"
	"github.com/lysyi3m/cpe-tracker/app/storage"
)

var (
	_ FeedLister  = (*storage.FeedStore)(nil)
	_ RecordAdder = (*storage.RecordStore)(nil)
	_ FeedFetcher = (*feed.Pipeline)(nil)
)

type IngestResult struct {
	Fetched int `json:"fetched"`
	Added   int `json:"added"`
}

// IngestTask runs one full ingestion: every enabled feed is fetched and the
// new records are bulk-inserted.
type IngestTask struct {
	Task
	feeds    FeedLister
	pipeline FeedFetcher
	records  RecordAdder

	Result IngestResult
}

func NewIngestTask(feeds FeedLister, pipeline FeedFetcher, records RecordAdder) *IngestTask {
	return &IngestTask{
		Task:     NewTask(TaskTypeIngest, DefaultMaxRetries),
		feeds:    feeds,
		pipeline: pipeline,
		records:  records,
	}
}

func (t *IngestTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	sources, err := t.feeds.List()
	if err != nil {
		metrics.ObserveIngest(0, 0, err)
		return fmt.Errorf("failed to list feeds: %w", err)
	}

	records := t.pipeline.FetchAll(ctx, sources)

	added, err := t.records.AddMany(records)
	if err != nil {
		metrics.ObserveIngest(len(records), 0, err)
		return fmt.Errorf("failed to store records: %w", err)
	}

	t.Result = IngestResult{Fetched: len(records), Added: len(added)}
	metrics.ObserveIngest(t.Result.Fetched, t.Result.Added, nil)

	slog.Info("Task completed",
		"type", string(t.Type),
		"id", t.ID,
		"duration", t.GetDuration(),
		"feeds", len(sources),
		"fetched", t.Result.Fetched,
		"added", t.Result.Added)

	return nil
}

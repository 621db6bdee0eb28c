package tasks

import (
	"context"

	"github.com/lysyi3m/cpe-tracker/app/storage"
)

// TaskSchedulerInterface is what main needs to run background ingestion:
//
//	scheduler := NewScheduler(newTask, SchedulerOptions{...})
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

type FeedLister interface {
	List() ([]storage.FeedSource, error)
}

type RecordAdder interface {
	AddMany(recs []storage.Record) ([]storage.Record, error)
}

type FeedFetcher interface {
	FetchAll(ctx context.Context, sources []storage.FeedSource) []storage.Record
}

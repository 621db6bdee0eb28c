package feed

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/cpe-tracker/app/metrics"
	"github.com/lysyi3m/cpe-tracker/app/storage"
)

type FetcherInterface interface {
	Run(ctx context.Context, url string) ([]byte, error)
}

var _ FetcherInterface = (*Fetcher)(nil)

// Pipeline fetches, parses and normalizes feed sources. It never touches
// the record store.
type Pipeline struct {
	fetcher     FetcherInterface
	parser      *Parser
	normalizer  *Normalizer
	concurrency int
}

func NewPipeline(fetcher FetcherInterface, parser *Parser, normalizer *Normalizer, concurrency int) *Pipeline {
	return &Pipeline{
		fetcher:     fetcher,
		parser:      parser,
		normalizer:  normalizer,
		concurrency: max(concurrency, 1),
	}
}

// FetchSource returns the normalized records of one source, regardless of
// whether it is enabled.
func (p *Pipeline) FetchSource(ctx context.Context, src storage.FeedSource) ([]storage.Record, error) {
	data, err := p.fetcher.Run(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	metadata, entries, err := p.parser.Run(data)
	if err != nil {
		return nil, err
	}

	return p.normalizer.Run(metadata, entries, src), nil
}

// FetchAll fetches every enabled source concurrently and concatenates the
// results in source order. A failing source is logged and contributes
// nothing.
func (p *Pipeline) FetchAll(ctx context.Context, sources []storage.FeedSource) []storage.Record {
	results := make([][]storage.Record, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, src := range sources {
		if !src.Enabled {
			slog.Debug("Feed disabled, skipping", "feed", src.Name)
			continue
		}

		g.Go(func() error {
			records, err := p.FetchSource(gctx, src)
			metrics.ObserveSourceFetch(src.Name, err)
			if err != nil {
				slog.Error("Feed fetch failed", "feed", src.Name, "url", src.URL, "error", err)
				return nil
			}
			slog.Debug("Feed fetched", "feed", src.Name, "entries", len(records))
			results[i] = records
			return nil
		})
	}

	// Workers never return errors, failures are absorbed above.
	_ = g.Wait()

	var all []storage.Record
	for _, records := range results {
		all = append(all, records...)
	}
	return all
}

// Validate fetches and parses url, returning the feed metadata.
func (p *Pipeline) Validate(ctx context.Context, url string) (*Metadata, error) {
	data, err := p.fetcher.Run(ctx, url)
	if err != nil {
		return nil, err
	}

	metadata, entries, err := p.parser.Run(data)
	if err != nil {
		return nil, err
	}
	if metadata.Title == "" && len(entries) == 0 {
		return nil, fmt.Errorf("feed has no title and no entries")
	}
	return metadata, nil
}

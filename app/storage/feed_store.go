package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// legacyFeedsFile is read from the feeds file's directory until the first
// write creates the configured file.
const legacyFeedsFile = "feeds.json"

const (
	DefaultCutoffDays = 60
	MinCutoffDays     = 1
	MaxCutoffDays     = 365
)

// DefaultFeeds is served until the first write creates the feeds file.
func DefaultFeeds() []FeedSource {
	return []FeedSource{
		{
			ID:               "security-now",
			Name:             "Security Now",
			URL:              "https://feeds.twit.tv/sn.xml",
			Enabled:          true,
			AddedDate:        "2024-01-01T00:00:00Z",
			CutoffDays:       DefaultCutoffDays,
			Primary:          true,
			TitleCode:        "SN",
			TitlePrefix:      "Security Now",
			DefaultPresenter: "Steve Gibson",
		},
	}
}

// FeedStore keeps the configured feeds in a YAML file. A legacy feeds.json
// file parses as well, JSON being valid YAML, and is picked up next to the
// configured path when that file does not exist yet.
type FeedStore struct {
	path string
	mu   sync.Mutex
}

func NewFeedStore(path string) *FeedStore {
	return &FeedStore{path: path}
}

func (s *FeedStore) List() ([]FeedSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *FeedStore) Get(id string) (*FeedSource, error) {
	feeds, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range feeds {
		if feeds[i].ID == id {
			return &feeds[i], nil
		}
	}
	return nil, nil
}

// Add registers a new enabled feed; a url that is already configured fails
// with ErrDuplicateFeed.
func (s *FeedStore) Add(url, name string) (FeedSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feeds, err := s.load()
	if err != nil {
		return FeedSource{}, err
	}

	for _, f := range feeds {
		if f.URL == url {
			return FeedSource{}, ErrDuplicateFeed
		}
	}

	feed := FeedSource{
		ID:         uuid.NewString(),
		Name:       name,
		URL:        url,
		Enabled:    true,
		AddedDate:  time.Now().UTC().Format(time.RFC3339),
		CutoffDays: DefaultCutoffDays,
	}

	if err := s.save(append(feeds, feed)); err != nil {
		return FeedSource{}, err
	}
	return feed, nil
}

// Update changes name, enabled and cutoff_days; nil is returned for an
// unknown id.
func (s *FeedStore) Update(id string, update FeedUpdate) (*FeedSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feeds, err := s.load()
	if err != nil {
		return nil, err
	}

	for i := range feeds {
		if feeds[i].ID != id {
			continue
		}
		if update.Name != nil {
			feeds[i].Name = *update.Name
		}
		if update.Enabled != nil {
			feeds[i].Enabled = *update.Enabled
		}
		if update.CutoffDays != nil {
			feeds[i].CutoffDays = ClampCutoffDays(*update.CutoffDays)
		}
		if err := s.save(feeds); err != nil {
			return nil, err
		}
		updated := feeds[i]
		return &updated, nil
	}
	return nil, nil
}

func (s *FeedStore) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	feeds, err := s.load()
	if err != nil {
		return false, err
	}

	keep := make([]FeedSource, 0, len(feeds))
	for _, f := range feeds {
		if f.ID != id {
			keep = append(keep, f)
		}
	}
	if len(keep) == len(feeds) {
		return false, nil
	}
	return true, s.save(keep)
}

func ClampCutoffDays(days int) int {
	return min(max(days, MinCutoffDays), MaxCutoffDays)
}

func (s *FeedStore) load() ([]FeedSource, error) {
	data, err := os.ReadFile(s.path)
	legacy := false
	if errors.Is(err, fs.ErrNotExist) {
		if legacyPath := filepath.Join(filepath.Dir(s.path), legacyFeedsFile); legacyPath != s.path {
			data, err = os.ReadFile(legacyPath)
			legacy = err == nil
		}
	}
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultFeeds(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds file: %w", err)
	}

	var feeds []FeedSource
	if err := yaml.Unmarshal(data, &feeds); err != nil {
		return nil, fmt.Errorf("failed to parse feeds file: %w", err)
	}

	for i := range feeds {
		if feeds[i].CutoffDays == 0 {
			feeds[i].CutoffDays = DefaultCutoffDays
		}
		feeds[i].CutoffDays = ClampCutoffDays(feeds[i].CutoffDays)
		if legacy {
			upgradeLegacyFeed(&feeds[i])
		}
	}
	return feeds, nil
}

// upgradeLegacyFeed restores the title rewrite settings that feeds.json
// entries never carried.
func upgradeLegacyFeed(f *FeedSource) {
	for _, def := range DefaultFeeds() {
		if def.ID != f.ID || f.Primary || f.TitleCode != "" {
			continue
		}
		f.Primary = def.Primary
		f.TitleCode = def.TitleCode
		f.TitlePrefix = def.TitlePrefix
		f.DefaultPresenter = def.DefaultPresenter
	}
}

func (s *FeedStore) save(feeds []FeedSource) error {
	data, err := yaml.Marshal(feeds)
	if err != nil {
		return fmt.Errorf("failed to encode feeds: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create feeds directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write feeds file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace feeds file: %w", err)
	}
	return nil
}

package api

import (
	"cmp"
	"context"
	"log/slog"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/cpe-tracker/app/feed"
	"github.com/lysyi3m/cpe-tracker/app/storage"
)

func (h *Handler) BackfillPresenters(c *gin.Context) {
	h.backfillFromFeed(c, "presenter", func(r storage.Record) string { return r.Presenter })
}

func (h *Handler) BackfillSubtitles(c *gin.Context) {
	h.backfillFromFeed(c, "subtitle", func(r storage.Record) string { return r.Subtitle })
}

// backfillFromFeed re-fetches the primary feeds and rewrites column on every
// stored record whose url matches a live entry with a different value.
func (h *Handler) backfillFromFeed(c *gin.Context, column string, value func(storage.Record) string) {
	primary, err := h.primaryFeeds()
	if err != nil {
		slog.Error("Storage error", "operation", "list_feeds", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	live, err := h.liveRecords(c.Request.Context(), primary)
	if err != nil {
		slog.Error("Backfill fetch failed", "column", column, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch feed"})
		return
	}

	rows, err := h.records.ReadAll()
	if err != nil {
		slog.Error("Storage error", "operation", "read_records", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	patches := map[string]map[string]string{}
	for _, row := range rows {
		fresh, ok := live[row.URL]
		if !ok || row.URL == "" {
			continue
		}
		if v := value(fresh); v != value(row) {
			patches[row.ID] = map[string]string{column: v}
		}
	}

	h.applyBackfill(c, column, len(rows), patches)
}

// BackfillTitles rewrites the primary feed title code and strips trailing
// subtitles. The live subtitle wins over the stored one; a failed fetch falls
// back to stored subtitles only.
func (h *Handler) BackfillTitles(c *gin.Context) {
	primary, err := h.primaryFeeds()
	if err != nil {
		slog.Error("Storage error", "operation", "list_feeds", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	live, err := h.liveRecords(c.Request.Context(), primary)
	if err != nil {
		slog.Warn("Backfill fetch failed, using stored subtitles", "column", "title", "error", err)
		live = nil
	}

	rows, err := h.records.ReadAll()
	if err != nil {
		slog.Error("Storage error", "operation", "read_records", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	patches := map[string]map[string]string{}
	for _, row := range rows {
		subtitle := cmp.Or(live[row.URL].Subtitle, row.Subtitle)

		title := feed.NormalizeTitle(row.Title, subtitle, "", "")
		for _, src := range primary {
			title = feed.NormalizeTitle(title, "", src.TitleCode, src.TitlePrefix)
		}

		if title != row.Title {
			patches[row.ID] = map[string]string{"title": title}
		}
	}

	h.applyBackfill(c, "title", len(rows), patches)
}

func (h *Handler) applyBackfill(c *gin.Context, column string, checked int, patches map[string]map[string]string) {
	updated, err := h.records.UpdateMany(patches)
	if err != nil {
		slog.Error("Storage error", "operation", "backfill", "column", column, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	slog.Info("Backfill completed", "column", column, "checked", checked, "updated", updated)
	c.JSON(http.StatusOK, backfillResponse{Checked: checked, Updated: updated})
}

func (h *Handler) primaryFeeds() ([]storage.FeedSource, error) {
	feeds, err := h.feeds.List()
	if err != nil {
		return nil, err
	}

	var primary []storage.FeedSource
	for _, f := range feeds {
		if f.Primary {
			primary = append(primary, f)
		}
	}
	return primary, nil
}

// liveRecords maps url to the freshly normalized record of each entry.
func (h *Handler) liveRecords(ctx context.Context, sources []storage.FeedSource) (map[string]storage.Record, error) {
	live := map[string]storage.Record{}
	for _, src := range sources {
		records, err := h.pipeline.FetchSource(ctx, src)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.URL != "" {
				live[r.URL] = r
			}
		}
	}
	return live, nil
}

// GetStorage lists proof attachments, largest first. Files whose record is
// gone are reported as "(entry deleted)".
func (h *Handler) GetStorage(c *gin.Context) {
	rows, err := h.records.ReadAll()
	if err != nil {
		slog.Error("Storage error", "operation", "read_records", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	titles := make(map[string]string, len(rows))
	for _, r := range rows {
		titles[r.ID] = r.Title
	}

	dir, err := h.records.AttachmentsDir()
	if err != nil {
		slog.Error("Storage error", "operation", "attachments_dir", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Error("Storage error", "operation", "read_attachments", "dir", dir, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	resp := storageResponse{Files: []attachmentInfo{}}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		entryID := e.Name()
		if i := strings.LastIndex(entryID, "."); i >= 0 {
			entryID = entryID[:i]
		}
		title, ok := titles[entryID]
		if !ok {
			title = "(entry deleted)"
		}

		resp.TotalSizeBytes += info.Size()
		resp.Files = append(resp.Files, attachmentInfo{
			Filename:  e.Name(),
			EntryID:   entryID,
			Title:     title,
			SizeBytes: info.Size(),
			SizeKB:    round(float64(info.Size())/1024, 1),
		})
	}

	sort.SliceStable(resp.Files, func(i, j int) bool {
		return resp.Files[i].SizeBytes > resp.Files[j].SizeBytes
	})

	resp.FileCount = len(resp.Files)
	resp.TotalSizeKB = round(float64(resp.TotalSizeBytes)/1024, 1)
	resp.TotalSizeMB = round(float64(resp.TotalSizeBytes)/1024/1024, 2)

	c.JSON(http.StatusOK, resp)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/cpe-tracker/app/storage"
	"github.com/lysyi3m/cpe-tracker/app/tasks"
)

type HandlerOptions struct {
	MaxUploadSize int64
	Version       string
}

func NewHandler(records *storage.RecordStore, feeds *storage.FeedStore, pipeline SourcePipeline,
	pages PageFetcher, extractor ArticleExtractor, opts HandlerOptions) *Handler {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 10 << 20
	}
	return &Handler{
		records:       records,
		feeds:         feeds,
		pipeline:      pipeline,
		pages:         pages,
		extractor:     extractor,
		maxUploadSize: opts.MaxUploadSize,
		version:       opts.Version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	rows, err := h.records.ReadAll()
	if err != nil {
		slog.Error("Storage error", "operation", "health", "error", err)
		health["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	health["status"] = "ok"
	health["records"] = len(rows)
	c.JSON(http.StatusOK, health)
}

// TriggerFetch runs one ingestion synchronously.
func (h *Handler) TriggerFetch(c *gin.Context) {
	task := tasks.NewIngestTask(h.feeds, h.pipeline, h.records)
	task.Start()

	if err := task.Execute(c.Request.Context()); err != nil {
		slog.Error("Manual fetch failed", "id", task.GetID(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch failed"})
		return
	}

	c.JSON(http.StatusOK, task.Result)
}

func (h *Handler) ExportCSV(c *gin.Context) {
	path, err := h.records.Path()
	if err != nil {
		slog.Error("Storage error", "operation", "export", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.FileAttachment(path, "cpes.csv")
}

func (h *Handler) GetSummary(c *gin.Context) {
	rows, err := h.records.ReadAll()
	if err != nil {
		slog.Error("Storage error", "operation", "summary", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, storage.Summarize(rows))
}

package api

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/cpe-tracker/app/feed"
	"github.com/lysyi3m/cpe-tracker/app/storage"
)

const (
	manualSource  = "Manual"
	defaultDomain = "Security Operations"
	defaultHours  = 1.0
)

func (h *Handler) ListRecords(c *gin.Context) {
	rows, err := h.records.ReadAll()
	if err != nil {
		slog.Error("Storage error", "operation", "list_records", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	filter := storage.RecordFilter{
		Domain:   c.Query("domain"),
		Status:   c.Query("status"),
		Type:     c.Query("type"),
		DateFrom: c.Query("date_from"),
		DateTo:   c.Query("date_to"),
	}

	c.JSON(http.StatusOK, storage.FilterRecords(rows, filter))
}

func (h *Handler) CreateRecord(c *gin.Context) {
	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title == "" && req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title or url is required"})
		return
	}

	if req.Title == "" {
		h.fillFromPage(c.Request.Context(), &req)
	}

	hours := defaultHours
	if req.CPEHours != nil {
		hours = *req.CPEHours
	}

	domain := cmp.Or(req.Domain, defaultDomain)
	rec := storage.Record{
		Title:          cmp.Or(req.Title, feed.DefaultTitle),
		Description:    req.Description,
		URL:            req.URL,
		PublishedDate:  req.PublishedDate,
		Source:         cmp.Or(req.Source, manualSource),
		Type:           cmp.Or(req.Type, feed.RecordType),
		CPEHours:       feed.FormatHours(hours),
		Domain:         domain,
		Domains:        cmp.Or(req.Domains, domain),
		Presenter:      req.Presenter,
		Summary:        cmp.Or(req.Summary, req.LegacySummary),
		Notes:          req.Notes,
		Status:         cmp.Or(req.Status, storage.StatusPending),
		Subtitle:       req.Subtitle,
		Certifications: req.Certifications,
		FetchedDate:    time.Now().UTC().Format(time.RFC3339),
	}

	created, err := h.records.Create(rec)
	if errors.Is(err, storage.ErrDuplicateURL) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("Storage error", "operation", "create_record", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// fillFromPage completes a manual record from the readable content of its
// url. Failures leave the request as it was.
func (h *Handler) fillFromPage(ctx context.Context, req *createRecordRequest) {
	data, err := h.pages.Run(ctx, req.URL)
	if err != nil {
		slog.Warn("Failed to fetch page", "url", req.URL, "error", err)
		return
	}

	article, err := h.extractor.Run(data, req.URL)
	if err != nil {
		slog.Warn("Failed to extract page content", "url", req.URL, "error", err)
		return
	}

	req.Title = feed.CleanText(article.Title, feed.SubtitleMaxLength)
	if req.Description == "" {
		req.Description = feed.CleanText(cmp.Or(article.Excerpt, article.Content), feed.SummaryMaxLength)
	}
	if req.Presenter == "" {
		req.Presenter = feed.CleanText(article.Byline, feed.SubtitleMaxLength)
	}
}

func (h *Handler) UpdateRecord(c *gin.Context) {
	var req updateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.records.Update(c.Param("id"), req.fields())
	if err != nil {
		slog.Error("Storage error", "operation", "update_record", "id", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "CPE not found"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (r updateRecordRequest) fields() map[string]string {
	fields := map[string]string{}
	set := func(column string, value *string) {
		if value != nil {
			fields[column] = *value
		}
	}

	set("title", r.Title)
	set("description", r.Description)
	set("domain", r.Domain)
	set("domains", r.Domains)
	set("notes", r.Notes)
	set("status", r.Status)
	set("presenter", r.Presenter)
	set("cpe_summary", r.LegacySummary)
	set("cpe_summary", r.Summary)
	set("subtitle", r.Subtitle)
	set("submitted_date", r.SubmittedDate)
	set("certifications", r.Certifications)

	if r.CPEHours != nil {
		fields["cpe_hours"] = feed.FormatHours(*r.CPEHours)
	}
	return fields
}

func (h *Handler) DeleteRecord(c *gin.Context) {
	ok, err := h.records.SoftDelete(c.Param("id"))
	h.respondDeleted(c, "soft_delete_record", ok, err)
}

func (h *Handler) PurgeRecord(c *gin.Context) {
	ok, err := h.records.Purge(c.Param("id"))
	h.respondDeleted(c, "purge_record", ok, err)
}

func (h *Handler) respondDeleted(c *gin.Context, operation string, ok bool, err error) {
	if err != nil {
		slog.Error("Storage error", "operation", operation, "id", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "CPE not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

package api

import (
	"cmp"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/cpe-tracker/app/storage"
)

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.feeds.List()
	if err != nil {
		slog.Error("Storage error", "operation", "list_feeds", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, feeds)
}

// CreateFeed validates the url by fetching and parsing it before storing.
func (h *Handler) CreateFeed(c *gin.Context) {
	var req createFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	url := strings.TrimSpace(req.URL)

	feeds, err := h.feeds.List()
	if err != nil {
		slog.Error("Storage error", "operation", "list_feeds", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	for _, f := range feeds {
		if f.URL == url {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Feed URL already exists"})
			return
		}
	}

	meta, err := h.pipeline.Validate(c.Request.Context(), url)
	if err != nil {
		slog.Warn("Feed validation failed", "url", url, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Not a valid RSS feed"})
		return
	}

	created, err := h.feeds.Add(url, cmp.Or(strings.TrimSpace(req.Name), meta.Title, url))
	if errors.Is(err, storage.ErrDuplicateFeed) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Feed URL already exists"})
		return
	}
	if err != nil {
		slog.Error("Storage error", "operation", "add_feed", "url", url, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	slog.Info("Feed added", "id", created.ID, "name", created.Name, "url", created.URL)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateFeed(c *gin.Context) {
	var req storage.FeedUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.feeds.Update(c.Param("id"), req)
	if err != nil {
		slog.Error("Storage error", "operation", "update_feed", "id", c.Param("id"), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteFeed removes a source. With purge_data=true every record whose
// source matches the feed name is purged as well.
func (h *Handler) DeleteFeed(c *gin.Context) {
	id := c.Param("id")

	src, err := h.feeds.Get(id)
	if err != nil {
		slog.Error("Storage error", "operation", "get_feed", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if src == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	if _, err := h.feeds.Delete(id); err != nil {
		slog.Error("Storage error", "operation", "delete_feed", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	purge, _ := strconv.ParseBool(c.Query("purge_data"))
	if !purge {
		c.Status(http.StatusNoContent)
		return
	}

	purged, err := h.records.PurgeBySource(src.Name)
	if err != nil {
		slog.Error("Storage error", "operation", "purge_by_source", "source", src.Name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	slog.Info("Feed records purged", "feed", src.Name, "purged", purged)
	c.JSON(http.StatusOK, gin.H{"purged": purged})
}

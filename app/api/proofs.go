package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

const defaultProofExt = "png"

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

func (h *Handler) UploadProof(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.records.Get(id)
	if err != nil {
		slog.Error("Storage error", "operation", "get_record", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "CPE not found"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	if !allowedImageTypes[header.Header.Get("Content-Type")] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be an image (PNG, JPEG, WEBP, GIF)"})
		return
	}

	file, err := header.Open()
	if err != nil {
		slog.Error("Failed to open uploaded proof image", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	defer file.Close()

	updated, err := h.records.SetProof(id, proofExt(header.Filename), file)
	if err != nil {
		slog.Error("Storage error", "operation", "set_proof_image", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "CPE not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"proof_image": updated.ProofImage})
}

func (h *Handler) GetProof(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.records.Get(id)
	if err != nil {
		slog.Error("Storage error", "operation", "get_record", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if rec == nil || rec.ProofImage == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No proof image for this CPE"})
		return
	}

	path, err := h.records.AttachmentPath(rec.ProofImage)
	if err != nil {
		slog.Error("Storage error", "operation", "attachment_path", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Proof image file not found"})
		return
	}

	c.File(path)
}

func (h *Handler) DeleteProof(c *gin.Context) {
	id := c.Param("id")

	found, err := h.records.ClearProof(id)
	if err != nil {
		slog.Error("Storage error", "operation", "clear_proof_image", "id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "CPE not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// proofExt takes the lowercased extension of the uploaded file name, falling
// back to png when it has none or it is not purely alphanumeric.
func proofExt(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filepath.Base(filename)), "."))
	if ext == "" {
		return defaultProofExt
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return defaultProofExt
		}
	}
	return ext
}

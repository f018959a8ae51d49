package uploads

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"policyscan-backend/internal/herald"
	"policyscan-backend/internal/shared/server/middleware"
	"policyscan-backend/internal/shared/server/respond"
)

// formParseSlack leaves room for multipart framing beyond the file ceiling
// so an oversized file still yields the explicit size error.
const formParseSlack = 1 << 20

// Handler wires the upload/extraction workflow to HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches workflow routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.POST("/extract", h.submitExtraction)
	rg.GET("/extract", h.pollExtraction)
	rg.GET("/history", h.history)
	rg.DELETE("/history/delete", h.deleteRecord)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+formParseSlack)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		// An aborted parse from the byte ceiling must still name the size
		// constraint, not look like a missing file.
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || c.Request.ContentLength > MaxUploadSize+formParseSlack {
			respond.Error(c, http.StatusBadRequest, "validation_error", "File size exceeds 10MB limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file provided", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	res, rec, err := h.Svc.Upload(c.Request.Context(), userID, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotPDF):
			respond.Error(c, http.StatusBadRequest, "validation_error", "File must be a PDF", nil)
		case errors.Is(err, ErrTooLarge):
			respond.Error(c, http.StatusBadRequest, "validation_error", "File size exceeds 10MB limit", nil)
		case errors.Is(err, herald.ErrNotConfigured):
			respond.Error(c, http.StatusInternalServerError, "not_configured", "Herald API key not configured", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Upload failed", nil)
		}
		return
	}
	if !res.OK() {
		respond.Error(c, res.StatusCode, "herald_error", "Herald upload failed", res.Body)
		return
	}

	if rec != nil {
		c.Set("uploadId", rec.ID)
		c.Set("heraldFileId", rec.HeraldFileID)
	}

	respond.OK(c, gin.H{
		"success":      true,
		"filename":     fileHeader.Filename,
		"heraldFileId": herald.FileID(res.Body),
		"message":      "PDF uploaded to Herald successfully",
		"heraldData":   res.Body,
	})
}

// submitExtractionRequest tolerates the fileid under several alias keys.
type submitExtractionRequest struct {
	HeraldFileID string `json:"heraldFileId"`
	FileID       string `json:"fileId"`
	ID           string `json:"id"`
	File         struct {
		ID string `json:"id"`
	} `json:"file"`
}

func (r submitExtractionRequest) fileID() string {
	for _, id := range []string{r.HeraldFileID, r.FileID, r.ID, r.File.ID} {
		if id != "" {
			return id
		}
	}
	return ""
}

func (h *Handler) submitExtraction(c *gin.Context) {
	var req submitExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	fileID := req.fileID()
	if fileID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No Herald file id provided", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)
	c.Set("heraldFileId", fileID)

	res, err := h.Svc.SubmitExtraction(c.Request.Context(), userID, fileID)
	if err != nil {
		h.respondHeraldFailure(c, err, "Herald extraction failed")
		return
	}
	if !res.OK() {
		respond.Error(c, res.StatusCode, "herald_error", "Herald extraction failed", res.Body)
		return
	}

	respond.OK(c, gin.H{"success": true, "extraction": res.Body})
}

func (h *Handler) pollExtraction(c *gin.Context) {
	extractionID := c.Query("id")
	if extractionID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "No extraction id provided", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)

	res, err := h.Svc.PollExtraction(c.Request.Context(), userID, extractionID)
	if err != nil {
		h.respondHeraldFailure(c, err, "Check extraction failed")
		return
	}
	if !res.OK() {
		respond.Error(c, res.StatusCode, "herald_error", "Check extraction failed", res.Body)
		return
	}

	respond.OK(c, gin.H{"success": true, "extraction": res.Body})
}

func (h *Handler) history(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Not authenticated", nil)
		return
	}

	recs, err := h.Svc.History(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to load history", nil)
		return
	}

	history := make([]HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		history = append(history, toHistoryEntry(rec))
	}

	respond.OK(c, gin.H{"success": true, "history": history})
}

func (h *Handler) deleteRecord(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Not authenticated", nil)
		return
	}

	id := c.Query("id")
	if id == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Upload ID required", nil)
		return
	}

	err := h.Svc.Delete(c.Request.Context(), userID, id)
	switch {
	case err == nil:
		c.Set("uploadId", id)
		respond.OK(c, gin.H{"success": true, "message": "Upload deleted successfully"})
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Upload not found or not authorized", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to delete upload", nil)
	}
}

func (h *Handler) respondHeraldFailure(c *gin.Context, err error, message string) {
	if errors.Is(err, herald.ErrNotConfigured) {
		respond.Error(c, http.StatusInternalServerError, "not_configured", "Herald API key not configured", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
}

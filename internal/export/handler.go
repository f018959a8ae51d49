package export

import (
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/gin-gonic/gin"

	"policyscan-backend/internal/shared/metrics"
	"policyscan-backend/internal/shared/server/respond"
)

const (
	actionDownload = "download"
	actionEmail    = "email"
)

// Handler exposes the spreadsheet export endpoint.
type Handler struct {
	Mailer *Mailer
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/export", h.export)
}

type exportRequest struct {
	Action         string         `json:"action"`
	ExtractionData ExtractionData `json:"extractionData"`
	RecipientEmail string         `json:"recipientEmail"`
}

func (h *Handler) export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Invalid request body", nil)
		return
	}

	switch req.Action {
	case actionDownload:
		h.download(c, req.ExtractionData)
	case actionEmail:
		h.email(c, req)
	default:
		respond.Error(c, http.StatusBadRequest, "invalid_action", "Action must be 'download' or 'email'", nil)
	}
}

func (h *Handler) download(c *gin.Context, data ExtractionData) {
	buf, err := BuildWorkbook(data)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "export_failed", "Failed to generate spreadsheet", nil)
		return
	}
	metrics.IncExport()

	filename := exportFilename()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, ContentTypeXLSX, buf.Bytes())
}

func (h *Handler) email(c *gin.Context, req exportRequest) {
	if req.RecipientEmail == "" {
		respond.Error(c, http.StatusBadRequest, "missing_recipient", "Recipient email is required", nil)
		return
	}
	if _, err := mail.ParseAddress(req.RecipientEmail); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_recipient", "Recipient email is not valid", nil)
		return
	}
	if !h.Mailer.Configured() {
		respond.Error(c, http.StatusInternalServerError, "email_not_configured", "Email service not configured", nil)
		return
	}

	buf, err := BuildWorkbook(req.ExtractionData)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "export_failed", "Failed to generate spreadsheet", nil)
		return
	}

	body := fmt.Sprintf("<p>Attached is the extraction report%s.</p>", summarySuffix(req.ExtractionData))
	if err := h.Mailer.Send(req.RecipientEmail, "Policy Extraction Report", body, exportFilename(), buf.Bytes()); err != nil {
		respond.Error(c, http.StatusInternalServerError, "email_failed", "Failed to send email", nil)
		return
	}
	metrics.IncExport()

	respond.OK(c, gin.H{
		"success": true,
		"message": "Report sent to " + req.RecipientEmail,
	})
}

func exportFilename() string {
	return fmt.Sprintf("extraction-%d.xlsx", time.Now().UnixMilli())
}

func summarySuffix(data ExtractionData) string {
	if data.ID == "" {
		return ""
	}
	return " for extraction " + data.ID
}

package export

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(mailer *Mailer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := &Handler{Mailer: mailer}
	h.RegisterRoutes(r.Group("/"))
	return r
}

func doExport(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestExportDownloadReturnsWorkbookBinary(t *testing.T) {
	router := newTestRouter(&Mailer{})

	resp := doExport(router, `{
		"action": "download",
		"extractionData": {"id":"x","status":"available","risk_values":[],"coverage_values":[]}
	}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Content-Type"); got != ContentTypeXLSX {
		t.Fatalf("expected xlsx content type, got %q", got)
	}
	disposition := resp.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, `attachment; filename="extraction-`) {
		t.Fatalf("unexpected disposition: %q", disposition)
	}
	if resp.Body.Len() == 0 {
		t.Fatalf("expected binary body")
	}
	// xlsx files are zip archives.
	if !strings.HasPrefix(resp.Body.String(), "PK") {
		t.Fatalf("body is not a zip archive")
	}
}

func TestExportRejectsUnknownAction(t *testing.T) {
	router := newTestRouter(&Mailer{})

	resp := doExport(router, `{"action":"print"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestExportEmailValidatesRecipient(t *testing.T) {
	router := newTestRouter(&Mailer{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})

	resp := doExport(router, `{"action":"email","extractionData":{"id":"x"}}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing recipient: expected 400, got %d", resp.Code)
	}

	resp = doExport(router, `{"action":"email","recipientEmail":"not-an-address","extractionData":{"id":"x"}}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("invalid recipient: expected 400, got %d", resp.Code)
	}
}

func TestExportEmailWithoutSMTPConfigIs500(t *testing.T) {
	router := newTestRouter(&Mailer{})

	resp := doExport(router, `{"action":"email","recipientEmail":"a@example.com","extractionData":{"id":"x"}}`)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "email_not_configured") {
		t.Fatalf("expected email_not_configured, got %s", resp.Body.String())
	}
}

package uploads_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"policyscan-backend/internal/bootstrap"
	"policyscan-backend/internal/shared/config"
	"policyscan-backend/internal/uploads"
)

func newTestApp(t *testing.T, heraldURL string) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:3000"},
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		HeraldAPIKey:    "test-key",
		HeraldBaseURL:   heraldURL,
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func newHeraldBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "file-1"})
	})
	mux.HandleFunc("/data_extractions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data_extraction": map[string]any{"id": "ext-1", "status": "pending"},
		})
	})
	mux.HandleFunc("/data_extractions/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data_extraction": map[string]any{"id": "ext-1", "status": "available", "file_id": "file-1"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// signupAndSignin registers a fresh account and returns the session cookie.
func signupAndSignin(t *testing.T, router *gin.Engine, email string) *http.Cookie {
	t.Helper()

	creds := `{"email":"` + email + `","password":"hunter22"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(creds))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(creds))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == "session" {
			return cookie
		}
	}
	t.Fatalf("signin did not set a session cookie")
	return nil
}

func pdfUploadRequest(t *testing.T, contentType string) *http.Request {
	return uploadRequest(t, contentType, []byte("%PDF-1.4 test"))
}

func uploadRequest(t *testing.T, contentType string, payload []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="policy.pdf"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadAndHistoryRoundTrip(t *testing.T) {
	heraldSrv := newHeraldBackend(t)
	app := newTestApp(t, heraldSrv.URL)
	cookie := signupAndSignin(t, app.Router, "roundtrip@example.com")

	req := pdfUploadRequest(t, "application/pdf")
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var uploaded struct {
		Success      bool   `json:"success"`
		HeraldFileID string `json:"heraldFileId"`
		Filename     string `json:"filename"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if !uploaded.Success || uploaded.HeraldFileID != "file-1" {
		t.Fatalf("unexpected upload response: %+v", uploaded)
	}

	reqHist := httptest.NewRequest(http.MethodGet, "/history", nil)
	reqHist.AddCookie(cookie)
	respHist := httptest.NewRecorder()
	app.Router.ServeHTTP(respHist, reqHist)

	if respHist.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d: %s", respHist.Code, respHist.Body.String())
	}
	var hist struct {
		Success bool `json:"success"`
		History []struct {
			ID           string `json:"id"`
			Filename     string `json:"filename"`
			HeraldFileID string `json:"heraldFileId"`
			Status       string `json:"status"`
		} `json:"history"`
	}
	if err := json.NewDecoder(respHist.Body).Decode(&hist); err != nil {
		t.Fatalf("decode history response: %v", err)
	}
	if len(hist.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(hist.History))
	}
	entry := hist.History[0]
	if entry.Filename != "policy.pdf" || entry.HeraldFileID != "file-1" || entry.Status != "uploaded" {
		t.Fatalf("unexpected history entry: %+v", entry)
	}

	// Delete the record, history should be empty again.
	reqDel := httptest.NewRequest(http.MethodDelete, "/history/delete?id="+entry.ID, nil)
	reqDel.AddCookie(cookie)
	respDel := httptest.NewRecorder()
	app.Router.ServeHTTP(respDel, reqDel)
	if respDel.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", respDel.Code, respDel.Body.String())
	}

	respHist2 := httptest.NewRecorder()
	reqHist2 := httptest.NewRequest(http.MethodGet, "/history", nil)
	reqHist2.AddCookie(cookie)
	app.Router.ServeHTTP(respHist2, reqHist2)
	var hist2 struct {
		History []json.RawMessage `json:"history"`
	}
	if err := json.NewDecoder(respHist2.Body).Decode(&hist2); err != nil {
		t.Fatalf("decode history response: %v", err)
	}
	if len(hist2.History) != 0 {
		t.Fatalf("expected empty history after delete, got %d entries", len(hist2.History))
	}
}

func TestUploadRejectsNonPDFWithoutRecording(t *testing.T) {
	heraldSrv := newHeraldBackend(t)
	app := newTestApp(t, heraldSrv.URL)
	cookie := signupAndSignin(t, app.Router, "nonpdf@example.com")

	req := pdfUploadRequest(t, "text/plain")
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "File must be a PDF") {
		t.Fatalf("unexpected error body: %s", resp.Body.String())
	}

	reqHist := httptest.NewRequest(http.MethodGet, "/history", nil)
	reqHist.AddCookie(cookie)
	respHist := httptest.NewRecorder()
	app.Router.ServeHTTP(respHist, reqHist)
	var hist struct {
		History []json.RawMessage `json:"history"`
	}
	if err := json.NewDecoder(respHist.Body).Decode(&hist); err != nil {
		t.Fatalf("decode history response: %v", err)
	}
	if len(hist.History) != 0 {
		t.Fatalf("rejected upload must not be recorded, got %d entries", len(hist.History))
	}
}

func TestUploadOversizeBodyReportsSizeLimit(t *testing.T) {
	heraldSrv := newHeraldBackend(t)
	app := newTestApp(t, heraldSrv.URL)
	cookie := signupAndSignin(t, app.Router, "oversize@example.com")

	// Large enough to abort the multipart parse at the byte ceiling.
	payload := make([]byte, uploads.MaxUploadSize+2<<20)
	req := uploadRequest(t, "application/pdf", payload)
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "File size exceeds 10MB limit") {
		t.Fatalf("expected size limit message, got: %s", resp.Body.String())
	}
}

func TestHistoryRequiresAuthentication(t *testing.T) {
	heraldSrv := newHeraldBackend(t)
	app := newTestApp(t, heraldSrv.URL)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestExtractAcceptsAliasKeys(t *testing.T) {
	heraldSrv := newHeraldBackend(t)
	app := newTestApp(t, heraldSrv.URL)

	for _, payload := range []string{
		`{"heraldFileId":"file-1"}`,
		`{"fileId":"file-1"}`,
		`{"id":"file-1"}`,
		`{"file":{"id":"file-1"}}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		app.Router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("payload %s: expected 200, got %d: %s", payload, resp.Code, resp.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("empty payload: expected 400, got %d", resp.Code)
	}
}

func TestPollExtractionRequiresID(t *testing.T) {
	heraldSrv := newHeraldBackend(t)
	app := newTestApp(t, heraldSrv.URL)

	req := httptest.NewRequest(http.MethodGet, "/extract", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/extract?id=ext-1", nil)
	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDeleteUnknownRecordReturns404(t *testing.T) {
	heraldSrv := newHeraldBackend(t)
	app := newTestApp(t, heraldSrv.URL)
	cookie := signupAndSignin(t, app.Router, "deleter@example.com")

	req := httptest.NewRequest(http.MethodDelete, "/history/delete?id=nope", nil)
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", resp.Code, resp.Body.String())
	}
}

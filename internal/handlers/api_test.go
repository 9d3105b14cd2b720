package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

const salesCSV = `Transaction_qty,Unit_price,Product_type,Store_location,Organic Coffee,Eco_Friendly_cup
10,2,Coffee,Astoria,Yes,No
20,2,Tea,Astoria,No,No
1,4,Coffee,Lower Manhattan,Yes,Yes
3,4,Bakery,Hell's Kitchen,Yes,
2,3,Tea,Hell's Kitchen,,Yes
1,3,Coffee,Hell's Kitchen,No,No
`

type testEnv struct {
	cfg      *config.Config
	store    *session.Store
	pipeline *services.Pipeline
	logger   *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return &testEnv{
		cfg: &config.Config{
			Upload: config.UploadConfig{
				MaxBytes:   1 << 20,
				Extensions: []string{".xlsx", ".csv", ".tsv", ".txt"},
			},
			Session: config.SessionConfig{
				TTL:        time.Minute,
				CookieName: "sales_session",
			},
		},
		store:    session.NewStore(time.Minute, logger),
		pipeline: services.NewPipeline(logger),
		logger:   logger,
	}
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile(uploadField, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(content))
	} else {
		mw.WriteField("note", "no file")
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, path, filename, content string) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

// sessionCookie uploads content through the JSON API and returns the issued cookie.
func (e *testEnv) sessionCookie(t *testing.T, content string) *http.Cookie {
	t.Helper()
	h := NewAPIHandlers(e.pipeline, e.store, e.cfg, e.logger)
	w := httptest.NewRecorder()
	h.HandleUpload(w, uploadRequest(t, "/api/upload", "sales.csv", content))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == e.cfg.Session.CookieName {
			return c
		}
	}
	t.Fatal("upload did not set a session cookie")
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return response
}

func errorCode(t *testing.T, response map[string]any) string {
	t.Helper()
	errObj, ok := response["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in %v", response)
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestNewAPIHandlers(t *testing.T) {
	env := newTestEnv(t)
	handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.pipeline != env.pipeline {
		t.Error("NewAPIHandlers() should set pipeline field")
	}
	if handlers.sessions.store != env.store {
		t.Error("NewAPIHandlers() should set session store")
	}
}

func TestAPIHandlers_HandleUpload(t *testing.T) {
	env := newTestEnv(t)
	handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)

	w := httptest.NewRecorder()
	handlers.HandleUpload(w, uploadRequest(t, "/api/upload", "sales.csv", salesCSV))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if env.store.Len() != 1 {
		t.Errorf("expected one session, got %d", env.store.Len())
	}

	data, ok := decode(t, w)["data"].(map[string]any)
	if !ok {
		t.Fatal("expected data object")
	}
	if rows, _ := data["rows"].(float64); rows != 6 {
		t.Errorf("rows = %v, want 6", data["rows"])
	}
	if cols, _ := data["columns"].([]any); len(cols) != 6 {
		t.Errorf("columns = %v, want 6 names", data["columns"])
	}
}

func TestAPIHandlers_HandleUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		status   int
		code     string
	}{
		{"no file", "", "", http.StatusBadRequest, "BAD_REQUEST"},
		{"unsupported extension", "sales.pdf", salesCSV, http.StatusBadRequest, "UNSUPPORTED_FILE"},
		{"broken workbook", "sales.xlsx", "not a zip archive", http.StatusBadRequest, "UNSUPPORTED_FILE"},
		{"too large", "sales.csv", strings.Repeat("x", 2<<20), http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)

			w := httptest.NewRecorder()
			handlers.HandleUpload(w, uploadRequest(t, "/api/upload", tt.filename, tt.content))

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			if got := errorCode(t, decode(t, w)); got != tt.code {
				t.Errorf("error code = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestAPIHandlers_HandlePreview(t *testing.T) {
	env := newTestEnv(t)
	handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)

	t.Run("without dataset", func(t *testing.T) {
		w := httptest.NewRecorder()
		handlers.HandlePreview(w, httptest.NewRequest(http.MethodGet, "/api/preview", nil))

		if w.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
	})

	t.Run("with dataset", func(t *testing.T) {
		cookie := env.sessionCookie(t, salesCSV)
		req := httptest.NewRequest(http.MethodGet, "/api/preview", nil)
		req.AddCookie(cookie)
		w := httptest.NewRecorder()

		handlers.HandlePreview(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
			t.Errorf("cache-control = %q, want no-store", cc)
		}

		data := decode(t, w)["data"].(map[string]any)
		if head, _ := data["head"].([]any); len(head) != 5 {
			t.Errorf("expected 5 preview rows, got %d", len(head))
		}

		missing := map[string]float64{}
		for _, item := range data["null_counts"].([]any) {
			nc := item.(map[string]any)
			missing[nc["column"].(string)] = nc["missing"].(float64)
		}
		if missing["Organic Coffee"] != 1 || missing["Eco_Friendly_cup"] != 1 || missing["Unit_price"] != 0 {
			t.Errorf("unexpected null counts: %v", missing)
		}
	})
}

func TestAPIHandlers_HandleAnalysis(t *testing.T) {
	env := newTestEnv(t)
	handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)
	cookie := env.sessionCookie(t, salesCSV)

	query := url.Values{"analysis": {"Most Popular Products"}, "revenue": {"true"}}
	req := httptest.NewRequest(http.MethodGet, "/api/analysis?"+query.Encode(), nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()

	handlers.HandleAnalysis(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	data := decode(t, w)["data"].(map[string]any)
	block := data["analysis"].(map[string]any)
	if block["name"] != "Most Popular Products" {
		t.Errorf("analysis = %v", block["name"])
	}
	if _, failed := block["error"]; failed {
		t.Errorf("unexpected analysis error %v", block["error"])
	}
	counts := block["counts"].([]any)
	if first := counts[0].(map[string]any); first["value"] != "Coffee" || first["count"] != float64(3) {
		t.Errorf("expected Coffee x3 first, got %v", first)
	}

	revenue, ok := data["revenue"].(map[string]any)
	if !ok {
		t.Fatal("expected revenue block when revenue=true")
	}
	totals := revenue["totals"].([]any)
	if top := totals[0].(map[string]any); top["product"] != "Tea" || top["revenue"] != float64(46) {
		t.Errorf("expected Tea 46 first, got %v", top)
	}

	sess, _ := env.store.Get(cookie.Value)
	if !sess.Dataset().HasColumn("Revenue") {
		t.Error("revenue pass should keep the derived column for later passes")
	}
}

func TestAPIHandlers_HandleAnalysis_RevenueFailureKeepsAnalysis(t *testing.T) {
	env := newTestEnv(t)
	handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)
	cookie := env.sessionCookie(t, "Store_location,Unit_price\nAstoria,3\nAstoria,2\nHell's Kitchen,4\n")

	req := httptest.NewRequest(http.MethodGet, "/api/analysis?analysis=Sales+by+Store+Location&revenue=true", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()

	handlers.HandleAnalysis(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	data := decode(t, w)["data"].(map[string]any)
	counts := data["analysis"].(map[string]any)["counts"].([]any)
	if first := counts[0].(map[string]any); first["value"] != "Astoria" || first["count"] != float64(2) {
		t.Errorf("expected Astoria x2 first, got %v", first)
	}

	revenue := data["revenue"].(map[string]any)
	if _, ok := revenue["totals"]; ok {
		t.Error("failed revenue must not report totals")
	}
	if code := revenue["error"].(map[string]any)["code"]; code != "MISSING_COLUMN" {
		t.Errorf("revenue error code = %v", code)
	}
}

func TestAPIHandlers_HandleAnalysis_FailureStillReportsRevenue(t *testing.T) {
	env := newTestEnv(t)
	handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)
	cookie := env.sessionCookie(t, "Transaction_qty,Unit_price,Product_type\n2,3,Coffee\n1,2,Tea\n")

	req := httptest.NewRequest(http.MethodGet, "/api/analysis?analysis=Sales+by+Store+Location&revenue=true", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()

	handlers.HandleAnalysis(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}

	response := decode(t, w)
	if got := errorCode(t, response); got != "MISSING_COLUMN" {
		t.Errorf("error code = %s", got)
	}

	data := response["data"].(map[string]any)
	if code := data["analysis"].(map[string]any)["error"].(map[string]any)["code"]; code != "MISSING_COLUMN" {
		t.Errorf("analysis block error = %v", code)
	}
	totals := data["revenue"].(map[string]any)["totals"].([]any)
	if top := totals[0].(map[string]any); top["product"] != "Coffee" || top["revenue"] != float64(6) {
		t.Errorf("expected Coffee 6 first, got %v", top)
	}

	sess, _ := env.store.Get(cookie.Value)
	if !sess.Dataset().HasColumn("Revenue") {
		t.Error("the response must describe the revenue column the session now holds")
	}
}

func TestAPIHandlers_HandleAnalysis_UnknownLabel(t *testing.T) {
	env := newTestEnv(t)
	handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)

	w := httptest.NewRecorder()
	handlers.HandleAnalysis(w, httptest.NewRequest(http.MethodGet, "/api/analysis?analysis=Forecast", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if got := errorCode(t, decode(t, w)); got != "VALIDATION_ERROR" {
		t.Errorf("error code = %s", got)
	}
}

func TestAPIHandlers_HandleNotFound(t *testing.T) {
	env := newTestEnv(t)
	handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)

	w := httptest.NewRecorder()
	handlers.HandleNotFound(w, httptest.NewRequest(http.MethodGet, "/reports", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if got := errorCode(t, decode(t, w)); got != "NOT_FOUND" {
		t.Errorf("error code = %s", got)
	}
}

func TestAPIHandlers_HandleAnalysis_MissingColumn(t *testing.T) {
	env := newTestEnv(t)
	handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)
	cookie := env.sessionCookie(t, "Product_type\nCoffee\nTea\n")

	req := httptest.NewRequest(http.MethodGet, "/api/analysis?analysis=Sales+by+Store+Location", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()

	handlers.HandleAnalysis(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}
	response := decode(t, w)
	if got := errorCode(t, response); got != "MISSING_COLUMN" {
		t.Errorf("error code = %s", got)
	}
	msg := response["error"].(map[string]any)["message"].(string)
	if msg != "'Store_location' column is missing in the uploaded file." {
		t.Errorf("message = %q", msg)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	env := newTestEnv(t)
	handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)

	w := httptest.NewRecorder()
	handlers.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	data := decode(t, w)["data"].(map[string]any)
	if data["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %v", data["status"])
	}
	if _, ok := data["timestamp"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	env := newTestEnv(t)
	handlers := NewAPIHandlers(env.pipeline, env.store, env.cfg, env.logger)
	env.sessionCookie(t, salesCSV)

	w := httptest.NewRecorder()
	handlers.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	data := decode(t, w)["data"].(map[string]any)
	for _, field := range []string{"loads", "load_failures", "passes", "analysis_errors", "revenue_runs", "uptime", "active_sessions"} {
		if _, ok := data[field]; !ok {
			t.Errorf("expected %s field", field)
		}
	}
	if data["loads"] != float64(1) || data["active_sessions"] != float64(1) {
		t.Errorf("unexpected stats: %v", data)
	}
}

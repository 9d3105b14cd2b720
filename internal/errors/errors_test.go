package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{BadRequest("bad"), http.StatusBadRequest},
		{UnsupportedFile("pdf"), http.StatusBadRequest},
		{MissingColumn(fmt.Errorf("'Unit_price' column is missing in the uploaded file.")), http.StatusUnprocessableEntity},
		{NonNumeric(fmt.Errorf("not numeric")), http.StatusUnprocessableEntity},
		{PayloadTooLarge("too big"), http.StatusRequestEntityTooLarge},
		{NoDataset("upload first"), http.StatusConflict},
		{RateLimit("slow down"), http.StatusTooManyRequests},
		{Validation("unknown analysis"), http.StatusBadRequest},
		{NotFound("no route"), http.StatusNotFound},
		{Forbidden("cross origin"), http.StatusForbidden},
		{Internal("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if tt.err.StatusCode != tt.want {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.want)
			}
		})
	}
}

func TestMissingColumnKeepsMessage(t *testing.T) {
	cause := fmt.Errorf("'Store_location' column is missing in the uploaded file.")
	err := MissingColumn(cause)

	if err.Message != cause.Error() {
		t.Errorf("Message = %q, want %q", err.Message, cause.Error())
	}
	if err.Unwrap() != cause {
		t.Error("expected cause to be preserved")
	}
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"app error", PayloadTooLarge("file exceeds limit"), http.StatusRequestEntityTooLarge, CodePayloadTooLarge},
		{"wrapped app error", fmt.Errorf("upload: %w", UnsupportedFile("pdf")), http.StatusBadRequest, CodeUnsupportedFile},
		{"plain error", fmt.Errorf("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, logger, tt.err, "req-1")

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var resp struct {
				Error   AppError `json:"error"`
				Success bool     `json:"success"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Success {
				t.Error("expected success=false")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.RequestID != "req-1" {
				t.Errorf("request_id = %q", resp.Error.RequestID)
			}
		})
	}
}

func TestWriteErrorWithData(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()

	WriteErrorWithData(w, logger, MissingColumn(fmt.Errorf("'Store_location' column is missing in the uploaded file.")), "req-2",
		map[string]string{"revenue": "computed"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	var resp struct {
		Error   AppError          `json:"error"`
		Data    map[string]string `json:"data"`
		Success bool              `json:"success"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Error.Code != CodeMissingColumn {
		t.Errorf("unexpected envelope %+v", resp)
	}
	if resp.Data["revenue"] != "computed" {
		t.Error("expected partial data alongside the error")
	}
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessWithHeaders(w, map[string]int{"rows": 3}, map[string]string{"Cache-Control": "no-store"})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected custom header")
	}

	var resp struct {
		Data    map[string]int `json:"data"`
		Success bool           `json:"success"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Data["rows"] != 3 {
		t.Errorf("unexpected response %+v", resp)
	}
}

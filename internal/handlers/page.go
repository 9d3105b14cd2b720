package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/dataset"
	apperrors "sales-dashboard/internal/errors"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
	"sales-dashboard/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

type PageHandlers struct {
	pipeline *services.Pipeline
	sessions sessions
	cfg      *config.Config
	logger   *slog.Logger
}

func NewPageHandlers(pipeline *services.Pipeline, store *session.Store, cfg *config.Config, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		pipeline: pipeline,
		sessions: sessions{store: store, cfg: cfg.Session},
		cfg:      cfg,
		logger:   logger,
	}
}

// HandleDashboard renders the whole page. With a dataset in the session it runs one
// pass for the selection in the query string so the first paint already has panels.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	sel := selectionFromQuery(r)
	data := h.pageData(sel)

	if sess, ok := h.sessions.current(r); ok && sess.Dataset() != nil {
		out, err := h.pipeline.Run(r.Context(), sess, sel)
		if err != nil {
			h.logger.Error("render pass failed", "error", err, "session_id", sess.ID)
			data.Flash = err.Error()
		}
		data.Render = out
	}

	h.render(w, r, http.StatusOK, data)
}

// HandleUpload accepts the sidebar form. Success and the empty form both redirect back
// to the page; a file that cannot be loaded re-renders the page with the error.
func (h *PageHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(w, r, h.cfg)
	if errors.Is(err, dataset.ErrNoFile) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer up.body.Close()

	sess := h.sessions.ensure(w, r)
	if _, err := h.pipeline.Load(r.Context(), sess, up.body, up.filename); err != nil {
		h.fail(w, r, apperrors.UnsupportedFileWrap(err, err.Error()))
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *PageHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	message := err.Error()

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.StatusCode
		message = appErr.Message
	}

	h.logger.Warn("upload rejected", "error", err, "status", status)

	data := h.pageData(selectionFromQuery(r))
	data.Flash = message
	h.render(w, r, status, data)
}

func (h *PageHandlers) render(w http.ResponseWriter, r *http.Request, status int, data templates.PageData) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	html, err := templates.RenderString(ctx, templates.Page(data))
	if err != nil {
		h.logger.Error("render page", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write([]byte(html))
}

func (h *PageHandlers) pageData(sel services.Selection) templates.PageData {
	return templates.PageData{
		Selection: sel,
		Accept:    strings.Join(h.cfg.Upload.Extensions, ","),
		MaxUpload: formatBytes(h.cfg.Upload.MaxBytes),
	}
}

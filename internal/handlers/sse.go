package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
	"sales-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	pipeline *services.Pipeline
	sessions sessions
	logger   *slog.Logger
}

func NewSSEHandlers(pipeline *services.Pipeline, store *session.Store, cfg *config.Config, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		pipeline: pipeline,
		sessions: sessions{store: store, cfg: cfg.Session},
		logger:   logger,
	}
}

// renderSignals mirrors the client-side store bound to the sidebar controls.
type renderSignals struct {
	Analysis string `json:"analysis"`
	Revenue  bool   `json:"revenue"`
}

// HandleRender re-runs the pipeline for the current signals and patches every panel.
func (h *SSEHandlers) HandleRender(w http.ResponseWriter, r *http.Request) {
	var signals renderSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.logger.Warn("read signals", "error", err)
	}

	sse := datastar.NewSSE(w, r)

	sess, ok := h.sessions.current(r)
	if !ok || sess.Dataset() == nil {
		// Expired or never uploaded: the page has nothing to patch.
		if err := sse.Redirect("/"); err != nil {
			h.logger.Error("redirect to idle page", "error", err)
		}
		return
	}

	out, err := h.pipeline.Run(r.Context(), sess, selectionFrom(signals.Analysis, signals.Revenue))
	if err != nil {
		h.logger.Error("render pass failed", "error", err, "session_id", sess.ID)
		return
	}

	for _, panel := range templates.Panels(out) {
		html, err := templates.RenderString(r.Context(), panel)
		if err != nil {
			h.logger.Error("render panel", "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			h.logger.Debug("patch elements", "error", err)
			return
		}
	}

	counts, err := json.Marshal(map[string]any{
		"rows":    out.Rows,
		"columns": len(out.Columns),
	})
	if err != nil {
		h.logger.Error("marshal dataset counts", "error", err)
		return
	}
	if err := sse.PatchSignals(counts); err != nil {
		h.logger.Debug("patch signals", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

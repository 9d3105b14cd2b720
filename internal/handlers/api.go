package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/analysis"
	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/config"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

type APIHandlers struct {
	pipeline *services.Pipeline
	sessions sessions
	cfg      *config.Config
	logger   *slog.Logger
}

func NewAPIHandlers(pipeline *services.Pipeline, store *session.Store, cfg *config.Config, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		pipeline: pipeline,
		sessions: sessions{store: store, cfg: cfg.Session},
		cfg:      cfg,
		logger:   logger,
	}
}

type uploadResponse struct {
	Filename string   `json:"filename"`
	Rows     int      `json:"rows"`
	Columns  []string `json:"columns"`
}

type previewResponse struct {
	Filename   string              `json:"filename"`
	Rows       int                 `json:"rows"`
	Columns    []string            `json:"columns"`
	Head       [][]string          `json:"head"`
	NullCounts []dataset.NullCount `json:"null_counts"`
}

type analysisResponse struct {
	Analysis analysisBlock `json:"analysis"`
	Revenue  *revenueBlock `json:"revenue,omitempty"`
}

// analysisBlock and revenueBlock report their own failure so one never hides the other.
type analysisBlock struct {
	Name      string                   `json:"name"`
	Title     string                   `json:"title,omitempty"`
	Chart     *charts.Spec             `json:"chart,omitempty"`
	Narrative string                   `json:"narrative,omitempty"`
	Counts    []analysis.CategoryCount `json:"counts,omitempty"`
	Points    []analysis.PricePoint    `json:"points,omitempty"`
	Summary   *analysis.PriceSummary   `json:"summary,omitempty"`
	Error     *errors.AppError         `json:"error,omitempty"`
}

type revenueBlock struct {
	Head   [][]string                `json:"head,omitempty"`
	Totals []analysis.ProductRevenue `json:"totals,omitempty"`
	Error  *errors.AppError          `json:"error,omitempty"`
}

func (h *APIHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	up, err := readUpload(w, r, h.cfg)
	if err != nil {
		errors.WriteError(w, h.logger, toAppError(err), requestID)
		return
	}
	defer up.body.Close()

	sess := h.sessions.ensure(w, r)
	ds, err := h.pipeline.Load(r.Context(), sess, up.body, up.filename)
	if err != nil {
		errors.WriteError(w, h.logger, errors.UnsupportedFileWrap(err, err.Error()), requestID)
		return
	}

	errors.WriteSuccess(w, uploadResponse{
		Filename: ds.Name(),
		Rows:     ds.Len(),
		Columns:  ds.Columns(),
	})
}

func (h *APIHandlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	sess, ok := h.sessions.current(r)
	if !ok || sess.Dataset() == nil {
		errors.WriteError(w, h.logger, toAppError(services.ErrNoDataset), requestID)
		return
	}

	ds := sess.Dataset()
	head, err := ds.Head(5)
	if err != nil {
		errors.WriteError(w, h.logger, toAppError(err), requestID)
		return
	}

	errors.WriteSuccessWithHeaders(w, previewResponse{
		Filename:   ds.Name(),
		Rows:       ds.Len(),
		Columns:    ds.Columns(),
		Head:       head.Rows,
		NullCounts: ds.NullCounts(),
	}, map[string]string{"Cache-Control": "no-store"})
}

// HandleAnalysis runs one pass for ?analysis=<label>&revenue=<bool>. The analysis and
// the revenue rollup are reported in separate blocks, each with its own error. The
// status is non-2xx only when the analysis fails; the revenue block is still included.
func (h *APIHandlers) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	sel, ok := apiSelection(r)
	if !ok {
		errors.WriteError(w, h.logger, errors.Validation(fmt.Sprintf("Unknown analysis %q", r.URL.Query().Get("analysis"))), requestID)
		return
	}

	sess, ok := h.sessions.current(r)
	if !ok {
		errors.WriteError(w, h.logger, toAppError(services.ErrNoDataset), requestID)
		return
	}

	out, err := h.pipeline.Run(r.Context(), sess, sel)
	if err != nil {
		errors.WriteError(w, h.logger, toAppError(err), requestID)
		return
	}

	resp := analysisResponse{Analysis: analysisBlock{Name: sel.Analysis.String()}}
	if res := out.Analysis.Result; out.Analysis.Err == nil {
		resp.Analysis.Title = res.Title
		resp.Analysis.Chart = &res.Chart
		resp.Analysis.Narrative = res.Narrative
		resp.Analysis.Counts = res.Counts
		resp.Analysis.Points = res.Points
		resp.Analysis.Summary = res.Summary
	} else {
		resp.Analysis.Error = toAppError(out.Analysis.Err)
	}

	if out.Revenue != nil {
		resp.Revenue = &revenueBlock{}
		if out.Revenue.Err == nil {
			resp.Revenue.Head = out.Revenue.Result.Preview.Rows
			resp.Revenue.Totals = out.Revenue.Result.Totals
		} else {
			resp.Revenue.Error = toAppError(out.Revenue.Err)
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	if resp.Analysis.Error != nil {
		errors.WriteErrorWithData(w, h.logger, resp.Analysis.Error, requestID, resp)
		return
	}
	errors.WriteSuccess(w, resp)
}

// HandleNotFound answers every GET that matches no other route.
func (h *APIHandlers) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())
	errors.WriteError(w, h.logger, errors.NotFound(fmt.Sprintf("No route for %s", r.URL.Path)), requestID)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.pipeline.Stats()
	stats["active_sessions"] = h.sessions.store.Len()

	errors.WriteSuccess(w, stats)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"sales-dashboard/internal/analysis"
	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/session"
)

const previewRows = 5

var ErrNoDataset = errors.New("no dataset uploaded")

// Selection is what the visitor picked for one pass.
type Selection struct {
	Analysis analysis.Kind
	Revenue  bool
}

// AnalysisOutcome carries either a computed analysis or the reason it could not be
// shown. ChartURI is empty whenever Err is set.
type AnalysisOutcome struct {
	Result   *analysis.Result
	ChartURI string
	Err      error
}

type RevenueOutcome struct {
	Result   *analysis.RevenueResult
	ChartURI string
	Err      error
}

// Render is everything one pass produces for the page.
type Render struct {
	Filename   string
	Rows       int
	Columns    []string
	Preview    dataset.Table
	NullCounts []dataset.NullCount
	Selection  Selection
	Analysis   AnalysisOutcome
	Revenue    *RevenueOutcome
}

type Pipeline struct {
	logger    *slog.Logger
	startedAt time.Time

	loads          atomic.Int64
	loadFailures   atomic.Int64
	passes         atomic.Int64
	analysisErrors atomic.Int64
	revenueRuns    atomic.Int64
}

func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Load reads an uploaded file and makes it the session's dataset. A failed load leaves
// the previous dataset in place.
func (p *Pipeline) Load(ctx context.Context, s *session.Session, r io.Reader, filename string) (*dataset.Dataset, error) {
	ctx, span := observability.StartSpan(observability.WithSessionID(ctx, s.ID), "pipeline.load")
	defer p.finish(span)
	span.SetTag("filename", filename)

	start := time.Now()
	ds, err := dataset.Load(r, filename)
	if err != nil {
		if !errors.Is(err, dataset.ErrNoFile) {
			p.loadFailures.Add(1)
		}
		span.SetError(err)
		return nil, err
	}

	s.SetDataset(ds)
	p.loads.Add(1)

	observability.LoggerFrom(ctx, p.logger).Info("dataset loaded",
		"filename", filename,
		"rows", ds.Len(),
		"columns", len(ds.Columns()),
		"duration", time.Since(start),
	)
	return ds, nil
}

// Run executes one full pass against the session's current dataset: preview, null
// counts, the selected analysis, then revenue when toggled on. The preview and the
// analysis see the dataset as it was at the start of the pass; a successful revenue
// step replaces the session dataset afterwards.
func (p *Pipeline) Run(ctx context.Context, s *session.Session, sel Selection) (*Render, error) {
	ctx, span := observability.StartSpan(observability.WithSessionID(ctx, s.ID), "pipeline.run")
	defer p.finish(span)
	span.SetTag("analysis", sel.Analysis.String())
	span.SetTag("revenue", fmt.Sprint(sel.Revenue))

	ds := s.Dataset()
	if ds == nil {
		return nil, ErrNoDataset
	}
	p.passes.Add(1)

	preview, err := ds.Head(previewRows)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("preview: %w", err)
	}

	out := &Render{
		Filename:   ds.Name(),
		Rows:       ds.Len(),
		Columns:    ds.Columns(),
		Preview:    preview,
		NullCounts: ds.NullCounts(),
		Selection:  sel,
		Analysis:   p.runAnalysis(ctx, sel.Analysis, ds),
	}

	if sel.Revenue {
		out.Revenue = p.runRevenue(ctx, s, ds)
	}

	return out, nil
}

func (p *Pipeline) runAnalysis(ctx context.Context, kind analysis.Kind, ds *dataset.Dataset) AnalysisOutcome {
	_, span := observability.StartSpan(ctx, "pipeline.analysis")
	defer p.finish(span)
	span.SetTag("analysis", kind.String())

	res, err := analysis.Run(kind, ds)
	if err != nil {
		p.analysisErrors.Add(1)
		span.SetError(err)
		return AnalysisOutcome{Err: err}
	}

	uri, err := charts.DataURI(res.Chart)
	if err != nil {
		p.analysisErrors.Add(1)
		span.SetError(err)
		return AnalysisOutcome{Err: fmt.Errorf("render chart: %w", err)}
	}

	return AnalysisOutcome{Result: res, ChartURI: uri}
}

func (p *Pipeline) runRevenue(ctx context.Context, s *session.Session, ds *dataset.Dataset) *RevenueOutcome {
	ctx, span := observability.StartSpan(ctx, "pipeline.revenue")
	defer p.finish(span)

	res, next, err := analysis.Revenue(ds)
	if err != nil {
		span.SetError(err)
		return &RevenueOutcome{Err: err}
	}

	uri, err := charts.DataURI(res.Chart)
	if err != nil {
		span.SetError(err)
		return &RevenueOutcome{Err: fmt.Errorf("render chart: %w", err)}
	}

	p.revenueRuns.Add(1)
	if !s.SwapDataset(ds, next) {
		// A newer upload landed during the pass; it wins.
		span.SetTag("revenue.applied", "false")
		observability.LoggerFrom(ctx, p.logger).Info("revenue column not kept, dataset replaced during pass",
			"filename", ds.Name(),
		)
	}
	return &RevenueOutcome{Result: res, ChartURI: uri}
}

func (p *Pipeline) finish(span *observability.Span) {
	span.Finish()
	p.logger.Debug("span finished", "span", span)
}

func (p *Pipeline) Stats() map[string]any {
	return map[string]any{
		"loads":           p.loads.Load(),
		"load_failures":   p.loadFailures.Load(),
		"passes":          p.passes.Load(),
		"analysis_errors": p.analysisErrors.Load(),
		"revenue_runs":    p.revenueRuns.Load(),
		"uptime":          time.Since(p.startedAt).Round(time.Second).String(),
	}
}

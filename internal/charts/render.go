package charts

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	width  = 8 * vg.Inch
	height = 5 * vg.Inch
)

var (
	barColor  = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	lineColor = color.RGBA{G: 0x80, A: 0xff}
	histColor = color.RGBA{R: 0x87, G: 0xce, B: 0xeb, A: 0xff}

	palette = []color.Color{
		color.RGBA{R: 0x63, G: 0x6e, B: 0xfa, A: 0xff},
		color.RGBA{R: 0xef, G: 0x55, B: 0x3b, A: 0xff},
		color.RGBA{G: 0xcc, B: 0x96, A: 0xff},
		color.RGBA{R: 0xab, G: 0x63, B: 0xfa, A: 0xff},
		color.RGBA{R: 0xff, G: 0xa1, B: 0x5a, A: 0xff},
		color.RGBA{R: 0x19, G: 0xd3, B: 0xf3, A: 0xff},
		color.RGBA{R: 0xff, G: 0x66, B: 0x92, A: 0xff},
		color.RGBA{R: 0xb6, G: 0xe8, B: 0x80, A: 0xff},
	}
)

// Render draws a chart as SVG.
func Render(spec Spec) ([]byte, error) {
	p, err := build(spec)
	if err != nil {
		return nil, err
	}

	wt, err := p.WriterTo(width, height, "svg")
	if err != nil {
		return nil, fmt.Errorf("encode %s chart: %w", spec.Type, err)
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write %s chart: %w", spec.Type, err)
	}
	return buf.Bytes(), nil
}

// DataURI renders a chart and returns it as an inline image source.
func DataURI(spec Spec) (string, error) {
	svg, err := Render(spec)
	if err != nil {
		return "", err
	}
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg), nil
}

func build(spec Spec) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = spec.Title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = spec.XLabel
	p.Y.Label.Text = spec.YLabel

	var err error
	switch spec.Type {
	case TypeBar:
		err = addBars(p, spec)
	case TypePie:
		addPie(p, spec)
	case TypeLine:
		err = addLine(p, spec)
	case TypeHistogram:
		addHistogram(p, spec)
	default:
		return nil, fmt.Errorf("unsupported chart type %q", spec.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s chart: %w", spec.Type, err)
	}

	return p, nil
}

func addBars(p *plot.Plot, spec Spec) error {
	if len(spec.Values) == 0 {
		return nil
	}

	bars, err := plotter.NewBarChart(plotter.Values(spec.Values), vg.Points(28))
	if err != nil {
		return err
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)

	p.Add(plotter.NewGrid(), bars)
	p.NominalX(spec.Labels...)
	p.X.Tick.Label.Rotation = math.Pi / 8
	p.X.Tick.Label.XAlign = draw.XRight
	return nil
}

func addLine(p *plot.Plot, spec Spec) error {
	if len(spec.Values) == 0 {
		return nil
	}
	if len(spec.X) != len(spec.Values) {
		return fmt.Errorf("%d x values for %d y values", len(spec.X), len(spec.Values))
	}

	pts := make(plotter.XYs, len(spec.Values))
	for i := range pts {
		pts[i].X = spec.X[i]
		pts[i].Y = spec.Values[i]
	}

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	line.Color = lineColor
	line.Width = vg.Points(2)
	points.Shape = draw.CircleGlyph{}
	points.Color = lineColor
	points.Radius = vg.Points(3)

	p.Add(plotter.NewGrid(), line, points)
	return nil
}

func addHistogram(p *plot.Plot, spec Spec) {
	if len(spec.Bins) == 0 {
		return
	}

	bins := make([]plotter.HistogramBin, len(spec.Bins))
	for i, b := range spec.Bins {
		bins[i] = plotter.HistogramBin{Min: b.Min, Max: b.Max, Weight: float64(b.Count)}
	}

	hist := &plotter.Histogram{
		Bins:      bins,
		Width:     spec.Bins[0].Max - spec.Bins[0].Min,
		FillColor: histColor,
		LineStyle: plotter.DefaultLineStyle,
	}
	p.Add(hist)
}

func addPie(p *plot.Plot, spec Spec) {
	p.HideAxes()

	total := floats.Sum(spec.Values)
	slices := pie{values: spec.Values, total: total}
	for i, label := range spec.Labels {
		clr := palette[i%len(palette)]
		slices.colors = append(slices.colors, clr)

		share := 0.0
		if total > 0 && i < len(spec.Values) {
			share = spec.Values[i] / total * 100
		}
		p.Legend.Add(fmt.Sprintf("%s (%.1f%%)", label, share), swatch{color: clr})
	}
	p.Legend.Top = true

	p.Add(slices)
}

// pie draws slices clockwise from twelve o'clock, in value order.
type pie struct {
	values []float64
	colors []color.Color
	total  float64
}

func (pc pie) Plot(c draw.Canvas, _ *plot.Plot) {
	if pc.total <= 0 {
		return
	}

	w := c.Max.X - c.Min.X
	h := c.Max.Y - c.Min.Y
	center := vg.Point{X: c.Min.X + w*0.4, Y: c.Min.Y + h/2}
	radius := min(w, h) / 2 * 0.9

	start := math.Pi / 2
	for i, v := range pc.values {
		sweep := -v / pc.total * 2 * math.Pi

		var path vg.Path
		path.Move(center)
		// Arcs are split at half turns so a single full slice still renders.
		for rem, s := sweep, start; rem != 0; {
			step := max(rem, -math.Pi)
			path.Arc(center, radius, s, step)
			s += step
			rem -= step
		}
		path.Close()

		if i < len(pc.colors) {
			c.SetColor(pc.colors[i])
		}
		c.Fill(path)
		start += sweep
	}
}

type swatch struct {
	color color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(s.color, c.ClipPolygonY(pts))
}

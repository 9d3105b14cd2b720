package charts

type Type string

const (
	TypeBar       Type = "bar"
	TypePie       Type = "pie"
	TypeLine      Type = "line"
	TypeHistogram Type = "histogram"
)

// Spec describes one chart independently of how it is drawn. Bar and pie charts use
// Labels/Values, line charts use X/Values, histograms use Bins.
type Spec struct {
	Type   Type      `json:"type"`
	Title  string    `json:"title"`
	XLabel string    `json:"x_label,omitempty"`
	YLabel string    `json:"y_label,omitempty"`
	Labels []string  `json:"labels,omitempty"`
	X      []float64 `json:"x,omitempty"`
	Values []float64 `json:"values,omitempty"`
	Bins   []Bin     `json:"bins,omitempty"`
}

type Bin struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

package analysis

import (
	"cmp"
	"math"
	"slices"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/dataset"
)

const HistogramBins = 20

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ValueCounts counts distinct non-null cells, most frequent first. Equal counts keep
// the order in which the values first appear.
func ValueCounts(cells []string) []CategoryCount {
	index := make(map[string]int)
	var counts []CategoryCount
	for _, cell := range cells {
		if dataset.IsNull(cell) {
			continue
		}
		if i, ok := index[cell]; ok {
			counts[i].Count++
			continue
		}
		index[cell] = len(counts)
		counts = append(counts, CategoryCount{Value: cell, Count: 1})
	}

	slices.SortStableFunc(counts, func(a, b CategoryCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return counts
}

// TopN truncates already ordered counts to at most n entries.
func TopN(counts []CategoryCount, n int) []CategoryCount {
	if len(counts) <= n {
		return counts
	}
	return counts[:n:n]
}

type PricePoint struct {
	Price   float64 `json:"price"`
	MeanQty float64 `json:"mean_qty"`
	Count   int     `json:"count"`
}

// MeanByPrice groups rows by exact price and averages quantity within each group,
// ascending by price. Rows with a null price or quantity are skipped.
func MeanByPrice(prices, qty []float64) []PricePoint {
	type group struct {
		sum float64
		n   int
	}

	groups := make(map[float64]*group)
	for i := range min(len(prices), len(qty)) {
		p, q := prices[i], qty[i]
		if math.IsNaN(p) || math.IsNaN(q) {
			continue
		}
		g, ok := groups[p]
		if !ok {
			g = &group{}
			groups[p] = g
		}
		g.sum += q
		g.n++
	}

	points := make([]PricePoint, 0, len(groups))
	for p, g := range groups {
		points = append(points, PricePoint{Price: p, MeanQty: g.sum / float64(g.n), Count: g.n})
	}
	slices.SortFunc(points, func(a, b PricePoint) int {
		return cmp.Compare(a.Price, b.Price)
	})
	return points
}

type Trend int

const (
	TrendIncreasing Trend = iota
	TrendDecreasing
)

func (t Trend) String() string {
	if t == TrendDecreasing {
		return "decreasing"
	}
	return "increasing"
}

// PriceQuantity holds the extremes of the price/quantity curve. Highest and Lowest are
// the lowest-priced points reaching the extreme mean quantity.
type PriceQuantity struct {
	Points  []PricePoint
	Highest PricePoint
	Lowest  PricePoint
	Trend   Trend
}

// SummarizePriceQuantity finds the extremes and compares only the two endpoints for
// the trend.
func SummarizePriceQuantity(points []PricePoint) (PriceQuantity, error) {
	if len(points) == 0 {
		return PriceQuantity{}, ErrNoValues
	}

	pq := PriceQuantity{Points: points, Highest: points[0], Lowest: points[0]}
	for _, pt := range points[1:] {
		if pt.MeanQty > pq.Highest.MeanQty {
			pq.Highest = pt
		}
		if pt.MeanQty < pq.Lowest.MeanQty {
			pq.Lowest = pt
		}
	}

	if points[len(points)-1].MeanQty < points[0].MeanQty {
		pq.Trend = TrendDecreasing
	}
	return pq, nil
}

// Bins splits values into n equal-width bins spanning their range. A single distinct
// value is widened by half a unit either side; the maximum lands in the last bin.
func Bins(values []float64, n int) ([]charts.Bin, error) {
	xs := finite(values)
	if len(xs) == 0 {
		return nil, ErrNoValues
	}
	slices.Sort(xs)

	lo, hi := xs[0], xs[len(xs)-1]
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	edges := make([]float64, n+1)
	floats.Span(edges, lo, hi)
	edges[n] = hi

	dividers := slices.Clone(edges)
	dividers[n] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, xs, nil)

	bins := make([]charts.Bin, n)
	for i := range bins {
		bins[i] = charts.Bin{Min: edges[i], Max: edges[i+1], Count: int(counts[i])}
	}
	return bins, nil
}

type PriceSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Mode   float64 `json:"mode"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// RightSkewed is the only skew distinction made; everything else reads as left-skewed
// or symmetric.
func (s PriceSummary) RightSkewed() bool {
	return s.Mean > s.Median
}

// Summarize computes central values over the non-null values. Mode is the smallest
// modal value, or the minimum when no value repeats more than another.
func Summarize(values []float64) (PriceSummary, error) {
	data := stats.Float64Data(finite(values))
	if data.Len() == 0 {
		return PriceSummary{}, ErrNoValues
	}

	var (
		s   PriceSummary
		err error
	)
	if s.Mean, err = stats.Mean(data); err != nil {
		return PriceSummary{}, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return PriceSummary{}, err
	}
	if s.Min, err = stats.Min(data); err != nil {
		return PriceSummary{}, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return PriceSummary{}, err
	}

	modes, err := stats.Mode(data)
	if err != nil {
		return PriceSummary{}, err
	}
	s.Mode = s.Min
	if len(modes) > 0 {
		s.Mode = slices.Min(modes)
	}

	return s, nil
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

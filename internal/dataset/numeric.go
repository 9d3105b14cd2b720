package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	parseChunkSize  = 8192
	maxParseWorkers = 8
)

// NonNumericError reports a non-null cell that does not parse as a number.
type NonNumericError struct {
	Column string
	Row    int // 1-based data row
	Value  string
}

func (e *NonNumericError) Error() string {
	return fmt.Sprintf("column %q row %d: %q is not numeric", e.Column, e.Row, e.Value)
}

// Floats parses a column as float64. Null cells become NaN.
func (d *Dataset) Floats(column string) ([]float64, error) {
	cells, err := d.Strings(column)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(cells))
	chunks := (len(cells) + parseChunkSize - 1) / parseChunkSize
	chunkErrs := make([]error, chunks)

	var g errgroup.Group
	g.SetLimit(maxParseWorkers)

	for c := 0; c < chunks; c++ {
		start := c * parseChunkSize
		end := min(start+parseChunkSize, len(cells))
		g.Go(func() error {
			for i := start; i < end; i++ {
				v, err := parseCell(cells[i])
				if err != nil {
					chunkErrs[c] = &NonNumericError{Column: column, Row: i + 1, Value: cells[i]}
					return nil
				}
				out[i] = v
			}
			return nil
		})
	}
	_ = g.Wait()

	// Report the earliest bad row regardless of which worker finished first.
	for _, err := range chunkErrs {
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func parseCell(cell string) (float64, error) {
	if IsNull(cell) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}

package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const RevenueColumn = "Revenue"

var ErrEmpty = errors.New("dataset has no data rows")

// nullTokens mirrors the cell spellings that common spreadsheet and dataframe tools treat as missing.
var nullTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsNull reports whether a raw cell counts as missing.
func IsNull(cell string) bool {
	_, ok := nullTokens[cell]
	return ok
}

// Dataset is one uploaded table. Column names are trimmed once at construction and
// every cell is kept as text until a caller inspects a column as numeric. A Dataset is
// never modified after construction; transforms return a new value.
type Dataset struct {
	name string
	df   dataframe.DataFrame
}

type Table struct {
	Columns []string
	Rows    [][]string
}

type NullCount struct {
	Column  string `json:"column"`
	Missing int    `json:"missing"`
}

// New builds a Dataset from a header row and data rows. Rows shorter than the header
// are padded with empty (null) cells and longer rows are truncated.
func New(name string, header []string, rows [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("load %s: missing header row", name)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("load %s: %w", name, ErrEmpty)
	}

	records := make([][]string, 0, len(rows)+1)
	records = append(records, normalizeHeader(header))
	for _, row := range rows {
		record := make([]string, len(header))
		copy(record, row)
		records = append(records, record)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("load %s: %w", name, df.Err)
	}

	return &Dataset{name: name, df: df}, nil
}

// normalizeHeader trims column names and makes them unique: a blank name becomes
// "Unnamed: <index>" and repeats of a name get ".1", ".2", ... with the first
// occurrence left as is.
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		seen[name]++
		names[i] = name
	}

	taken := make(map[string]bool, len(names))
	for i, name := range names {
		if !taken[name] {
			taken[name] = true
			continue
		}
		for n := 1; ; n++ {
			candidate := fmt.Sprintf("%s.%d", name, n)
			if seen[candidate] == 0 && !taken[candidate] {
				names[i] = candidate
				taken[candidate] = true
				break
			}
		}
	}
	return names
}

func (d *Dataset) Name() string {
	return d.name
}

func (d *Dataset) Len() int {
	return d.df.Nrow()
}

func (d *Dataset) Columns() []string {
	return d.df.Names()
}

func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.df.Names() {
		if c == name {
			return true
		}
	}
	return false
}

// Missing returns the required columns absent from the dataset, in the order given.
func (d *Dataset) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		if !d.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Strings returns the raw cells of a column.
func (d *Dataset) Strings(column string) ([]string, error) {
	if !d.HasColumn(column) {
		return nil, fmt.Errorf("column %q not found", column)
	}
	return d.df.Col(column).Records(), nil
}

// Head returns the first n rows restricted to columns, or to every column when none are named.
func (d *Dataset) Head(n int, columns ...string) (Table, error) {
	if len(columns) == 0 {
		columns = d.Columns()
	}
	if n > d.Len() {
		n = d.Len()
	}

	cols := make([][]string, len(columns))
	for i, name := range columns {
		cells, err := d.Strings(name)
		if err != nil {
			return Table{}, err
		}
		cols[i] = cells
	}

	rows := make([][]string, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(columns))
		for c := range columns {
			row[c] = cols[c][r]
		}
		rows[r] = row
	}

	return Table{Columns: append([]string(nil), columns...), Rows: rows}, nil
}

// NullCounts returns the number of null cells per column, in column order.
func (d *Dataset) NullCounts() []NullCount {
	names := d.Columns()
	counts := make([]NullCount, len(names))
	for i, name := range names {
		missing := 0
		for _, cell := range d.df.Col(name).Records() {
			if IsNull(cell) {
				missing++
			}
		}
		counts[i] = NullCount{Column: name, Missing: missing}
	}
	return counts
}

// WithRevenue returns a copy of the dataset with a Revenue column equal to
// Transaction_qty * Unit_price per row. A row with either factor null gets a null
// Revenue. An existing Revenue column is replaced.
func (d *Dataset) WithRevenue(qtyColumn, priceColumn string) (*Dataset, error) {
	qty, err := d.Floats(qtyColumn)
	if err != nil {
		return nil, err
	}
	price, err := d.Floats(priceColumn)
	if err != nil {
		return nil, err
	}

	cells := make([]string, len(qty))
	for i := range qty {
		cells[i] = strconv.FormatFloat(qty[i]*price[i], 'f', -1, 64)
	}

	df := d.df.Mutate(series.New(cells, series.String, RevenueColumn))
	if df.Err != nil {
		return nil, fmt.Errorf("add %s column: %w", RevenueColumn, df.Err)
	}

	return &Dataset{name: d.name, df: df}, nil
}

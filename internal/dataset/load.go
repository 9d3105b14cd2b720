package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrNoFile = errors.New("no file supplied")

// IsSpreadsheet reports whether a filename is loaded as a workbook rather than delimited text.
func IsSpreadsheet(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Load reads an uploaded file into a Dataset. Files ending in .xlsx are read as a
// workbook (first sheet); anything else is read as delimited text.
func Load(r io.Reader, filename string) (*Dataset, error) {
	if r == nil {
		return nil, ErrNoFile
	}

	var (
		rows [][]string
		err  error
	)
	if IsSpreadsheet(filename) {
		rows, err = readWorkbook(r)
	} else {
		rows, err = readDelimited(r, delimiterFor(filename))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("load %s: missing header row", filename)
	}

	return New(filename, rows[0], rows[1:])
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return rows, nil
}

func readDelimited(r io.Reader, delim rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read delimited text: %w", err)
	}

	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}

	return rows, nil
}

func delimiterFor(filename string) rune {
	if strings.HasSuffix(strings.ToLower(filename), ".tsv") {
		return '\t'
	}
	return ','
}

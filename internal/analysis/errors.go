package analysis

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoValues = errors.New("column has no numeric values")

// MissingColumnError names the required columns absent from a dataset. It is the one
// analysis failure shown to users as-is.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Columns) == 1 {
		return fmt.Sprintf("'%s' column is missing in the uploaded file.", e.Columns[0])
	}

	quoted := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		quoted[i] = "'" + c + "'"
	}
	return fmt.Sprintf("Columns %s are missing in the uploaded file.", strings.Join(quoted, ", "))
}

// IsMissingColumn reports whether err is, or wraps, a MissingColumnError.
func IsMissingColumn(err error) bool {
	var mc *MissingColumnError
	return errors.As(err, &mc)
}

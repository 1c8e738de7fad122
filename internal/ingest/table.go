package ingest

import (
	"errors"
	"io"
)

// ErrDecodeFailed is returned when a file cannot be read as a spreadsheet
var ErrDecodeFailed = errors.New("could not read spreadsheet, check the format")

// Table is the raw content of the first sheet of a workbook. Header holds the
// first non-empty row keyed by column letter; it is not repeated in Rows.
type Table struct {
	Header map[string]string
	Rows   []Row
}

// Row is one data row. Cells are keyed by column letter ("B", "AC") and hold
// float64 for numeric cells and trimmed strings otherwise. Blank cells are absent.
type Row struct {
	Line  int
	Cells map[string]any
}

// Get returns the cell in column col, or nil when blank
func (r Row) Get(col string) any {
	return r.Cells[col]
}

// Decoder turns an uploaded file into a Table
type Decoder interface {
	Decode(r io.Reader) (*Table, error)
}

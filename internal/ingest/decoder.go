package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelDecoder reads the first sheet of an .xlsx workbook
type ExcelDecoder struct{}

// NewExcelDecoder creates a new ExcelDecoder
func NewExcelDecoder() *ExcelDecoder {
	return &ExcelDecoder{}
}

// Decode reads raw cell values. Dates come back as serial numbers since the
// ERP export stores them as numeric cells with a date style.
func (d *ExcelDecoder) Decode(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrDecodeFailed)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read rows from sheet %q: %v", ErrDecodeFailed, sheet, err)
	}

	table := &Table{Header: map[string]string{}}
	headerSeen := false

	for i, cols := range rows {
		line := i + 1
		cells := make(map[string]any, len(cols))
		for j, raw := range cols {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			col, err := excelize.ColumnNumberToName(j + 1)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
			}
			cells[col] = cellValue(f, sheet, col, line, raw)
		}
		if len(cells) == 0 {
			continue
		}

		if !headerSeen {
			for col, v := range cells {
				table.Header[col] = CellString(v)
			}
			headerSeen = true
			continue
		}
		table.Rows = append(table.Rows, Row{Line: line, Cells: cells})
	}

	return table, nil
}

func cellValue(f *excelize.File, sheet, col string, line int, raw string) any {
	typ, err := f.GetCellType(sheet, col+strconv.Itoa(line))
	if err != nil {
		typ = excelize.CellTypeUnset
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return raw
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	default:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
		return raw
	}
}

// CellString renders a cell as text. Zero numbers and false render empty,
// matching how the ERP leaves optional text columns.
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == 0 {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if !val {
			return ""
		}
		return "true"
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

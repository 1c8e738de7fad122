package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	time.RFC3339,
}

// ParseSpreadsheetDate converts a cell to a date in loc (UTC when nil).
// Numbers are Excel serial dates in the 1900 system; strings are tried as a
// serial number, then as day-first and ISO layouts. Anything else is nil.
func ParseSpreadsheetDate(v any, loc *time.Location) *time.Time {
	t, _ := parseSpreadsheetDate(v, loc)
	return t
}

func parseSpreadsheetDate(v any, loc *time.Location) (*time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}

	switch val := v.(type) {
	case nil:
		return nil, true
	case time.Time:
		if val.IsZero() {
			return nil, true
		}
		return &val, true
	case *time.Time:
		if val == nil || val.IsZero() {
			return nil, true
		}
		t := *val
		return &t, true
	case float64:
		return fromSerial(val, loc)
	case int:
		return fromSerial(float64(val), loc)
	case int64:
		return fromSerial(float64(val), loc)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, true
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return fromSerial(n, loc)
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return &t, true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

func fromSerial(serial float64, loc *time.Location) (*time.Time, bool) {
	if serial <= 0 {
		return nil, false
	}
	wall, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return nil, false
	}
	wall = wall.Round(time.Millisecond)
	t := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), loc)
	return &t, true
}

package ingest

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ParseNumber coerces a cell to a number the way planners type quantities:
//
//	"1.234,56" -> 1234.56   both separators: dots group, comma is decimal
//	"1,5"      -> 1.5       comma only: decimal comma
//	"1.500"    -> 1500      dot with exactly three trailing digits: grouping
//	"1.5"      -> 1.5
//	"12abc"    -> 12        leading numeric prefix
//	"", "abc"  -> 0
//
// It never fails.
func ParseNumber(v any) float64 {
	n, _ := parseNumber(v)
	return n
}

// parseNumber reports ok=false when a non-blank value had to be coerced
func parseNumber(v any) (float64, bool) {
	var s string
	switch val := v.(type) {
	case nil:
		return 0, true
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case bool:
		return 0, !val
	case string:
		s = val
	default:
		s = fmt.Sprint(val)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		s = strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
	case hasComma:
		s = strings.Replace(s, ",", ".", 1)
	case hasDot:
		parts := strings.Split(s, ".")
		if len(parts[len(parts)-1]) == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	return parseFloatPrefix(s)
}

// parseFloatPrefix parses the longest numeric prefix of s; ok is false when
// anything trailed it or no digits were found
func parseFloatPrefix(s string) (float64, bool) {
	prefix := leadingNumber.FindString(s)
	if prefix == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(prefix, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return n, prefix == s
}

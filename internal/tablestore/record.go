package tablestore

import (
	"strconv"
	"time"
)

// TimeLayout is the fixed-width text representation of timestamps in stores without a native time type.
// Fixed width keeps lexical and chronological order identical.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is a single row keyed by column name.
//
// The accessors tolerate the value types returned by the different drivers. Missing columns and NULLs read as
// the zero value, or nil for the Null* accessors.
type Record map[string]any

func (r Record) String(column string) string {
	switch v := r[column].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func (r Record) Int(column string) int {
	switch v := r[column].(type) {
	case int64:
		return int(v)
	case int32:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func (r Record) Float(column string) float64 {
	if f := r.NullFloat(column); f != nil {
		return *f
	}
	return 0
}

func (r Record) NullFloat(column string) *float64 {
	var f float64
	switch v := r[column].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case int:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func (r Record) Time(column string) time.Time {
	if t := r.NullTime(column); t != nil {
		return *t
	}
	return time.Time{}
}

func (r Record) NullTime(column string) *time.Time {
	var t time.Time
	switch v := r[column].(type) {
	case time.Time:
		t = v.UTC()
	case string:
		parsed, err := parseTime(v)
		if err != nil {
			return nil
		}
		t = parsed
	case []byte:
		parsed, err := parseTime(string(v))
		if err != nil {
			return nil
		}
		t = parsed
	default:
		return nil
	}
	return &t
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err //nolint:wrapcheck // callers only check for nil.
	}
	return t.UTC(), nil
}

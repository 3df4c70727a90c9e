package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trade-surveillance-etl/internal/model"
)

var (
	// ErrMissing reports a field that is absent or null. The two cases are
	// deliberately indistinguishable to callers.
	ErrMissing = errors.New("field missing or null")
	// ErrNotANumber reports a present value that cannot be coerced to a
	// number. Evaluators turn this into a format breach, never a skip.
	ErrNotANumber = errors.New("value is not numeric")
	// ErrNotATime reports a present value that cannot be coerced to a
	// timestamp or date.
	ErrNotATime = errors.New("value is not a timestamp")
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// View gives evaluators uniform typed read access into one record.
type View struct {
	rec model.Record
}

func NewView(rec model.Record) View {
	return View{rec: rec}
}

// Record returns the underlying record.
func (v View) Record() model.Record {
	return v.rec
}

// IsMissing is true when the field is absent or its value is null. Both
// count as a mandatory-field violation.
func (v View) IsMissing(field string) bool {
	val, ok := v.rec[field]
	return !ok || val == nil
}

// String returns the field as a string, or ErrMissing.
func (v View) String(field string) (string, error) {
	val, ok := v.rec[field]
	if !ok || val == nil {
		return "", fmt.Errorf("%s: %w", field, ErrMissing)
	}
	return fmt.Sprintf("%v", val), nil
}

// Number returns the field as a float64. A present but unparseable value
// yields ErrNotANumber; the caller must report it, not skip it.
func (v View) Number(field string) (float64, error) {
	val, ok := v.rec[field]
	if !ok || val == nil {
		return 0, fmt.Errorf("%s: %w", field, ErrMissing)
	}
	switch n := val.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%s=%q: %w", field, n, ErrNotANumber)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s (%T): %w", field, val, ErrNotANumber)
	}
}

// Time returns the field as a time.Time, trying the known layouts in
// order. Dates without a time component parse at midnight UTC.
func (v View) Time(field string) (time.Time, error) {
	val, ok := v.rec[field]
	if !ok || val == nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, ErrMissing)
	}
	if t, ok := val.(time.Time); ok {
		return t, nil
	}
	s, ok := val.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%s (%T): %w", field, val, ErrNotATime)
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s=%q: %w", field, s, ErrNotATime)
}

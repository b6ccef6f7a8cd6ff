package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/soundprediction/sifter/pkg/search"
	"github.com/soundprediction/sifter/pkg/types"
)

// Normalize converts the values of r to their stored form: relations become
// int64 ids ([]int64 for multiple relations), integers int64, floats float64,
// and temporal values strings in the search layouts, which order lexically.
// Undeclared fields are kept as is. An empty Display is filled from the
// display field.
func (e *Entity) Normalize(r *types.Record) error {
	if r.Entity == "" {
		r.Entity = e.Name
	}
	if r.Entity != e.Name {
		return fmt.Errorf("record of %s normalized as %s", r.Entity, e.Name)
	}
	for name, v := range r.Values {
		f, ok := e.byName[name]
		if !ok || v == nil {
			continue
		}
		nv, err := f.normalize(v)
		if err != nil {
			return fmt.Errorf("%s/%d field %s: %w", e.Name, r.ID, name, err)
		}
		r.Values[name] = nv
	}
	if r.Display == "" {
		r.Display = e.DisplayValue(r)
	}
	return nil
}

func (f *Field) normalize(v any) (any, error) {
	if f.Relation != "" {
		if !f.Multiple {
			return toInt64(v)
		}
		items, ok := v.([]any)
		if !ok {
			if ids, ok := v.([]int64); ok {
				return ids, nil
			}
			items = []any{v}
		}
		ids := make([]int64, 0, len(items))
		for _, item := range items {
			id, err := toInt64(item)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	switch f.Kind {
	case types.KindInteger:
		return toInt64(v)
	case types.KindFloat:
		return toFloat64(v)
	case types.KindBoolean:
		return toBool(v)
	case types.KindDate:
		return toTemporal(v, search.DateLayout, search.DateLayout, "2006/01/02")
	case types.KindTime:
		return toTemporal(v, search.TimeLayout, search.TimeLayout, "15:04")
	case types.KindDateTime:
		return toTemporal(v, search.DateTimeLayout, search.DateTimeLayout, time.RFC3339, search.DateLayout)
	default:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %v is not an integer", types.ErrInvalidValue, n)
		}
		return int64(n), nil
	case json.Number:
		return parseInt(n.String())
	case string:
		return parseInt(n)
	}
	return 0, fmt.Errorf("%w: %T is not an integer", types.ErrInvalidValue, v)
}

func parseInt(s string) (int64, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", types.ErrInvalidValue, s)
	}
	return i, nil
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", types.ErrInvalidValue, n)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", types.ErrInvalidValue, v)
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", types.ErrInvalidValue, b)
		}
		return parsed, nil
	}
	return false, fmt.Errorf("%w: %T is not a boolean", types.ErrInvalidValue, v)
}

func toTemporal(v any, layout string, inputs ...string) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout), nil
	case string:
		s := strings.TrimSpace(t)
		for _, in := range inputs {
			if parsed, err := time.Parse(in, s); err == nil {
				return parsed.Format(layout), nil
			}
		}
		return "", fmt.Errorf("%w: %q does not match %s", types.ErrInvalidValue, t, layout)
	}
	return "", fmt.Errorf("%w: %T is not a date or time", types.ErrInvalidValue, v)
}

package predicate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Resolver gives access to the values of one record.
type Resolver interface {
	// Values returns every value reachable from the record along p. When the
	// last step of p is a relation the related record ids are returned as
	// int64.
	Values(p Path) []any
}

// Eval reports whether the record behind r satisfies p.
func Eval(p Predicate, r Resolver) bool {
	switch v := p.(type) {
	case nil, True:
		return true
	case And:
		for _, t := range v.Terms {
			if !Eval(t, r) {
				return false
			}
		}
		return true
	case Compare:
		for _, val := range r.Values(v.Path) {
			if v.Matches(val) {
				return true
			}
		}
		return false
	case In:
		for _, val := range r.Values(v.Path) {
			if v.Contains(val) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Contains reports whether a stored value is one of the ids.
func (in In) Contains(stored any) bool {
	id, ok := ToInt64(stored)
	if !ok {
		return false
	}
	for _, want := range in.IDs {
		if want == id {
			return true
		}
	}
	return false
}

// Matches reports whether one stored value satisfies the comparison.
func (c Compare) Matches(stored any) bool {
	if stored == nil {
		return false
	}
	switch want := c.Value.(type) {
	case float64:
		got, ok := ToFloat64(stored)
		if !ok {
			return false
		}
		return compareOrdered(c.Op, got, want)
	case bool:
		got, ok := stored.(bool)
		if !ok {
			return false
		}
		switch c.Op {
		case OpEq:
			return got == want
		case OpNe:
			return got != want
		}
		return false
	case time.Time:
		got, ok := normalizeTime(stored, c.Layout)
		if !ok {
			return false
		}
		return compareOrdered(c.Op, got, want.Format(c.Layout))
	case string:
		got, ok := stored.(string)
		if !ok {
			got = fmt.Sprint(stored)
		}
		switch c.Op {
		case OpContains:
			return strings.Contains(got, want)
		case OpHasPrefix:
			return strings.HasPrefix(got, want)
		case OpHasSuffix:
			return strings.HasSuffix(got, want)
		}
		return compareOrdered(c.Op, got, want)
	default:
		return false
	}
}

func compareOrdered[T float64 | string](op CompareOp, got, want T) bool {
	switch op {
	case OpEq:
		return got == want
	case OpNe:
		return got != want
	case OpLt:
		return got < want
	case OpGt:
		return got > want
	default:
		return false
	}
}

func normalizeTime(stored any, layout string) (string, bool) {
	switch v := stored.(type) {
	case time.Time:
		return v.Format(layout), true
	case string:
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(layout), true
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.Format(layout), true
		}
	}
	return "", false
}

// ToInt64 converts a stored id or integer value to int64.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// ToFloat64 converts a stored numeric value to float64.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

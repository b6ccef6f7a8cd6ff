package driver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

// recordSource is the lookup a record resolver needs to follow relations.
type recordSource interface {
	record(entity string, id int64) (*types.Record, bool)
	// referrers returns the records of entity whose via field holds id.
	referrers(entity, via string, id int64) []*types.Record
}

// recordResolver exposes the values reachable from one record for
// predicate.Eval.
type recordResolver struct {
	rec *types.Record
	src recordSource
}

func (r recordResolver) Values(p predicate.Path) []any {
	if len(p) == 0 {
		return nil
	}
	return walk(r.src, []*types.Record{r.rec}, p)
}

func walk(src recordSource, recs []*types.Record, p predicate.Path) []any {
	step := p[0]
	last := len(p) == 1

	var out []any
	var next []*types.Record
	for _, rec := range recs {
		switch step.Kind {
		case predicate.StepScalar:
			if last {
				out = append(out, flatten(rec.Values[step.Name])...)
			}
		case predicate.StepRelation, predicate.StepMulti:
			for _, id := range relationIDs(rec.Values[step.Name]) {
				if last {
					out = append(out, id)
				} else if related, ok := src.record(step.Entity, id); ok {
					next = append(next, related)
				}
			}
		case predicate.StepReverse:
			for _, ref := range src.referrers(step.Entity, step.Via, rec.ID) {
				if last {
					out = append(out, ref.ID)
				} else {
					next = append(next, ref)
				}
			}
		}
	}
	if last || len(next) == 0 {
		return out
	}
	return walk(src, next, p[1:])
}

// flatten returns the individual values of a stored field. Missing and null
// values have none.
func flatten(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	case []int64:
		out := make([]any, len(val))
		for i, id := range val {
			out[i] = id
		}
		return out
	case []int:
		out := make([]any, len(val))
		for i, id := range val {
			out[i] = id
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

// relationIDs returns the ids held by a relation field.
func relationIDs(v any) []int64 {
	var ids []int64
	for _, val := range flatten(v) {
		if id, ok := predicate.ToInt64(val); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// holdsID reports whether a relation field holds id.
func holdsID(v any, id int64) bool {
	for _, got := range relationIDs(v) {
		if got == id {
			return true
		}
	}
	return false
}

// encodeValues serializes record values for storage as JSON.
func encodeValues(values map[string]any) ([]byte, error) {
	if values == nil {
		values = map[string]any{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode values: %w", err)
	}
	return data, nil
}

// decodeValues parses stored JSON values. Integral numbers come back as int64
// so relation ids keep their type.
func decodeValues(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("failed to decode values: %w", err)
	}
	for k, v := range values {
		values[k] = normalizeNumber(v)
	}
	return values, nil
}

func normalizeNumber(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = normalizeNumber(val[i])
		}
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val)
		}
		return val
	default:
		return v
	}
}

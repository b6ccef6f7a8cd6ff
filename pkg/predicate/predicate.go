package predicate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Predicate is a boolean condition over one record.
type Predicate interface {
	fmt.Stringer
	predicate()
}

// CompareOp is the comparison applied by a Compare predicate.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpGt
	OpContains
	OpHasPrefix
	OpHasSuffix
)

var compareSymbols = [...]string{
	OpEq:        "=",
	OpNe:        "!=",
	OpLt:        "<",
	OpGt:        ">",
	OpContains:  "CONTAINS",
	OpHasPrefix: "STARTS WITH",
	OpHasSuffix: "ENDS WITH",
}

func (o CompareOp) String() string {
	if o < 0 || int(o) >= len(compareSymbols) {
		return "?"
	}
	return compareSymbols[o]
}

// True matches every record.
type True struct{}

// Compare tests the values reachable along Path against Value. Value is a
// float64, string, bool or time.Time; for time.Time, Layout is the layout
// stored values are written in.
type Compare struct {
	Path   Path
	Op     CompareOp
	Value  any
	Layout string
}

// In tests whether a value reachable along Path is one of IDs. When the last
// step is a relation the related record ids are tested.
type In struct {
	Path Path
	IDs  []int64
}

// And is the conjunction of its terms. An And with no terms matches every
// record.
type And struct {
	Terms []Predicate
}

func (True) predicate()    {}
func (Compare) predicate() {}
func (In) predicate()      {}
func (And) predicate()     {}

func (True) String() string { return "TRUE" }

func (c Compare) String() string {
	return fmt.Sprintf("%s %s %s", c.Path, c.Op, formatValue(c.Value, c.Layout))
}

func (in In) String() string {
	ids := make([]string, len(in.IDs))
	for i, id := range in.IDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s IN (%s)", in.Path, strings.Join(ids, ", "))
}

func (a And) String() string {
	if len(a.Terms) == 0 {
		return "TRUE"
	}
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

func formatValue(v any, layout string) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return strconv.Quote(val.Format(layout))
	default:
		return fmt.Sprint(val)
	}
}

// Comparison constructors.
func Eq(p Path, v any) Predicate { return Compare{Path: p, Op: OpEq, Value: v} }
func Ne(p Path, v any) Predicate { return Compare{Path: p, Op: OpNe, Value: v} }
func Lt(p Path, v any) Predicate { return Compare{Path: p, Op: OpLt, Value: v} }
func Gt(p Path, v any) Predicate { return Compare{Path: p, Op: OpGt, Value: v} }
func Contains(p Path, s string) Predicate { return Compare{Path: p, Op: OpContains, Value: s} }
func HasPrefix(p Path, s string) Predicate { return Compare{Path: p, Op: OpHasPrefix, Value: s} }
func HasSuffix(p Path, s string) Predicate { return Compare{Path: p, Op: OpHasSuffix, Value: s} }

// Temporal compares against a point in time. Stored values are expected in
// layout, which must order lexically the same way it orders in time.
func Temporal(p Path, op CompareOp, t time.Time, layout string) Predicate {
	return Compare{Path: p, Op: op, Value: t, Layout: layout}
}

// Member tests membership of the values along p in ids.
func Member(p Path, ids ...int64) Predicate {
	return In{Path: p, IDs: ids}
}

// All returns the conjunction of terms. Nested conjunctions are flattened and
// True terms dropped, so the result does not depend on how the terms were
// grouped. With no remaining terms it returns True; with one it returns that
// term.
func All(terms ...Predicate) Predicate {
	var flat []Predicate
	for _, t := range terms {
		flat = flatten(flat, t)
	}
	switch len(flat) {
	case 0:
		return True{}
	case 1:
		return flat[0]
	default:
		return And{Terms: flat}
	}
}

func flatten(dst []Predicate, p Predicate) []Predicate {
	switch v := p.(type) {
	case nil, True:
		return dst
	case And:
		for _, t := range v.Terms {
			dst = flatten(dst, t)
		}
		return dst
	default:
		return append(dst, p)
	}
}

// IsTrue reports whether p matches every record by construction.
func IsTrue(p Predicate) bool {
	switch v := p.(type) {
	case nil, True:
		return true
	case And:
		for _, t := range v.Terms {
			if !IsTrue(t) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Terms returns the conjuncts of p.
func Terms(p Predicate) []Predicate {
	switch v := All(p).(type) {
	case True:
		return nil
	case And:
		return v.Terms
	default:
		return []Predicate{v}
	}
}

package search

import (
	"fmt"
	"strconv"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

// Description is the human-readable form of one applied criterion. Index is
// the criterion's position in the list it came from.
type Description struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Verb  string `json:"verb"`
	Value string `json:"value"`
}

func (d Description) String() string {
	return d.Label + " " + d.Verb + " " + d.Value
}

// Descriptions are kept in list order.
type Descriptions []Description

// Map returns the descriptions keyed by their list position.
func (ds Descriptions) Map() map[string]string {
	m := make(map[string]string, len(ds))
	for _, d := range ds {
		m[strconv.Itoa(d.Index)] = d.String()
	}
	return m
}

// Strings returns the description texts in order.
func (ds Descriptions) Strings() []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

// BuildQuery turns a criteria list into the conjunction of its predicates and
// one description per criterion. An empty list yields the identity predicate.
func BuildQuery(list types.CriteriaList, reg *Registry) (predicate.Predicate, Descriptions, error) {
	terms := make([]predicate.Predicate, 0, len(list))
	descs := make(Descriptions, 0, len(list))

	for i, c := range list {
		if c.Field == "" {
			continue
		}
		d, ok := reg.Lookup(c.Field)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q on %s", types.ErrFieldNotFound, c.Field, reg.Entity())
		}
		op, ok := c.Operator()
		if !ok || !d.Type.Allows(op) {
			return nil, nil, fmt.Errorf("%w: code %q for %s field %q",
				types.ErrOperatorNotAllowed, c.Code, d.Type, c.Field)
		}
		p, err := d.BuildPredicate(c.Value, op)
		if err != nil {
			return nil, nil, fmt.Errorf("criterion %d on %q: %w", i, c.Field, err)
		}
		terms = append(terms, p)

		verb := op.Label()
		if d.Type.IsEnumerable() {
			verb = types.OpEquals.Label()
		}
		descs = append(descs, Description{
			Index: i,
			Label: d.Label,
			Verb:  verb,
			Value: d.Render(c.Value, op),
		})
	}
	return predicate.All(terms...), descs, nil
}

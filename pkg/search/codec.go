package search

import (
	"strings"

	"github.com/soundprediction/sifter/pkg/types"
)

// Separators of the serialized criteria format:
//
//	criteria  := criterion ("//" criterion)*
//	criterion := field "||" code "||" value
const (
	ListSeparator      = "//"
	CriterionSeparator = "||"
)

// Parse decodes a serialized criteria list. Segments with fewer than three
// parts keep their position as zero criteria.
func Parse(s string) types.CriteriaList {
	if s == "" {
		return types.CriteriaList{}
	}
	pieces := strings.Split(s, ListSeparator)
	list := make(types.CriteriaList, len(pieces))
	for i, piece := range pieces {
		parts := strings.SplitN(piece, CriterionSeparator, 3)
		if len(parts) < 3 {
			continue
		}
		list[i] = types.Criterion{Field: parts[0], Code: parts[1], Value: parts[2]}
	}
	return list
}

// Serialize encodes a criteria list. Zero criteria are dropped.
func Serialize(list types.CriteriaList) string {
	var b strings.Builder
	for _, c := range list {
		if c.IsZero() {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(ListSeparator)
		}
		b.WriteString(c.Field)
		b.WriteString(CriterionSeparator)
		b.WriteString(c.Code)
		b.WriteString(CriterionSeparator)
		b.WriteString(c.Value)
	}
	return b.String()
}

package search

import (
	"strconv"
	"strings"

	"github.com/soundprediction/sifter/pkg/types"
)

// SelectorEntry describes one selectable field for a user interface.
type SelectorEntry struct {
	Name    string         `json:"name"`
	Label   string         `json:"label"`
	Type    string         `json:"type"`
	Bounds  *types.Bounds  `json:"bounds,omitempty"`
	Options []types.Option `json:"options,omitempty"`
}

// Encoded returns the compact form of the entry's metadata: "min;max;prec"
// for numeric fields and "id||label;id||label" for enumerable ones.
func (e SelectorEntry) Encoded() string {
	switch {
	case e.Bounds != nil:
		return EncodeBounds(*e.Bounds)
	case e.Options != nil:
		return EncodeOptions(e.Options)
	default:
		return ""
	}
}

// OperatorEntry is one operator offered for a field type.
type OperatorEntry struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// SelectorView is everything a client needs to offer the criterion editor.
type SelectorView struct {
	Entity    string                     `json:"entity"`
	Fields    []SelectorEntry            `json:"fields"`
	Operators map[string][]OperatorEntry `json:"operators"`
}

// FieldTable returns the "name||type" lines of the view, one per field.
func (v SelectorView) FieldTable() string {
	lines := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		lines[i] = f.Name + CriterionSeparator + f.Type
	}
	return strings.Join(lines, "\n")
}

// SelectorView returns the selector metadata of the registry.
func (r *Registry) SelectorView() SelectorView {
	view := SelectorView{
		Entity:    r.entity,
		Fields:    make([]SelectorEntry, len(r.fields)),
		Operators: OperatorTable(),
	}
	for i, d := range r.fields {
		entry := SelectorEntry{Name: d.Name, Label: d.Label, Type: d.Type.String()}
		if d.Type == types.FieldNumeric && d.Bounds != nil {
			b := *d.Bounds
			entry.Bounds = &b
		}
		if d.Type.IsEnumerable() {
			entry.Options = append([]types.Option{}, d.Options...)
		}
		view.Fields[i] = entry
	}
	return view
}

// OperatorTable maps each type tag to its legal operators in display order.
func OperatorTable() map[string][]OperatorEntry {
	table := make(map[string][]OperatorEntry)
	for _, t := range types.AllFieldTypes() {
		ops := types.OperatorsFor(t)
		entries := make([]OperatorEntry, len(ops))
		for i, op := range ops {
			entries[i] = OperatorEntry{Code: op.Code(), Label: op.Label()}
		}
		table[t.String()] = entries
	}
	return table
}

// EncodeOptions renders options as "id||label;id||label".
func EncodeOptions(options []types.Option) string {
	parts := make([]string, len(options))
	for i, o := range options {
		parts[i] = o.ID + CriterionSeparator + o.Label
	}
	return strings.Join(parts, types.ChoiceSeparator)
}

// EncodeBounds renders bounds as "min;max;precision".
func EncodeBounds(b types.Bounds) string {
	return strings.Join([]string{
		strconv.FormatFloat(b.Min, 'f', b.Precision, 64),
		strconv.FormatFloat(b.Max, 'f', b.Precision, 64),
		strconv.Itoa(b.Precision),
	}, types.ChoiceSeparator)
}

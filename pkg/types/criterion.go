package types

// Criterion is one user-chosen filter condition. All three parts are kept as
// the raw strings that travel on the wire; Code is an operator code and Value
// is interpreted according to the field's type.
type Criterion struct {
	Field string `json:"field"`
	Code  string `json:"operator"`
	Value string `json:"value"`
}

// NewCriterion builds a criterion for a typed operator.
func NewCriterion(field string, op Operator, value string) Criterion {
	return Criterion{Field: field, Code: op.Code(), Value: value}
}

// IsZero reports whether c is an absent criterion (a malformed or empty
// wire segment).
func (c Criterion) IsZero() bool {
	return c.Field == ""
}

// Operator parses the criterion's operator code.
func (c Criterion) Operator() (Operator, bool) {
	return ParseOperator(c.Code)
}

// CriteriaList is the ordered set of criteria currently applied. Order is
// insertion order and is the basis for removal by index. Duplicates are
// allowed.
type CriteriaList []Criterion

// Append returns a new list with c added at the end.
func (l CriteriaList) Append(c Criterion) CriteriaList {
	out := make(CriteriaList, len(l), len(l)+1)
	copy(out, l)
	return append(out, c)
}

// Remove returns a new list without the criterion at index i. An index out of
// range leaves the list unchanged and reports false.
func (l CriteriaList) Remove(i int) (CriteriaList, bool) {
	if i < 0 || i >= len(l) {
		return l, false
	}
	out := make(CriteriaList, 0, len(l)-1)
	out = append(out, l[:i]...)
	return append(out, l[i+1:]...), true
}

// Present returns the criteria that are not absent, in order.
func (l CriteriaList) Present() CriteriaList {
	out := make(CriteriaList, 0, len(l))
	for _, c := range l {
		if !c.IsZero() {
			out = append(out, c)
		}
	}
	return out
}

// Selection is the transient per-request input from which a new criterion is
// extracted. Only the slot matching the selected field's type is read; the
// DateTime type reads both Date and Time.
type Selection struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`

	Numeric string `json:"numeric,omitempty"`
	Text    string `json:"text,omitempty"`
	Boolean string `json:"boolean,omitempty"`
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`
	Choice  string `json:"choice,omitempty"`
}

// BooleanTrue is the raw value that means true for Boolean fields; any other
// value means false.
const BooleanTrue = "o"

// BooleanFalse is the raw value user interfaces send for an unchecked box.
const BooleanFalse = "n"

// ChoiceSeparator separates option ids inside a Choice or MultiChoice value.
const ChoiceSeparator = ";"

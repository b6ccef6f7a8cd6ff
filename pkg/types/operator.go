package types

import "strconv"

// Operator is a comparison operator. Its integer value is the wire code used
// in serialized criteria.
type Operator int

const (
	OpNone        Operator = 0
	OpEquals      Operator = 1
	OpDifferent   Operator = 2
	OpLessThan    Operator = 3
	OpGreaterThan Operator = 4
	OpContains    Operator = 5
	OpStartsWith  Operator = 6
	OpEndsWith    Operator = 7
	OpAnyOf       Operator = 8
	OpAllOf       Operator = 9
)

var operatorLabels = [...]string{
	OpNone:        "",
	OpEquals:      "=",
	OpDifferent:   "!=",
	OpLessThan:    "<",
	OpGreaterThan: ">",
	OpContains:    "contains",
	OpStartsWith:  "starts with",
	OpEndsWith:    "ends with",
	OpAnyOf:       "or",
	OpAllOf:       "and",
}

// Code returns the wire code of the operator.
func (o Operator) Code() string {
	return strconv.Itoa(int(o))
}

// Label returns the display label of the operator.
func (o Operator) Label() string {
	if !o.Valid() {
		return ""
	}
	return operatorLabels[o]
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	return o >= OpNone && int(o) < len(operatorLabels)
}

func (o Operator) String() string {
	return o.Label()
}

// ParseOperator converts a wire code to an Operator.
func ParseOperator(code string) (Operator, bool) {
	n, err := strconv.Atoi(code)
	if err != nil {
		return OpNone, false
	}
	op := Operator(n)
	if !op.Valid() {
		return OpNone, false
	}
	return op, true
}

var comparisonOperators = []Operator{OpEquals, OpDifferent, OpLessThan, OpGreaterThan}

// operatorsByType lists, in display order, the operators legal for each type.
var operatorsByType = map[FieldType][]Operator{
	FieldNumeric:     comparisonOperators,
	FieldText:        {OpEquals, OpDifferent, OpContains, OpStartsWith, OpEndsWith},
	FieldBoolean:     {OpEquals},
	FieldDate:        comparisonOperators,
	FieldTime:        comparisonOperators,
	FieldDateTime:    comparisonOperators,
	FieldChoice:      {OpAnyOf},
	FieldMultiChoice: {OpAnyOf, OpAllOf},
}

// OperatorsFor returns the operators legal for t. The returned slice must not
// be modified.
func OperatorsFor(t FieldType) []Operator {
	return operatorsByType[t]
}

// Allows reports whether op is legal for t.
func (t FieldType) Allows(op Operator) bool {
	for _, o := range operatorsByType[t] {
		if o == op {
			return true
		}
	}
	return false
}

// AllFieldTypes lists every FieldType in declaration order.
func AllFieldTypes() []FieldType {
	return []FieldType{
		FieldNumeric, FieldText, FieldBoolean, FieldDate,
		FieldTime, FieldDateTime, FieldChoice, FieldMultiChoice,
	}
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperatorCodes(t *testing.T) {
	tests := []struct {
		op    Operator
		code  string
		label string
	}{
		{OpNone, "0", ""},
		{OpEquals, "1", "="},
		{OpDifferent, "2", "!="},
		{OpLessThan, "3", "<"},
		{OpGreaterThan, "4", ">"},
		{OpContains, "5", "contains"},
		{OpStartsWith, "6", "starts with"},
		{OpEndsWith, "7", "ends with"},
		{OpAnyOf, "8", "or"},
		{OpAllOf, "9", "and"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.op.Code())
			assert.Equal(t, tt.label, tt.op.Label())

			got, ok := ParseOperator(tt.code)
			assert.True(t, ok)
			assert.Equal(t, tt.op, got)
		})
	}
}

func TestParseOperatorRejects(t *testing.T) {
	for _, code := range []string{"", "10", "-1", "eq", "1.0"} {
		_, ok := ParseOperator(code)
		assert.False(t, ok, code)
	}
	assert.Equal(t, "", Operator(42).Label())
}

func TestOperatorsByType(t *testing.T) {
	tests := []struct {
		typ  FieldType
		want []Operator
	}{
		{FieldNumeric, []Operator{OpEquals, OpDifferent, OpLessThan, OpGreaterThan}},
		{FieldText, []Operator{OpEquals, OpDifferent, OpContains, OpStartsWith, OpEndsWith}},
		{FieldBoolean, []Operator{OpEquals}},
		{FieldDate, []Operator{OpEquals, OpDifferent, OpLessThan, OpGreaterThan}},
		{FieldTime, []Operator{OpEquals, OpDifferent, OpLessThan, OpGreaterThan}},
		{FieldDateTime, []Operator{OpEquals, OpDifferent, OpLessThan, OpGreaterThan}},
		{FieldChoice, []Operator{OpAnyOf}},
		{FieldMultiChoice, []Operator{OpAnyOf, OpAllOf}},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, OperatorsFor(tt.typ))
			for _, op := range tt.want {
				assert.True(t, tt.typ.Allows(op))
			}
			assert.False(t, tt.typ.Allows(OpNone))
		})
	}
}

func TestFieldTypeTags(t *testing.T) {
	tags := []string{"float", "str", "bool", "date", "time", "datetime", "list", "listmult"}
	for i, typ := range AllFieldTypes() {
		assert.Equal(t, tags[i], typ.String())
		parsed, ok := ParseFieldType(tags[i])
		assert.True(t, ok)
		assert.Equal(t, typ, parsed)
	}

	_, ok := ParseFieldType("decimal")
	assert.False(t, ok)
	assert.Equal(t, "unknown", FieldType(99).String())
	assert.True(t, FieldChoice.IsEnumerable())
	assert.True(t, FieldMultiChoice.IsEnumerable())
	assert.False(t, FieldNumeric.IsEnumerable())
}

func TestCriteriaListAppend(t *testing.T) {
	base := CriteriaList{NewCriterion("a", OpEquals, "1")}
	next := base.Append(NewCriterion("b", OpEquals, "2"))

	assert.Len(t, base, 1)
	assert.Equal(t, CriteriaList{
		{Field: "a", Code: "1", Value: "1"},
		{Field: "b", Code: "1", Value: "2"},
	}, next)
}

func TestCriteriaListRemove(t *testing.T) {
	list := CriteriaList{
		NewCriterion("a", OpEquals, "1"),
		NewCriterion("b", OpEquals, "2"),
		NewCriterion("c", OpEquals, "3"),
	}

	got, ok := list.Remove(1)
	assert.True(t, ok)
	assert.Equal(t, CriteriaList{list[0], list[2]}, got)
	assert.Len(t, list, 3)

	for _, i := range []int{-1, 3, 100} {
		got, ok := list.Remove(i)
		assert.False(t, ok)
		assert.Equal(t, list, got)
	}
}

func TestCriteriaListPresent(t *testing.T) {
	list := CriteriaList{{}, NewCriterion("a", OpEquals, "1"), {Code: "1", Value: "x"}}
	assert.Equal(t, CriteriaList{{Field: "a", Code: "1", Value: "1"}}, list.Present())
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr error
	}{
		{"valid", Record{ID: 1, Entity: "ticket"}, nil},
		{"empty entity", Record{ID: 1}, ErrEmptyEntity},
		{"zero id", Record{Entity: "ticket"}, ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, tt.record.Validate())
		})
	}
}

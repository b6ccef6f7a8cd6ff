package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := newTestEngine().Registry(context.Background(), "ticket")
	require.NoError(t, err)
	return reg
}

func TestBuildQueryStatusExample(t *testing.T) {
	reg := testRegistry(t)
	list := types.CriteriaList{types.NewCriterion("status", types.OpAnyOf, "1;2")}

	pred, descs, err := BuildQuery(list, reg)
	require.NoError(t, err)

	assert.Equal(t, predicate.Member(predicate.Scalar("status"), 1, 2), pred)
	require.Len(t, descs, 1)
	assert.Equal(t, `Status = "Open" or "Closed"`, descs[0].String())
	assert.Equal(t, map[string]string{"0": `Status = "Open" or "Closed"`}, descs.Map())
	assert.Equal(t, "status||8||1;2", Serialize(list))
}

func TestBuildQueryEmpty(t *testing.T) {
	pred, descs, err := BuildQuery(nil, testRegistry(t))
	require.NoError(t, err)
	assert.True(t, predicate.IsTrue(pred))
	assert.Empty(t, descs)
}

func TestBuildQueryConjunction(t *testing.T) {
	reg := testRegistry(t)
	list := Parse(joinCriteria(
		"title||5||crash",
		"urgent||1||o",
		"tags||9||1;2",
	))

	pred, descs, err := BuildQuery(list, reg)
	require.NoError(t, err)

	tags, _ := reg.Lookup("tags")
	assert.ElementsMatch(t, []predicate.Predicate{
		predicate.Contains(predicate.Scalar("title"), "crash"),
		predicate.Eq(predicate.Scalar("urgent"), true),
		predicate.Member(tags.Path, 1),
		predicate.Member(tags.Path, 2),
	}, predicate.Terms(pred))

	assert.Equal(t, []string{
		`Title contains "crash"`,
		"Urgent = yes",
		`Tags = "bug" and "ui"`,
	}, descs.Strings())
}

func TestBuildQueryDescriptionsKeepListPositions(t *testing.T) {
	list := Parse(joinCriteria("title||1||a", "broken", "priority||3||5"))

	_, descs, err := BuildQuery(list, testRegistry(t))
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, 0, descs[0].Index)
	assert.Equal(t, 2, descs[1].Index)
	assert.Equal(t, "Priority < 5", descs.Map()["2"])
}

func TestBuildQueryErrors(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name     string
		criteria string
		want     error
	}{
		{"unknown field", "nope||1||x", types.ErrFieldNotFound},
		{"unresolved field is not searchable", "missing||1||x", types.ErrFieldNotFound},
		{"operator outside the type", "title||3||x", types.ErrOperatorNotAllowed},
		{"all of on single choice", "status||9||1", types.ErrOperatorNotAllowed},
		{"boolean different", "urgent||2||o", types.ErrOperatorNotAllowed},
		{"non numeric code", "title||eq||x", types.ErrOperatorNotAllowed},
		{"unknown code", "title||42||x", types.ErrOperatorNotAllowed},
		{"bad number", "priority||1||many", types.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := BuildQuery(Parse(tt.criteria), reg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOperatorClosure(t *testing.T) {
	reg := testRegistry(t)
	values := map[types.FieldType]string{
		types.FieldNumeric:     "1",
		types.FieldText:        "x",
		types.FieldBoolean:     "o",
		types.FieldDate:        "2024-01-01",
		types.FieldTime:        "10:00",
		types.FieldDateTime:    "2024-01-01 10:00",
		types.FieldChoice:      "1",
		types.FieldMultiChoice: "1",
	}

	for _, d := range reg.Fields() {
		for op := types.OpNone; op <= types.OpAllOf; op++ {
			list := types.CriteriaList{types.NewCriterion(d.Name, op, values[d.Type])}
			_, _, err := BuildQuery(list, reg)
			if d.Type.Allows(op) {
				assert.NoError(t, err, "%s %s", d.Name, op.Code())
			} else {
				assert.ErrorIs(t, err, types.ErrOperatorNotAllowed, "%s %s", d.Name, op.Code())
			}
		}
	}
}

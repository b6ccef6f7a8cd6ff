package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

func TestResolverClassification(t *testing.T) {
	r := NewResolver(newFakeSchema(), newFakeOptions())
	ctx := context.Background()

	tests := []struct {
		path   string
		want   types.FieldType
		label  string
		bounds *types.Bounds
	}{
		{"title", types.FieldText, "Title", nil},
		{"priority", types.FieldNumeric, "Priority", &types.Bounds{Min: 0, Max: 10, Precision: 0}},
		{"estimate", types.FieldNumeric, "Estimate", &types.Bounds{Min: 0, Max: 10, Precision: 2}},
		{"urgent", types.FieldBoolean, "Urgent", nil},
		{"due", types.FieldDate, "Due", nil},
		{"slot", types.FieldTime, "Slot", nil},
		{"opened", types.FieldDateTime, "Opened", nil},
		{"status", types.FieldChoice, "Status", nil},
		{"reporter", types.FieldChoice, "Reporter", nil},
		{"tags", types.FieldMultiChoice, "Tags", nil},
		{"comment_set", types.FieldChoice, "Comments", nil},
		{"reporter.name", types.FieldText, "Reporter > Name", nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			d, err := r.Resolve(ctx, tt.path, "ticket")
			require.NoError(t, err)
			assert.Equal(t, tt.path, d.Name)
			assert.Equal(t, tt.want, d.Type)
			assert.Equal(t, tt.label, d.Label)
			assert.Equal(t, tt.bounds, d.Bounds)
		})
	}
}

func TestResolverPaths(t *testing.T) {
	r := NewResolver(newFakeSchema(), newFakeOptions())
	ctx := context.Background()

	d, err := r.Resolve(ctx, "reporter.name", "ticket")
	require.NoError(t, err)
	assert.Equal(t, predicate.Path{
		{Name: "reporter", Kind: predicate.StepRelation, Entity: "user"},
		{Name: "name", Kind: predicate.StepScalar},
	}, d.Path)
	assert.Equal(t, "reporter.name", d.Path.String())

	d, err = r.Resolve(ctx, "comment_set", "ticket")
	require.NoError(t, err)
	assert.Equal(t, predicate.Path{
		{Name: "comment", Kind: predicate.StepReverse, Entity: "comment", Via: "ticket"},
	}, d.Path)
	assert.Equal(t, []types.Option{{ID: "7", Label: "first!"}}, d.Options)

	d, err = r.Resolve(ctx, "tags", "ticket")
	require.NoError(t, err)
	assert.Equal(t, predicate.StepMulti, d.Path.Last().Kind)
	assert.Len(t, d.Options, 3)
}

func TestResolverUnresolved(t *testing.T) {
	r := NewResolver(newFakeSchema(), nil)
	ctx := context.Background()

	for _, path := range []string{"missing", "title.length", "reporter.missing", "", "tags."} {
		t.Run(path, func(t *testing.T) {
			_, err := r.Resolve(ctx, path, "ticket")
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrUnresolvedField), "got %v", err)
		})
	}
}

func TestResolverWithoutOptionSource(t *testing.T) {
	r := NewResolver(newFakeSchema(), nil)

	d, err := r.Resolve(context.Background(), "reporter", "ticket")
	require.NoError(t, err)
	assert.Equal(t, types.FieldChoice, d.Type)
	assert.Empty(t, d.Options)
}

func resolve(t *testing.T, path string) *FieldDescriptor {
	t.Helper()
	d, err := NewResolver(newFakeSchema(), newFakeOptions()).Resolve(context.Background(), path, "ticket")
	require.NoError(t, err)
	return d
}

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		value string
		op    types.Operator
		want  string
	}{
		{"text is quoted", "title", "crash", types.OpContains, `"crash"`},
		{"text is not escaped", "title", "O\"Brien\tsaid", types.OpEquals, "\"O\"Brien\tsaid\""},
		{"boolean true", "urgent", "o", types.OpEquals, "yes"},
		{"boolean anything else", "urgent", "n", types.OpEquals, "no"},
		{"boolean empty", "urgent", "", types.OpEquals, "no"},
		{"choice any of", "status", "1;2", types.OpAnyOf, `"Open" or "Closed"`},
		{"choice in option order", "status", "2;1", types.OpAnyOf, `"Open" or "Closed"`},
		{"multi all of", "tags", "1;3", types.OpAllOf, `"bug" and "docs"`},
		{"unknown ids are skipped", "tags", "1;99", types.OpAnyOf, `"bug"`},
		{"numeric verbatim", "priority", "3", types.OpGreaterThan, "3"},
		{"date verbatim", "due", "2024-05-01", types.OpLessThan, "2024-05-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolve(t, tt.path).Render(tt.value, tt.op))
		})
	}
}

func TestBuildPredicate(t *testing.T) {
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	opened := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	slot := time.Date(0, 1, 1, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		path  string
		value string
		op    types.Operator
		want  predicate.Predicate
	}{
		{
			name: "boolean ignores the operator", path: "urgent", value: "o", op: types.OpEquals,
			want: predicate.Eq(predicate.Scalar("urgent"), true),
		},
		{
			name: "boolean false", path: "urgent", value: "n", op: types.OpEquals,
			want: predicate.Eq(predicate.Scalar("urgent"), false),
		},
		{
			name: "numeric", path: "priority", value: "3", op: types.OpGreaterThan,
			want: predicate.Gt(predicate.Scalar("priority"), 3.0),
		},
		{
			name: "text contains", path: "title", value: "crash", op: types.OpContains,
			want: predicate.Contains(predicate.Scalar("title"), "crash"),
		},
		{
			name: "text starts with", path: "title", value: "UI", op: types.OpStartsWith,
			want: predicate.HasPrefix(predicate.Scalar("title"), "UI"),
		},
		{
			name: "text empty equals", path: "title", value: "", op: types.OpEquals,
			want: predicate.Eq(predicate.Scalar("title"), ""),
		},
		{
			name: "date", path: "due", value: "2024-05-01", op: types.OpLessThan,
			want: predicate.Temporal(predicate.Scalar("due"), predicate.OpLt, due, DateLayout),
		},
		{
			name: "date with slashes", path: "due", value: "2024/05/01", op: types.OpEquals,
			want: predicate.Temporal(predicate.Scalar("due"), predicate.OpEq, due, DateLayout),
		},
		{
			name: "time without seconds", path: "slot", value: "14:00", op: types.OpDifferent,
			want: predicate.Temporal(predicate.Scalar("slot"), predicate.OpNe, slot, TimeLayout),
		},
		{
			name: "datetime", path: "opened", value: "2024-05-01 09:30", op: types.OpGreaterThan,
			want: predicate.Temporal(predicate.Scalar("opened"), predicate.OpGt, opened, DateTimeLayout),
		},
		{
			name: "choice any of", path: "status", value: "1;2", op: types.OpAnyOf,
			want: predicate.Member(predicate.Scalar("status"), 1, 2),
		},
		{
			name: "multi any of", path: "tags", value: "1;2", op: types.OpAnyOf,
			want: predicate.Member(resolve(t, "tags").Path, 1, 2),
		},
		{
			name: "multi all of", path: "tags", value: "1;2", op: types.OpAllOf,
			want: predicate.And{Terms: []predicate.Predicate{
				predicate.Member(resolve(t, "tags").Path, 1),
				predicate.Member(resolve(t, "tags").Path, 2),
			}},
		},
		{
			name: "multi all of single id", path: "tags", value: "3", op: types.OpAllOf,
			want: predicate.Member(resolve(t, "tags").Path, 3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(t, tt.path).BuildPredicate(tt.value, tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPredicateInvalidValue(t *testing.T) {
	tests := []struct {
		path  string
		value string
		op    types.Operator
	}{
		{"priority", "lots", types.OpEquals},
		{"due", "yesterday", types.OpEquals},
		{"slot", "25:99", types.OpEquals},
		{"opened", "2024-05-01 noon", types.OpEquals},
		{"status", "", types.OpAnyOf},
		{"tags", "1;x", types.OpAllOf},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.value, func(t *testing.T) {
			_, err := resolve(t, tt.path).BuildPredicate(tt.value, tt.op)
			assert.ErrorIs(t, err, types.ErrInvalidValue)
		})
	}
}

func TestExtractNewCriterion(t *testing.T) {
	tests := []struct {
		name string
		path string
		sel  types.Selection
		want types.Criterion
		ok   bool
	}{
		{
			name: "numeric slot",
			path: "priority",
			sel:  types.Selection{Operator: "4", Numeric: "3", Text: "ignored"},
			want: types.Criterion{Field: "priority", Code: "4", Value: "3"},
			ok:   true,
		},
		{
			name: "empty numeric rejected",
			path: "priority",
			sel:  types.Selection{Operator: "4", Text: "3"},
		},
		{
			name: "empty text equals kept",
			path: "title",
			sel:  types.Selection{Operator: "1"},
			want: types.Criterion{Field: "title", Code: "1", Value: ""},
			ok:   true,
		},
		{
			name: "empty text different kept",
			path: "title",
			sel:  types.Selection{Operator: "2"},
			want: types.Criterion{Field: "title", Code: "2", Value: ""},
			ok:   true,
		},
		{
			name: "empty text contains rejected",
			path: "title",
			sel:  types.Selection{Operator: "5"},
		},
		{
			name: "boolean slot",
			path: "urgent",
			sel:  types.Selection{Operator: "1", Boolean: "o"},
			want: types.Criterion{Field: "urgent", Code: "1", Value: "o"},
			ok:   true,
		},
		{
			name: "datetime joins date and time",
			path: "opened",
			sel:  types.Selection{Operator: "3", Date: "2024-05-01", Time: "09:30"},
			want: types.Criterion{Field: "opened", Code: "3", Value: "2024-05-01 09:30"},
			ok:   true,
		},
		{
			name: "choice slot",
			path: "status",
			sel:  types.Selection{Operator: "8", Choice: "1;2"},
			want: types.Criterion{Field: "status", Code: "8", Value: "1;2"},
			ok:   true,
		},
		{
			name: "empty choice rejected",
			path: "tags",
			sel:  types.Selection{Operator: "9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolve(t, tt.path).ExtractNewCriterion(tt.sel)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want Action
		ok   bool
	}{
		{"ADD", Action{Add: true}, true},
		{"2", Action{Remove: 2}, true},
		{" 0 ", Action{Remove: 0}, true},
		{"add", Action{}, false},
		{"", Action{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAction(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyMutation(t *testing.T) {
	s := NewSession(newTestEngine(), nil, nil)
	ctx := context.Background()
	prior := joinCriteria("title||5||a", "priority||4||1", "urgent||1||o")

	tests := []struct {
		name   string
		prior  string
		action Action
		sel    types.Selection
		want   string
	}{
		{
			name:   "add appends",
			prior:  "title||5||a",
			action: Action{Add: true},
			sel:    types.Selection{Field: "status", Operator: "8", Choice: "1;2"},
			want:   joinCriteria("title||5||a", "status||8||1;2"),
		},
		{
			name:   "add to empty",
			action: Action{Add: true},
			sel:    types.Selection{Field: "status", Operator: "8", Choice: "1;2"},
			want:   "status||8||1;2",
		},
		{
			name:   "add duplicate",
			prior:  "title||5||a",
			action: Action{Add: true},
			sel:    types.Selection{Field: "title", Operator: "5", Text: "a"},
			want:   joinCriteria("title||5||a", "title||5||a"),
		},
		{
			name:   "add with empty value is a no-op",
			prior:  "title||5||a",
			action: Action{Add: true},
			sel:    types.Selection{Field: "priority", Operator: "4"},
			want:   "title||5||a",
		},
		{
			name:   "add on unknown field is a no-op",
			prior:  "title||5||a",
			action: Action{Add: true},
			sel:    types.Selection{Field: "nope", Operator: "1", Text: "x"},
			want:   "title||5||a",
		},
		{
			name:   "remove middle keeps order",
			prior:  prior,
			action: Action{Remove: 1},
			want:   joinCriteria("title||5||a", "urgent||1||o"),
		},
		{
			name:   "remove first",
			prior:  prior,
			action: Action{Remove: 0},
			want:   joinCriteria("priority||4||1", "urgent||1||o"),
		},
		{
			name:   "remove out of range",
			prior:  prior,
			action: Action{Remove: 3},
			want:   prior,
		},
		{
			name:   "remove negative",
			prior:  prior,
			action: Action{Remove: -1},
			want:   prior,
		},
		{
			name:   "malformed segments are dropped",
			prior:  joinCriteria("title||5||a", "junk"),
			action: Action{Remove: 5},
			want:   "title||5||a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ApplyMutation(ctx, "ticket", tt.prior, tt.action, tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyParams(t *testing.T) {
	s := NewSession(newTestEngine(), nil, nil)
	ctx := context.Background()

	params := map[string]string{
		ParamCriteria:  "title||5||a",
		ParamAction:    ActionAdd,
		ParamSelector:  "urgent",
		ParamOperator:  "1",
		ParamValueBool: "o",
		ParamValueStr:  "ignored",
		"searchExtra":  "dropped too",
		"page":         "2",
	}
	require.NoError(t, s.ApplyParams(ctx, "ticket", params))
	assert.Equal(t, map[string]string{
		ParamCriteria: joinCriteria("title||5||a", "urgent||1||o"),
		"page":        "2",
	}, params)

	params[ParamAction] = "0"
	require.NoError(t, s.ApplyParams(ctx, "ticket", params))
	assert.Equal(t, "urgent||1||o", params[ParamCriteria])
	assert.NotContains(t, params, ParamAction)

	params[ParamAction] = "bogus"
	require.NoError(t, s.ApplyParams(ctx, "ticket", params))
	assert.Equal(t, "urgent||1||o", params[ParamCriteria])
}

func TestApplyParamsWithoutCriteria(t *testing.T) {
	s := NewSession(newTestEngine(), nil, nil)
	params := map[string]string{
		ParamAction:    ActionAdd,
		ParamSelector:  "opened",
		ParamOperator:  "4",
		ParamValueDate: "2024-05-01",
		ParamValueTime: "09:30",
	}
	require.NoError(t, s.ApplyParams(context.Background(), "ticket", params))
	assert.Equal(t, map[string]string{ParamCriteria: "opened||4||2024-05-01 09:30"}, params)
}

func TestFilter(t *testing.T) {
	exec := &recordingExecutor{records: []types.Record{
		{ID: 1, Entity: "ticket", Display: "crash on save"},
	}}
	s := NewSession(newTestEngine(), exec, nil)

	res, err := s.Filter(context.Background(), "ticket", joinCriteria("status||8||1;2", "broken"), types.Page{Limit: 10})
	require.NoError(t, err)

	want := predicate.Member(predicate.Scalar("status"), 1, 2)
	assert.Equal(t, want, res.Predicate)
	assert.Equal(t, want, exec.last)
	assert.Equal(t, "status||8||1;2", res.Criteria)
	assert.Equal(t, []string{`Status = "Open" or "Closed"`}, res.Descriptions.Strings())
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, exec.records, res.Records)
}

func TestFilterErrors(t *testing.T) {
	ctx := context.Background()

	s := NewSession(newTestEngine(), &recordingExecutor{}, nil)
	_, err := s.Filter(ctx, "ticket", "status||1||1", types.Page{})
	assert.ErrorIs(t, err, types.ErrOperatorNotAllowed)

	boom := errors.New("disk on fire")
	s = NewSession(newTestEngine(), &recordingExecutor{err: boom}, nil)
	_, err = s.Filter(ctx, "ticket", "", types.Page{})
	assert.ErrorIs(t, err, boom)
}

func TestFilterWithoutExecutor(t *testing.T) {
	s := NewSession(newTestEngine(), nil, nil)

	res, err := s.Filter(context.Background(), "ticket", "", types.Page{})
	require.NoError(t, err)
	assert.True(t, predicate.IsTrue(res.Predicate))
	assert.Empty(t, res.Descriptions)
	assert.Zero(t, res.Count)
}

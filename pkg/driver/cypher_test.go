package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/sifter/pkg/predicate"
)

func TestCompileCypher(t *testing.T) {
	tests := []struct {
		name       string
		p          predicate.Predicate
		wantCond   string
		wantParams map[string]any
	}{
		{
			name:       "true",
			p:          predicate.True{},
			wantCond:   "true",
			wantParams: map[string]any{},
		},
		{
			name:       "scalar",
			p:          predicate.Ne(predicate.Scalar("title"), "x"),
			wantCond:   "n0[$p0] <> $p1",
			wantParams: map[string]any{"p0": "title", "p1": "x"},
		},
		{
			name:       "text operator",
			p:          predicate.HasSuffix(predicate.Scalar("title"), "load"),
			wantCond:   "n0[$p0] ENDS WITH $p1",
			wantParams: map[string]any{"p0": "title", "p1": "load"},
		},
		{
			name:     "relation membership",
			p:        predicate.Member(tagsPath, 1, 3),
			wantCond: "EXISTS { MATCH (n0)-[:LINK {field: $p0}]->(n1:Record {entity: $p1}) WHERE n1.id IN $p2 }",
			wantParams: map[string]any{
				"p0": "tags", "p1": "tag", "p2": []int64{1, 3},
			},
		},
		{
			name:     "through relation",
			p:        predicate.Eq(reporterPath.Join(predicate.Scalar("name")...), "ada"),
			wantCond: "EXISTS { MATCH (n0)-[:LINK {field: $p0}]->(n1:Record {entity: $p1}) WHERE n1[$p2] = $p3 }",
			wantParams: map[string]any{
				"p0": "reporter", "p1": "user", "p2": "name", "p3": "ada",
			},
		},
		{
			name:     "reverse relation",
			p:        predicate.Member(commentsPath, 7),
			wantCond: "EXISTS { MATCH (n0)<-[:LINK {field: $p0}]-(n1:Record {entity: $p1}) WHERE n1.id IN $p2 }",
			wantParams: map[string]any{
				"p0": "ticket", "p1": "comment", "p2": []int64{7},
			},
		},
		{
			name:       "empty membership",
			p:          predicate.Member(tagsPath),
			wantCond:   "false",
			wantParams: map[string]any{},
		},
		{
			name: "conjunction",
			p: predicate.All(
				predicate.Eq(predicate.Scalar("urgent"), true),
				predicate.Lt(predicate.Scalar("priority"), 4.0),
			),
			wantCond:   "(n0[$p0] = $p1) AND (n0[$p2] < $p3)",
			wantParams: map[string]any{"p0": "urgent", "p1": true, "p2": "priority", "p3": 4.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, params, err := CompileCypher(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCond, cond)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestCompileCypherRejectsUnknownValues(t *testing.T) {
	_, _, err := CompileCypher(predicate.Eq(predicate.Scalar("title"), struct{}{}))
	assert.Error(t, err)
}

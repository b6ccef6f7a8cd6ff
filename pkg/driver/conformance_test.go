package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/schema"
	"github.com/soundprediction/sifter/pkg/types"
)

const fixtureSchema = `
entities:
  ticket:
    display: title
    fields:
      - {name: title, kind: text}
      - {name: status, kind: integer}
      - {name: priority, kind: integer}
      - {name: urgent, kind: boolean}
      - {name: due, kind: date}
      - {name: reporter, relation: user}
      - {name: tags, relation: tag, multiple: true}
  user:
    display: name
    fields:
      - {name: name}
  tag:
    display: name
    fields:
      - {name: name}
  comment:
    display: body
    fields:
      - {name: body}
      - {name: ticket, relation: ticket}
`

func fixtureSchemaFor(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(fixtureSchema))
	require.NoError(t, err)
	return s
}

func rec(entity string, id int64, display string, values map[string]any) *types.Record {
	return &types.Record{ID: id, Entity: entity, Display: display, Values: values}
}

func fixtureRecords() []*types.Record {
	return []*types.Record{
		rec("user", 1, "ada", map[string]any{"name": "ada"}),
		rec("user", 2, "linus", map[string]any{"name": "linus"}),
		rec("tag", 1, "bug", map[string]any{"name": "bug"}),
		rec("tag", 2, "ui", map[string]any{"name": "ui"}),
		rec("tag", 3, "docs", map[string]any{"name": "docs"}),
		rec("ticket", 1, "Crash on save", map[string]any{
			"title": "Crash on save", "status": int64(1), "priority": int64(3), "urgent": true,
			"due": "2024-05-01", "reporter": int64(1), "tags": []int64{1, 3},
		}),
		rec("ticket", 2, "Button misaligned", map[string]any{
			"title": "Button misaligned", "status": int64(2), "priority": int64(1), "urgent": false,
			"due": "2024-06-15", "reporter": int64(2), "tags": []int64{2},
		}),
		rec("ticket", 3, "Crash on load", map[string]any{
			"title": "Crash on load", "status": int64(3), "priority": int64(5), "urgent": true,
			"due": "2024-04-01", "reporter": int64(1), "tags": []int64{1},
		}),
		rec("ticket", 4, "Docs typo", map[string]any{
			"title": "Docs typo", "status": int64(1), "priority": int64(2), "urgent": false,
			"reporter": int64(2), "tags": []int64{3},
		}),
		rec("comment", 7, "first!", map[string]any{"body": "first!", "ticket": int64(1)}),
		rec("comment", 8, "dup of #1", map[string]any{"body": "dup of #1", "ticket": int64(3)}),
		rec("comment", 9, "fixed", map[string]any{"body": "fixed", "ticket": int64(3)}),
	}
}

var (
	reporterPath = predicate.Path{{Name: "reporter", Kind: predicate.StepRelation, Entity: "user"}}
	tagsPath     = predicate.Path{{Name: "tags", Kind: predicate.StepMulti, Entity: "tag"}}
	commentsPath = predicate.Path{{Name: "comment", Kind: predicate.StepReverse, Entity: "comment", Via: "ticket"}}
)

func ids(rs *types.ResultSet) []int64 {
	out := make([]int64, len(rs.Records))
	for i, r := range rs.Records {
		out[i] = r.ID
	}
	return out
}

// runConformance checks that a driver evaluates predicates the same way as
// predicate.Eval does over the fixture.
func runConformance(t *testing.T, d Driver) {
	ctx := context.Background()
	require.NoError(t, d.Upsert(ctx, fixtureRecords()...))

	mid := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		p    predicate.Predicate
		want []int64
	}{
		{"everything", predicate.True{}, []int64{1, 2, 3, 4}},
		{"choice any of", predicate.Member(predicate.Scalar("status"), 1, 2), []int64{1, 2, 4}},
		{"contains", predicate.Contains(predicate.Scalar("title"), "Crash"), []int64{1, 3}},
		{"contains is case sensitive", predicate.Contains(predicate.Scalar("title"), "crash"), []int64{}},
		{"starts with", predicate.HasPrefix(predicate.Scalar("title"), "Docs"), []int64{4}},
		{"ends with", predicate.HasSuffix(predicate.Scalar("title"), "load"), []int64{3}},
		{"numeric gt", predicate.Gt(predicate.Scalar("priority"), 2.0), []int64{1, 3}},
		{"numeric ne", predicate.Ne(predicate.Scalar("priority"), 3.0), []int64{2, 3, 4}},
		{"boolean", predicate.Eq(predicate.Scalar("urgent"), true), []int64{1, 3}},
		{"date before", predicate.Temporal(predicate.Scalar("due"), predicate.OpLt, mid, "2006-01-02"), []int64{1, 3}},
		{"relation any of", predicate.Member(reporterPath, 2), []int64{2, 4}},
		{"through relation", predicate.Eq(reporterPath.Join(predicate.Scalar("name")...), "ada"), []int64{1, 3}},
		{"multi any of", predicate.Member(tagsPath, 2, 3), []int64{1, 2, 4}},
		{"multi all of", predicate.All(predicate.Member(tagsPath, 1), predicate.Member(tagsPath, 3)), []int64{1}},
		{"all of tolerates extra related ids", predicate.All(predicate.Member(tagsPath, 1)), []int64{1, 3}},
		{"reverse", predicate.Member(commentsPath, 7), []int64{1}},
		{"through reverse", predicate.Contains(commentsPath.Join(predicate.Scalar("body")...), "dup"), []int64{3}},
		{"conjunction", predicate.All(
			predicate.Member(predicate.Scalar("status"), 1),
			predicate.Eq(predicate.Scalar("urgent"), false),
		), []int64{4}},
		{"empty member", predicate.Member(predicate.Scalar("status")), []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := d.Execute(ctx, "ticket", tt.p, types.Page{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(rs))
			assert.Equal(t, len(tt.want), rs.Count)
		})
	}

	t.Run("paging", func(t *testing.T) {
		rs, err := d.Execute(ctx, "ticket", predicate.True{}, types.Page{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 3}, ids(rs))
		assert.Equal(t, 4, rs.Count)

		rs, err = d.Execute(ctx, "ticket", predicate.True{}, types.Page{Limit: 2, Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, rs.Records)
		assert.Equal(t, 4, rs.Count)
	})

	t.Run("instances", func(t *testing.T) {
		options, err := d.Instances(ctx, "tag")
		require.NoError(t, err)
		assert.Equal(t, []types.Option{{ID: "1", Label: "bug"}, {ID: "2", Label: "ui"}, {ID: "3", Label: "docs"}}, options)

		options, err = d.Instances(ctx, "nothing")
		require.NoError(t, err)
		assert.Empty(t, options)
	})

	t.Run("get and update", func(t *testing.T) {
		got, err := d.Get(ctx, "ticket", 1)
		require.NoError(t, err)
		assert.Equal(t, "Crash on save", got.Display)
		assert.Equal(t, int64(1), got.Values["reporter"])

		_, err = d.Get(ctx, "ticket", 99)
		assert.ErrorIs(t, err, ErrNotFound)

		update := rec("ticket", 4, "Docs typo", map[string]any{
			"title": "Docs typo", "status": int64(2), "priority": int64(2), "urgent": true,
			"reporter": int64(1), "tags": []int64{3},
		})
		require.NoError(t, d.Upsert(ctx, update))

		rs, err := d.Execute(ctx, "ticket", predicate.Member(predicate.Scalar("status"), 1), types.Page{})
		require.NoError(t, err)
		assert.Equal(t, []int64{1}, ids(rs))
	})

	t.Run("delete and stats", func(t *testing.T) {
		require.NoError(t, d.Delete(ctx, "comment", 9))
		assert.ErrorIs(t, d.Delete(ctx, "comment", 9), ErrNotFound)

		stats, err := d.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(11), stats.Records)
		assert.Equal(t, int64(4), stats.ByEntity["ticket"])
		assert.Equal(t, int64(2), stats.ByEntity["comment"])
	})

	t.Run("invalid records", func(t *testing.T) {
		assert.ErrorIs(t, d.Upsert(ctx, rec("", 1, "", nil)), types.ErrEmptyEntity)
		assert.ErrorIs(t, d.Upsert(ctx, rec("ticket", 0, "", nil)), types.ErrInvalidID)
	})
}

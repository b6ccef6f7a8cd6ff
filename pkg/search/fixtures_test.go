package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

// fakeSchema is a small ticket tracker: tickets have a status choice table, a
// single reporter, many tags, and comments pointing back at them.
type fakeSchema struct {
	fields map[string]map[string]types.FieldMeta
	paths  map[string][]string
}

func newFakeSchema() *fakeSchema {
	return &fakeSchema{
		fields: map[string]map[string]types.FieldMeta{
			"ticket": {
				"title":    {StorageName: "title", Label: "Title", Kind: types.KindText},
				"priority": {StorageName: "priority", Label: "Priority", Kind: types.KindInteger},
				"estimate": {StorageName: "estimate", Label: "Estimate", Kind: types.KindFloat},
				"urgent":   {StorageName: "urgent", Label: "Urgent", Kind: types.KindBoolean},
				"due":      {StorageName: "due", Label: "Due", Kind: types.KindDate},
				"slot":     {StorageName: "slot", Label: "Slot", Kind: types.KindTime},
				"opened":   {StorageName: "opened", Label: "Opened", Kind: types.KindDateTime},
				"status": {StorageName: "status", Label: "Status", Kind: types.KindInteger, Choices: []types.Option{
					{ID: "1", Label: "Open"}, {ID: "2", Label: "Closed"}, {ID: "3", Label: "Blocked"},
				}},
				"reporter":    {StorageName: "reporter", Label: "Reporter", IsRelation: true, RelatedEntity: "user"},
				"tags":        {StorageName: "tags", Label: "Tags", IsRelation: true, IsMultiValued: true, RelatedEntity: "tag"},
				"comment_set": {StorageName: "comment", Label: "Comments", IsReverse: true, RelatedEntity: "comment", ReverseField: "ticket"},
			},
			"user": {
				"name": {StorageName: "name", Label: "Name", Kind: types.KindText},
			},
		},
		paths: map[string][]string{
			"ticket": {
				"title", "priority", "estimate", "urgent", "due", "slot", "opened",
				"status", "reporter", "reporter.name", "tags", "comment_set", "missing", "title.length",
			},
		},
	}
}

func (s *fakeSchema) ResolveField(entity, segment string) (types.FieldMeta, error) {
	fields, ok := s.fields[entity]
	if !ok {
		return types.FieldMeta{}, fmt.Errorf("%w: %s", types.ErrUnknownEntity, entity)
	}
	meta, ok := fields[segment]
	if !ok {
		return types.FieldMeta{}, fmt.Errorf("%w: %s.%s", types.ErrUnresolvedField, entity, segment)
	}
	return meta, nil
}

func (s *fakeSchema) SearchPaths(entity string) ([]string, error) {
	paths, ok := s.paths[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownEntity, entity)
	}
	return paths, nil
}

type fakeOptions map[string][]types.Option

func (f fakeOptions) Instances(_ context.Context, entity string) ([]types.Option, error) {
	return f[entity], nil
}

func newFakeOptions() fakeOptions {
	return fakeOptions{
		"user":    {{ID: "1", Label: "ada"}, {ID: "2", Label: "linus"}},
		"tag":     {{ID: "1", Label: "bug"}, {ID: "2", Label: "ui"}, {ID: "3", Label: "docs"}},
		"comment": {{ID: "7", Label: "first!"}},
	}
}

// recordingExecutor captures the last predicate and returns canned records.
type recordingExecutor struct {
	last    predicate.Predicate
	records []types.Record
	err     error
}

func (e *recordingExecutor) Execute(_ context.Context, entity string, p predicate.Predicate, _ types.Page) (*types.ResultSet, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.last = p
	return &types.ResultSet{Records: e.records, Count: len(e.records)}, nil
}

func newTestEngine() *Engine {
	return NewEngine(newFakeSchema(), newFakeOptions(), nil)
}

func joinCriteria(parts ...string) string {
	return strings.Join(parts, ListSeparator)
}

package search

import (
	"context"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

// FieldMetadataProvider resolves one path segment of an entity. The engine
// never inspects entity definitions itself.
type FieldMetadataProvider interface {
	ResolveField(entity, segment string) (types.FieldMeta, error)
}

// SearchableFieldsProvider lists the dotted field paths an entity declares as
// searchable, in display order.
type SearchableFieldsProvider interface {
	SearchPaths(entity string) ([]string, error)
}

// Schema is a provider of both field metadata and searchable paths.
type Schema interface {
	FieldMetadataProvider
	SearchableFieldsProvider
}

// OptionSource lists the instances of an entity as selectable options, used
// to enumerate relation fields.
type OptionSource interface {
	Instances(ctx context.Context, entity string) ([]types.Option, error)
}

// Executor runs a predicate against stored records of an entity.
type Executor interface {
	Execute(ctx context.Context, entity string, p predicate.Predicate, page types.Page) (*types.ResultSet, error)
}

// Store is a storage backend usable by a Session.
type Store interface {
	Executor
	OptionSource
}

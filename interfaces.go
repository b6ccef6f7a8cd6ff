package sifter

import (
	"context"
	"io"

	"github.com/soundprediction/sifter/pkg/driver"
	"github.com/soundprediction/sifter/pkg/importer"
	"github.com/soundprediction/sifter/pkg/search"
	"github.com/soundprediction/sifter/pkg/types"
)

// Consumers should depend on the smallest of these interfaces that meets
// their needs. Sifter composes them.

// FieldCatalog describes what can be searched.
type FieldCatalog interface {
	// Entities lists the declared entities in name order.
	Entities() []EntityInfo

	// Fields returns the selector view of an entity: its searchable fields
	// and the operators legal for each field type.
	Fields(ctx context.Context, entity string) (*search.SelectorView, error)
}

// Searcher runs filters.
type Searcher interface {
	// Search applies the criteria mutation carried by params (CRITERIA, ACT
	// and the search* selection slots), rewriting params in place, then
	// filters by the resulting CRITERIA.
	Search(ctx context.Context, entity string, params map[string]string, page types.Page) (*search.Result, error)

	// Filter runs a serialized criteria list as is.
	Filter(ctx context.Context, entity, criteria string, page types.Page) (*search.Result, error)

	// ClampPage applies the default and maximum page sizes.
	ClampPage(page types.Page) types.Page
}

// RecordStore reads and writes the records being searched.
type RecordStore interface {
	Import(ctx context.Context, r io.Reader) (*importer.Report, error)
	GetRecord(ctx context.Context, entity string, id int64) (*types.Record, error)
	Stats(ctx context.Context) (*driver.Stats, error)
}

// Sifter is the full client surface used by the server and the CLI.
type Sifter interface {
	FieldCatalog
	Searcher
	RecordStore

	// Ping checks that the storage backend answers.
	Ping(ctx context.Context) error

	// Close releases the storage backend.
	Close() error
}

var _ Sifter = (*Client)(nil)

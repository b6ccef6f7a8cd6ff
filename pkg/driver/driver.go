package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soundprediction/sifter/pkg/config"
	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/schema"
	"github.com/soundprediction/sifter/pkg/types"
)

// Provider names a storage backend.
type Provider string

const (
	ProviderMemory Provider = "memory"
	ProviderBadger Provider = "badger"
	ProviderSQLite Provider = "sqlite"
	ProviderNeo4j  Provider = "neo4j"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Driver stores records and evaluates search predicates against them.
type Driver interface {
	// Execute returns the records of entity matching p, ordered by id.
	Execute(ctx context.Context, entity string, p predicate.Predicate, page types.Page) (*types.ResultSet, error)
	// Instances lists every record of entity as an option, ordered by id.
	Instances(ctx context.Context, entity string) ([]types.Option, error)

	Upsert(ctx context.Context, records ...*types.Record) error
	Get(ctx context.Context, entity string, id int64) (*types.Record, error)
	Delete(ctx context.Context, entity string, id int64) error
	Stats(ctx context.Context) (*Stats, error)

	Provider() Provider
	Close() error
}

// Stats holds record counts.
type Stats struct {
	Records  int64            `json:"records"`
	ByEntity map[string]int64 `json:"by_entity"`
}

// Open creates the driver selected by cfg. The schema is used by drivers that
// store relations natively.
func Open(ctx context.Context, cfg config.DatabaseConfig, sch *schema.Schema, logger *slog.Logger) (Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch Provider(cfg.Driver) {
	case ProviderMemory, "":
		return NewMemoryDriver(logger), nil
	case ProviderBadger:
		return NewBadgerDriver(cfg.URI, logger)
	case ProviderSQLite:
		return NewSQLiteDriver(ctx, cfg.URI, logger)
	case ProviderNeo4j:
		return NewNeo4jDriver(ctx, cfg.URI, cfg.Username, cfg.Password, cfg.Database, sch, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func validateAll(records []*types.Record) error {
	for _, r := range records {
		if r == nil {
			return fmt.Errorf("nil record")
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %s/%d: %w", r.Entity, r.ID, err)
		}
	}
	return nil
}

// pageBounds returns the slice bounds of page within n matches.
func pageBounds(n int, page types.Page) (int, int) {
	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if page.Limit > 0 && start+page.Limit < n {
		end = start + page.Limit
	}
	return start, end
}

func cloneRecord(r *types.Record) *types.Record {
	cp := *r
	cp.Values = make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		cp.Values[k] = v
	}
	return &cp
}

// Package importer loads records into a storage driver from JSON documents.
//
// A document maps entity names to lists of objects. Each object carries an
// "id" and the field values by name, and may carry a "display" text:
//
//	{
//	  "user":   [{"id": 1, "name": "ada"}],
//	  "ticket": [{"id": 1, "title": "Crash on save", "reporter": 1, "tags": [1, 3]}]
//	}
//
// Malformed JSON, such as trailing commas or single quotes, is repaired before
// decoding. Values are normalized against the schema before they are written.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"github.com/soundprediction/sifter/pkg/schema"
	"github.com/soundprediction/sifter/pkg/types"
	"github.com/soundprediction/sifter/pkg/utils"
)

// DefaultBatchSize is the number of records per upsert call.
const DefaultBatchSize = 500

// Writer is the storage the importer writes to.
type Writer interface {
	Upsert(ctx context.Context, records ...*types.Record) error
}

// Importer normalizes and writes records.
type Importer struct {
	store     Writer
	schema    *schema.Schema
	logger    *slog.Logger
	batchSize int
	workers   int
}

// Option configures an Importer.
type Option func(*Importer)

// WithBatchSize sets the number of records per upsert.
func WithBatchSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithWorkers sets the number of concurrent upserts.
func WithWorkers(n int) Option {
	return func(im *Importer) { im.workers = n }
}

// New creates an importer writing to store.
func New(store Writer, sch *schema.Schema, logger *slog.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	im := &Importer{store: store, schema: sch, logger: logger, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Report summarizes an import.
type Report struct {
	Records  int            `json:"records"`
	ByEntity map[string]int `json:"by_entity"`
	Repaired bool           `json:"repaired"`
	Duration time.Duration  `json:"duration"`
}

// ImportFile imports the document at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import reads a document from r and writes its records. Entities are written
// in name order; records of one entity are written in concurrent batches.
// Nothing is written when the document fails to decode or normalize.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Report, error) {
	start := time.Now()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import document: %w", err)
	}

	doc, repaired, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if repaired {
		im.logger.Warn("import document was not valid JSON and has been repaired")
	}

	byEntity, err := im.records(doc)
	if err != nil {
		return nil, err
	}

	report := &Report{ByEntity: make(map[string]int, len(byEntity)), Repaired: repaired}
	names := make([]string, 0, len(byEntity))
	for name := range byEntity {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		records := byEntity[name]
		pool := utils.NewWorkerPool(im.workers, func(ctx context.Context, batch []*types.Record) (int, error) {
			return len(batch), im.store.Upsert(ctx, batch...)
		})
		counts, errs := pool.ProcessItems(ctx, utils.Batch(records, im.batchSize))
		for _, n := range counts {
			report.ByEntity[name] += n
			report.Records += n
		}
		if err := errors.Join(errs...); err != nil {
			return report, fmt.Errorf("failed to import %s records: %w", name, err)
		}
		im.logger.Info("Upserted records", "entity", name, "count", len(records))
	}

	report.Duration = time.Since(start)
	return report, nil
}

// Document is a decoded import document.
type Document map[string][]map[string]any

// Decode parses an import document, repairing it when it is not valid JSON.
// Numbers are decoded as json.Number.
func Decode(data []byte) (Document, bool, error) {
	doc, err := decodeStrict(data)
	if err == nil {
		return doc, false, nil
	}

	fixed, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return nil, false, fmt.Errorf("invalid import document: %w", err)
	}
	doc, err = decodeStrict([]byte(fixed))
	if err != nil {
		return nil, true, fmt.Errorf("invalid import document: %w", err)
	}
	return doc, true, nil
}

func decodeStrict(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// records converts and normalizes every object of doc.
func (im *Importer) records(doc Document) (map[string][]*types.Record, error) {
	out := make(map[string][]*types.Record, len(doc))
	for name, objects := range doc {
		entity, err := im.schema.Entity(name)
		if err != nil {
			return nil, err
		}
		records := make([]*types.Record, 0, len(objects))
		for i, obj := range objects {
			rec, err := toRecord(name, obj)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
			}
			if err := entity.Normalize(rec); err != nil {
				return nil, err
			}
			for k, v := range rec.Values {
				rec.Values[k] = plainNumber(v)
			}
			records = append(records, rec)
		}
		out[name] = records
	}
	return out, nil
}

func toRecord(entity string, obj map[string]any) (*types.Record, error) {
	raw, ok := obj["id"]
	if !ok {
		return nil, fmt.Errorf("missing id")
	}
	num, ok := raw.(json.Number)
	if !ok {
		return nil, fmt.Errorf("id must be a number, got %T", raw)
	}
	id, err := num.Int64()
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidID, num)
	}

	rec := &types.Record{ID: id, Entity: entity, Values: make(map[string]any, len(obj))}
	for k, v := range obj {
		switch k {
		case "id":
		case "display":
			if s, ok := v.(string); ok {
				rec.Display = s
			}
		default:
			rec.Values[k] = v
		}
	}
	return rec, nil
}

// plainNumber replaces json.Number left in undeclared fields.
func plainNumber(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = plainNumber(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = plainNumber(val[k])
		}
		return val
	default:
		return v
	}
}

package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

// BadgerDriver persists records in a badger key-value store, one JSON value
// per record under "rec/<entity>/<zero-padded id>". Keys sort by id within an
// entity, so prefix scans return records in id order.
type BadgerDriver struct {
	db     *badger.DB
	logger *slog.Logger
}

type badgerValue struct {
	Display string          `json:"display"`
	Values  json.RawMessage `json:"values"`
}

// NewBadgerDriver opens (or creates) a badger store in dir.
func NewBadgerDriver(dir string, logger *slog.Logger) (*BadgerDriver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerDriver{db: db, logger: logger}, nil
}

func (b *BadgerDriver) Provider() Provider { return ProviderBadger }

func (b *BadgerDriver) Close() error { return b.db.Close() }

func entityPrefix(entity string) []byte {
	return []byte("rec/" + entity + "/")
}

func recordKey(entity string, id int64) []byte {
	return []byte(fmt.Sprintf("rec/%s/%020d", entity, id))
}

func idFromKey(key []byte) (int64, error) {
	s := string(key)
	i := strings.LastIndexByte(s, '/')
	return strconv.ParseInt(s[i+1:], 10, 64)
}

// Upsert writes records in a single batch.
func (b *BadgerDriver) Upsert(ctx context.Context, records ...*types.Record) error {
	if err := validateAll(records); err != nil {
		return err
	}
	for _, r := range records {
		if strings.Contains(r.Entity, "/") {
			return fmt.Errorf("record %s/%d: entity names cannot contain '/'", r.Entity, r.ID)
		}
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, r := range records {
		values, err := encodeValues(r.Values)
		if err != nil {
			return err
		}
		data, err := json.Marshal(badgerValue{Display: r.Display, Values: values})
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		if err := wb.Set(recordKey(r.Entity, r.ID), data); err != nil {
			return fmt.Errorf("failed to write record %s/%d: %w", r.Entity, r.ID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}
	return nil
}

// Get reads one record.
func (b *BadgerDriver) Get(ctx context.Context, entity string, id int64) (*types.Record, error) {
	var rec *types.Record
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, entity, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func getRecord(txn *badger.Txn, entity string, id int64) (*types.Record, error) {
	item, err := txn.Get(recordKey(entity, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, entity, id)
	}
	if err != nil {
		return nil, err
	}
	var rec *types.Record
	err = item.Value(func(val []byte) error {
		rec, err = decodeBadgerValue(entity, id, val)
		return err
	})
	return rec, err
}

func decodeBadgerValue(entity string, id int64, data []byte) (*types.Record, error) {
	var v badgerValue
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode record %s/%d: %w", entity, id, err)
	}
	values, err := decodeValues(v.Values)
	if err != nil {
		return nil, fmt.Errorf("record %s/%d: %w", entity, id, err)
	}
	return &types.Record{ID: id, Entity: entity, Display: v.Display, Values: values}, nil
}

// Delete removes one record.
func (b *BadgerDriver) Delete(ctx context.Context, entity string, id int64) error {
	return b.db.Update(func(txn *badger.Txn) error {
		key := recordKey(entity, id)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s/%d", ErrNotFound, entity, id)
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// Stats counts records per entity with a key-only scan.
func (b *BadgerDriver) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByEntity: make(map[string]int64)}
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte("rec/")
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			parts := strings.SplitN(string(it.Item().Key()), "/", 3)
			if len(parts) != 3 {
				continue
			}
			stats.ByEntity[parts[1]]++
			stats.Records++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Instances lists the records of entity as options.
func (b *BadgerDriver) Instances(ctx context.Context, entity string) ([]types.Option, error) {
	options := []types.Option{}
	err := b.db.View(func(txn *badger.Txn) error {
		return scanEntity(ctx, txn, entity, func(rec *types.Record) error {
			options = append(options, types.Option{ID: strconv.FormatInt(rec.ID, 10), Label: rec.Display})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return options, nil
}

// Execute scans the records of entity in id order and evaluates p on each.
func (b *BadgerDriver) Execute(ctx context.Context, entity string, p predicate.Predicate, page types.Page) (*types.ResultSet, error) {
	var matches []types.Record
	err := b.db.View(func(txn *badger.Txn) error {
		view := &badgerView{txn: txn, ctx: ctx, cache: make(map[string]*types.Record)}
		return scanEntity(ctx, txn, entity, func(rec *types.Record) error {
			if predicate.Eval(p, recordResolver{rec: rec, src: view}) {
				matches = append(matches, *rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	start, end := pageBounds(len(matches), page)
	rs := &types.ResultSet{
		Records: append([]types.Record{}, matches[start:end]...),
		Count:   len(matches),
	}
	b.logger.Debug("badger search", "entity", entity, "predicate", p.String(), "count", rs.Count)
	return rs, nil
}

func scanEntity(ctx context.Context, txn *badger.Txn, entity string, fn func(*types.Record) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = entityPrefix(entity)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := it.Item()
		id, err := idFromKey(item.Key())
		if err != nil {
			continue
		}
		var rec *types.Record
		if err := item.Value(func(val []byte) error {
			rec, err = decodeBadgerValue(entity, id, val)
			return err
		}); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// badgerView resolves relations inside one read transaction.
type badgerView struct {
	txn   *badger.Txn
	ctx   context.Context
	cache map[string]*types.Record
}

func (v *badgerView) record(entity string, id int64) (*types.Record, bool) {
	key := string(recordKey(entity, id))
	if rec, ok := v.cache[key]; ok {
		return rec, rec != nil
	}
	rec, err := getRecord(v.txn, entity, id)
	if err != nil {
		rec = nil
	}
	v.cache[key] = rec
	return rec, rec != nil
}

func (v *badgerView) referrers(entity, via string, id int64) []*types.Record {
	var out []*types.Record
	_ = scanEntity(v.ctx, v.txn, entity, func(rec *types.Record) error {
		if holdsID(rec.Values[via], id) {
			out = append(out, rec)
		}
		return nil
	})
	return out
}

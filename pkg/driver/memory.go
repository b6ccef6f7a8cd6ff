package driver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/soundprediction/sifter/pkg/predicate"
	"github.com/soundprediction/sifter/pkg/types"
)

// MemoryDriver keeps records in process. Each entity has a bitmap of its
// record ids and posting lists of the integer values of its fields, so
// membership tests on relations and choice fields never scan.
type MemoryDriver struct {
	mu     sync.RWMutex
	tables map[string]*memoryTable
	logger *slog.Logger
}

type memoryTable struct {
	records map[uint32]*types.Record
	all     *roaring.Bitmap
	// postings maps field -> integer value -> records holding it.
	postings map[string]map[int64]*roaring.Bitmap
}

func newMemoryTable() *memoryTable {
	return &memoryTable{
		records:  make(map[uint32]*types.Record),
		all:      roaring.New(),
		postings: make(map[string]map[int64]*roaring.Bitmap),
	}
}

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver(logger *slog.Logger) *MemoryDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryDriver{
		tables: make(map[string]*memoryTable),
		logger: logger,
	}
}

func (m *MemoryDriver) Provider() Provider { return ProviderMemory }

func (m *MemoryDriver) Close() error { return nil }

// Upsert stores copies of records, replacing any with the same entity and id.
// Ids must fit in 32 bits.
func (m *MemoryDriver) Upsert(ctx context.Context, records ...*types.Record) error {
	if err := validateAll(records); err != nil {
		return err
	}
	for _, r := range records {
		if r.ID > math.MaxUint32 {
			return fmt.Errorf("record %s/%d: id exceeds the memory driver range", r.Entity, r.ID)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		t, ok := m.tables[r.Entity]
		if !ok {
			t = newMemoryTable()
			m.tables[r.Entity] = t
		}
		row := uint32(r.ID)
		if old, ok := t.records[row]; ok {
			t.unindex(row, old)
		}
		rec := cloneRecord(r)
		t.records[row] = rec
		t.all.Add(row)
		t.index(row, rec)
	}
	return nil
}

func (t *memoryTable) index(row uint32, r *types.Record) {
	for field, v := range r.Values {
		ids := indexableIDs(v)
		if len(ids) == 0 {
			continue
		}
		byValue, ok := t.postings[field]
		if !ok {
			byValue = make(map[int64]*roaring.Bitmap)
			t.postings[field] = byValue
		}
		for _, id := range ids {
			bm, ok := byValue[id]
			if !ok {
				bm = roaring.New()
				byValue[id] = bm
			}
			bm.Add(row)
		}
	}
}

func (t *memoryTable) unindex(row uint32, r *types.Record) {
	for field, v := range r.Values {
		byValue, ok := t.postings[field]
		if !ok {
			continue
		}
		for _, id := range indexableIDs(v) {
			bm, ok := byValue[id]
			if !ok {
				continue
			}
			bm.Remove(row)
			if bm.IsEmpty() {
				delete(byValue, id)
			}
		}
		if len(byValue) == 0 {
			delete(t.postings, field)
		}
	}
}

// indexableIDs returns the integer values of a field under the same
// conversion predicate.Eval applies, so the postings and a scan agree.
func indexableIDs(v any) []int64 {
	return relationIDs(v)
}

// Get returns a copy of a record.
func (m *MemoryDriver) Get(ctx context.Context, entity string, id int64) (*types.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.record(entity, id)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, entity, id)
	}
	return cloneRecord(rec), nil
}

// Delete removes a record.
func (m *MemoryDriver) Delete(ctx context.Context, entity string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tables[entity]
	if !ok || id <= 0 || id > math.MaxUint32 {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, entity, id)
	}
	row := uint32(id)
	rec, ok := t.records[row]
	if !ok {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, entity, id)
	}
	t.unindex(row, rec)
	t.all.Remove(row)
	delete(t.records, row)
	return nil
}

// Stats counts records per entity.
func (m *MemoryDriver) Stats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{ByEntity: make(map[string]int64, len(m.tables))}
	for name, t := range m.tables {
		n := int64(t.all.GetCardinality())
		stats.ByEntity[name] = n
		stats.Records += n
	}
	return stats, nil
}

// Instances lists the records of entity as options.
func (m *MemoryDriver) Instances(ctx context.Context, entity string) ([]types.Option, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[entity]
	if !ok {
		return []types.Option{}, nil
	}
	options := make([]types.Option, 0, t.all.GetCardinality())
	it := t.all.Iterator()
	for it.HasNext() {
		rec := t.records[it.Next()]
		options = append(options, types.Option{ID: strconv.FormatInt(rec.ID, 10), Label: rec.Display})
	}
	return options, nil
}

// Execute evaluates p against the records of entity.
func (m *MemoryDriver) Execute(ctx context.Context, entity string, p predicate.Predicate, page types.Page) (*types.ResultSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tables[entity]
	if !ok {
		return &types.ResultSet{Records: []types.Record{}}, nil
	}

	matches, err := m.evaluate(ctx, t, p, t.all)
	if err != nil {
		return nil, err
	}

	rows := matches.ToArray()
	start, end := pageBounds(len(rows), page)
	rs := &types.ResultSet{
		Records: make([]types.Record, 0, end-start),
		Count:   len(rows),
	}
	for _, row := range rows[start:end] {
		rs.Records = append(rs.Records, *cloneRecord(t.records[row]))
	}
	m.logger.Debug("memory search", "entity", entity, "predicate", p.String(), "count", rs.Count)
	return rs, nil
}

// evaluate returns the rows of candidates that satisfy p.
func (m *MemoryDriver) evaluate(ctx context.Context, t *memoryTable, p predicate.Predicate, candidates *roaring.Bitmap) (*roaring.Bitmap, error) {
	switch v := p.(type) {
	case nil, predicate.True:
		return candidates.Clone(), nil
	case predicate.And:
		result := candidates
		for _, term := range v.Terms {
			next, err := m.evaluate(ctx, t, term, result)
			if err != nil {
				return nil, err
			}
			result = next
			if result.IsEmpty() {
				break
			}
		}
		if result == candidates {
			return candidates.Clone(), nil
		}
		return result, nil
	case predicate.In:
		if bm, ok := m.lookupIn(t, v); ok {
			return roaring.And(candidates, bm), nil
		}
	}
	return m.scan(ctx, t, p, candidates)
}

// lookupIn answers a one-step membership test from the posting lists.
func (m *MemoryDriver) lookupIn(t *memoryTable, in predicate.In) (*roaring.Bitmap, bool) {
	if len(in.Path) != 1 {
		return nil, false
	}
	step := in.Path[0]

	if step.Kind == predicate.StepReverse {
		// The rows are the ids the selected referrers point back to.
		ref, ok := m.tables[step.Entity]
		result := roaring.New()
		if !ok {
			return result, true
		}
		for _, id := range in.IDs {
			if id <= 0 || id > math.MaxUint32 {
				continue
			}
			if rec, ok := ref.records[uint32(id)]; ok {
				for _, back := range relationIDs(rec.Values[step.Via]) {
					if back > 0 && back <= math.MaxUint32 {
						result.Add(uint32(back))
					}
				}
			}
		}
		return result, true
	}

	byValue, ok := t.postings[step.Name]
	if !ok {
		return nil, false
	}
	result := roaring.New()
	for _, id := range in.IDs {
		if bm, ok := byValue[id]; ok {
			result.Or(bm)
		}
	}
	return result, true
}

func (m *MemoryDriver) scan(ctx context.Context, t *memoryTable, p predicate.Predicate, candidates *roaring.Bitmap) (*roaring.Bitmap, error) {
	result := roaring.New()
	it := candidates.Iterator()
	for i := 0; it.HasNext(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := it.Next()
		if predicate.Eval(p, recordResolver{rec: t.records[row], src: m}) {
			result.Add(row)
		}
	}
	return result, nil
}

// record implements recordSource. Callers hold m.mu.
func (m *MemoryDriver) record(entity string, id int64) (*types.Record, bool) {
	t, ok := m.tables[entity]
	if !ok || id <= 0 || id > math.MaxUint32 {
		return nil, false
	}
	rec, ok := t.records[uint32(id)]
	return rec, ok
}

// referrers implements recordSource. Callers hold m.mu.
func (m *MemoryDriver) referrers(entity, via string, id int64) []*types.Record {
	t, ok := m.tables[entity]
	if !ok {
		return nil
	}
	if byValue, ok := t.postings[via]; ok {
		bm, ok := byValue[id]
		if !ok {
			return nil
		}
		out := make([]*types.Record, 0, bm.GetCardinality())
		it := bm.Iterator()
		for it.HasNext() {
			out = append(out, t.records[it.Next()])
		}
		return out
	}

	var out []*types.Record
	for _, rec := range t.records {
		if holdsID(rec.Values[via], id) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/sifter/pkg/types"
)

func TestBadgerDriver(t *testing.T) {
	d, err := NewBadgerDriver(t.TempDir(), nil)
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, ProviderBadger, d.Provider())
	runConformance(t, d)
}

func TestBadgerDriverPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	d, err := NewBadgerDriver(dir, nil)
	require.NoError(t, err)
	require.NoError(t, d.Upsert(ctx, fixtureRecords()...))
	require.NoError(t, d.Close())

	d, err = NewBadgerDriver(dir, nil)
	require.NoError(t, err)
	defer d.Close()

	got, err := d.Get(ctx, "ticket", 1)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(3)}, got.Values["tags"])
	assert.Equal(t, true, got.Values["urgent"])
}

func TestBadgerDriverRejectsSlashInEntity(t *testing.T) {
	d, err := NewBadgerDriver(t.TempDir(), nil)
	require.NoError(t, err)
	defer d.Close()

	err = d.Upsert(context.Background(), &types.Record{ID: 1, Entity: "a/b"})
	assert.Error(t, err)
}

func TestRecordKeyOrder(t *testing.T) {
	assert.Less(t, string(recordKey("ticket", 9)), string(recordKey("ticket", 10)))

	id, err := idFromKey(recordKey("ticket", 42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

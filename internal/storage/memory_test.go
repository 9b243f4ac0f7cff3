package storage_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"candidate-search/internal/config"
	"candidate-search/internal/storage"
	"candidate-search/internal/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(name string, vec ...float32) *types.CandidateRecord {
	return &types.CandidateRecord{
		SourceFileName: name + ".pdf",
		Fields: types.Fields{
			types.FieldCandidateName: types.StringValue(name),
			types.FieldEmail:         types.StringValue(name + "@example.com"),
		},
		Embedding: vec,
	}
}

func TestMemoryStore_EmptyStoreReturnsNone(t *testing.T) {
	store, err := storage.NewMemoryStore(storage.StoreOptions{Dimensions: 3})
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background()))

	res, err := store.NearestNeighbor(context.Background(), []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestMemoryStore_EnsureSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewMemoryStore(storage.StoreOptions{Dimensions: 2})
	require.NoError(t, err)

	require.NoError(t, store.EnsureSchema(ctx))
	_, err = store.Insert(ctx, newRecord("a", 1, 1))
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx), "重复建表不应报错")

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "重复建表不应清空数据")
	assert.True(t, store.SchemaReady())
}

func TestMemoryStore_NearestNeighborL2(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewMemoryStore(storage.StoreOptions{Dimensions: 3})
	require.NoError(t, err)

	_, err = store.Insert(ctx, newRecord("alice", 1, 0, 0))
	require.NoError(t, err)
	bobID, err := store.Insert(ctx, newRecord("bob", 0, 1, 0))
	require.NoError(t, err)
	_, err = store.Insert(ctx, newRecord("carol", 0, 0, 1))
	require.NoError(t, err)

	res, err := store.NearestNeighbor(ctx, []float32{0.1, 0.9, 0})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, bobID, res.RecordID)
	assert.Equal(t, "bob", res.CandidateName)
	assert.Equal(t, "bob@example.com", res.Email)
	assert.Equal(t, types.NotAvailable, res.Skillset)
	assert.Equal(t, "bob.pdf", res.FileName)
	assert.InDelta(t, math.Sqrt(0.02), res.Score, 1e-6)
}

func TestMemoryStore_TieKeepsFirstInserted(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewMemoryStore(storage.StoreOptions{Dimensions: 2})
	require.NoError(t, err)

	firstID, err := store.Insert(ctx, newRecord("first", 1, 0))
	require.NoError(t, err)
	_, err = store.Insert(ctx, newRecord("second", 1, 0))
	require.NoError(t, err)

	res, err := store.NearestNeighbor(ctx, []float32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, firstID, res.RecordID)
	assert.Zero(t, res.Score)
}

// 最近邻结果的距离不大于任何其它记录的距离
func TestMemoryStore_ExhaustiveNearestNeighbor(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	const dims = 8

	for _, metric := range []string{config.MetricL2, config.MetricCosine} {
		t.Run(metric, func(t *testing.T) {
			store, err := storage.NewMemoryStore(storage.StoreOptions{Dimensions: dims, Metric: metric})
			require.NoError(t, err)

			dist := storage.L2Distance
			if metric == config.MetricCosine {
				dist = storage.CosineDistance
			}

			var vectors [][]float32
			for i := 0; i < 50; i++ {
				vec := make([]float32, dims)
				for j := range vec {
					vec[j] = rng.Float32()*2 - 1
				}
				vectors = append(vectors, vec)
				_, err := store.Insert(ctx, newRecord("c", vec...))
				require.NoError(t, err)
			}

			for q := 0; q < 20; q++ {
				query := make([]float32, dims)
				for j := range query {
					query[j] = rng.Float32()*2 - 1
				}
				res, err := store.NearestNeighbor(ctx, query)
				require.NoError(t, err)
				require.NotNil(t, res)
				for _, vec := range vectors {
					assert.LessOrEqual(t, res.Score, dist(query, vec)+1e-9)
				}
			}
		})
	}
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewMemoryStore(storage.StoreOptions{Dimensions: 3})
	require.NoError(t, err)

	_, err = store.Insert(ctx, newRecord("short", 1, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
	assert.True(t, types.IsFatal(err))

	_, err = store.NearestNeighbor(ctx, []float32{1, 2, 3, 4})
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestMemoryStore_ExistsByFilename(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewMemoryStore(storage.StoreOptions{Dimensions: 1})
	require.NoError(t, err)

	_, err = store.Insert(ctx, newRecord("jane", 1))
	require.NoError(t, err)

	ok, err := store.ExistsByFilename(ctx, "jane.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ExistsByFilename(ctx, "JANE.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_InsertCopiesRecord(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewMemoryStore(storage.StoreOptions{Dimensions: 2})
	require.NoError(t, err)

	rec := newRecord("x", 1, 2)
	_, err = store.Insert(ctx, rec)
	require.NoError(t, err)
	rec.Embedding[0] = 99

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, []float32{1, 2}, records[0].Embedding)
	assert.Equal(t, int64(1), records[0].ID)
}

func TestStoreOptions_Validation(t *testing.T) {
	_, err := storage.NewMemoryStore(storage.StoreOptions{Dimensions: 0})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)

	_, err = storage.NewMemoryStore(storage.StoreOptions{Dimensions: 3, Table: "docvectors; DROP TABLE x"})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)

	_, err = storage.NewMemoryStore(storage.StoreOptions{Dimensions: 3, Metric: "manhattan"})
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestNewRecordStore_UnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Embedding.Dimensions = 3
	_, err := storage.NewRecordStore(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

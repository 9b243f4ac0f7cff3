package processor

import (
	"context"
	"errors"
	"math"
	"testing"

	"candidate-search/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	data   map[string][]float32
	getErr error
	sets   int
}

func (c *mapCache) GetQueryVector(ctx context.Context, model, query string) ([]float32, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.data[model+"|"+query]
	return v, ok, nil
}

func (c *mapCache) SetQueryVector(ctx context.Context, model, query string, vector []float32) error {
	if c.data == nil {
		c.data = map[string][]float32{}
	}
	c.sets++
	c.data[model+"|"+query] = vector
	return nil
}

func seedStore(t *testing.T) CandidateStore {
	t.Helper()
	store := newMemoryStore(t, 3)
	ctx := context.Background()
	for _, r := range []struct {
		name string
		vec  []float32
	}{
		{"Alice", []float32{1, 0, 0}},
		{"Bob", []float32{0, 1, 0}},
		{"Carol", []float32{0, 0, 1}},
	} {
		_, err := store.Insert(ctx, &types.CandidateRecord{
			SourceFileName: r.name + ".pdf",
			Fields: types.Fields{
				types.FieldCandidateName: types.StringValue(r.name),
				types.FieldSkillset:      types.ListValue(types.StringValue("Java")),
			},
			Embedding: r.vec,
		})
		require.NoError(t, err)
	}
	return store
}

func TestSearch_EmptyQueryShortCircuits(t *testing.T) {
	emb := &mockEmbedder{dims: 3}
	s := NewCandidateSearcher(emb, seedStore(t))

	for _, q := range []string{"", "   ", "\t\n"} {
		res, err := s.Search(context.Background(), q)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, types.ErrEmptyQuery)
	}
	assert.Empty(t, emb.calls, "空查询不应调用向量服务")
}

func TestSearch_ReturnsNearestWithScore(t *testing.T) {
	query := "java backend developer"
	emb := &mockEmbedder{dims: 3, vectors: map[string][]float32{query: {0.2, 0.8, 0.1}}}
	s := NewCandidateSearcher(emb, seedStore(t))

	res, err := s.Search(context.Background(), query)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Bob", res.CandidateName)
	assert.Equal(t, types.NotAvailable, res.Email)
	assert.Equal(t, `["Java"]`, res.Skillset)
	assert.InDelta(t, math.Sqrt(0.04+0.04+0.01), res.Score, 1e-6)
	assert.Equal(t, []string{query}, emb.calls)
}

func TestSearch_EmptyStoreReturnsNil(t *testing.T) {
	s := NewCandidateSearcher(&mockEmbedder{dims: 3}, newMemoryStore(t, 3))
	res, err := s.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestSearch_EmbedderFailure(t *testing.T) {
	s := NewCandidateSearcher(&mockEmbedder{dims: 3, err: types.NewTransportError("query", "embed", errors.New("timeout"))}, seedStore(t))
	_, err := s.Search(context.Background(), "go")
	require.Error(t, err)
	assert.Equal(t, types.KindTransport, types.KindOf(err))
}

func TestSearch_QueryCache(t *testing.T) {
	emb := &mockEmbedder{dims: 3}
	cache := &mapCache{}
	s := NewCandidateSearcher(emb, seedStore(t), WithQueryCache(cache, "m"))

	first, err := s.Search(context.Background(), "golang")
	require.NoError(t, err)
	second, err := s.Search(context.Background(), "golang")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, emb.calls, 1, "第二次应命中缓存")
	assert.Equal(t, 1, cache.sets)
}

func TestSearch_CacheErrorFallsBackToEmbedder(t *testing.T) {
	emb := &mockEmbedder{dims: 3}
	cache := &mapCache{getErr: errors.New("redis down")}
	s := NewCandidateSearcher(emb, seedStore(t), WithQueryCache(cache, "m"))

	res, err := s.Search(context.Background(), "golang")
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Len(t, emb.calls, 1)
}

package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-io/doclens/pkg/errors"
)

func newTestEntry(id, docID string, vec []float32) *Entry {
	return &Entry{
		ID:     id,
		Vector: vec,
		Payload: Payload{
			DocumentID: docID,
			Filename:   docID + ".txt",
			Content:    "content of " + id,
		},
	}
}

func TestMemoryStoreUpsertAndSearch(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()

	err := s.Upsert(ctx, []*Entry{
		newTestEntry("a", "doc1", []float32{1, 0, 0}),
		newTestEntry("b", "doc1", []float32{0, 1, 0}),
		newTestEntry("c", "doc2", []float32{0.9, 0.1, 0}),
	})
	require.NoError(t, err)

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	assert.Equal(t, "c", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryStoreSearchTieBrokenByInsertionOrder(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	// 三个条目与查询向量的余弦完全相同
	require.NoError(t, s.Upsert(ctx, []*Entry{
		newTestEntry("first", "doc1", []float32{1, 0}),
		newTestEntry("second", "doc1", []float32{2, 0}),
		newTestEntry("third", "doc2", []float32{3, 0}),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "first", results[0].ID)
	assert.Equal(t, "second", results[1].ID)
	assert.Equal(t, "third", results[2].ID)
}

func TestMemoryStoreSearchZeroNormScoresZero(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []*Entry{
		newTestEntry("zero", "doc1", []float32{0, 0}),
		newTestEntry("unit", "doc1", []float32{1, 0}),
	}))

	// 零向量条目分数为 0
	results, err := s.Search(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "unit", results[0].ID)
	assert.Zero(t, results[1].Score)

	// 零向量查询所有分数为 0
	results, err = s.Search(ctx, []float32{0, 0}, 2, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.Zero(t, r.Score)
	}
}

func TestMemoryStoreSearchInvalidK(t *testing.T) {
	s := NewMemoryStore(2)

	_, err := s.Search(context.Background(), []float32{1, 0}, 0, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
}

func TestMemoryStoreSearchKExceedsEntries(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []*Entry{
		newTestEntry("only", "doc1", []float32{1, 0}),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryStoreSearchWithFilter(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []*Entry{
		newTestEntry("a", "doc1", []float32{1, 0}),
		newTestEntry("b", "doc2", []float32{1, 0}),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 10, &SearchFilter{DocumentID: "doc2"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)

	results, err = s.Search(ctx, []float32{1, 0}, 10, &SearchFilter{
		Predicate: func(p *Payload) bool { return p.DocumentID == "doc1" },
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestMemoryStoreFilterAppliesBeforeTopK(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	// doc1 的条目在全局 top-2 之外，过滤后仍应取满 k 条
	require.NoError(t, s.Upsert(ctx, []*Entry{
		newTestEntry("hot1", "doc2", []float32{1, 0}),
		newTestEntry("hot2", "doc2", []float32{0.99, 0.1}),
		newTestEntry("cold1", "doc1", []float32{0.5, 0.5}),
		newTestEntry("cold2", "doc1", []float32{0.1, 0.9}),
	}))

	results, err := s.Search(ctx, []float32{1, 0}, 2, &SearchFilter{DocumentID: "doc1"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cold1", results[0].ID)
	assert.Equal(t, "cold2", results[1].ID)
}

func TestMemoryStoreUpsertReplacesByID(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []*Entry{
		newTestEntry("a", "doc1", []float32{1, 0}),
	}))
	require.NoError(t, s.Upsert(ctx, []*Entry{
		{ID: "a", Vector: []float32{0, 1}, Payload: Payload{DocumentID: "doc1", Content: "updated"}},
	}))

	info, err := s.CollectionInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.EntryCount)

	results, err := s.Search(ctx, []float32{0, 1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "updated", results[0].Payload.Content)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
}

func TestMemoryStoreUpsertDimensionMismatchRejectsBatch(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()

	err := s.Upsert(ctx, []*Entry{
		newTestEntry("good", "doc1", []float32{1, 0, 0}),
		newTestEntry("bad", "doc1", []float32{1, 0}),
	})
	assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)

	// 整批拒绝，无部分写入
	info, err := s.CollectionInfo(ctx)
	require.NoError(t, err)
	assert.Zero(t, info.EntryCount)
}

func TestMemoryStoreDeleteByDocument(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []*Entry{
		newTestEntry("a", "doc1", []float32{1, 0}),
		newTestEntry("b", "doc1", []float32{0, 1}),
		newTestEntry("c", "doc2", []float32{1, 1}),
	}))

	deleted, err := s.DeleteByDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	// 幂等，重复删除返回 0
	deleted, err = s.DeleteByDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Zero(t, deleted)

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc2"}, docs)
}

func TestMemoryStoreDeleteUnknownDocument(t *testing.T) {
	s := NewMemoryStore(2)

	deleted, err := s.DeleteByDocument(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestMemoryStoreListDocuments(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, s.Upsert(ctx, []*Entry{
		newTestEntry("a", "doc2", []float32{1, 0}),
		newTestEntry("b", "doc1", []float32{0, 1}),
		newTestEntry("c", "doc2", []float32{1, 1}),
	}))

	docs, err = s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc2", "doc1"}, docs)
}

func TestMemoryStoreCollectionInfo(t *testing.T) {
	s := NewMemoryStore(4)

	info, err := s.CollectionInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.EntryCount)
	assert.Equal(t, 4, info.Dimension)
	assert.Equal(t, MetricCosine, info.Metric)
}

func TestMemoryStoreConcurrentSearchAndUpsert(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []*Entry{
		newTestEntry("seed", "doc0", []float32{1, 0}),
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("w%d", i)
			docID := fmt.Sprintf("doc%d", i%3)
			for j := 0; j < 20; j++ {
				err := s.Upsert(ctx, []*Entry{newTestEntry(id, docID, []float32{1, float32(j)})})
				assert.NoError(t, err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				results, err := s.Search(ctx, []float32{1, 0}, 5, nil)
				assert.NoError(t, err)
				assert.NotEmpty(t, results)
			}
		}()
	}
	wg.Wait()

	info, err := s.CollectionInfo(ctx)
	require.NoError(t, err)
	// seed 加 8 个不重复的 worker ID
	assert.Equal(t, int64(9), info.EntryCount)
}

func TestMemoryStoreSearchCancelledContext(t *testing.T) {
	s := NewMemoryStore(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, []float32{1, 0}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

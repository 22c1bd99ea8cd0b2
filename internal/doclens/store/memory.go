package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/lattice-io/doclens/pkg/errors"
)

// MetricCosine 余弦相似度度量名称。
const MetricCosine = "cosine"

// memEntry 内部条目，seq 记录插入顺序用于同分排序。
type memEntry struct {
	entry *Entry
	seq   uint64
}

// MemoryStore 实现内存中的暴力扫描向量存储。
// 所有操作在 RWMutex 保护下进行，Upsert 整批原子可见。
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]*memEntry
	nextSeq   uint64
}

// NewMemoryStore 创建指定维度的内存存储。
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension: dimension,
		entries:   make(map[string]*memEntry),
	}
}

// Upsert 批量写入条目。先整批校验，任何条目维度不符则整批拒绝，
// 不产生部分写入。已存在的 ID 原地替换并保留原插入序号。
func (s *MemoryStore) Upsert(ctx context.Context, entries []*Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, e := range entries {
		if e.ID == "" {
			return errors.ErrInvalidConfiguration.WithMessage("entry id must not be empty")
		}
		if len(e.Vector) != s.dimension {
			return errors.ErrInvalidConfiguration.WithMessage(
				"vector dimension %d does not match collection dimension %d", len(e.Vector), s.dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		stored := &Entry{ID: e.ID, Vector: vec, Payload: e.Payload}

		if existing, ok := s.entries[e.ID]; ok {
			existing.entry = stored
			continue
		}
		s.entries[e.ID] = &memEntry{entry: stored, seq: s.nextSeq}
		s.nextSeq++
	}
	return nil
}

// Search 暴力扫描全部条目计算余弦相似度。
// 零范数向量（查询或条目）分数记为 0。同分按插入顺序排列。
func (s *MemoryStore) Search(ctx context.Context, vector []float32, k int, filter *SearchFilter) ([]*SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k < 1 {
		return nil, errors.ErrInvalidConfiguration.WithMessage("search k must be >= 1, got %d", k)
	}
	if len(vector) != s.dimension {
		return nil, errors.ErrInvalidConfiguration.WithMessage(
			"query dimension %d does not match collection dimension %d", len(vector), s.dimension)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		me    *memEntry
		score float32
	}

	candidates := make([]scored, 0, len(s.entries))
	for _, me := range s.entries {
		if !filter.Matches(&me.entry.Payload) {
			continue
		}
		candidates = append(candidates, scored{me: me, score: cosine(vector, me.entry.Vector)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].me.seq < candidates[j].me.seq
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]*SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = &SearchResult{
			ID:      c.me.entry.ID,
			Payload: c.me.entry.Payload,
			Score:   c.score,
		}
	}
	return results, nil
}

// DeleteByDocument 删除指定文档的全部条目。未知文档返回 0，不报错。
func (s *MemoryStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, me := range s.entries {
		if me.entry.Payload.DocumentID == documentID {
			delete(s.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

// ListDocuments 返回去重后的文档 ID，按文档首次插入顺序排列。
func (s *MemoryStore) ListDocuments(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	firstSeen := make(map[string]uint64)
	for _, me := range s.entries {
		docID := me.entry.Payload.DocumentID
		if seq, ok := firstSeen[docID]; !ok || me.seq < seq {
			firstSeen[docID] = me.seq
		}
	}

	docs := make([]string, 0, len(firstSeen))
	for docID := range firstSeen {
		docs = append(docs, docID)
	}
	sort.Slice(docs, func(i, j int) bool {
		return firstSeen[docs[i]] < firstSeen[docs[j]]
	})
	return docs, nil
}

// CollectionInfo 获取集合统计信息。
func (s *MemoryStore) CollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return &CollectionInfo{
		EntryCount: int64(len(s.entries)),
		Dimension:  s.dimension,
		Metric:     MetricCosine,
	}, nil
}

// Close 释放内存存储。
func (s *MemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*memEntry)
	return nil
}

// cosine 计算余弦相似度，任一向量范数为零时返回 0。
func cosine(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// 确保 MemoryStore 实现了 VectorStore 接口。
var _ VectorStore = (*MemoryStore)(nil)

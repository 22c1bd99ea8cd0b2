package store

import (
	"context"
)

// Payload 表示条目携带的文档元数据。
type Payload struct {
	// DocumentID 所属文档 ID。
	DocumentID string
	// Filename 文档名称。
	Filename string
	// ChunkIndex 块在文档中的序号。
	ChunkIndex int
	// Content 块文本内容。
	Content string
	// Start 块在原文中的起始偏移（rune）。
	Start int
	// End 块在原文中的结束偏移（rune，开区间）。
	End int
}

// Entry 表示一个带向量的索引条目。
type Entry struct {
	// ID 条目 ID，确定性生成，重复写入即替换。
	ID string
	// Vector 嵌入向量。
	Vector []float32
	// Payload 元数据。
	Payload Payload
}

// SearchResult 表示检索结果。
type SearchResult struct {
	// ID 条目 ID。
	ID string
	// Payload 元数据。
	Payload Payload
	// Score 余弦相似度分数。
	Score float32
}

// CollectionInfo 集合统计信息。
type CollectionInfo struct {
	// EntryCount 条目总数。
	EntryCount int64
	// Dimension 向量维度。
	Dimension int
	// Metric 相似度度量方式。
	Metric string
}

// SearchFilter 检索过滤条件，nil 表示不过滤。
// 过滤在取 top-k 之前生效：候选集先按条件收窄，再取相似度最高的 k 条。
// DocumentID 限定所属文档，支持表达式下推的后端转换为存储侧过滤；
// Predicate 对元数据追加任意判断，无法下推时由实现兜底应用。
type SearchFilter struct {
	DocumentID string
	Predicate  func(*Payload) bool
}

// Matches 判断 payload 是否通过过滤条件。nil 过滤器放行一切。
func (f *SearchFilter) Matches(p *Payload) bool {
	if f == nil {
		return true
	}
	if f.DocumentID != "" && p.DocumentID != f.DocumentID {
		return false
	}
	if f.Predicate != nil && !f.Predicate(p) {
		return false
	}
	return true
}

// VectorStore 定义向量存储接口。
type VectorStore interface {
	// Upsert 批量写入条目，按 ID 替换已存在的条目。
	Upsert(ctx context.Context, entries []*Entry) error

	// Search 余弦相似度搜索，按分数降序返回至多 k 条结果。
	Search(ctx context.Context, vector []float32, k int, filter *SearchFilter) ([]*SearchResult, error)

	// DeleteByDocument 删除指定文档的全部条目，返回删除数量。
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// ListDocuments 返回当前索引的全部文档 ID。
	ListDocuments(ctx context.Context) ([]string, error)

	// CollectionInfo 获取集合统计信息。
	CollectionInfo(ctx context.Context) (*CollectionInfo, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}

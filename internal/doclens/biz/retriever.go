package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/lattice-io/doclens/internal/doclens/store"
	"github.com/lattice-io/doclens/pkg/errors"
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// TopK 默认返回的结果数。
	TopK int
}

// DefaultRetrieverConfig 返回默认检索配置。
func DefaultRetrieverConfig() *RetrieverConfig {
	return &RetrieverConfig{TopK: 5}
}

// Retriever 负责将问题转换为向量并检索相关块。
type Retriever struct {
	store    store.VectorStore
	embedder *Embedder
	config   *RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(vectorStore store.VectorStore, embedder *Embedder, config *RetrieverConfig) *Retriever {
	if config == nil {
		config = DefaultRetrieverConfig()
	}
	return &Retriever{
		store:    vectorStore,
		embedder: embedder,
		config:   config,
	}
}

// Retrieve 检索与问题最相关的 k 个块。
// 索引为空时在嵌入之前直接返回 ErrNoDocumentsIndexed。
// 有条目但无匹配属于正常结果，返回空切片。
func (r *Retriever) Retrieve(ctx context.Context, question string, k int, filter *store.SearchFilter) ([]*store.SearchResult, error) {
	if k < 1 {
		k = r.config.TopK
	}

	info, err := r.store.CollectionInfo(ctx)
	if err != nil {
		return nil, err
	}
	if info.EntryCount == 0 {
		return nil, errors.ErrNoDocumentsIndexed
	}

	vector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	results, err := r.store.Search(ctx, vector, k, filter)
	if err != nil {
		return nil, err
	}

	logger.Debugw("retrieved chunks", "question_length", len(question), "k", k, "hits", len(results))
	return results, nil
}

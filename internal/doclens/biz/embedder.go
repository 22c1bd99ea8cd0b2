package biz

import (
	"context"
	"strings"

	"github.com/lattice-io/doclens/pkg/errors"
	"github.com/lattice-io/doclens/pkg/llm"
	"github.com/lattice-io/doclens/pkg/pool"
)

// EmbedderConfig 嵌入器配置。
type EmbedderConfig struct {
	// Dimension 期望的向量维度。
	Dimension int
	// BatchSize 单次请求嵌入服务的最大文本数。
	BatchSize int
}

// DefaultEmbedderConfig 返回默认嵌入配置。
func DefaultEmbedderConfig() *EmbedderConfig {
	return &EmbedderConfig{
		Dimension: 384,
		BatchSize: 32,
	}
}

// Embedder 包装嵌入供应商，负责空文本旁路、维度校验与批次并行。
type Embedder struct {
	provider llm.EmbeddingProvider
	config   *EmbedderConfig
	workers  *pool.Pool
}

// NewEmbedder 创建嵌入器实例。workers 可为 nil，此时批次串行执行。
func NewEmbedder(provider llm.EmbeddingProvider, config *EmbedderConfig, workers *pool.Pool) *Embedder {
	if config == nil {
		config = DefaultEmbedderConfig()
	}
	return &Embedder{
		provider: provider,
		config:   config,
		workers:  workers,
	}
}

// Dimension 返回配置的向量维度。
func (e *Embedder) Dimension() int {
	return e.config.Dimension
}

// EmbedBatch 嵌入一组文本，结果与输入顺序一一对应。
// 空白文本不调用供应商，直接替换为零向量。
// 供应商返回的向量维度不符时返回 ErrInvalidConfiguration。
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))

	// 空白文本旁路，记录需要真正嵌入的位置
	positions := make([]int, 0, len(texts))
	pending := make([]string, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			result[i] = make([]float32, e.config.Dimension)
			continue
		}
		positions = append(positions, i)
		pending = append(pending, text)
	}

	if len(pending) == 0 {
		return result, nil
	}

	batchSize := e.config.BatchSize
	if batchSize <= 0 {
		batchSize = len(pending)
	}

	type batch struct {
		offset int
		texts  []string
	}
	var batches []batch
	for off := 0; off < len(pending); off += batchSize {
		end := off + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batches = append(batches, batch{offset: off, texts: pending[off:end]})
	}

	vectors := make([][]float32, len(pending))
	embedBatch := func(b batch) error {
		vecs, err := e.provider.Embed(ctx, b.texts)
		if err != nil {
			return errors.ErrEmbeddingUnavailable.WithCause(err)
		}
		if len(vecs) != len(b.texts) {
			return errors.ErrEmbeddingUnavailable.WithMessage(
				"provider returned %d vectors for %d texts", len(vecs), len(b.texts))
		}
		for j, vec := range vecs {
			if len(vec) != e.config.Dimension {
				return errors.ErrInvalidConfiguration.WithMessage(
					"provider returned dimension %d, expected %d", len(vec), e.config.Dimension)
			}
			vectors[b.offset+j] = vec
		}
		return nil
	}

	if e.workers != nil && len(batches) > 1 {
		tasks := make([]func() error, len(batches))
		for i, b := range batches {
			b := b
			tasks[i] = func() error { return embedBatch(b) }
		}
		if err := e.workers.Each(ctx, tasks); err != nil {
			return nil, err
		}
	} else {
		for _, b := range batches {
			if err := embedBatch(b); err != nil {
				return nil, err
			}
		}
	}

	for i, pos := range positions {
		result[pos] = vectors[i]
	}
	return result, nil
}

// EmbedQuery 嵌入单个查询文本。
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

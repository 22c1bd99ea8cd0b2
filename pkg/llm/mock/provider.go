// Package mock 提供确定性的 LLM 供应商测试替身。
// 不依赖任何外部服务，同一输入总是产生同一输出，
// 适用于开发模式和单元测试。
package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/lattice-io/doclens/pkg/llm"
)

const ProviderName = "mock"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// DefaultDimension 默认向量维度，与 all-MiniLM-L6-v2 保持一致。
const DefaultDimension = 384

// Provider 确定性供应商实现。
type Provider struct {
	dimension int
	// failEmbed / failGenerate 用于测试故障路径。
	failEmbed    error
	failGenerate error
}

// NewProvider 从配置 map 创建 mock 供应商。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	dim := DefaultDimension
	if v, ok := configMap["dimension"].(int); ok && v > 0 {
		dim = v
	}
	return New(dim), nil
}

// New 创建指定维度的 mock 供应商。
func New(dimension int) *Provider {
	return &Provider{dimension: dimension}
}

// FailEmbedWith 使后续 Embed 调用返回给定错误。
func (p *Provider) FailEmbedWith(err error) { p.failEmbed = err }

// FailGenerateWith 使后续 Generate 调用返回给定错误。
func (p *Provider) FailGenerateWith(err error) { p.failGenerate = err }

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// Dimension 返回向量维度。
func (p *Provider) Dimension() int {
	return p.dimension
}

// Embed 为多个文本生成确定性向量。按词袋哈希到固定维度，
// 共享词汇的文本向量相近，余弦排序在进程内稳定。
func (p *Provider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if p.failEmbed != nil {
		return nil, p.failEmbed
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = p.embedText(text)
	}
	return embeddings, nil
}

// EmbedSingle 为单个文本生成确定性向量。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// embedText 词袋哈希嵌入。空白文本返回零向量。
func (p *Provider) embedText(text string) []float32 {
	vec := make([]float32, p.dimension)
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return vec
	}

	for _, word := range fields {
		h := fnv.New64a()
		_, _ = h.Write([]byte(word))
		sum := h.Sum64()
		idx := int(sum % uint64(p.dimension))
		// 第二个哈希位决定符号，避免所有份量同号
		if (sum>>63)&1 == 1 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	// L2 归一化
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec
}

// Generate 生成确定性回答：引用上下文前缀。
func (p *Provider) Generate(_ context.Context, prompt string, _ string) (string, error) {
	if p.failGenerate != nil {
		return "", p.failGenerate
	}

	excerpt := prompt
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
	}
	return fmt.Sprintf("[mock answer] based on: %s", excerpt), nil
}

// 确保 Provider 实现了 llm.Provider 接口。
var _ llm.Provider = (*Provider)(nil)

package biz

import (
	"github.com/lattice-io/doclens/pkg/errors"
)

// Chunk 表示切分出的文本块，偏移量按 rune 计。
type Chunk struct {
	// Index 块在文档中的序号，从 0 开始。
	Index int
	// Text 块文本。
	Text string
	// Start 起始偏移（含）。
	Start int
	// End 结束偏移（不含）。
	End int
}

// ChunkerConfig 切分器配置。
type ChunkerConfig struct {
	// ChunkSize 文本块大小（rune 数）。
	ChunkSize int
	// ChunkOverlap 相邻块重叠大小（rune 数）。
	ChunkOverlap int
}

// DefaultChunkerConfig 返回默认切分配置。
func DefaultChunkerConfig() *ChunkerConfig {
	return &ChunkerConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// Chunker 按固定窗口滑动切分文本。纯函数，无内部状态。
type Chunker struct {
	config *ChunkerConfig
}

// NewChunker 创建切分器，配置非法时返回错误。
func NewChunker(config *ChunkerConfig) (*Chunker, error) {
	if config == nil {
		config = DefaultChunkerConfig()
	}
	if config.ChunkSize <= 0 {
		return nil, errors.ErrInvalidConfiguration.WithMessage("chunk size must be > 0, got %d", config.ChunkSize)
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		return nil, errors.ErrInvalidConfiguration.WithMessage(
			"chunk overlap must be in [0, %d), got %d", config.ChunkSize, config.ChunkOverlap)
	}
	return &Chunker{config: config}, nil
}

// SplitText 将文本切分为带偏移量的块序列。
// 窗口每次前进 size-overlap 个 rune，末块允许不足 size。
// 空文本返回零个块。
func (c *Chunker) SplitText(text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	size := c.config.ChunkSize
	step := size - c.config.ChunkOverlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})

		if end == len(runes) {
			break
		}
	}
	return chunks
}

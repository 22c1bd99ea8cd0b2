package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-io/doclens/pkg/errors"
)

func TestNewChunkerInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(&ChunkerConfig{ChunkSize: tt.size, ChunkOverlap: tt.overlap})
			assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
		})
	}
}

func TestChunkerSplitEmptyText(t *testing.T) {
	c, err := NewChunker(DefaultChunkerConfig())
	require.NoError(t, err)

	assert.Empty(t, c.SplitText(""))
}

func TestChunkerSplitShortText(t *testing.T) {
	c, err := NewChunker(&ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})
	require.NoError(t, err)

	chunks := c.SplitText("hello world")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 11, chunks[0].End)
}

func TestChunkerSlidingWindowOffsets(t *testing.T) {
	// 2500 字符，块大小 1000，重叠 200，窗口每次前进 800
	c, err := NewChunker(&ChunkerConfig{ChunkSize: 1000, ChunkOverlap: 200})
	require.NoError(t, err)

	text := strings.Repeat("a", 2500)
	chunks := c.SplitText(text)
	require.Len(t, chunks, 3)

	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 1000, chunks[0].End)
	assert.Equal(t, 800, chunks[1].Start)
	assert.Equal(t, 1800, chunks[1].End)
	assert.Equal(t, 1600, chunks[2].Start)
	assert.Equal(t, 2500, chunks[2].End)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, chunk.End-chunk.Start, len([]rune(chunk.Text)))
	}
}

func TestChunkerChunkCount(t *testing.T) {
	// 块数符合 ceil((len-overlap)/(size-overlap))
	tests := []struct {
		length  int
		size    int
		overlap int
		want    int
	}{
		{2500, 1000, 200, 3},
		{1000, 1000, 200, 1},
		{1001, 1000, 200, 2},
		{500, 1000, 200, 1},
		{800, 100, 0, 8},
		{801, 100, 0, 9},
	}

	for _, tt := range tests {
		c, err := NewChunker(&ChunkerConfig{ChunkSize: tt.size, ChunkOverlap: tt.overlap})
		require.NoError(t, err)

		chunks := c.SplitText(strings.Repeat("x", tt.length))
		assert.Len(t, chunks, tt.want, "length=%d size=%d overlap=%d", tt.length, tt.size, tt.overlap)
	}
}

func TestChunkerOffsetsAreRuneBased(t *testing.T) {
	c, err := NewChunker(&ChunkerConfig{ChunkSize: 4, ChunkOverlap: 1})
	require.NoError(t, err)

	// 多字节字符按 rune 计数
	chunks := c.SplitText("你好世界朋友们")
	require.Len(t, chunks, 2)

	assert.Equal(t, "你好世界", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 4, chunks[0].End)
	assert.Equal(t, "界朋友们", chunks[1].Text)
	assert.Equal(t, 3, chunks[1].Start)
	assert.Equal(t, 7, chunks[1].End)
}

func TestChunkerDeterministic(t *testing.T) {
	c, err := NewChunker(&ChunkerConfig{ChunkSize: 50, ChunkOverlap: 10})
	require.NoError(t, err)

	text := strings.Repeat("deterministic ", 20)
	first := c.SplitText(text)
	second := c.SplitText(text)
	assert.Equal(t, first, second)
}

func TestChunkerCoversFullText(t *testing.T) {
	c, err := NewChunker(&ChunkerConfig{ChunkSize: 100, ChunkOverlap: 30})
	require.NoError(t, err)

	text := strings.Repeat("coverage ", 100)
	chunks := c.SplitText(text)
	require.NotEmpty(t, chunks)

	// 首块从 0 开始，末块到文本结尾，相邻块重叠正好 overlap
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len([]rune(text)), chunks[len(chunks)-1].End)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].End-30, chunks[i].Start)
	}
}

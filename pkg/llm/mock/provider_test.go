package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedDeterministic(t *testing.T) {
	p := New(DefaultDimension)
	ctx := context.Background()

	v1, err := p.EmbedSingle(ctx, "machine learning basics")
	require.NoError(t, err)
	v2, err := p.EmbedSingle(ctx, "machine learning basics")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, DefaultDimension)
}

func TestEmbedEmptyTextReturnsZeroVector(t *testing.T) {
	p := New(DefaultDimension)

	vec, err := p.EmbedSingle(context.Background(), "   ")
	require.NoError(t, err)

	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedUnitNorm(t *testing.T) {
	p := New(DefaultDimension)

	vec, err := p.EmbedSingle(context.Background(), "the quick brown fox")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbedSharedWordsAreCloser(t *testing.T) {
	p := New(DefaultDimension)
	ctx := context.Background()

	base, err := p.EmbedSingle(ctx, "redis cache eviction policy")
	require.NoError(t, err)
	near, err := p.EmbedSingle(ctx, "redis cache memory policy")
	require.NoError(t, err)
	far, err := p.EmbedSingle(ctx, "quantum entanglement experiment")
	require.NoError(t, err)

	assert.Greater(t, dot(base, near), dot(base, far))
}

func TestEmbedBatch(t *testing.T) {
	p := New(DefaultDimension)

	vecs, err := p.Embed(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
}

func TestGenerate(t *testing.T) {
	p := New(DefaultDimension)

	answer, err := p.Generate(context.Background(), "What is Go?", "")
	require.NoError(t, err)
	assert.Contains(t, answer, "[mock answer]")
	assert.Contains(t, answer, "What is Go?")
}

func TestFailureInjection(t *testing.T) {
	p := New(DefaultDimension)
	boom := errors.New("boom")

	p.FailEmbedWith(boom)
	_, err := p.EmbedSingle(context.Background(), "x")
	assert.ErrorIs(t, err, boom)

	p.FailGenerateWith(boom)
	_, err = p.Generate(context.Background(), "x", "")
	assert.ErrorIs(t, err, boom)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

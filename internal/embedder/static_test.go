package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticEmbedDeterministic(t *testing.T) {
	ctx := context.Background()
	s := NewStatic()

	a, err := s.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)
	b, err := s.Embed(ctx, "the quick brown fox")
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestStaticEmbedUnitNorm(t *testing.T) {
	ctx := context.Background()
	s := NewStatic()

	emb, err := s.Embed(ctx, "hybrid vector search over embeddings")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range emb {
		sumSquares += float64(v) * float64(v)
	}
	require.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-4)
}

func TestStaticEmbedEmptyText(t *testing.T) {
	ctx := context.Background()
	s := NewStatic()

	emb, err := s.Embed(ctx, "   ")
	require.NoError(t, err)
	require.Len(t, emb, StaticDimensions)
	for _, v := range emb {
		require.Zero(t, v)
	}
}

func TestStaticEmbedBatchMatchesIndividual(t *testing.T) {
	ctx := context.Background()
	s := NewStatic()

	texts := []string{"alpha beta", "gamma delta epsilon"}
	batch, err := s.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	for i, text := range texts {
		single, err := s.Embed(ctx, text)
		require.NoError(t, err)
		require.Equal(t, single, batch[i])
	}
}

func TestStaticDimensions(t *testing.T) {
	s := NewStatic()
	dims, err := s.Dimensions(context.Background())
	require.NoError(t, err)
	require.Equal(t, StaticDimensions, dims)
}

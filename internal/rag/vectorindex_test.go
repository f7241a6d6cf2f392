package rag

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVectorIndex(t *testing.T) {
	tests := []struct {
		name       string
		embeddings [][]float32
		texts      []string
		expectErr  bool
	}{
		{
			name:       "valid corpus",
			embeddings: [][]float32{{1, 0}, {0, 1}},
			texts:      []string{"a", "b"},
		},
		{
			name:       "empty corpus",
			embeddings: nil,
			texts:      nil,
		},
		{
			name:       "length mismatch",
			embeddings: [][]float32{{1, 0}},
			texts:      []string{"a", "b"},
			expectErr:  true,
		},
		{
			name:       "dimension mismatch",
			embeddings: [][]float32{{1, 0}, {0, 1, 0}},
			texts:      []string{"a", "b"},
			expectErr:  true,
		},
		{
			name:       "zero-norm row",
			embeddings: [][]float32{{1, 0}, {0, 0}},
			texts:      []string{"a", "b"},
			expectErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, err := NewVectorIndex("test", tt.embeddings, tt.texts)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.texts), index.Len())
		})
	}
}

func TestNewVectorIndexDoesNotMutateInput(t *testing.T) {
	embeddings := [][]float32{{3, 4}}
	_, err := NewVectorIndex("test", embeddings, []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, []float32{3, 4}, embeddings[0], "source matrix must stay un-normalized")
}

func TestSearchRanking(t *testing.T) {
	// Rows are unit vectors whose dot product with the query (1,0) is the
	// first coordinate, so similarities are known exactly.
	index, err := NewVectorIndex("test", [][]float32{
		{0.2, float32(math.Sqrt(1 - 0.04))},
		{0.9, float32(math.Sqrt(1 - 0.81))},
		{0.5, float32(math.Sqrt(1 - 0.25))},
	}, []string{"low", "high", "mid"})
	require.NoError(t, err)

	query := []float32{1, 0}

	t.Run("top-k descending", func(t *testing.T) {
		results, err := index.Search(query, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "high", results[0].Text)
		assert.Equal(t, "mid", results[1].Text)
	})

	t.Run("k larger than corpus returns all rows", func(t *testing.T) {
		results, err := index.Search(query, 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, []string{"high", "mid", "low"}, []string{results[0].Text, results[1].Text, results[2].Text})
	})

	t.Run("empty corpus returns empty result", func(t *testing.T) {
		empty, err := NewVectorIndex("empty", nil, nil)
		require.NoError(t, err)
		results, err := empty.Search(query, 3)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("query dimension mismatch is an error", func(t *testing.T) {
		_, err := index.Search([]float32{1, 0, 0}, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimension")
	})
}

func TestSearchTieBreakIsStable(t *testing.T) {
	// All rows identical: every similarity ties, so results must come back
	// in ascending corpus order, on every call.
	index, err := NewVectorIndex("test", [][]float32{
		{1, 0}, {1, 0}, {1, 0}, {1, 0},
	}, []string{"first", "second", "third", "fourth"})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		results, err := index.Search([]float32{1, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, 0, results[0].Index)
		assert.Equal(t, 1, results[1].Index)
		assert.Equal(t, 2, results[2].Index)
	}
}

func TestNormalize(t *testing.T) {
	t.Run("produces a unit vector", func(t *testing.T) {
		out, err := Normalize([]float32{3, 4})
		require.NoError(t, err)
		assert.InDelta(t, 0.6, out[0], 1e-6)
		assert.InDelta(t, 0.8, out[1], 1e-6)
	})

	t.Run("zero vector is an error", func(t *testing.T) {
		_, err := Normalize([]float32{0, 0, 0})
		assert.Error(t, err)
	})

	t.Run("input is not mutated", func(t *testing.T) {
		in := []float32{3, 4}
		_, err := Normalize(in)
		require.NoError(t, err)
		assert.Equal(t, []float32{3, 4}, in)
	})
}

package rag

import (
	"fmt"
	"math"
	"sort"
)

// Entry is one retrieved snippet together with its original corpus position.
type Entry struct {
	Index int
	Text  string
}

// VectorIndex holds one corpus: a matrix of L2-normalized embedding vectors
// and the parallel slice of text snippets. Row i of the matrix embeds text i.
// The index is read-only after construction and safe for concurrent searches.
type VectorIndex struct {
	name    string
	vectors [][]float32
	texts   []string
}

// NewVectorIndex normalizes a copy of each embedding row and pairs it with its
// snippet. The caller's matrix is left untouched. A zero-norm row is rejected:
// it cannot participate in cosine ranking.
func NewVectorIndex(name string, embeddings [][]float32, texts []string) (*VectorIndex, error) {
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("corpus %q: %d embeddings but %d texts", name, len(embeddings), len(texts))
	}

	vectors := make([][]float32, len(embeddings))
	for i, row := range embeddings {
		if len(embeddings) > 0 && len(row) != len(embeddings[0]) {
			return nil, fmt.Errorf("corpus %q: row %d has dimension %d, want %d", name, i, len(row), len(embeddings[0]))
		}
		normalized, err := Normalize(row)
		if err != nil {
			return nil, fmt.Errorf("corpus %q: row %d: %w", name, i, err)
		}
		vectors[i] = normalized
	}

	return &VectorIndex{name: name, vectors: vectors, texts: texts}, nil
}

func (ix *VectorIndex) Name() string { return ix.name }

func (ix *VectorIndex) Len() int { return len(ix.vectors) }

// Search ranks every row against the already-normalized query vector by dot
// product (cosine similarity for unit vectors) and returns the k best entries
// in descending similarity. Equal scores keep ascending corpus order, so
// repeated searches over the same corpus are reproducible. An empty corpus
// yields an empty result; a query whose dimension differs from the corpus
// rows is an error, never an empty result.
func (ix *VectorIndex) Search(query []float32, k int) ([]Entry, error) {
	if len(ix.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != len(ix.vectors[0]) {
		return nil, fmt.Errorf("corpus %q: query has dimension %d, want %d", ix.name, len(query), len(ix.vectors[0]))
	}

	type scored struct {
		index      int
		similarity float32
	}

	ranked := make([]scored, len(ix.vectors))
	for i, row := range ix.vectors {
		ranked[i] = scored{index: i, similarity: dotProduct(query, row)}
	}

	// SliceStable keeps ties in ascending original-index order because ranked
	// is built in corpus order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].similarity > ranked[j].similarity
	})

	if k > len(ranked) {
		k = len(ranked)
	}

	entries := make([]Entry, k)
	for i := 0; i < k; i++ {
		entries[i] = Entry{Index: ranked[i].index, Text: ix.texts[ranked[i].index]}
	}
	return entries, nil
}

// Normalize returns a fresh unit-norm copy of vec. A zero-norm input is an
// error: a zero vector must never silently pass as normalized.
func Normalize(vec []float32) ([]float32, error) {
	norm := l2Norm(vec)
	if norm == 0 {
		return nil, fmt.Errorf("zero-norm vector cannot be normalized")
	}

	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out, nil
}

func dotProduct(a, b []float32) float32 {
	var product float32
	for i := range a {
		product += a[i] * b[i]
	}
	return product
}

func l2Norm(vec []float32) float32 {
	var sumOfSquares float64
	for _, v := range vec {
		sumOfSquares += float64(v) * float64(v)
	}
	return float32(math.Sqrt(sumOfSquares))
}

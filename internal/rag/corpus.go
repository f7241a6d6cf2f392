package rag

import (
	"encoding/json"
	"fmt"
	"os"
)

// corpusFile is the on-disk corpus format produced by the offline embedding
// jobs: two parallel arrays, row i of embeddings belonging to texts[i].
type corpusFile struct {
	Embeddings [][]float32 `json:"embeddings"`
	Texts      []string    `json:"texts"`
}

// LoadCorpus reads a corpus file and builds its in-memory index. The file is
// read once at startup; the resulting index is never mutated.
func LoadCorpus(name, path string) (*VectorIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file %s: %w", path, err)
	}

	var file corpusFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse corpus file %s: %w", path, err)
	}

	index, err := NewVectorIndex(name, file.Embeddings, file.Texts)
	if err != nil {
		return nil, fmt.Errorf("corpus file %s: %w", path, err)
	}
	return index, nil
}

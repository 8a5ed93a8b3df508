package types

import (
	"context"

	"policyqa/internal/models"
)

// Core interfaces. The pipeline engine consumes these so the external
// collaborators (PDF parsing, chunking, embedding, completion) can be
// swapped or faked in tests.

// Extractor turns raw document bytes into plain text.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// Chunker splits full text into ordered overlapping chunks.
type Chunker interface {
	Chunk(text string) []string
}

// Embedder converts a batch of texts into one vector per text, in order.
// It is used identically for document chunks and for the query string.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Analyst asks the completion provider for a structured claim decision over
// the query and the retrieved clause texts.
type Analyst interface {
	Analyze(ctx context.Context, query string, clauses []string, filename string) (*models.AnalysisResult, error)
}

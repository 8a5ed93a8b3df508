package store

import (
	"errors"
	"math"
	"sort"
	"sync"

	"policyqa/internal/models"
)

// State tracks how far the active document has moved through the pipeline.
type State int

const (
	// StateEmpty means no document has been ingested.
	StateEmpty State = iota
	// StateChunked means text has been extracted and chunked but not embedded.
	StateChunked
	// StateEmbedded means every chunk has an embedding and queries are valid.
	StateEmbedded
)

func (s State) String() string {
	switch s {
	case StateChunked:
		return "chunked"
	case StateEmbedded:
		return "embedded"
	default:
		return "empty"
	}
}

var (
	// ErrNoDocument is returned when an operation needs an ingested document.
	ErrNoDocument = errors.New("no document has been ingested")
	// ErrNotEmbedded is returned when ranking is attempted before embedding.
	ErrNotEmbedded = errors.New("document has not been embedded")
	// ErrEmbeddingMismatch is returned when the embedding count does not
	// match the chunk count.
	ErrEmbeddingMismatch = errors.New("embedding count does not match chunk count")
	// ErrDocumentReplaced is returned when embeddings were computed against
	// a chunk snapshot that a newer ingestion has since replaced.
	ErrDocumentReplaced = errors.New("document was replaced since the chunk snapshot")
)

// DocumentStore holds the single active document. A new ingestion replaces
// the prior document wholesale, so embeddings always belong to the current
// chunk set: SetEmbeddings only accepts vectors computed against the
// generation it was handed by Snapshot, and RankChunks resolves ranking
// indices to chunk texts under one lock so a concurrent ingestion cannot
// invalidate a query mid-flight.
type DocumentStore struct {
	mu         sync.RWMutex
	state      State
	generation uint64
	doc        models.Document
}

func New() *DocumentStore {
	return &DocumentStore{}
}

// SetDocument replaces the active document with freshly chunked text and
// discards any prior embeddings.
func (s *DocumentStore) SetDocument(filename, fullText string, chunks []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = models.Document{
		Filename: filename,
		FullText: fullText,
		Chunks:   append([]string(nil), chunks...),
	}
	s.state = StateChunked
	s.generation++
}

// Snapshot returns a copy of the active document's chunks together with the
// generation token identifying the document they belong to.
func (s *DocumentStore) Snapshot() ([]string, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == StateEmpty {
		return nil, 0, ErrNoDocument
	}
	return append([]string(nil), s.doc.Chunks...), s.generation, nil
}

// SetEmbeddings stores one vector per chunk, in chunk order, and moves the
// document to StateEmbedded. The generation must match the Snapshot the
// vectors were computed from; vectors for a replaced document are rejected.
func (s *DocumentStore) SetEmbeddings(generation uint64, vectors [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEmpty {
		return ErrNoDocument
	}
	if generation != s.generation {
		return ErrDocumentReplaced
	}
	if len(vectors) != len(s.doc.Chunks) {
		return ErrEmbeddingMismatch
	}
	s.doc.Embeddings = vectors
	s.state = StateEmbedded
	return nil
}

// State returns the current lifecycle state.
func (s *DocumentStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Filename returns the active document's filename, empty when none.
func (s *DocumentStore) Filename() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Filename
}

// NumChunks returns the number of chunks in the active document.
func (s *DocumentStore) NumChunks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc.Chunks)
}

// Rank scores every chunk embedding against the query vector and returns
// chunk indices in descending similarity order, at most topK of them. Ties
// keep original chunk order. It fails with ErrNotEmbedded until the
// embedding step has run.
func (s *DocumentStore) Rank(query []float32, topK int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateEmbedded || len(s.doc.Embeddings) == 0 {
		return nil, ErrNotEmbedded
	}
	return s.rankLocked(query, topK), nil
}

// RankChunks ranks like Rank but resolves the selected indices to chunk
// texts, returning them with the document's filename. Ranking and
// resolution happen under the same lock, so the texts always belong to the
// document the indices were computed against.
func (s *DocumentStore) RankChunks(query []float32, topK int) ([]string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateEmbedded || len(s.doc.Embeddings) == 0 {
		return nil, "", ErrNotEmbedded
	}

	indices := s.rankLocked(query, topK)
	chunks := make([]string, 0, len(indices))
	for _, idx := range indices {
		chunks = append(chunks, s.doc.Chunks[idx])
	}
	return chunks, s.doc.Filename, nil
}

// rankLocked assumes the caller holds at least a read lock.
func (s *DocumentStore) rankLocked(query []float32, topK int) []int {
	scores := make([]float64, len(s.doc.Embeddings))
	for i, emb := range s.doc.Embeddings {
		scores[i] = Cosine(query, emb)
	}

	indices := make([]int, len(scores))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return scores[indices[a]] > scores[indices[b]]
	})

	if topK > len(indices) {
		topK = len(indices)
	}
	return indices[:topK]
}

// Cosine returns the cosine similarity of a and b. When either vector has
// zero norm the result is exactly 0.0 rather than a division by zero.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

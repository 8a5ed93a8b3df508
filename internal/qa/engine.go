package qa

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"policyqa/internal/models"
	"policyqa/internal/store"
	"policyqa/internal/types"
	"policyqa/pkg/logging"
)

const DefaultTopK = 5

// EngineConfig represents the configuration for the Q&A engine.
type EngineConfig struct {
	DefaultTopK     int
	ProviderTimeout time.Duration
	// RateLimit caps outbound provider calls per second.
	RateLimit float64
}

// Engine drives the pipeline over the single active document: ingest PDF
// bytes, embed the chunks, answer queries. The document store is injected
// rather than global, so its lifetime is owned by the caller.
type Engine struct {
	config    EngineConfig
	store     *store.DocumentStore
	extractor types.Extractor
	chunker   types.Chunker
	embedder  types.Embedder
	analyst   types.Analyst
	limiter   *rate.Limiter
	logger    *logging.Logger
}

func NewEngine(config EngineConfig, docStore *store.DocumentStore, extractor types.Extractor,
	chunker types.Chunker, embedder types.Embedder, analyst types.Analyst, logger *logging.Logger) *Engine {

	if config.DefaultTopK == 0 {
		config.DefaultTopK = DefaultTopK
	}
	if config.ProviderTimeout == 0 {
		config.ProviderTimeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2.0
	}
	if logger == nil {
		logger = logging.NewLogger("info")
	}

	return &Engine{
		config:    config,
		store:     docStore,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		analyst:   analyst,
		limiter:   rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:    logger,
	}
}

// IngestResult reports the outcome of a document ingestion.
type IngestResult struct {
	Message   string `json:"message"`
	Filename  string `json:"filename"`
	NumChunks int    `json:"num_chunks"`
}

// EmbedResult reports the outcome of an embedding run.
type EmbedResult struct {
	Message         string `json:"message"`
	NumEmbeddings   int    `json:"num_embeddings,omitempty"`
	AlreadyEmbedded bool   `json:"-"`
}

// Status describes the current lifecycle state of the active document.
type Status struct {
	State     string `json:"state"`
	Filename  string `json:"filename,omitempty"`
	NumChunks int    `json:"num_chunks"`
}

// Ingest replaces the active document with the uploaded PDF. Only .pdf files
// are accepted; the extension check runs before any extraction. Any prior
// embeddings are discarded.
func (e *Engine) Ingest(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return nil, inputFormatError("only .pdf files are supported")
	}

	fullText, err := e.extractor.Extract(data)
	if err != nil {
		return nil, inputFormatError("could not extract any text from the PDF: %v", err)
	}

	chunks := e.chunker.Chunk(fullText)
	if len(chunks) == 0 {
		return nil, inputFormatError("could not extract any text from the PDF")
	}

	e.store.SetDocument(filename, fullText, chunks)

	e.logger.Info("document ingested", "filename", filename, "num_chunks", len(chunks))

	return &IngestResult{
		Message:   fmt.Sprintf("Successfully uploaded and processed '%s'", filename),
		Filename:  filename,
		NumChunks: len(chunks),
	}, nil
}

// Embed creates one embedding per chunk in a single batched provider call,
// in chunk order. Re-invoking while already embedded is a no-op that
// reports the already-embedded status without calling the provider.
func (e *Engine) Embed(ctx context.Context) (*EmbedResult, error) {
	switch e.store.State() {
	case store.StateEmpty:
		return nil, notReadyError("no document has been uploaded")
	case store.StateEmbedded:
		return &EmbedResult{
			Message:         "Embeddings have already been created for the current document.",
			AlreadyEmbedded: true,
		}, nil
	}

	chunks, generation, err := e.store.Snapshot()
	if err != nil {
		return nil, notReadyError("no document has been uploaded")
	}

	vectors, err := e.callEmbedder(ctx, chunks)
	if err != nil {
		return nil, err
	}

	// The generation check rejects vectors computed for a document that a
	// concurrent ingestion has since replaced.
	if err := e.store.SetEmbeddings(generation, vectors); err != nil {
		if errors.Is(err, store.ErrDocumentReplaced) {
			return nil, notReadyError("document was replaced while embedding; embed the new document")
		}
		return nil, &Error{Kind: KindInternal, Message: "failed to store embeddings", Err: err}
	}

	e.logger.Info("document embedded", "filename", e.store.Filename(), "num_embeddings", len(vectors))

	return &EmbedResult{
		Message:       fmt.Sprintf("Successfully created %d embeddings for '%s'.", len(vectors), e.store.Filename()),
		NumEmbeddings: len(vectors),
	}, nil
}

// Query answers a question about the embedded document: embed the query,
// rank the chunks by cosine similarity, and ask the analyst for a
// structured decision over the top-k clause texts.
func (e *Engine) Query(ctx context.Context, query models.Query) (*models.AnalysisResult, error) {
	if e.store.State() != store.StateEmbedded {
		return nil, notReadyError("no embeddings found; upload and embed a document first")
	}
	if strings.TrimSpace(query.Text) == "" {
		return nil, inputFormatError("query text is required")
	}

	topK := query.TopK
	if topK <= 0 {
		topK = e.config.DefaultTopK
	}

	vectors, err := e.callEmbedder(ctx, []string{query.Text})
	if err != nil {
		return nil, err
	}

	// Ranking and chunk resolution happen under one store lock so a
	// concurrent re-ingestion cannot pair old indices with new chunks.
	clauses, filename, err := e.store.RankChunks(vectors[0], topK)
	if err != nil {
		return nil, notReadyError("no embeddings found; upload and embed a document first")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindInternal, Message: "rate limiter wait failed", Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.ProviderTimeout)
	defer cancel()

	result, err := e.analyst.Analyze(callCtx, query.Text, clauses, filename)
	if err != nil {
		return nil, providerError(err, "claim analysis failed")
	}

	e.logger.Info("query answered", "decision", result.Decision, "top_k", topK)

	return result, nil
}

// Status reports the lifecycle state of the active document.
func (e *Engine) Status() Status {
	return Status{
		State:     e.store.State().String(),
		Filename:  e.store.Filename(),
		NumChunks: e.store.NumChunks(),
	}
}

func (e *Engine) callEmbedder(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindInternal, Message: "rate limiter wait failed", Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.ProviderTimeout)
	defer cancel()

	vectors, err := e.embedder.CreateEmbedding(callCtx, texts)
	if err != nil {
		return nil, providerError(err, "embedding failed")
	}
	return vectors, nil
}

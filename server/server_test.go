package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyqa/internal/models"
	"policyqa/internal/qa"
	"policyqa/internal/store"
	"policyqa/pkg/processor"
	"policyqa/server"
)

type stubExtractor struct{ text string }

func (s stubExtractor) Extract(data []byte) (string, error) { return s.text, nil }

type stubEmbedder struct{}

func (stubEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type stubAnalyst struct{}

func (stubAnalyst) Analyze(ctx context.Context, query string, clauses []string, filename string) (*models.AnalysisResult, error) {
	return &models.AnalysisResult{
		Decision:      models.DecisionApproved,
		Amount:        "As per policy",
		Justification: "Covered per clause 5.1.",
		MatchedClauses: []models.MatchedClause{
			{ClauseID: "Clause 5.1", Text: clauses[0], Document: filename},
		},
		Highlights: []string{},
	}, nil
}

func newTestHandlerWithConfig(t *testing.T, config server.Config) http.Handler {
	t.Helper()

	chunker := processor.NewWithConfig(processor.ProcessorConfig{})
	engine := qa.NewEngine(qa.EngineConfig{RateLimit: 10000}, store.New(),
		stubExtractor{text: "flood damage covered up to $1000"}, &chunker,
		stubEmbedder{}, stubAnalyst{}, nil)

	return server.New(config, engine, nil).Handler()
}

func newTestHandler(t *testing.T) http.Handler {
	return newTestHandlerWithConfig(t, server.Config{})
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestUpload_NonPDFRejected(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, "notes.txt", []byte("plain text")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ".pdf")
}

func TestQuery_BeforeUploadNotFound(t *testing.T) {
	handler := newTestHandler(t)

	body := strings.NewReader(`{"query": "is flood damage covered?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPipeline_UploadEmbedQuery(t *testing.T) {
	handler := newTestHandler(t)

	// upload
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, "policy.pdf", []byte("%PDF-1.4")))
	require.Equal(t, http.StatusOK, rec.Code)

	var uploadResp qa.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploadResp))
	assert.Equal(t, "policy.pdf", uploadResp.Filename)
	assert.Equal(t, 1, uploadResp.NumChunks)

	// query before embedding is rejected
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader(`{"query": "flood damage"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// embed
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/documents/embed", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// second embed reports already-embedded
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/documents/embed", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already been created")

	// status
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "embedded")

	// query
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader(`{"query": "is flood damage covered?", "top_k": 1}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.DecisionApproved, result.Decision)
	require.Len(t, result.MatchedClauses, 1)
	assert.Equal(t, "policy.pdf", result.MatchedClauses[0].Document)
	assert.Empty(t, result.Highlights)
}

func TestQuery_InvalidBody(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader("not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_OversizedBodyRejected(t *testing.T) {
	handler := newTestHandlerWithConfig(t, server.Config{MaxFileSize: 1024})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "policy.pdf")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 4096))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	// hide the content length so the limit is enforced while reading the
	// body, not by the header check
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", io.NopCloser(&body))
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload limit")
}

func TestUpload_EmptyFile(t *testing.T) {
	handler := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, uploadRequest(t, "policy.pdf", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty")
}

package models

// Decision is the outcome of a claim analysis.
type Decision string

const (
	DecisionApproved       Decision = "approved"
	DecisionRejected       Decision = "rejected"
	DecisionMoreInfoNeeded Decision = "more_info_needed"
)

// Valid reports whether d is one of the known decision values.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApproved, DecisionRejected, DecisionMoreInfoNeeded:
		return true
	}
	return false
}

// Document is the single active policy document. Embeddings is empty until
// the embedding step has run, after which it is parallel to Chunks.
type Document struct {
	Filename   string
	FullText   string
	Chunks     []string
	Embeddings [][]float32
}

// Query is a question about the active document.
type Query struct {
	Text string `json:"query"`
	TopK int    `json:"top_k"`
}

// MatchedClause is a policy clause cited by the analyst.
type MatchedClause struct {
	ClauseID string `json:"clause_id"`
	Text     string `json:"text"`
	Document string `json:"document"`
}

// AnalysisResult is the structured claim decision produced per query.
// Highlights is always an empty list in the current schema.
type AnalysisResult struct {
	Decision       Decision        `json:"decision"`
	Amount         string          `json:"amount"`
	Justification  string          `json:"justification"`
	MatchedClauses []MatchedClause `json:"matched_clauses"`
	Highlights     []string        `json:"highlights"`
}

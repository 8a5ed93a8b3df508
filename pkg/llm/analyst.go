package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"policyqa/internal/models"
)

const defaultSystemTemplate = "You are an expert insurance claim analyst that provides answers in JSON format."

// clauseSeparator is the visible delimiter between retrieved clause texts in
// the prompt.
const clauseSeparator = "\n\n---\n\n"

// AnalystConfig represents the configuration for the claim analyst.
type AnalystConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	BaseURL        string // OpenAI-compatible server URL, empty for the default
	APIKey         string
	SystemTemplate string
}

// Analyst asks a chat-completion model to decide a claim given the query and
// the retrieved policy clauses, in strict JSON mode.
type Analyst struct {
	config AnalystConfig
	llm    llms.Model
}

// NewAnalystWithConfig creates a new Analyst with the given configuration.
func NewAnalystWithConfig(config AnalystConfig) (*Analyst, error) {
	if config.Model == "" {
		config.Model = "gpt-4-turbo"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = defaultSystemTemplate
	}

	opts := []openai.Option{
		openai.WithModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize completion provider: %w", err)
	}

	return &Analyst{
		config: config,
		llm:    llm,
	}, nil
}

// Analyze sends the query plus the retrieved clause texts to the completion
// provider and returns the parsed, schema-validated decision.
func (a *Analyst) Analyze(ctx context.Context, query string, clauses []string, filename string) (*models.AnalysisResult, error) {
	prompt := buildPrompt(query, clauses, filename)

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, a.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	response, err := a.llm.GenerateContent(ctx, content,
		llms.WithJSONMode(),
		llms.WithTemperature(a.config.Temperature),
		llms.WithMaxTokens(a.config.MaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	if response == nil || len(response.Choices) == 0 {
		return nil, fmt.Errorf("completion provider returned no choices")
	}

	return ParseAnalysis(response.Choices[0].Content, filename)
}

// ParseAnalysis parses the provider's raw output as strict JSON and
// validates it against the analysis schema. The provider is an untrusted
// black box, so nothing is used unvalidated: the decision must be a known
// value, every matched clause carries the stored filename, and highlights
// is always an empty list.
func ParseAnalysis(raw, filename string) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("model did not return valid JSON: %w", err)
	}

	if !result.Decision.Valid() {
		return nil, fmt.Errorf("model returned unknown decision %q", result.Decision)
	}

	if result.MatchedClauses == nil {
		result.MatchedClauses = []models.MatchedClause{}
	}
	for i := range result.MatchedClauses {
		result.MatchedClauses[i].Document = filename
	}
	result.Highlights = []string{}

	return &result, nil
}

func buildPrompt(query string, clauses []string, filename string) string {
	contextBlock := strings.Join(clauses, clauseSeparator)

	return fmt.Sprintf(`You are an expert insurance claim analyst. Your task is to analyze a user's query based on the provided policy document excerpts and determine if the claim should be approved.

**User Query:** %q

**Relevant Policy Clauses:**
---
%s
---

**Instructions:**
1.  Carefully read the user's query and the relevant policy clauses.
2.  Reason through the clauses to make a decision: "approved", "rejected", or "more_info_needed".
3.  If approved, determine the payout amount if possible from the context. If not, state "As per policy".
4.  Write a clear, concise justification for your decision, referencing the clauses.
5.  Identify the specific clauses that match the query.
6.  You MUST respond with a single, valid JSON object and nothing else. Do not include any text before or after the JSON.
7.  The JSON object must conform to the following schema, including the 'highlights' field which is currently an empty list:
    {
      "decision": "approved" | "rejected" | "more_info_needed",
      "amount": "string",
      "justification": "string",
      "matched_clauses": [
        {
          "clause_id": "string (e.g., 'Clause 5.1' or 'N/A' if not applicable)",
          "text": "string",
          "document": %q
        }
      ],
      "highlights": []
    }

Now, provide your analysis as a JSON object.`, query, contextBlock, filename)
}

package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"policyqa/pkg/llm"
)

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   "text-embedding-3-small",
		BaseURL: "http://localhost:8000/v1",
		APIKey:  "test",
	})

	assert.NoError(t, err)
	assert.NotNil(t, emb)
}

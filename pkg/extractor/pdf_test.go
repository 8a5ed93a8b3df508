package extractor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"policyqa/pkg/extractor"
)

func TestExtract_InvalidBytes(t *testing.T) {
	e := extractor.NewPDFExtractor()

	_, err := e.Extract([]byte("this is not a pdf"))
	assert.Error(t, err)
}

func TestExtract_EmptyInput(t *testing.T) {
	e := extractor.NewPDFExtractor()

	_, err := e.Extract(nil)
	assert.Error(t, err)
}

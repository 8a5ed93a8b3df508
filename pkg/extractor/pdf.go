package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor pulls plain text out of PDF bytes, page by page.
type PDFExtractor struct{}

func NewPDFExtractor() PDFExtractor {
	return PDFExtractor{}
}

// Extract returns the document's per-page text concatenated with newline
// separators. A document with no extractable text is an error.
func (PDFExtractor) Extract(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	numPages := reader.NumPage()

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages, keep the rest.
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	extracted := strings.TrimSpace(textBuilder.String())
	if extracted == "" {
		return "", fmt.Errorf("no text could be extracted from PDF")
	}

	return extracted, nil
}

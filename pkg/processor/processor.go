package processor

import (
	"strings"
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Processor splits extracted policy text into overlapping character chunks,
// the unit of retrieval.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 500
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 50
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 10
	}

	return Processor{
		config: config,
	}
}

// Chunk splits text into ordered overlapping substrings. Consecutive chunks
// share ChunkOverlap characters. Splitting is rune-aware so multi-byte
// characters are never cut in half.
func (p *Processor) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= p.config.ChunkSize {
		return []string{text}
	}

	step := p.config.ChunkSize - p.config.ChunkOverlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + p.config.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}

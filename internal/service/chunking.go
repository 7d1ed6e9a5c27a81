package service

import (
	"regexp"
	"strings"
)

// ChunkConfig controls paragraph-bounded chunking of block bodies.
type ChunkConfig struct {
	MaxChars int
	MinChars int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1200,
		MinChars: 300,
	}
}

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// chunkBody splits a block body into chunks on paragraph boundaries.
// Paragraphs accumulate into a buffer; if appending the next paragraph would
// exceed MaxChars the buffer is flushed first, and a buffer that itself
// reaches MaxChars is force-flushed. MinChars only delays flushing during
// accumulation; the final flush is always forced, so the last chunk of a
// block may run short.
func chunkBody(body string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(body)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}

	var chunks []string
	var buf strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(buf.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
	}

	for _, para := range paragraphSplit.Split(clean, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if buf.Len() > 0 && buf.Len()+len(para)+2 > cfg.MaxChars && buf.Len() >= cfg.MinChars {
			flush()
		}

		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(para)

		if buf.Len() >= cfg.MaxChars {
			flush()
		}
	}
	flush()

	return chunks
}

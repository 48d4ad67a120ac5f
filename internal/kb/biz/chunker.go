package biz

import (
	"regexp"
	"strings"

	"github.com/kart-io/sentinel-kb/internal/model"
)

// TextChunk is a single chunk produced from a document, before embedding.
type TextChunk struct {
	Content  string
	Position int
	Section  string
}

// Chunker splits parsed content into chunks according to a chunking config.
type Chunker struct{}

// NewChunker creates a Chunker.
func NewChunker() *Chunker {
	return &Chunker{}
}

// Chunk splits content using the configured strategy. Unknown strategies are
// rejected at config validation time; anything else falls through to fixed
// splitting.
func (c *Chunker) Chunk(content string, cfg model.ChunkingConfig) []TextChunk {
	switch cfg.Strategy {
	case model.ChunkHeading:
		return c.chunkByHeading(content, cfg)
	case model.ChunkSemantic:
		return c.chunkSemantic(content, cfg)
	default:
		return c.chunkFixed(content, cfg)
	}
}

// chunkFixed splits text into fixed-size rune windows with overlap. With
// size S and overlap O the window advances S-O runes per step, so a text of
// N runes yields ceil(N/(S-O)) chunks and every chunk after the first
// repeats the last O runes of its predecessor.
func (c *Chunker) chunkFixed(text string, cfg model.ChunkingConfig) []TextChunk {
	return appendFixedChunks(nil, text, "", cfg)
}

func appendFixedChunks(chunks []TextChunk, text, section string, cfg model.ChunkingConfig) []TextChunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return chunks
	}

	step := cfg.ChunkSize - cfg.ChunkOverlap
	if step <= 0 {
		step = cfg.ChunkSize
	}

	for start := 0; start < len(runes); start += step {
		end := start + cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, TextChunk{
			Content:  string(runes[start:end]),
			Position: len(chunks),
			Section:  section,
		})
	}

	return chunks
}

var headingRegex = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// chunkByHeading splits markdown content at headings, then fixed-chunks each
// section so oversized sections still respect the size bound. Chunks carry
// their section title.
func (c *Chunker) chunkByHeading(content string, cfg model.ChunkingConfig) []TextChunk {
	sections := headingRegex.Split(content, -1)
	headings := headingRegex.FindAllStringSubmatch(content, -1)

	var chunks []TextChunk
	currentSection := ""
	for i, section := range sections {
		if i > 0 && i-1 < len(headings) {
			currentSection = headings[i-1][2]
		}

		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		chunks = appendFixedChunks(chunks, section, currentSection, cfg)
	}

	if len(chunks) == 0 {
		// No headings and no body text worth keeping; chunk the raw content.
		chunks = appendFixedChunks(chunks, strings.TrimSpace(content), "", cfg)
	}
	return chunks
}

// chunkSemantic packs paragraphs greedily up to the chunk size, never
// splitting a paragraph unless it alone exceeds the size bound. Overlap does
// not apply across paragraph-packed chunks.
func (c *Chunker) chunkSemantic(content string, cfg model.ChunkingConfig) []TextChunk {
	paragraphs := splitParagraphs(content)

	var chunks []TextChunk
	var buf []string
	bufLen := 0

	flush := func() {
		if bufLen == 0 {
			return
		}
		chunks = append(chunks, TextChunk{
			Content:  strings.Join(buf, "\n\n"),
			Position: len(chunks),
		})
		buf = buf[:0]
		bufLen = 0
	}

	for _, p := range paragraphs {
		pLen := len([]rune(p))
		if pLen > cfg.ChunkSize {
			flush()
			chunks = appendFixedChunks(chunks, p, "", cfg)
			continue
		}
		// +2 for the paragraph separator.
		if bufLen > 0 && bufLen+2+pLen > cfg.ChunkSize {
			flush()
		}
		buf = append(buf, p)
		if bufLen > 0 {
			bufLen += 2
		}
		bufLen += pLen
	}
	flush()

	return chunks
}

func splitParagraphs(content string) []string {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n")
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

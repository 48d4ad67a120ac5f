package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-kb/internal/model"
)

func fixedConfig(size, overlap int) model.ChunkingConfig {
	return model.ChunkingConfig{Strategy: model.ChunkFixed, ChunkSize: size, ChunkOverlap: overlap}
}

func TestChunkerFixedCounts(t *testing.T) {
	chunker := NewChunker()

	tests := []struct {
		name    string
		length  int
		size    int
		overlap int
		want    int
	}{
		{name: "empty text", length: 0, size: 1000, overlap: 200, want: 0},
		{name: "shorter than one step", length: 500, size: 1000, overlap: 200, want: 1},
		{name: "exactly one step", length: 800, size: 1000, overlap: 200, want: 1},
		{name: "exactly chunk size", length: 1000, size: 1000, overlap: 200, want: 2},
		{name: "five thousand chars", length: 5000, size: 1000, overlap: 200, want: 7},
		{name: "no overlap", length: 5000, size: 1000, overlap: 0, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("a", tt.length)
			chunks := chunker.Chunk(text, fixedConfig(tt.size, tt.overlap))
			assert.Len(t, chunks, tt.want)
		})
	}
}

func TestChunkerFixedOverlap(t *testing.T) {
	chunker := NewChunker()

	// Distinct runes so overlap regions are verifiable by content.
	var sb strings.Builder
	for i := 0; i < 5000; i++ {
		sb.WriteRune(rune('a' + i%26))
	}
	text := sb.String()

	chunks := chunker.Chunk(text, fixedConfig(1000, 200))
	require.Len(t, chunks, 7)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		cur := []rune(chunks[i].Content)
		assert.Equal(t, string(prev[len(prev)-200:]), string(cur[:200]),
			"chunk %d should start with the last 200 runes of chunk %d", i, i-1)
	}

	// Positions are sequential and the tail chunk holds the remainder.
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
	}
	assert.Len(t, []rune(chunks[6].Content), 200)
}

func TestChunkerFixedRuneSafety(t *testing.T) {
	chunker := NewChunker()

	text := strings.Repeat("知识库测试内容", 100) // 700 runes, multi-byte
	chunks := chunker.Chunk(text, fixedConfig(300, 50))

	require.NotEmpty(t, chunks)
	total := 0
	for _, c := range chunks {
		assert.True(t, len([]rune(c.Content)) <= 300)
		total += len([]rune(c.Content))
	}
	// Every chunk must be valid UTF-8; byte-level splitting would break runes.
	for _, c := range chunks {
		assert.Equal(t, c.Content, string([]rune(c.Content)))
	}
	assert.Greater(t, total, 700, "overlap should duplicate runes across chunks")
}

func TestChunkerHeading(t *testing.T) {
	chunker := NewChunker()

	content := "preamble text\n\n# Install\n\nrun the installer\n\n## Verify\n\ncheck the version"
	chunks := chunker.Chunk(content, model.ChunkingConfig{
		Strategy:  model.ChunkHeading,
		ChunkSize: 1000,
	})

	require.Len(t, chunks, 3)
	assert.Equal(t, "", chunks[0].Section)
	assert.Equal(t, "preamble text", chunks[0].Content)
	assert.Equal(t, "Install", chunks[1].Section)
	assert.Equal(t, "Verify", chunks[2].Section)
}

func TestChunkerHeadingOversizedSection(t *testing.T) {
	chunker := NewChunker()

	content := "# Big\n\n" + strings.Repeat("x", 500)
	chunks := chunker.Chunk(content, model.ChunkingConfig{
		Strategy:  model.ChunkHeading,
		ChunkSize: 200,
	})

	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, "Big", c.Section)
		assert.LessOrEqual(t, len(c.Content), 200)
	}
}

func TestChunkerHeadingNoHeadings(t *testing.T) {
	chunker := NewChunker()

	chunks := chunker.Chunk("plain text without structure", model.ChunkingConfig{
		Strategy:  model.ChunkHeading,
		ChunkSize: 1000,
	})
	require.Len(t, chunks, 1)
	assert.Equal(t, "plain text without structure", chunks[0].Content)
}

func TestChunkerSemantic(t *testing.T) {
	chunker := NewChunker()

	t.Run("packs paragraphs up to the size bound", func(t *testing.T) {
		p1 := strings.Repeat("a", 40)
		p2 := strings.Repeat("b", 40)
		p3 := strings.Repeat("c", 40)
		chunks := chunker.Chunk(p1+"\n\n"+p2+"\n\n"+p3, model.ChunkingConfig{
			Strategy:  model.ChunkSemantic,
			ChunkSize: 90,
		})

		require.Len(t, chunks, 2)
		assert.Equal(t, p1+"\n\n"+p2, chunks[0].Content)
		assert.Equal(t, p3, chunks[1].Content)
	})

	t.Run("splits an oversized paragraph", func(t *testing.T) {
		chunks := chunker.Chunk(strings.Repeat("x", 250), model.ChunkingConfig{
			Strategy:  model.ChunkSemantic,
			ChunkSize: 100,
		})
		require.Len(t, chunks, 3)
	})

	t.Run("empty content", func(t *testing.T) {
		chunks := chunker.Chunk("  \n\n  ", model.ChunkingConfig{
			Strategy:  model.ChunkSemantic,
			ChunkSize: 100,
		})
		assert.Empty(t, chunks)
	})
}

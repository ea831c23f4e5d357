package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
)

func TestSplitHeaderHierarchy(t *testing.T) {
	text := "# Guide\nintro text\n\n## Install\nrun it\n\n### Linux\napt\n## Usage\nuse it\n# Appendix\nmore"

	docs := Split(text)
	require.Len(t, docs, 5)

	assert.Equal(t, "# Guide\nintro text", docs[0].PageContent)
	assert.Equal(t, map[string]any{"Header 1": "Guide"}, docs[0].Metadata)

	assert.Equal(t, "## Install\nrun it", docs[1].PageContent)
	assert.Equal(t, map[string]any{"Header 1": "Guide", "Header 2": "Install"}, docs[1].Metadata)

	assert.Equal(t, map[string]any{"Header 1": "Guide", "Header 2": "Install", "Header 3": "Linux"}, docs[2].Metadata)

	// A sibling H2 drops the H3 above it.
	assert.Equal(t, map[string]any{"Header 1": "Guide", "Header 2": "Usage"}, docs[3].Metadata)

	// A new H1 clears everything below it.
	assert.Equal(t, map[string]any{"Header 1": "Appendix"}, docs[4].Metadata)
}

func TestSplitTextBeforeFirstHeader(t *testing.T) {
	docs := Split("preamble\n# Title\nbody")
	require.Len(t, docs, 2)
	assert.Equal(t, "preamble", docs[0].PageContent)
	assert.Empty(t, docs[0].Metadata)
	assert.NotNil(t, docs[0].Metadata)
}

func TestSplitHeaderOnlySectionKept(t *testing.T) {
	docs := Split("# Lonely")
	require.Len(t, docs, 1)
	assert.Equal(t, "# Lonely", docs[0].PageContent)
}

func TestSplitStripHeaders(t *testing.T) {
	docs := New(nil, WithStripHeaders(true)).Split("# Lonely\n## Sub\nbody")
	require.Len(t, docs, 1)
	assert.Equal(t, "body", docs[0].PageContent)
	assert.Equal(t, "Sub", docs[0].Metadata["Header 2"])
}

func TestSplitIgnoresHeadersInCodeFences(t *testing.T) {
	text := "# Code\n```bash\n# not a header\n```\n~~~\n## also not\n~~~\nafter"
	docs := Split(text)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].PageContent, "# not a header")
	assert.Contains(t, docs[0].PageContent, "## also not")
	assert.NotContains(t, docs[0].Metadata, "Header 2")
}

func TestSplitRequiresSpaceAfterPrefix(t *testing.T) {
	docs := Split("#hashtag\n####deep\ntext")
	require.Len(t, docs, 1)
	assert.Empty(t, docs[0].Metadata)
}

func TestSplitCustomHeaders(t *testing.T) {
	docs := Split("# A\none\n## B\ntwo", Header{Prefix: "##", Name: "Section"})
	require.Len(t, docs, 2)
	assert.Empty(t, docs[0].Metadata)
	assert.Equal(t, "# A\none", docs[0].PageContent)
	assert.Equal(t, map[string]any{"Section": "B"}, docs[1].Metadata)
}

func TestSplitDropsBlankSections(t *testing.T) {
	assert.Empty(t, Split(""))
	assert.Empty(t, Split("\n\n  \n"))
}

func TestSplitMetadataNotShared(t *testing.T) {
	docs := Split("# A\none\n\ntwo\n## B\nthree")
	require.Len(t, docs, 2)
	docs[0].Metadata["extra"] = true
	assert.NotContains(t, docs[1].Metadata, "extra")
}

func TestChunk(t *testing.T) {
	long := strings.Repeat("word ", 100)
	docs := []schema.Document{
		{PageContent: "short", Metadata: map[string]any{"page_number": 1}},
		{PageContent: long, Metadata: map[string]any{"page_number": 2}},
	}

	out, err := Chunk(docs, 50, 10)
	require.NoError(t, err)
	require.Greater(t, len(out), 2)

	assert.Equal(t, "short", out[0].PageContent)
	for _, d := range out[1:] {
		assert.LessOrEqual(t, utf8.RuneCountInString(d.PageContent), 50)
		assert.Equal(t, 2, d.Metadata["page_number"])
	}

	out[1].Metadata["page_number"] = 99
	assert.Equal(t, 2, out[2].Metadata["page_number"])
}

func TestChunkDisabled(t *testing.T) {
	docs := []schema.Document{{PageContent: strings.Repeat("x", 500)}}
	out, err := Chunk(docs, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, docs, out)
}

package markdown

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ansuz/internal/models"
)

func block(t models.BlockType, level int, content string) models.Block {
	b := models.NewBlock(t)
	b.Level = level
	b.Content = content
	return b
}

func page(blocks ...models.Block) *models.Page {
	p := models.NewPage("test")
	p.Blocks = blocks
	return p
}

type triple struct {
	t       models.BlockType
	level   int
	content string
}

func triples(blocks []models.Block) []triple {
	out := make([]triple, len(blocks))
	for i, b := range blocks {
		out[i] = triple{b.Type, b.Level, b.Content}
	}
	return out
}

func TestExportMarkers(t *testing.T) {
	p := page(
		block(models.TypeHeading1, 0, "Title"),
		block(models.TypeParagraph, 0, "Plain text."),
		block(models.TypeListItem, 1, "first"),
		block(models.TypeQuote, 2, "said someone"),
	)
	got := ExportPage(p)
	want := "# Title\n\nPlain text.\n\n  - first\n\n    > said someone\n"
	assert.Equal(t, want, got)
}

func TestExportCodeFences(t *testing.T) {
	p := page(block(models.TypeCode, 1, "x := 1\ny := 2"))
	got := ExportPage(p)
	assert.Equal(t, "  ```\nx := 1\ny := 2\n  ```\n", got)
}

func TestRoundTripOneOfEachType(t *testing.T) {
	p := page(
		block(models.TypeHeading1, 0, "Title"),
		block(models.TypeHeading2, 1, "Section"),
		block(models.TypeHeading3, 2, "Subsection"),
		block(models.TypeParagraph, 1, "Body text."),
		block(models.TypeQuote, 2, "A quotation."),
		block(models.TypeCode, 0, "fmt.Println(\"hi\")"),
		block(models.TypeListItem, 3, "An item."),
	)

	res := Import(ExportPage(p), "rt")
	assert.Empty(t, res.Warnings)
	assert.Equal(t, triples(p.Blocks), triples(res.Page.Blocks),
		"(type, level, content) triples survive the round trip")
}

func TestImportRecognizesMarkers(t *testing.T) {
	res := Import("# H\n\n## HH\n\n> q\n\n- item\n\nplain\n", "")
	require.Len(t, res.Page.Blocks, 5)
	assert.Equal(t, []triple{
		{models.TypeHeading1, 0, "H"},
		{models.TypeHeading2, 0, "HH"},
		{models.TypeQuote, 0, "q"},
		{models.TypeListItem, 0, "item"},
		{models.TypeParagraph, 0, "plain"},
	}, triples(res.Page.Blocks))
}

func TestImportClampsDeepIndentation(t *testing.T) {
	res := Import(strings.Repeat("  ", 9)+"- deep\n", "t")
	require.Len(t, res.Page.Blocks, 1)
	assert.Equal(t, models.MaxLevel, res.Page.Blocks[0].Level)
}

func TestImportAllBlankYieldsOneParagraph(t *testing.T) {
	for _, input := range []string{"", "\n\n   \n"} {
		res := Import(input, "t")
		require.Len(t, res.Page.Blocks, 1, "input %q", input)
		assert.Equal(t, models.TypeParagraph, res.Page.Blocks[0].Type)
		assert.Empty(t, res.Page.Blocks[0].Content)
	}
}

func TestImportDeepHeadingDegrades(t *testing.T) {
	res := Import("#### too deep\n", "t")
	require.Len(t, res.Page.Blocks, 1)
	assert.Equal(t, models.TypeParagraph, res.Page.Blocks[0].Type)
	assert.Equal(t, "#### too deep", res.Page.Blocks[0].Content)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "downgraded")
}

func TestImportUnterminatedFence(t *testing.T) {
	res := Import("```\ncode line\n", "t")
	require.Len(t, res.Page.Blocks, 1)
	assert.Equal(t, models.TypeCode, res.Page.Blocks[0].Type)
	assert.Equal(t, "code line", res.Page.Blocks[0].Content)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "unterminated")
}

func TestImportFenceLanguageDiscarded(t *testing.T) {
	res := Import("```go\nx := 1\n```\n", "t")
	require.Len(t, res.Page.Blocks, 1)
	assert.Equal(t, "x := 1", res.Page.Blocks[0].Content)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "go")
}

func TestImportTitle(t *testing.T) {
	res := Import("# From Heading\n\ntext\n", "")
	assert.Equal(t, "From Heading", res.Page.Title)

	res = Import("# From Heading\n", "Explicit")
	assert.Equal(t, "Explicit", res.Page.Title)

	res = Import("just text\n", "")
	assert.Equal(t, "Imported", res.Page.Title)
}

func TestExportWorkspaceStableOrder(t *testing.T) {
	ws := models.NewWorkspace("w")
	first := models.NewPage("first")
	first.Blocks = []models.Block{block(models.TypeParagraph, 0, "one")}
	second := models.NewPage("second")
	second.Blocks = []models.Block{block(models.TypeParagraph, 0, "two")}
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	ws.Pages[second.ID] = second
	ws.Pages[first.ID] = first

	got := ExportWorkspace(ws)
	assert.Equal(t, "one\n\ntwo\n", got)
}

// Package markdown converts block sequences to and from a plain-text markup
// form. The parser is a best-effort line scanner over the fixed block-type
// subset, not a full markup grammar.
package markdown

import (
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// indentUnit is the per-level indentation rendered before a type marker.
const indentUnit = "  "

const fence = "```"

// ImportResult carries an imported page plus non-fatal parse degradations:
// lines that carried unrecognized syntax and fell back to paragraph blocks.
type ImportResult struct {
	Page     *models.Page
	Warnings []string
}

// ExportPage renders one page's block sequence. Blocks are separated by one
// blank line; a block's level becomes leading indentation, two spaces per
// level, before its type marker.
func ExportPage(p *models.Page) string {
	parts := make([]string, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		parts = append(parts, renderBlock(b))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// ExportWorkspace concatenates every page's export in a stable order
// (creation time, then id).
func ExportWorkspace(ws *models.Workspace) string {
	pages := make([]*models.Page, 0, len(ws.Pages))
	for _, p := range ws.Pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool {
		if !pages[i].CreatedAt.Equal(pages[j].CreatedAt) {
			return pages[i].CreatedAt.Before(pages[j].CreatedAt)
		}
		return pages[i].ID < pages[j].ID
	})

	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, strings.TrimRight(ExportPage(p), "\n"))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func renderBlock(b models.Block) string {
	indent := strings.Repeat(indentUnit, b.Level)
	switch b.Type {
	case models.TypeHeading1:
		return indent + "# " + b.Content
	case models.TypeHeading2:
		return indent + "## " + b.Content
	case models.TypeHeading3:
		return indent + "### " + b.Content
	case models.TypeQuote:
		return indent + "> " + b.Content
	case models.TypeListItem:
		return indent + "- " + b.Content
	case models.TypeCode:
		// Fences carry the indentation; content lines stay verbatim so the
		// round trip preserves the code exactly.
		return indent + fence + "\n" + b.Content + "\n" + indent + fence
	default:
		return indent + b.Content
	}
}

// Import parses markup line by line into a new page. Type comes from the
// marker, level from leading indentation (two-space units, clamped to
// MaxLevel), content from the remainder. Lines matching no known marker
// become paragraph blocks. All-blank input yields a page with one empty
// paragraph block, keeping the page invariant.
func Import(markup, title string) ImportResult {
	var (
		blocks   []models.Block
		warnings []string
	)

	lines := strings.Split(markup, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		level, rest := splitIndent(line)

		if strings.HasPrefix(rest, fence) {
			if lang := strings.TrimSpace(strings.TrimPrefix(rest, fence)); lang != "" {
				warnings = append(warnings, "code fence language "+lang+" discarded")
			}
			var code []string
			closed := false
			for i++; i < len(lines); i++ {
				if strings.TrimSpace(lines[i]) == fence {
					closed = true
					break
				}
				code = append(code, lines[i])
			}
			if !closed {
				warnings = append(warnings, "unterminated code fence")
			}
			b := models.NewBlock(models.TypeCode)
			b.Level = level
			b.Content = strings.Join(code, "\n")
			blocks = append(blocks, b)
			continue
		}

		t, content, warn := classifyLine(rest)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		b := models.NewBlock(t)
		b.Level = level
		b.Content = content
		blocks = append(blocks, b)
	}

	if title == "" {
		title = deriveTitle(blocks)
	}
	page := models.NewPage(title)
	if len(blocks) > 0 {
		page.Blocks = blocks
	}
	return ImportResult{Page: page, Warnings: warnings}
}

// splitIndent converts leading spaces into a level, clamped to MaxLevel.
func splitIndent(line string) (int, string) {
	rest := strings.TrimLeft(line, " ")
	level := (len(line) - len(rest)) / len(indentUnit)
	if level > models.MaxLevel {
		level = models.MaxLevel
	}
	return level, rest
}

func classifyLine(rest string) (models.BlockType, string, string) {
	switch {
	case strings.HasPrefix(rest, "# "):
		return models.TypeHeading1, rest[2:], ""
	case strings.HasPrefix(rest, "## "):
		return models.TypeHeading2, rest[3:], ""
	case strings.HasPrefix(rest, "### "):
		return models.TypeHeading3, rest[4:], ""
	case strings.HasPrefix(rest, "####"):
		// Deeper headings than the block model supports.
		return models.TypeParagraph, rest, "heading deeper than ### downgraded to paragraph"
	case strings.HasPrefix(rest, "> "):
		return models.TypeQuote, rest[2:], ""
	case rest == ">":
		return models.TypeQuote, "", ""
	case strings.HasPrefix(rest, "- "):
		return models.TypeListItem, rest[2:], ""
	default:
		return models.TypeParagraph, rest, ""
	}
}

func deriveTitle(blocks []models.Block) string {
	for _, b := range blocks {
		if b.Type == models.TypeHeading1 && b.Content != "" {
			return b.Content
		}
	}
	return "Imported"
}

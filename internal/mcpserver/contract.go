package mcpserver

// OutlineFormatContract describes the markdown dialect the engine understands
// so LLM consumers produce importable documents.
const OutlineFormatContract = `# Ansuz Outline Format Contract

Every markdown document imported into Ansuz is parsed into a flat sequence of
typed blocks. Hierarchy comes from indentation, not from nesting syntax.

## Block markers

` + "```" + `markdown
# Heading 1
## Heading 2
### Heading 3
> A quote block
- A list item
A plain paragraph

` + "```" + `go
fenced code blocks keep their content verbatim
` + "```" + `
` + "```" + `

## Rules

1. **Blocks are separated by blank lines.** Consecutive non-blank lines inside
   a fenced code block belong to that block; everywhere else each marked line
   starts a new block.
2. **Indentation encodes depth.** Two leading spaces per level, at most five
   levels deep. A block indented under another becomes its child in the
   outline view.
3. **Only three heading levels exist.** ` + "`" + `####` + "`" + ` and deeper degrade to
   paragraphs and the import reports a warning.
4. **Fence languages are discarded.** ` + "```" + `go` + "```" + ` imports as a plain code
   block; the import reports a warning so nothing is lost silently.
5. **An unterminated fence** consumes the rest of the document and is reported
   as a warning.
6. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
# Project plan

A short introduction paragraph.

- First milestone

  - Nested sub-task

> Remember to review weekly.
` + "```" + `
`
